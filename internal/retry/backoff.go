// Package retry implements the exponential backoff policy applied to
// transient generation failures.
package retry

import (
	"math"
	"time"
)

// Policy computes retry delays and bounds the number of attempts.
// A Policy is stateless and safe for concurrent use.
type Policy struct {
	BaseDelay   time.Duration
	Factor      float64
	MaxDelay    time.Duration
	MaxAttempts int
}

// DefaultPolicy mirrors the service defaults: 1s base, doubling, capped at
// 5 minutes, 3 attempts.
func DefaultPolicy() *Policy {
	return &Policy{
		BaseDelay:   time.Second,
		Factor:      2,
		MaxDelay:    5 * time.Minute,
		MaxAttempts: 3,
	}
}

// Delay returns the wait before retry attempt n (1-indexed):
// min(BaseDelay * Factor^(n-1), MaxDelay).
func (p *Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(p.BaseDelay) * math.Pow(p.Factor, float64(attempt-1)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Exhausted reports whether retryCount has consumed the attempt budget.
func (p *Policy) Exhausted(retryCount int) bool {
	return retryCount >= p.MaxAttempts
}
