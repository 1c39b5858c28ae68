package retry_test

import (
	"testing"
	"time"

	"github.com/abhishekpatel946/replicate-media-generation/internal/retry"
)

// Test: delays double from the base and never exceed the cap.
func TestDelay_ExponentialWithCap(t *testing.T) {
	p := &retry.Policy{
		BaseDelay:   time.Second,
		Factor:      2,
		MaxDelay:    8 * time.Second,
		MaxAttempts: 10,
	}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 8 * time.Second}, // capped
		{0, time.Second},     // clamped to the first attempt
	}

	for _, tc := range cases {
		if got := p.Delay(tc.attempt); got != tc.want {
			t.Errorf("Delay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

// Test: the default policy matches the service defaults.
func TestDefaultPolicy(t *testing.T) {
	p := retry.DefaultPolicy()

	if p.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", p.MaxAttempts)
	}
	if got := p.Delay(1); got != time.Second {
		t.Errorf("Delay(1) = %v, want 1s", got)
	}
	if got := p.Delay(2); got != 2*time.Second {
		t.Errorf("Delay(2) = %v, want 2s", got)
	}
	if got := p.Delay(20); got != 5*time.Minute {
		t.Errorf("Delay(20) = %v, want cap of 5m", got)
	}
}

// Test: the budget is spent exactly at MaxAttempts.
func TestExhausted(t *testing.T) {
	p := &retry.Policy{BaseDelay: time.Second, Factor: 2, MaxAttempts: 3}

	for n, want := range map[int]bool{0: false, 1: false, 2: false, 3: true, 4: true} {
		if got := p.Exhausted(n); got != want {
			t.Errorf("Exhausted(%d) = %v, want %v", n, got, want)
		}
	}
}
