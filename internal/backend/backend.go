// Package backend adapts external media generation providers behind a
// single interface. Failures are classified as transient or permanent via
// domain.BackendError so the retry policy never needs to know which
// provider produced them.
package backend

import (
	"context"

	"github.com/google/uuid"
)

// Request carries the immutable generation payload of a job.
type Request struct {
	JobID      uuid.UUID
	Prompt     string
	ModelName  string
	Parameters map[string]any
}

// Result is the raw outcome of a successful generation.
type Result struct {
	Data          []byte
	ContentType   string
	ExternalJobID string
}

// Generator produces a media artifact for a request, or fails with a
// classified error. The call may be long-running; implementations must
// honour context cancellation.
type Generator interface {
	Generate(ctx context.Context, req *Request) (*Result, error)
}
