// Package queue is the dispatch channel carrying job identifiers from
// submission to the workers. Delivery is at-least-once with no ordering
// guarantee across jobs; dedup happens downstream via the lease store and
// the job store's compare-and-set.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message is the wire payload: a job identifier plus the 1-indexed
// delivery attempt. Workers load the Job record themselves, so the queue
// never carries job state that could go stale.
type Message struct {
	JobID   uuid.UUID `json:"job_id"`
	Attempt int       `json:"attempt"`
}

// Delivery wraps a received message with its acknowledgement callbacks.
type Delivery struct {
	Message
	Ack  func() error
	Nack func(requeue bool) error
}

// Publisher enqueues job identifiers for dispatch.
type Publisher interface {
	// Publish enqueues a message for immediate delivery.
	Publish(ctx context.Context, msg Message) error

	// PublishDelayed enqueues a message that becomes deliverable only
	// after delay has elapsed. Used by the retry policy so workers never
	// sleep through a backoff interval.
	PublishDelayed(ctx context.Context, msg Message, delay time.Duration) error

	// Healthy reports whether the broker connection is currently usable.
	Healthy() bool

	Close() error
}
