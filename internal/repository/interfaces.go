package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/abhishekpatel946/replicate-media-generation/internal/domain"
)

// JobUpdates carries the optional fields written alongside a status
// transition. Nil fields are left untouched.
type JobUpdates struct {
	RetryCount    *int
	ErrorMessage  *string
	ResultURL     *string
	FilePath      *string
	FileSize      *int64
	ExternalJobID *string
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

// ListFilter narrows and pages a job listing. Results are always returned
// in reverse creation order.
type ListFilter struct {
	Status *domain.JobStatus
	Limit  int
	Offset int
}

// JobStore defines the interface for job persistence operations.
// Implementations must be safe for concurrent use.
type JobStore interface {
	// Create inserts a new job into the data store.
	Create(ctx context.Context, job *domain.Job) error

	// GetByID retrieves a job by its UUID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// UpdateStatus transitions a job from expected to next and applies
	// fields, as a single compare-and-set against the current status.
	// Returns domain.ErrStatusConflict if the job is no longer in the
	// expected status, or domain.ErrJobNotFound if the id is unknown.
	// Two workers racing on a redelivered message resolve here: exactly
	// one transition wins.
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next domain.JobStatus, fields JobUpdates) error

	// List returns jobs matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]*domain.Job, error)

	// StuckProcessing returns jobs that have sat in processing with no
	// status change since before cutoff. Used by the stale-lease sweep.
	StuckProcessing(ctx context.Context, cutoff time.Time) ([]*domain.Job, error)

	// CompletedBefore returns completed jobs whose artifacts are older
	// than cutoff and still present. Used by retention cleanup.
	CompletedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Job, error)

	// ClearResult removes the artifact references from a job row after
	// its files have been deleted by retention cleanup.
	ClearResult(ctx context.Context, id uuid.UUID) error
}

// LeaseStore defines the interface for distributed per-attempt worker
// leases. A lease dedupes at-least-once redeliveries of the same attempt
// while leaving later retry attempts claimable.
type LeaseStore interface {
	// Acquire attempts to take the lease for one delivery attempt of a
	// job. Returns true if acquired (first delivery), false if another
	// worker already holds it (duplicate).
	Acquire(ctx context.Context, jobID uuid.UUID, attempt int) (bool, error)

	// Release marks the lease for eventual cleanup once the attempt has
	// finished.
	Release(ctx context.Context, jobID uuid.UUID, attempt int) error
}
