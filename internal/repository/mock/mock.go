package mock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhishekpatel946/replicate-media-generation/internal/domain"
	"github.com/abhishekpatel946/replicate-media-generation/internal/repository"
)

// ---- JobStore mock ----

var _ repository.JobStore = (*JobStore)(nil)

// JobStore is an in-memory test double for repository.JobStore. It keeps
// real compare-and-set semantics so state machine tests exercise the
// same conflict paths as the Postgres implementation. Function hooks
// override individual operations when set.
type JobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*domain.Job

	CreateFn       func(ctx context.Context, job *domain.Job) error
	GetByIDFn      func(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	UpdateStatusFn func(ctx context.Context, id uuid.UUID, expected, next domain.JobStatus, fields repository.JobUpdates) error

	// Recorded transitions for assertions.
	Transitions []Transition
}

type Transition struct {
	ID       uuid.UUID
	Expected domain.JobStatus
	Next     domain.JobStatus
	Fields   repository.JobUpdates
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[uuid.UUID]*domain.Job)}
}

// Seed inserts a job directly, bypassing hooks and recording.
func (m *JobStore) Seed(job *domain.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
}

// Job returns a copy of the stored job, or nil if absent.
func (m *JobStore) Job(id uuid.UUID) *domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil
	}
	cp := *job
	return &cp
}

func (m *JobStore) Create(ctx context.Context, job *domain.Job) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, job)
	}
	m.Seed(job)
	return nil
}

func (m *JobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	job := m.Job(id)
	if job == nil {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

func (m *JobStore) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next domain.JobStatus, fields repository.JobUpdates) error {
	m.mu.Lock()
	m.Transitions = append(m.Transitions, Transition{ID: id, Expected: expected, Next: next, Fields: fields})
	m.mu.Unlock()

	if m.UpdateStatusFn != nil {
		return m.UpdateStatusFn(ctx, id, expected, next, fields)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.Status != expected {
		return domain.ErrStatusConflict
	}

	job.Status = next
	job.UpdatedAt = time.Now().UTC()
	if fields.RetryCount != nil {
		job.RetryCount = *fields.RetryCount
	}
	if fields.ErrorMessage != nil {
		job.ErrorMessage = fields.ErrorMessage
	}
	if fields.ResultURL != nil {
		job.ResultURL = fields.ResultURL
	}
	if fields.FilePath != nil {
		job.FilePath = fields.FilePath
	}
	if fields.FileSize != nil {
		job.FileSize = fields.FileSize
	}
	if fields.ExternalJobID != nil {
		job.ExternalJobID = fields.ExternalJobID
	}
	if fields.StartedAt != nil {
		job.StartedAt = fields.StartedAt
	}
	if fields.CompletedAt != nil {
		job.CompletedAt = fields.CompletedAt
	}
	return nil
}

func (m *JobStore) List(ctx context.Context, filter repository.ListFilter) ([]*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Job
	for _, job := range m.jobs {
		if filter.Status != nil && job.Status != *filter.Status {
			continue
		}
		cp := *job
		out = append(out, &cp)
	}
	return out, nil
}

func (m *JobStore) StuckProcessing(ctx context.Context, cutoff time.Time) ([]*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Job
	for _, job := range m.jobs {
		if job.Status == domain.StatusProcessing && job.UpdatedAt.Before(cutoff) {
			cp := *job
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *JobStore) CompletedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Job
	for _, job := range m.jobs {
		if job.Status == domain.StatusCompleted && job.FilePath != nil &&
			job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			cp := *job
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *JobStore) ClearResult(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	job.FilePath = nil
	job.ResultURL = nil
	job.FileSize = nil
	return nil
}

// ---- LeaseStore mock ----

var _ repository.LeaseStore = (*LeaseStore)(nil)

// LeaseStore is a test double for repository.LeaseStore.
type LeaseStore struct {
	mu sync.Mutex

	AcquireFn func(ctx context.Context, jobID uuid.UUID, attempt int) (bool, error)
	ReleaseFn func(ctx context.Context, jobID uuid.UUID, attempt int) error

	AcquireCalls []LeaseCall
	ReleaseCalls []LeaseCall
}

type LeaseCall struct {
	JobID   uuid.UUID
	Attempt int
}

func (m *LeaseStore) Acquire(ctx context.Context, jobID uuid.UUID, attempt int) (bool, error) {
	m.mu.Lock()
	m.AcquireCalls = append(m.AcquireCalls, LeaseCall{JobID: jobID, Attempt: attempt})
	m.mu.Unlock()
	if m.AcquireFn != nil {
		return m.AcquireFn(ctx, jobID, attempt)
	}
	return true, nil // default: lease acquired
}

func (m *LeaseStore) Release(ctx context.Context, jobID uuid.UUID, attempt int) error {
	m.mu.Lock()
	m.ReleaseCalls = append(m.ReleaseCalls, LeaseCall{JobID: jobID, Attempt: attempt})
	m.mu.Unlock()
	if m.ReleaseFn != nil {
		return m.ReleaseFn(ctx, jobID, attempt)
	}
	return nil
}
