package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhishekpatel946/replicate-media-generation/internal/domain"
	"github.com/abhishekpatel946/replicate-media-generation/internal/queue"
	queuemock "github.com/abhishekpatel946/replicate-media-generation/internal/queue/mock"
	"github.com/abhishekpatel946/replicate-media-generation/internal/repository"
	"github.com/abhishekpatel946/replicate-media-generation/internal/repository/mock"
	"github.com/abhishekpatel946/replicate-media-generation/internal/usecase"
)

func usecaseSubmit(store repository.JobStore, pub queue.Publisher) *usecase.SubmitJobUsecase {
	return usecase.NewSubmitJobUsecase(store, pub, zap.NewNop())
}

func usecaseCancel(store repository.JobStore) *usecase.CancelJobUsecase {
	return usecase.NewCancelJobUsecase(store, zap.NewNop())
}

func usecaseList(store repository.JobStore) *usecase.ListJobsUsecase {
	return usecase.NewListJobsUsecase(store, zap.NewNop())
}

func seedJob(store *mock.JobStore, status domain.JobStatus) *domain.Job {
	job := &domain.Job{
		ID:        uuid.New(),
		Prompt:    "a red fox in the snow",
		ModelName: domain.DefaultModel,
		Status:    status,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	store.Seed(job)
	return job
}

// Test: valid submission creates a pending job and enqueues it.
func TestSubmit_Success(t *testing.T) {
	store := mock.NewJobStore()
	pub := &queuemock.Publisher{}
	uc := usecaseSubmit(store, pub)

	resp, err := uc.Execute(context.Background(), &domain.SubmitRequest{
		Prompt: "a lighthouse at dusk",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != string(domain.StatusPending) {
		t.Errorf("expected pending status, got %s", resp.Status)
	}

	job := store.Job(resp.JobID)
	if job == nil {
		t.Fatal("job not persisted")
	}
	if job.ModelName != domain.DefaultModel {
		t.Errorf("expected default model, got %s", job.ModelName)
	}

	if len(pub.Published) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(pub.Published))
	}
	if pub.Published[0].JobID != resp.JobID || pub.Published[0].Attempt != 1 {
		t.Errorf("unexpected message: %+v", pub.Published[0])
	}
}

// Test: blank and oversized prompts are rejected before any persistence.
func TestSubmit_PromptValidation(t *testing.T) {
	store := mock.NewJobStore()
	pub := &queuemock.Publisher{}
	uc := usecaseSubmit(store, pub)

	_, err := uc.Execute(context.Background(), &domain.SubmitRequest{Prompt: "   "})
	if !errors.Is(err, domain.ErrEmptyPrompt) {
		t.Errorf("expected ErrEmptyPrompt, got %v", err)
	}

	_, err = uc.Execute(context.Background(), &domain.SubmitRequest{
		Prompt: strings.Repeat("x", 9<<10),
	})
	if !errors.Is(err, domain.ErrPromptTooLarge) {
		t.Errorf("expected ErrPromptTooLarge, got %v", err)
	}

	if len(pub.Published) != 0 {
		t.Errorf("expected 0 publishes, got %d", len(pub.Published))
	}
}

// Test: unknown model name is rejected.
func TestSubmit_UnknownModel(t *testing.T) {
	uc := usecaseSubmit(mock.NewJobStore(), &queuemock.Publisher{})

	_, err := uc.Execute(context.Background(), &domain.SubmitRequest{
		Prompt:    "a fox",
		ModelName: "unknown/model",
	})
	if !errors.Is(err, domain.ErrUnknownModel) {
		t.Errorf("expected ErrUnknownModel, got %v", err)
	}
}

// Test: publish failure fails the job so no orphaned pending row remains.
func TestSubmit_PublishFailure(t *testing.T) {
	store := mock.NewJobStore()
	pub := &queuemock.Publisher{
		PublishFn: func(ctx context.Context, msg queue.Message) error {
			return errors.New("broker unavailable")
		},
	}
	uc := usecaseSubmit(store, pub)

	_, err := uc.Execute(context.Background(), &domain.SubmitRequest{Prompt: "a fox"})
	if !errors.Is(err, domain.ErrPublishFailed) {
		t.Fatalf("expected ErrPublishFailed, got %v", err)
	}

	jobs, _ := store.List(context.Background(), repository.ListFilter{})
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].Status != domain.StatusFailed {
		t.Errorf("expected failed status, got %s", jobs[0].Status)
	}
	if jobs[0].ErrorMessage == nil {
		t.Error("expected an error message on the failed job")
	}
}

// Test: cancelling a pending job succeeds.
func TestCancel_Pending(t *testing.T) {
	store := mock.NewJobStore()
	job := seedJob(store, domain.StatusPending)
	uc := usecaseCancel(store)

	if err := uc.Execute(context.Background(), job.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.Job(job.ID).Status; got != domain.StatusCancelled {
		t.Errorf("expected cancelled, got %s", got)
	}
}

// Test: cancelling a terminal job is rejected.
func TestCancel_Terminal(t *testing.T) {
	store := mock.NewJobStore()
	job := seedJob(store, domain.StatusCompleted)
	uc := usecaseCancel(store)

	err := uc.Execute(context.Background(), job.ID)
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

// Test: cancel retries after losing the CAS to a worker claim.
func TestCancel_RetriesAfterConflict(t *testing.T) {
	store := mock.NewJobStore()
	job := seedJob(store, domain.StatusPending)

	conflicts := 0
	store.UpdateStatusFn = func(ctx context.Context, id uuid.UUID, expected, next domain.JobStatus, fields repository.JobUpdates) error {
		if conflicts == 0 {
			conflicts++
			// Simulate a worker claiming the job between the read and the CAS.
			store.Seed(&domain.Job{ID: job.ID, Prompt: job.Prompt, ModelName: job.ModelName, Status: domain.StatusProcessing, CreatedAt: job.CreatedAt, UpdatedAt: time.Now().UTC()})
			return domain.ErrStatusConflict
		}
		store.Seed(&domain.Job{ID: job.ID, Prompt: job.Prompt, ModelName: job.ModelName, Status: domain.StatusCancelled, CreatedAt: job.CreatedAt, UpdatedAt: time.Now().UTC()})
		return nil
	}
	uc := usecaseCancel(store)

	if err := uc.Execute(context.Background(), job.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.Transitions) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(store.Transitions))
	}
	if store.Transitions[1].Expected != domain.StatusProcessing {
		t.Errorf("expected second CAS from processing, got %s", store.Transitions[1].Expected)
	}
}

// Test: cancelling an unknown job reports not found.
func TestCancel_NotFound(t *testing.T) {
	uc := usecaseCancel(mock.NewJobStore())

	err := uc.Execute(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

// Test: list clamps the limit and normalizes the offset.
func TestList_ClampsPagination(t *testing.T) {
	store := mock.NewJobStore()
	seedJob(store, domain.StatusPending)

	var captured repository.ListFilter
	uc := usecaseList(&capturingStore{JobStore: store, captured: &captured})

	if _, err := uc.Execute(context.Background(), repository.ListFilter{Limit: 1000, Offset: -5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.Limit != 100 {
		t.Errorf("expected limit clamped to 100, got %d", captured.Limit)
	}
	if captured.Offset != 0 {
		t.Errorf("expected offset 0, got %d", captured.Offset)
	}

	if _, err := uc.Execute(context.Background(), repository.ListFilter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.Limit != 50 {
		t.Errorf("expected default limit 50, got %d", captured.Limit)
	}
}

// capturingStore records the filter the usecase actually passes down.
type capturingStore struct {
	*mock.JobStore
	captured *repository.ListFilter
}

func (s *capturingStore) List(ctx context.Context, filter repository.ListFilter) ([]*domain.Job, error) {
	*s.captured = filter
	return s.JobStore.List(ctx, filter)
}
