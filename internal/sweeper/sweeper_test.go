package sweeper_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhishekpatel946/replicate-media-generation/internal/domain"
	queuemock "github.com/abhishekpatel946/replicate-media-generation/internal/queue/mock"
	"github.com/abhishekpatel946/replicate-media-generation/internal/repository/mock"
	"github.com/abhishekpatel946/replicate-media-generation/internal/retry"
	"github.com/abhishekpatel946/replicate-media-generation/internal/storage"
	storagemock "github.com/abhishekpatel946/replicate-media-generation/internal/storage/mock"
	"github.com/abhishekpatel946/replicate-media-generation/internal/sweeper"
)

type sweepFixture struct {
	store     *mock.JobStore
	pub       *queuemock.Publisher
	artifacts *storagemock.ArtifactStore
	sw        *sweeper.Sweeper
}

func newSweepFixture() *sweepFixture {
	f := &sweepFixture{
		store:     mock.NewJobStore(),
		pub:       &queuemock.Publisher{},
		artifacts: storagemock.NewArtifactStore(),
	}
	policy := &retry.Policy{BaseDelay: time.Second, Factor: 2, MaxDelay: time.Minute, MaxAttempts: 3}
	f.sw = sweeper.New(f.store, f.pub, f.artifacts, policy, time.Minute, 15*time.Minute, 24*time.Hour, zap.NewNop())
	return f
}

func stuckJob(f *sweepFixture, retryCount int, stuckFor time.Duration) *domain.Job {
	job := &domain.Job{
		ID:         uuid.New(),
		Prompt:     "a fox",
		ModelName:  domain.DefaultModel,
		Status:     domain.StatusProcessing,
		RetryCount: retryCount,
		CreatedAt:  time.Now().UTC().Add(-stuckFor),
		UpdatedAt:  time.Now().UTC().Add(-stuckFor),
	}
	f.store.Seed(job)
	return job
}

// Test: a job stuck in processing is re-armed to pending with one retry
// consumed and re-enqueued immediately.
func TestSweepStale_Requeues(t *testing.T) {
	f := newSweepFixture()
	job := stuckJob(f, 0, time.Hour)

	if err := f.sw.SweepStale(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	got := f.store.Job(job.ID)
	if got.Status != domain.StatusPending {
		t.Fatalf("expected pending, got %s", got.Status)
	}
	if got.RetryCount != 1 {
		t.Errorf("expected retry_count 1, got %d", got.RetryCount)
	}

	if len(f.pub.Published) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(f.pub.Published))
	}
	if f.pub.Published[0].Attempt != 2 {
		t.Errorf("expected attempt 2, got %d", f.pub.Published[0].Attempt)
	}
}

// Test: a stale job with no attempts left is failed, not requeued.
func TestSweepStale_ExhaustedFails(t *testing.T) {
	f := newSweepFixture()
	job := stuckJob(f, 2, time.Hour)

	if err := f.sw.SweepStale(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	got := f.store.Job(job.ID)
	if got.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if got.RetryCount != 3 {
		t.Errorf("expected retry_count 3, got %d", got.RetryCount)
	}
	if got.ErrorMessage == nil {
		t.Error("expected an error message")
	}
	if len(f.pub.Published) != 0 {
		t.Errorf("expected no publishes, got %d", len(f.pub.Published))
	}
}

// Test: recently active processing jobs are left alone.
func TestSweepStale_LeavesFreshJobs(t *testing.T) {
	f := newSweepFixture()
	job := stuckJob(f, 0, time.Minute)

	if err := f.sw.SweepStale(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if got := f.store.Job(job.ID).Status; got != domain.StatusProcessing {
		t.Errorf("expected processing untouched, got %s", got)
	}
	if len(f.pub.Published) != 0 {
		t.Errorf("expected no publishes, got %d", len(f.pub.Published))
	}
}

// Test: retention cleanup deletes the artifact pair and clears the job's
// result references, leaving recent completions untouched.
func TestCleanupArtifacts(t *testing.T) {
	f := newSweepFixture()
	ctx := context.Background()

	completed := func(age time.Duration) *domain.Job {
		done := time.Now().UTC().Add(-age)
		path := "/tmp/media/x.png"
		job := &domain.Job{
			ID:          uuid.New(),
			Prompt:      "a fox",
			ModelName:   domain.DefaultModel,
			Status:      domain.StatusCompleted,
			FilePath:    &path,
			CreatedAt:   done.Add(-time.Minute),
			UpdatedAt:   done,
			CompletedAt: &done,
		}
		f.store.Seed(job)
		_ = f.artifacts.Put(ctx, job.ID, []byte("bytes"), &storage.Metadata{Prompt: job.Prompt})
		return job
	}

	old := completed(48 * time.Hour)
	fresh := completed(time.Hour)

	if err := f.sw.CleanupArtifacts(ctx); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	if f.artifacts.Has(old.ID) {
		t.Error("expected old artifact removed")
	}
	if got := f.store.Job(old.ID); got.FilePath != nil || got.ResultURL != nil {
		t.Error("expected result references cleared")
	}
	if got := f.store.Job(old.ID).Status; got != domain.StatusCompleted {
		t.Errorf("cleanup must not change status, got %s", got)
	}

	if !f.artifacts.Has(fresh.ID) {
		t.Error("expected fresh artifact kept")
	}
}
