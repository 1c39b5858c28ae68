package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/abhishekpatel946/replicate-media-generation/internal/backend"
	"github.com/abhishekpatel946/replicate-media-generation/internal/domain"
	"github.com/abhishekpatel946/replicate-media-generation/internal/metrics"
	"github.com/abhishekpatel946/replicate-media-generation/internal/queue"
	"github.com/abhishekpatel946/replicate-media-generation/internal/repository"
	"github.com/abhishekpatel946/replicate-media-generation/internal/retry"
	"github.com/abhishekpatel946/replicate-media-generation/internal/storage"
)

// ProcessJobUsecase runs one delivery attempt of a generation job:
// claim → generate → persist artifact → commit terminal state, with the
// retry policy applied to transient failures.
//
// A nil return means the delivery is finished and must be ACKed, whatever
// became of the job (completed, failed, retried via re-enqueue, cancelled,
// or a duplicate/lost-race no-op). A non-nil return means an
// infrastructure failure where the message itself should be NACKed.
type ProcessJobUsecase struct {
	jobs      repository.JobStore
	leases    repository.LeaseStore
	publisher queue.Publisher
	artifacts storage.ArtifactStore
	generator backend.Generator
	policy    *retry.Policy
	logger    *zap.Logger
}

// NewProcessJobUsecase creates a new ProcessJobUsecase.
func NewProcessJobUsecase(
	jobs repository.JobStore,
	leases repository.LeaseStore,
	pub queue.Publisher,
	artifacts storage.ArtifactStore,
	gen backend.Generator,
	policy *retry.Policy,
	logger *zap.Logger,
) *ProcessJobUsecase {
	return &ProcessJobUsecase{
		jobs:      jobs,
		leases:    leases,
		publisher: pub,
		artifacts: artifacts,
		generator: gen,
		policy:    policy,
		logger:    logger,
	}
}

// Execute processes a single queued delivery.
func (uc *ProcessJobUsecase) Execute(ctx context.Context, msg queue.Message) error {
	log := uc.logger.With(
		zap.String("job_id", msg.JobID.String()),
		zap.Int("attempt", msg.Attempt),
	)

	// Step 1: per-attempt lease. Dedupes at-least-once redeliveries
	// without blocking later retry attempts.
	acquired, err := uc.leases.Acquire(ctx, msg.JobID, msg.Attempt)
	if err != nil {
		log.Error("Failed to acquire lease", zap.Error(err))
		return err
	}
	if !acquired {
		log.Info("Duplicate delivery detected, skipping")
		return nil
	}
	defer func() {
		_ = uc.leases.Release(ctx, msg.JobID, msg.Attempt)
	}()

	// Step 2: load the job and verify it is still claimable. A job
	// cancelled before any worker picked it up stays cancelled.
	job, err := uc.jobs.GetByID(ctx, msg.JobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			log.Warn("Queued job id not found in store, dropping")
			return nil
		}
		log.Error("Failed to load job", zap.Error(err))
		return err
	}
	if job.Status != domain.StatusPending {
		log.Info("Job no longer pending, skipping", zap.String("status", string(job.Status)))
		return nil
	}

	// Step 3: claim it. Losing the CAS means another worker got there
	// first (or a cancel landed); either way this delivery is done.
	now := time.Now().UTC()
	err = uc.jobs.UpdateStatus(ctx, job.ID, domain.StatusPending, domain.StatusProcessing, repository.JobUpdates{
		StartedAt: &now,
	})
	if errors.Is(err, domain.ErrStatusConflict) {
		log.Info("Lost claim race, skipping")
		return nil
	}
	if err != nil {
		log.Error("Failed to transition job to processing", zap.Error(err))
		return err
	}

	// Step 4: invoke the backend. Long-running; the only suspension
	// point besides the queue receive.
	start := time.Now()
	result, genErr := uc.generator.Generate(ctx, &backend.Request{
		JobID:      job.ID,
		Prompt:     job.Prompt,
		ModelName:  job.ModelName,
		Parameters: job.Parameters,
	})
	metrics.GenerationDuration.WithLabelValues(job.ModelName).Observe(time.Since(start).Seconds())

	// Step 5: cancellation is checked only after the call returns; a
	// cancel does not interrupt the backend, it voids the outcome.
	if uc.cancelledMeanwhile(ctx, job) {
		_ = uc.artifacts.Delete(ctx, job.ID)
		log.Info("Job cancelled during generation, result discarded")
		return nil
	}

	if genErr != nil {
		return uc.handleFailure(ctx, log, job, msg.Attempt, genErr)
	}

	// Step 6: artifact and metadata are written before the status flip,
	// so a reader can never observe completed without a retrievable
	// artifact. A crash in between leaves the job processing, which the
	// stale-lease sweep recovers.
	meta := &storage.Metadata{
		Prompt:        job.Prompt,
		ModelName:     job.ModelName,
		Parameters:    job.Parameters,
		ExternalJobID: result.ExternalJobID,
		CreatedAt:     job.CreatedAt,
	}
	if err := uc.artifacts.Put(ctx, job.ID, result.Data, meta); err != nil {
		log.Error("Failed to persist artifact", zap.Error(err))
		return uc.handleFailure(ctx, log, job, msg.Attempt, domain.NewTransient(err))
	}

	// Step 7: commit. A conflict here means a cancel won while the
	// artifact was being written; honour it and clean up.
	now = time.Now().UTC()
	resultURL := uc.artifacts.FileURL(job.ID)
	filePath := uc.artifacts.FilePath(job.ID)
	fileSize := int64(len(result.Data))
	externalID := result.ExternalJobID
	err = uc.jobs.UpdateStatus(ctx, job.ID, domain.StatusProcessing, domain.StatusCompleted, repository.JobUpdates{
		CompletedAt:   &now,
		ResultURL:     &resultURL,
		FilePath:      &filePath,
		FileSize:      &fileSize,
		ExternalJobID: &externalID,
	})
	if errors.Is(err, domain.ErrStatusConflict) {
		_ = uc.artifacts.Delete(ctx, job.ID)
		log.Info("Job cancelled before completion commit, artifact discarded")
		return nil
	}
	if err != nil {
		log.Error("Failed to commit completed status", zap.Error(err))
		return err
	}

	metrics.JobsTotal.WithLabelValues(job.ModelName, string(domain.StatusCompleted)).Inc()
	log.Info("Job completed",
		zap.Int64("file_size", fileSize),
		zap.String("external_job_id", externalID),
	)
	return nil
}

// handleFailure applies the failure taxonomy: permanent errors fail the
// job outright, transient errors consume one retry attempt and either
// re-arm the job to pending with a delayed re-enqueue or, once the budget
// is spent, fail it with the last error recorded.
func (uc *ProcessJobUsecase) handleFailure(ctx context.Context, log *zap.Logger, job *domain.Job, attempt int, cause error) error {
	if !domain.IsTransient(cause) {
		log.Warn("Permanent backend failure", zap.Error(cause))
		return uc.fail(ctx, log, job, job.RetryCount, cause)
	}

	n := job.RetryCount + 1
	if uc.policy.Exhausted(n) {
		log.Warn("Retry budget exhausted", zap.Int("retry_count", n), zap.Error(cause))
		return uc.fail(ctx, log, job, n, cause)
	}

	// Re-arm to pending so the next claim check behaves uniformly, then
	// schedule the redelivery after the backoff delay. The wait happens
	// broker-side; no worker sleeps through it.
	err := uc.jobs.UpdateStatus(ctx, job.ID, domain.StatusProcessing, domain.StatusPending, repository.JobUpdates{
		RetryCount: &n,
	})
	if errors.Is(err, domain.ErrStatusConflict) {
		log.Info("Job cancelled before retry, skipping")
		return nil
	}
	if err != nil {
		log.Error("Failed to re-arm job for retry", zap.Error(err))
		return err
	}

	delay := uc.policy.Delay(n)
	if err := uc.publisher.PublishDelayed(ctx, queue.Message{JobID: job.ID, Attempt: attempt + 1}, delay); err != nil {
		log.Error("Failed to re-enqueue job for retry", zap.Error(err))
		return err
	}

	metrics.RetriesTotal.WithLabelValues(job.ModelName).Inc()
	log.Warn("Transient failure, retry scheduled",
		zap.Int("retry_count", n),
		zap.Duration("delay", delay),
		zap.Error(cause),
	)
	return nil
}

func (uc *ProcessJobUsecase) fail(ctx context.Context, log *zap.Logger, job *domain.Job, retryCount int, cause error) error {
	msg := cause.Error()
	now := time.Now().UTC()
	err := uc.jobs.UpdateStatus(ctx, job.ID, domain.StatusProcessing, domain.StatusFailed, repository.JobUpdates{
		RetryCount:   &retryCount,
		ErrorMessage: &msg,
		CompletedAt:  &now,
	})
	if errors.Is(err, domain.ErrStatusConflict) {
		log.Info("Job cancelled before failure commit, skipping")
		return nil
	}
	if err != nil {
		log.Error("Failed to commit failed status", zap.Error(err))
		return err
	}

	metrics.JobsTotal.WithLabelValues(job.ModelName, string(domain.StatusFailed)).Inc()
	return nil
}

// cancelledMeanwhile re-reads the job's status after the backend call. On
// a read error it reports false: the subsequent compare-and-set is the
// real arbiter, this check just avoids useless artifact writes.
func (uc *ProcessJobUsecase) cancelledMeanwhile(ctx context.Context, job *domain.Job) bool {
	fresh, err := uc.jobs.GetByID(ctx, job.ID)
	if err != nil {
		return false
	}
	return fresh.Status == domain.StatusCancelled
}
