package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhishekpatel946/replicate-media-generation/internal/domain"
	"github.com/abhishekpatel946/replicate-media-generation/internal/queue"
	"github.com/abhishekpatel946/replicate-media-generation/internal/repository"
)

const maxPromptSize = 8 << 10 // 8 KB

// SubmitJobUsecase handles the business logic for submitting generation jobs.
type SubmitJobUsecase struct {
	jobs      repository.JobStore
	publisher queue.Publisher
	logger    *zap.Logger
}

// NewSubmitJobUsecase creates a new SubmitJobUsecase.
func NewSubmitJobUsecase(jobs repository.JobStore, pub queue.Publisher, logger *zap.Logger) *SubmitJobUsecase {
	return &SubmitJobUsecase{
		jobs:      jobs,
		publisher: pub,
		logger:    logger,
	}
}

// Execute validates the submission, creates a pending job, enqueues its id
// and returns immediately; it never blocks on generation.
func (uc *SubmitJobUsecase) Execute(ctx context.Context, req *domain.SubmitRequest) (*domain.SubmitResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, domain.ErrEmptyPrompt
	}
	if len(req.Prompt) > maxPromptSize {
		return nil, domain.ErrPromptTooLarge
	}

	model := req.ModelName
	if model == "" {
		model = domain.DefaultModel
	}
	if !domain.IsKnownModel(model) {
		return nil, domain.ErrUnknownModel
	}

	// Time-ordered UUIDv7 keeps reverse-creation listings index-friendly.
	jobID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate UUIDv7: %w", err)
	}

	job := &domain.Job{
		ID:         jobID,
		Prompt:     req.Prompt,
		ModelName:  model,
		Parameters: req.Parameters,
		Status:     domain.StatusPending,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}

	if err := uc.jobs.Create(ctx, job); err != nil {
		uc.logger.Error("Failed to create job in database", zap.Error(err), zap.String("job_id", jobID.String()))
		return nil, fmt.Errorf("create job: %w", err)
	}

	if err := uc.publisher.Publish(ctx, queue.Message{JobID: jobID, Attempt: 1}); err != nil {
		uc.logger.Error("Failed to publish job to queue", zap.Error(err), zap.String("job_id", jobID.String()))
		// The job would never be claimed, so fail it rather than leave
		// a pending row that no worker will ever see.
		msg := "failed to enqueue job for processing"
		now := time.Now().UTC()
		_ = uc.jobs.UpdateStatus(ctx, jobID, domain.StatusPending, domain.StatusFailed, repository.JobUpdates{
			ErrorMessage: &msg,
			CompletedAt:  &now,
		})
		return nil, domain.ErrPublishFailed
	}

	uc.logger.Info("Job submitted",
		zap.String("job_id", jobID.String()),
		zap.String("model", model),
	)

	return &domain.SubmitResponse{
		JobID:  jobID,
		Status: string(domain.StatusPending),
	}, nil
}
