package usecase

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhishekpatel946/replicate-media-generation/internal/domain"
	"github.com/abhishekpatel946/replicate-media-generation/internal/repository"
)

// GetJobUsecase handles fetching job status and results.
type GetJobUsecase struct {
	jobs   repository.JobStore
	logger *zap.Logger
}

// NewGetJobUsecase creates a new GetJobUsecase.
func NewGetJobUsecase(jobs repository.JobStore, logger *zap.Logger) *GetJobUsecase {
	return &GetJobUsecase{
		jobs:   jobs,
		logger: logger,
	}
}

// Execute retrieves a job by its ID.
func (uc *GetJobUsecase) Execute(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	job, err := uc.jobs.GetByID(ctx, id)
	if err != nil {
		uc.logger.Debug("Job lookup failed", zap.String("job_id", id.String()), zap.Error(err))
		return nil, err
	}
	return job, nil
}
