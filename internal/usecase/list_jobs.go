package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/abhishekpatel946/replicate-media-generation/internal/domain"
	"github.com/abhishekpatel946/replicate-media-generation/internal/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// ListJobsUsecase handles filtered, paginated job listings.
type ListJobsUsecase struct {
	jobs   repository.JobStore
	logger *zap.Logger
}

// NewListJobsUsecase creates a new ListJobsUsecase.
func NewListJobsUsecase(jobs repository.JobStore, logger *zap.Logger) *ListJobsUsecase {
	return &ListJobsUsecase{
		jobs:   jobs,
		logger: logger,
	}
}

// Execute returns jobs in reverse creation order, optionally filtered by
// status. Limit is clamped to [1, 100] with a default of 50.
func (uc *ListJobsUsecase) Execute(ctx context.Context, filter repository.ListFilter) ([]*domain.Job, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	jobs, err := uc.jobs.List(ctx, filter)
	if err != nil {
		uc.logger.Error("Failed to list jobs", zap.Error(err))
		return nil, err
	}
	return jobs, nil
}
