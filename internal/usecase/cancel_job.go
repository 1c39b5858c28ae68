package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhishekpatel946/replicate-media-generation/internal/domain"
	"github.com/abhishekpatel946/replicate-media-generation/internal/repository"
)

// CancelJobUsecase handles cancellation of pending or processing jobs.
type CancelJobUsecase struct {
	jobs   repository.JobStore
	logger *zap.Logger
}

// NewCancelJobUsecase creates a new CancelJobUsecase.
func NewCancelJobUsecase(jobs repository.JobStore, logger *zap.Logger) *CancelJobUsecase {
	return &CancelJobUsecase{
		jobs:   jobs,
		logger: logger,
	}
}

// Execute marks a job cancelled. Only pending and processing jobs can be
// cancelled; terminal jobs yield domain.ErrInvalidState. Cancelling does
// not interrupt an in-flight backend call: the worker observes the status
// after its attempt and discards the result.
func (uc *CancelJobUsecase) Execute(ctx context.Context, id uuid.UUID) error {
	// The CAS may lose to a worker transition mid-flight (e.g. pending →
	// processing), in which case re-read and try again from the new
	// status. Two rounds cover every reachable interleaving.
	for i := 0; i < 3; i++ {
		job, err := uc.jobs.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if job.Status.IsTerminal() {
			return domain.ErrInvalidState
		}

		err = uc.jobs.UpdateStatus(ctx, id, job.Status, domain.StatusCancelled, repository.JobUpdates{})
		if errors.Is(err, domain.ErrStatusConflict) {
			continue
		}
		if err != nil {
			return err
		}

		uc.logger.Info("Job cancelled",
			zap.String("job_id", id.String()),
			zap.String("was", string(job.Status)),
		)
		return nil
	}
	return domain.ErrStatusConflict
}
