// Package sweeper runs the periodic maintenance loops outside the worker
// hot path: stale-lease recovery for jobs stuck in processing, and
// retention cleanup of old artifacts.
package sweeper

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/abhishekpatel946/replicate-media-generation/internal/domain"
	"github.com/abhishekpatel946/replicate-media-generation/internal/metrics"
	"github.com/abhishekpatel946/replicate-media-generation/internal/queue"
	"github.com/abhishekpatel946/replicate-media-generation/internal/repository"
	"github.com/abhishekpatel946/replicate-media-generation/internal/retry"
	"github.com/abhishekpatel946/replicate-media-generation/internal/storage"
)

// Sweeper recovers jobs whose worker died mid-attempt and removes expired
// artifacts.
type Sweeper struct {
	jobs      repository.JobStore
	publisher queue.Publisher
	artifacts storage.ArtifactStore
	policy    *retry.Policy
	logger    *zap.Logger

	interval          time.Duration
	processingTimeout time.Duration
	retentionAge      time.Duration
}

// New creates a Sweeper. processingTimeout must exceed the maximum
// plausible generation time or live attempts will be double-dispatched.
func New(
	jobs repository.JobStore,
	pub queue.Publisher,
	artifacts storage.ArtifactStore,
	policy *retry.Policy,
	interval, processingTimeout, retentionAge time.Duration,
	logger *zap.Logger,
) *Sweeper {
	return &Sweeper{
		jobs:              jobs,
		publisher:         pub,
		artifacts:         artifacts,
		policy:            policy,
		logger:            logger,
		interval:          interval,
		processingTimeout: processingTimeout,
		retentionAge:      retentionAge,
	}
}

// Run blocks, sweeping on every tick until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("processing_timeout", s.processingTimeout),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sweeper stopped")
			return
		case <-ticker.C:
			if err := s.SweepStale(ctx); err != nil {
				s.logger.Error("Stale-lease sweep failed", zap.Error(err))
			}
			if s.retentionAge > 0 {
				if err := s.CleanupArtifacts(ctx); err != nil {
					s.logger.Error("Retention cleanup failed", zap.Error(err))
				}
			}
		}
	}
}

// SweepStale re-arms jobs stuck in processing past the liveness timeout.
// Each recovery consumes a retry attempt; a job whose budget is spent is
// failed instead of requeued.
func (s *Sweeper) SweepStale(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.processingTimeout)
	stuck, err := s.jobs.StuckProcessing(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, job := range stuck {
		log := s.logger.With(zap.String("job_id", job.ID.String()))
		n := job.RetryCount + 1

		if s.policy.Exhausted(n) {
			msg := "worker lost: job exceeded processing timeout with no attempts left"
			now := time.Now().UTC()
			err := s.jobs.UpdateStatus(ctx, job.ID, domain.StatusProcessing, domain.StatusFailed, repository.JobUpdates{
				RetryCount:   &n,
				ErrorMessage: &msg,
				CompletedAt:  &now,
			})
			if err != nil && !errors.Is(err, domain.ErrStatusConflict) {
				log.Error("Failed to fail stale job", zap.Error(err))
			}
			continue
		}

		err := s.jobs.UpdateStatus(ctx, job.ID, domain.StatusProcessing, domain.StatusPending, repository.JobUpdates{
			RetryCount: &n,
		})
		if errors.Is(err, domain.ErrStatusConflict) {
			// The owning worker (or a cancel) got there first after all.
			continue
		}
		if err != nil {
			log.Error("Failed to re-arm stale job", zap.Error(err))
			continue
		}

		if err := s.publisher.Publish(ctx, queue.Message{JobID: job.ID, Attempt: n + 1}); err != nil {
			log.Error("Failed to re-enqueue stale job", zap.Error(err))
			continue
		}

		metrics.StaleLeasesRecovered.Inc()
		log.Warn("Recovered stale job",
			zap.Int("retry_count", n),
			zap.Time("stuck_since", job.UpdatedAt),
		)
	}

	return nil
}

// CleanupArtifacts deletes artifacts of completed jobs older than the
// retention age and clears their result references.
func (s *Sweeper) CleanupArtifacts(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.retentionAge)
	expired, err := s.jobs.CompletedBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	deleted := 0
	for _, job := range expired {
		if err := s.artifacts.Delete(ctx, job.ID); err != nil {
			s.logger.Error("Failed to delete expired artifact",
				zap.String("job_id", job.ID.String()), zap.Error(err))
			continue
		}
		if err := s.jobs.ClearResult(ctx, job.ID); err != nil {
			s.logger.Error("Failed to clear result references",
				zap.String("job_id", job.ID.String()), zap.Error(err))
			continue
		}
		deleted++
	}

	if deleted > 0 {
		s.logger.Info("Retention cleanup removed artifacts", zap.Int("deleted", deleted))
	}
	return nil
}
