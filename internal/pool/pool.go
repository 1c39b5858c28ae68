package pool

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/abhishekpatel946/replicate-media-generation/internal/metrics"
	"github.com/abhishekpatel946/replicate-media-generation/internal/queue"
	"github.com/abhishekpatel946/replicate-media-generation/internal/usecase"
)

// WorkerPool manages a fixed-size pool of goroutines that process queued
// generation jobs.
type WorkerPool struct {
	size      int
	jobs      <-chan *queue.Delivery
	processUC *usecase.ProcessJobUsecase
	logger    *zap.Logger
	wg        sync.WaitGroup
}

// NewWorkerPool creates a new fixed-size worker pool.
func NewWorkerPool(size int, jobs <-chan *queue.Delivery, processUC *usecase.ProcessJobUsecase, logger *zap.Logger) *WorkerPool {
	return &WorkerPool{
		size:      size,
		jobs:      jobs,
		processUC: processUC,
		logger:    logger,
	}
}

// Start launches all worker goroutines. Call Stop to wait for them to finish.
func (p *WorkerPool) Start(ctx context.Context) {
	p.logger.Info("Starting worker pool", zap.Int("pool_size", p.size))

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop waits for all workers to finish their current jobs and exit.
func (p *WorkerPool) Stop() {
	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Worker panic recovered",
				zap.Int("worker_id", id),
				zap.Any("panic", r),
			)
		}
	}()

	p.logger.Debug("Worker started", zap.Int("worker_id", id))

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("Worker shutting down", zap.Int("worker_id", id))
			return
		case delivery, ok := <-p.jobs:
			if !ok {
				p.logger.Debug("Job channel closed", zap.Int("worker_id", id))
				return
			}

			p.logger.Info("Worker claimed job",
				zap.Int("worker_id", id),
				zap.String("job_id", delivery.JobID.String()),
				zap.Int("attempt", delivery.Attempt),
			)

			metrics.WorkersActive.Inc()
			err := p.processUC.Execute(ctx, delivery.Message)
			metrics.WorkersActive.Dec()

			if err != nil {
				p.logger.Error("Job processing failed",
					zap.Int("worker_id", id),
					zap.String("job_id", delivery.JobID.String()),
					zap.Error(err),
				)

				// Infrastructure failure. Nack without requeue: the
				// message goes to the DLQ for operator inspection, and
				// any half-claimed job is recovered by the stale-lease
				// sweep.
				if nackErr := delivery.Nack(false); nackErr != nil {
					p.logger.Error("Failed to NACK message",
						zap.String("job_id", delivery.JobID.String()),
						zap.Error(nackErr),
					)
				}
				continue
			}

			// Delivery finished: completed, failed, retried via
			// re-enqueue, cancelled or deduped. All of them ACK.
			if ackErr := delivery.Ack(); ackErr != nil {
				p.logger.Error("Failed to ACK message",
					zap.String("job_id", delivery.JobID.String()),
					zap.Error(ackErr),
				)
			}
		}
	}
}
