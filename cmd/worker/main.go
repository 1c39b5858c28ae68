package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/abhishekpatel946/replicate-media-generation/internal/backend"
	"github.com/abhishekpatel946/replicate-media-generation/internal/config"
	"github.com/abhishekpatel946/replicate-media-generation/internal/pool"
	"github.com/abhishekpatel946/replicate-media-generation/internal/queue"
	"github.com/abhishekpatel946/replicate-media-generation/internal/repository/postgres"
	redisrepo "github.com/abhishekpatel946/replicate-media-generation/internal/repository/redis"
	"github.com/abhishekpatel946/replicate-media-generation/internal/retry"
	"github.com/abhishekpatel946/replicate-media-generation/internal/storage"
	"github.com/abhishekpatel946/replicate-media-generation/internal/sweeper"
	"github.com/abhishekpatel946/replicate-media-generation/internal/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting media generation worker")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to PostgreSQL
	dbPool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer dbPool.Close()
	if err := dbPool.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping PostgreSQL", zap.Error(err))
	}
	logger.Info("Connected to PostgreSQL")

	// Connect to Redis
	redisOpts, err := goredis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Invalid Redis URL", zap.Error(err))
	}
	redisClient := goredis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis")

	// Initialize RabbitMQ publisher (used to re-enqueue retry attempts)
	pub, err := queue.NewRabbitMQPublisher(cfg.RabbitMQ.URL, logger)
	if err != nil {
		logger.Fatal("Failed to initialize RabbitMQ publisher", zap.Error(err))
	}
	defer pub.Close()

	// Initialize repositories
	jobStore := postgres.NewJobStore(dbPool)
	leaseStore := redisrepo.NewLeaseStore(redisClient)

	// Initialize artifact store
	artifacts, err := storage.NewFSStore(cfg.Storage.Path, cfg.Storage.BaseURL)
	if err != nil {
		logger.Fatal("Failed to initialize artifact storage", zap.Error(err))
	}

	// Select the generation backend. A configured API token enables the
	// real Replicate backend; otherwise generation is simulated locally.
	var gen backend.Generator
	if cfg.Backend.ReplicateAPIToken != "" {
		gen = backend.NewReplicateBackend(cfg.Backend.ReplicateAPIToken, logger)
		logger.Info("Using Replicate generation backend")
	} else {
		gen = backend.NewSimulatedBackend(backend.SimulatedConfig{
			MinDelay:    cfg.Backend.MockDelayMin,
			MaxDelay:    cfg.Backend.MockDelayMax,
			FailureRate: cfg.Backend.MockFailureRate,
		}, logger)
		logger.Info("Using simulated generation backend",
			zap.Float64("failure_rate", cfg.Backend.MockFailureRate),
		)
	}

	// Retry policy
	policy := &retry.Policy{
		BaseDelay:   cfg.Retry.BaseDelay,
		Factor:      cfg.Retry.Factor,
		MaxDelay:    cfg.Retry.MaxDelay,
		MaxAttempts: cfg.Retry.MaxAttempts,
	}

	// Initialize use case
	processUC := usecase.NewProcessJobUsecase(jobStore, leaseStore, pub, artifacts, gen, policy, logger)

	// Create buffered delivery channel
	deliveries := make(chan *queue.Delivery, cfg.Worker.PoolSize*2)

	// Initialize AMQP consumer
	consumer, err := queue.NewConsumer(cfg.RabbitMQ.URL, deliveries, logger)
	if err != nil {
		logger.Fatal("Failed to initialize AMQP consumer", zap.Error(err))
	}
	defer consumer.Close()
	logger.Info("Connected to RabbitMQ")

	// Start worker pool
	workerPool := pool.NewWorkerPool(cfg.Worker.PoolSize, deliveries, processUC, logger)
	workerPool.Start(ctx)

	// Start AMQP consumer in a goroutine
	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.Error("AMQP consumer error", zap.Error(err))
			cancel()
		}
	}()

	// Start the background sweeper: recovers jobs stuck in processing and
	// deletes artifacts past the retention age.
	sw := sweeper.New(
		jobStore, pub, artifacts, policy,
		cfg.Worker.SweepInterval, cfg.Worker.ProcessingTimeout, cfg.Worker.RetentionAge,
		logger,
	)
	go sw.Run(ctx)

	// Start Prometheus metrics server
	go func() {
		metricsAddr := fmt.Sprintf(":%d", cfg.Worker.MetricsPort)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("Metrics server listening", zap.String("addr", metricsAddr))
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()

	// Wait for workers to finish in-flight jobs
	workerPool.Stop()

	logger.Info("Worker stopped")
}
