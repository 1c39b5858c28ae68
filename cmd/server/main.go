package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/abhishekpatel946/replicate-media-generation/internal/config"
	handler "github.com/abhishekpatel946/replicate-media-generation/internal/delivery/http"
	"github.com/abhishekpatel946/replicate-media-generation/internal/queue"
	"github.com/abhishekpatel946/replicate-media-generation/internal/repository/postgres"
	"github.com/abhishekpatel946/replicate-media-generation/internal/storage"
	"github.com/abhishekpatel946/replicate-media-generation/internal/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting media generation API server")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Connect to PostgreSQL
	ctx := context.Background()
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
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Failed to parse Redis URL", zap.Error(err))
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to ping Redis", zap.Error(err))
	}
	logger.Info("Connected to Redis")

	// Initialize RabbitMQ publisher
	pub, err := queue.NewRabbitMQPublisher(cfg.RabbitMQ.URL, logger)
	if err != nil {
		logger.Fatal("Failed to initialize RabbitMQ publisher", zap.Error(err))
	}
	defer pub.Close()
	logger.Info("Connected to RabbitMQ")

	// Initialize artifact store
	artifacts, err := storage.NewFSStore(cfg.Storage.Path, cfg.Storage.BaseURL)
	if err != nil {
		logger.Fatal("Failed to initialize artifact storage", zap.Error(err))
	}

	// Initialize repository
	jobStore := postgres.NewJobStore(dbPool)

	// Initialize use cases
	submitUC := usecase.NewSubmitJobUsecase(jobStore, pub, logger)
	getJobUC := usecase.NewGetJobUsecase(jobStore, logger)
	cancelUC := usecase.NewCancelJobUsecase(jobStore, logger)
	listUC := usecase.NewListJobsUsecase(jobStore, logger)

	// Initialize router
	router := handler.NewRouter(handler.RouterDeps{
		SubmitUC:        submitUC,
		GetJobUC:        getJobUC,
		CancelUC:        cancelUC,
		ListUC:          listUC,
		Artifacts:       artifacts,
		DB:              dbPool,
		Redis:           rdb,
		Broker:          pub,
		Logger:          logger,
		RateLimitPerMin: cfg.Server.RateLimit,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("API server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("API server stopped")
}
