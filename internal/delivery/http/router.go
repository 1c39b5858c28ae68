package http

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/abhishekpatel946/replicate-media-generation/internal/delivery/http/middleware"
	"github.com/abhishekpatel946/replicate-media-generation/internal/storage"
	"github.com/abhishekpatel946/replicate-media-generation/internal/usecase"
)

const maxRequestBody = 64 << 10 // generous for a prompt payload

// RouterDeps bundles everything the HTTP layer needs.
type RouterDeps struct {
	SubmitUC  *usecase.SubmitJobUsecase
	GetJobUC  *usecase.GetJobUsecase
	CancelUC  *usecase.CancelJobUsecase
	ListUC    *usecase.ListJobsUsecase
	Artifacts storage.ArtifactStore
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Broker    BrokerChecker
	Logger    *zap.Logger

	RateLimitPerMin int
}

// NewRouter creates and configures the Gin router with all routes and middleware.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(deps.Logger))

	// Metrics endpoint (no rate limiting)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Health check (no rate limiting)
		healthHandler := NewHealthHandler(deps.DB, deps.Redis, deps.Broker, deps.Logger)
		v1.GET("/health", healthHandler.Health)

		// Model catalog
		modelHandler := NewModelHandler()
		v1.GET("/models", modelHandler.List)

		// Generation jobs (with rate limiting and body size cap)
		mediaHandler := NewMediaHandler(
			deps.SubmitUC, deps.GetJobUC, deps.CancelUC, deps.ListUC,
			deps.Artifacts, deps.Logger,
		)
		limited := v1.Group("")
		limited.Use(middleware.RateLimiter(deps.RateLimitPerMin))
		limited.Use(middleware.BodySizeLimit(maxRequestBody))

		limited.POST("/generate", mediaHandler.Submit)
		limited.GET("/status/:id", mediaHandler.GetStatus)
		limited.GET("/download/:id", mediaHandler.Download)
		limited.GET("/jobs", mediaHandler.List)
		limited.GET("/jobs/:id/metadata", mediaHandler.GetMetadata)
		limited.DELETE("/jobs/:id", mediaHandler.Cancel)

		// WebSocket for real-time updates
		wsHandler := NewWebSocketHandler(deps.GetJobUC, deps.Logger)
		v1.GET("/jobs/:id/stream", wsHandler.Stream)
	}

	return router
}
