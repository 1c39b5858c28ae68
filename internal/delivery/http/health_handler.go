package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// BrokerChecker reports whether the message broker connection is usable.
type BrokerChecker interface {
	Healthy() bool
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	db     *pgxpool.Pool
	rdb    *redis.Client
	broker BrokerChecker
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db *pgxpool.Pool, rdb *redis.Client, broker BrokerChecker, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb, broker: broker, logger: logger}
}

// Health handles GET /api/v1/health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	services := gin.H{
		"postgres": "ok",
		"rabbitmq": "ok",
		"redis":    "ok",
	}
	healthy := true

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("Postgres health check failed", zap.Error(err))
		services["postgres"] = "unavailable"
		healthy = false
	}
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		h.logger.Warn("Redis health check failed", zap.Error(err))
		services["redis"] = "unavailable"
		healthy = false
	}
	if !h.broker.Healthy() {
		h.logger.Warn("RabbitMQ health check failed: connection closed")
		services["rabbitmq"] = "unavailable"
		healthy = false
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	c.JSON(status, gin.H{
		"status":   overall,
		"services": services,
	})
}
