package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shantivaas/rental/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Pinger is a dependency whose reachability the health check reports
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports process and database health
type HealthHandler struct {
	db        Pinger
	startTime time.Time
	timeout   time.Duration
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		startTime: time.Now(),
		timeout:   2 * time.Second,
	}
}

// HealthResponse is the health check body
type HealthResponse struct {
	Status   string `json:"status"`
	Time     string `json:"time"`
	Uptime   string `json:"uptime"`
	Database string `json:"database"`
}

// Health pings the database.
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:   "healthy",
		Time:     time.Now().Format(time.RFC3339),
		Uptime:   time.Since(h.startTime).Round(time.Second).String(),
		Database: "ok",
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		logger.GetGinLogger(c).Warn("Health check failed", zap.Error(err))
		resp.Status = "unhealthy"
		resp.Database = "error"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
