package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/corates/billing/internal/shared/logger"
)

type dbPinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	pinger func() (dbPinger, error)
	logger logger.Interface
}

func NewHealthHandler(db *gorm.DB, logger logger.Interface) *HealthHandler {
	return &HealthHandler{
		pinger: func() (dbPinger, error) { return db.DB() },
		logger: logger,
	}
}

// HealthCheck handles GET /health. It answers 503 when the database is unreachable.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, health, database := http.StatusOK, "healthy", "up"
	pinger, err := h.pinger()
	if err == nil {
		err = pinger.PingContext(ctx)
	}
	if err != nil {
		h.logger.Warnw("health check database ping failed", "error", err)
		status, health, database = http.StatusServiceUnavailable, "unhealthy", "down"
	}

	c.JSON(status, gin.H{
		"status":   health,
		"service":  "billing",
		"database": database,
	})
}
