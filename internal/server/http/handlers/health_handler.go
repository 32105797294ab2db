package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler reports readiness of the purchase ledger.
type HealthHandler struct {
	ledger HealthChecker
	logger *slog.Logger
}

// NewHealthHandler constructs HealthHandler. A nil checker reports healthy.
func NewHealthHandler(ledger HealthChecker, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{ledger: ledger, logger: logger}
}

// Healthz handles GET /healthz.
func (h *HealthHandler) Healthz(c *gin.Context) {
	if h.ledger != nil {
		if err := h.ledger.HealthCheck(c.Request.Context()); err != nil {
			h.logger.Warn("ledger health check failed", slog.String("error", err.Error()))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "ledger": "down"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
