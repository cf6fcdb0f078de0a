package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/logger"
)

// Pinger checks one backing service.
type Pinger func(ctx context.Context) error

// Health reports 503 when any of the named services does not answer.
func Health(checks map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		services := gin.H{}
		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				logger.Warn("health check failed", zap.String("service", name), zap.Error(err))
				services[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			services[name] = "up"
		}

		c.JSON(status, gin.H{"ok": status == http.StatusOK, "services": services})
	}
}
