package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
)

// RequestLogger logs each request on the collector channel.
func RequestLogger(logger *logging.ChanneledLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration", time.Since(start),
		}
		switch {
		case status >= 500:
			logger.Collector().Error("Request failed", attrs...)
		case status >= 400:
			logger.Collector().Warn("Request rejected", attrs...)
		default:
			logger.Collector().Debug("Request completed", attrs...)
		}
	}
}
