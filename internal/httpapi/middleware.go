package httpapi

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chompin/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// requestLogger attaches a request-scoped logger carrying the request id.
func requestLogger(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		logger := base.With("request_id", id, "method", c.Request.Method, "path", c.Request.URL.Path)
		c.Request = c.Request.WithContext(logging.ContextWithLogger(c.Request.Context(), logger))
		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Cache-Control", "no-store")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
