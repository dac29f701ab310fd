package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	ContextIPAddress = "ip_address"
	ContextUserAgent = "user_agent"
)

// AuditMiddleware extracts and sets audit information in context
func AuditMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Forwarding headers are honoured only from the engine's trusted proxies
		c.Set(ContextIPAddress, c.ClientIP())
		c.Set(ContextUserAgent, c.GetHeader("User-Agent"))

		c.Next()
	}
}

// RequestLogger writes one structured line per request. It relies on
// AuditMiddleware running first.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", GetIPAddress(c),
			"user_agent", GetUserAgent(c),
		}
		if teamID, ok := GetTeamID(c); ok {
			attrs = append(attrs, "team_id", teamID)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("request", attrs...)
		case status >= 400:
			logger.Warn("request", attrs...)
		default:
			logger.Info("request", attrs...)
		}
	}
}

// GetIPAddress retrieves IP address from context
func GetIPAddress(c *gin.Context) string {
	return c.GetString(ContextIPAddress)
}

// GetUserAgent retrieves user agent from context
func GetUserAgent(c *gin.Context) string {
	return c.GetString(ContextUserAgent)
}
