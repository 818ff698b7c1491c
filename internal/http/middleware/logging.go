// README: Access log middleware; one structured line per request.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mimoreirac/pi-tercero/internal/logging"
)

func Logging(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", RequestIDFrom(c),
		}
		if id, ok := IdentityFrom(c); ok {
			args = append(args, "user_id", id.UserID)
		}
		switch {
		case c.Writer.Status() >= 500:
			log.Error(c.Request.Context(), "request", args...)
		case c.Writer.Status() >= 400:
			log.Warn(c.Request.Context(), "request", args...)
		default:
			log.Info(c.Request.Context(), "request", args...)
		}
	}
}
