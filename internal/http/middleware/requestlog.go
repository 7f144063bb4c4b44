package middleware

import (
	"time"

	"sbr_farm/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestLogger tags each request with an id, puts a request-scoped logger in
// the request context and logs the outcome.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)

		l := logger.With("request_id", id)
		c.Request = c.Request.WithContext(logger.NewContext(c.Request.Context(), l))

		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if uid, ok := UserID(c); ok {
			attrs = append(attrs, "user_id", uid)
		}
		if c.Writer.Status() >= 500 {
			l.Error("request", attrs...)
			return
		}
		l.Debug("request", attrs...)
	}
}
