package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"myth-quiz-service/internal/logging"
)

// RequestLogger logs every request once it has been handled.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.LogRequest(
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}
