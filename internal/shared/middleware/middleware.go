package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"turnstile/internal/shared/utils/response"
	"turnstile/pkg/logger"
)

// RequestIDHeader carries the correlation id in and out
const RequestIDHeader = "X-Request-ID"

// RequestID reuses an incoming X-Request-ID or generates one, and echoes it back
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}

		c.Set(response.RequestIDKey, requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)
		c.Next()
	}
}

// RequestLogger logs every request once it completes. Event streams are logged when they close.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	log = logger.OrDefault(log).WithComponent("http")

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.Request.URL.Path == "/ping" {
			return
		}
		log.LogHTTPRequest(c, time.Since(start))
	}
}

// Recovery turns a handler panic into a C002 response
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		response.RespondError(c, fmt.Errorf("panic: %v", recovered))
		c.Abort()
	})
}
