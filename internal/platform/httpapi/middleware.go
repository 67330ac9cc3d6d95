// Package httpapi serves the run-status HTTP surface (GET /runs/:id and
// its WebSocket progress stream), using a standard Gin
// logging/recovery/request-ID middleware idiom.
package httpapi

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wyfcoding/ore/internal/obslog"
)

const requestIDKey = "request_id"

// LoggingMiddleware assigns a request ID and logs each request's
// method/path/status/duration.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		c.Set(requestIDKey, requestID)

		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		obslog.Get().Info(context.Background(), "http request completed",
			"request_id", requestID,
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// RecoveryMiddleware converts a panic into a 500 response with the
// request ID attached.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				requestID, _ := c.Get(requestIDKey)
				obslog.Get().Error(context.Background(), "http request panicked", "request_id", requestID, "panic", r)
				c.JSON(500, gin.H{"error": "internal server error", "request_id": requestID})
				c.Abort()
			}
		}()
		c.Next()
	}
}
