package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	RequestIDHeader = "X-Request-ID"
	ContextLogger   = "logger"
)

// RequestLogger tags each request with an id and logs it once it finishes.
// Handlers can pick the tagged entry up with FromContext.
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)

		entry := logger.WithField("request_id", id)
		c.Set(ContextLogger, entry)

		started := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(started).Milliseconds(),
		}

		switch {
		case c.Writer.Status() >= 500:
			entry.WithFields(fields).Error("request failed")
		default:
			entry.WithFields(fields).Info("request")
		}
	}
}

func FromContext(c *gin.Context, fallback *logrus.Logger) logrus.FieldLogger {
	if v, ok := c.Get(ContextLogger); ok {
		if entry, ok := v.(*logrus.Entry); ok {
			return entry
		}
	}
	return fallback
}
