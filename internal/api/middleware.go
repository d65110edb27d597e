package api

import (
	"strings"
	"time"

	"skirental/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	requestIDHeader     = "X-Request-ID"
	requestIDContextKey = "request_id"
)

func requestID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(requestIDHeader)); id != "" {
		return id
	}
	return uuid.NewString()
}

// loggingMiddleware tags every request with a request id and writes one access log line.
func loggingMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "http").Logger()
	}

	return func(c *gin.Context) {
		id := requestID(c)
		c.Set(requestIDContextKey, id)
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()
		dur := time.Since(start)

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		status := c.Writer.Status()
		metrics.IncHTTP(endpoint, status)

		event := base.Info()
		if status >= 500 {
			event = base.Error()
		}
		if len(c.Errors) > 0 {
			event = event.Str("error", c.Errors.String())
		}
		event.
			Str("request_id", id).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("client", c.GetString(clientNameContextKey)).
			Int("status", status).
			Dur("duration", dur).
			Msg("http request")
	}
}
