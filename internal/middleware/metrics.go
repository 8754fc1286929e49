// Package middleware provides HTTP middleware for the Gin framework.
package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/goodjin/migratehero/internal/metrics"
)

// EventStreamContentType marks server-sent event responses.
const EventStreamContentType = "text/event-stream"

// Metrics returns a Gin middleware that records request count, latency and
// in-flight requests. Paths are labelled by route template so job ids do not
// become label values.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip metrics endpoint to avoid self-referential metrics
		if c.FullPath() == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()

		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()

		// A change stream lives as long as its client; its duration is not latency.
		if strings.HasPrefix(c.Writer.Header().Get("Content-Type"), EventStreamContentType) {
			return
		}
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
