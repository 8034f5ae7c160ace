package middleware

import (
	"strconv"
	"time"

	"github.com/fitsworks/primary-server/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records request counts and latency per route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.ObserveRequest(path, c.Request.Method, strconv.Itoa(c.Writer.Status()), time.Since(started).Seconds())
	}
}
