package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/gradebook-api/internal/service"
)

// Metrics records the method, route, status and latency of every request.
// The route template is preferred over the raw path so /courses/:id does
// not explode label cardinality; unmatched requests fall back to the raw
// path.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	if metrics == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(started))
	}
}
