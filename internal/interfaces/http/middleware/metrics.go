package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPObserver receives one call per served request
type HTTPObserver interface {
	ObserveHTTPRequest(route, method string, status int, duration time.Duration)
}

// HTTPMetrics returns a middleware that reports request counts and latency.
// A nil observer disables it.
func HTTPMetrics(observer HTTPObserver) gin.HandlerFunc {
	if observer == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		observer.ObserveHTTPRequest(getRoutePattern(c), c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

// getRoutePattern returns the route template to keep label cardinality low
func getRoutePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}
