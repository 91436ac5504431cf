package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPObserver records finished requests. Implemented by telemetry.Metrics.
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// HTTPMetricsConfig holds configuration for HTTP metrics middleware.
type HTTPMetricsConfig struct {
	// Observer receives one observation per request.
	Observer HTTPObserver
	// Enabled controls whether metrics collection is active.
	Enabled bool
	// SkipPaths are not recorded (the scrape endpoint itself, health checks).
	SkipPaths []string
}

// DefaultHTTPMetricsConfig returns default HTTP metrics configuration.
func DefaultHTTPMetricsConfig(observer HTTPObserver) HTTPMetricsConfig {
	return HTTPMetricsConfig{
		Observer:  observer,
		Enabled:   true,
		SkipPaths: []string{"/metrics", "/health"},
	}
}

// HTTPMetrics returns a Gin middleware that records request count and latency
// labelled by method, route pattern and status code. The route pattern keeps
// label cardinality bounded: "/api/v1/products/:code", never the raw path.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.Observer == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		cfg.Observer.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
