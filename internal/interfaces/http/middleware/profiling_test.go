package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/railinspect/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
)

type ctxMarker struct{}

func TestDefaultProfilingConfig(t *testing.T) {
	cfg := DefaultProfilingConfig()

	assert.True(t, cfg.Enabled)
	assert.Contains(t, cfg.SkipPaths, "/health")
	assert.Contains(t, cfg.SkipPaths, "/metrics")
	assert.Contains(t, cfg.SkipPathPrefixes, "/static")
}

func TestProfilingMiddleware_HandlersRun(t *testing.T) {
	tests := []struct {
		name string
		cfg  ProfilingConfig
		path string
	}{
		{"disabled", ProfilingConfig{Enabled: false}, "/api/v1/products/:code"},
		{"labelled route", DefaultProfilingConfig(), "/api/v1/products/:code"},
		{"skipped path", DefaultProfilingConfig(), "/health"},
		{"skipped prefix", DefaultProfilingConfig(), "/static/*filepath"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			called := false
			r.Use(ProfilingWithConfig(tt.cfg))
			r.GET(tt.path, func(c *gin.Context) {
				called = true
				c.Status(http.StatusOK)
			})

			path := map[string]string{
				"/api/v1/products/:code": "/api/v1/products/PROD001",
				"/health":                "/health",
				"/static/*filepath":      "/static/geo.js",
			}[tt.path]

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.True(t, called)
		})
	}
}

func TestProfilingMiddleware_ContextPreserved(t *testing.T) {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxMarker{}, "kept"))
		c.Next()
	})
	r.Use(Profiling())

	var got any
	r.POST("/api/v1/session/scan", func(c *gin.Context) {
		got = c.Request.Context().Value(ctxMarker{})
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/session/scan", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "kept", got)
}

func TestExtractProfilingLabels(t *testing.T) {
	r := gin.New()
	var labels map[string]string
	r.GET("/api/v1/products/:code/history", func(c *gin.Context) {
		labels = extractProfilingLabels(c)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/products/PROD001/history", nil))

	assert.Equal(t, map[string]string{
		telemetry.ProfilingLabelMethod:     "GET",
		telemetry.ProfilingLabelRoute:      "/api/v1/products/:code/history",
		telemetry.ProfilingLabelController: "products",
	}, labels)
}

func TestExtractControllerFromRoute(t *testing.T) {
	tests := []struct {
		route    string
		expected string
	}{
		{"", ""},
		{"/", ""},
		{"/api/v1/products/:code", "products"},
		{"/api/v1/products/:code/images", "products"},
		{"/api/v1/session/scan/frames", "session"},
		{"/api/v2/system/ping", "system"},
		{"/update-condition", "update-condition"},
		{"/dashboard", "dashboard"},
		{"/:code", ""},
	}

	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractControllerFromRoute(tt.route))
		})
	}
}

func TestIsVersionSegment(t *testing.T) {
	assert.True(t, isVersionSegment("v1"))
	assert.True(t, isVersionSegment("V12"))
	assert.False(t, isVersionSegment("v"))
	assert.False(t, isVersionSegment("vx"))
	assert.False(t, isVersionSegment("products"))
}
