package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/railinspect/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetrics_RecordsRoutePattern(t *testing.T) {
	metrics := telemetry.NewMetrics()

	router := gin.New()
	router.Use(HTTPMetrics(DefaultHTTPMetricsConfig(metrics)))
	router.GET("/api/v1/products/:code", func(c *gin.Context) {
		if c.Param("code") == "PROD999" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	for _, code := range []string{"PROD001", "PROD002", "PROD999"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products/"+code, nil))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `railinspect_http_requests_total{method="GET",route="/api/v1/products/:code",status="200"} 2`)
	assert.Contains(t, body, `railinspect_http_requests_total{method="GET",route="/api/v1/products/:code",status="404"} 1`)
	assert.NotContains(t, body, `route="/metrics"`)
	assert.NotContains(t, body, "PROD001")
}

func TestHTTPMetrics_UnmatchedRoute(t *testing.T) {
	metrics := telemetry.NewMetrics()

	router := gin.New()
	router.Use(HTTPMetrics(DefaultHTTPMetricsConfig(metrics)))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 1, testutil.CollectAndCount(metrics.Registry(), "railinspect_http_requests_total"))
}

func TestHTTPMetrics_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(HTTPMetrics(HTTPMetricsConfig{Enabled: false}))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
