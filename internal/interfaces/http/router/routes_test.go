package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/railinspect/backend/internal/interfaces/http/handler"
	"github.com/stretchr/testify/assert"
)

func TestInspectionRoutes(t *testing.T) {
	engine := gin.New()
	h := Handlers{
		Pages:      handler.NewPageHandler(nil, nil, nil, nil, 0),
		Sessions:   handler.NewSessionHandler(nil, nil, 0),
		Products:   handler.NewProductHandler(nil, nil, nil),
		Conditions: handler.NewConditionHandler(nil),
		System:     handler.NewSystemHandler("svc", "dev", nil),
	}

	r := Inspection(NewRouter(engine), h, BodyLimits{})
	r.Setup()

	registered := make(map[string]bool)
	for _, route := range engine.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, route := range r.Routes() {
		assert.True(t, registered[route.Method+" "+route.Path], "%s %s not registered", route.Method, route.Path)
	}
	for _, want := range []string{
		"GET /",
		"POST /scan",
		"GET /dashboard",
		"POST /update-condition",
		"GET /history",
		"POST /api/v1/session/scan/frames",
		"PUT /api/v1/session/location",
		"GET /api/v1/products/:code/history.csv",
		"POST /api/v1/products/:code/condition",
		"GET /api/v1/system/info",
	} {
		assert.True(t, registered[want], want)
	}
}

func TestInspectionRoutesWithUploadLimit(t *testing.T) {
	engine := gin.New()
	h := Handlers{
		Pages:      handler.NewPageHandler(nil, nil, nil, nil, 0),
		Sessions:   handler.NewSessionHandler(nil, nil, 0),
		Products:   handler.NewProductHandler(nil, nil, nil),
		Conditions: handler.NewConditionHandler(nil),
	}
	var applied []string
	limit := func(name string) gin.HandlerFunc {
		return func(c *gin.Context) {
			applied = append(applied, name)
			c.AbortWithStatus(http.StatusRequestEntityTooLarge)
		}
	}

	Inspection(NewRouter(engine), h, BodyLimits{Default: limit("default"), Upload: limit("upload")}).Setup()

	for _, tt := range []struct {
		method, path, limit string
	}{
		{http.MethodPost, "/api/v1/products/PROD001/images", "upload"},
		{http.MethodPost, "/scan/image", "upload"},
		{http.MethodPost, "/api/v1/session/scan/frames", "upload"},
		{http.MethodPost, "/api/v1/products/PROD001/condition", "default"},
		{http.MethodPut, "/api/v1/session/location", "default"},
	} {
		applied = nil
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, tt.path)
		assert.Equal(t, []string{tt.limit}, applied, tt.path)
	}

	for _, route := range engine.Routes() {
		assert.NotEqual(t, "/api/v1/system/info", route.Path)
	}
}
