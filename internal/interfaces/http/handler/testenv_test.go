package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	inspectionapp "github.com/railinspect/backend/internal/application/inspection"
	"github.com/railinspect/backend/internal/domain/inspection"
	"github.com/railinspect/backend/internal/infrastructure/cache"
	"github.com/railinspect/backend/internal/infrastructure/config"
	"github.com/railinspect/backend/internal/infrastructure/dataset"
	"github.com/railinspect/backend/internal/infrastructure/persistence"
	"github.com/railinspect/backend/internal/infrastructure/scanner"
	"github.com/railinspect/backend/internal/infrastructure/storage"
	"github.com/railinspect/backend/internal/interfaces/http/dto"
	"github.com/railinspect/backend/internal/interfaces/http/middleware"
	"github.com/railinspect/backend/internal/interfaces/web"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

const testCookieName = "inspect_session"

type envOptions struct {
	fallback     inspection.Locator
	maxImageSize int64
	persist      bool
}

type envOption func(*envOptions)

func withFallback(l inspection.Locator) envOption {
	return func(o *envOptions) { o.fallback = l }
}

func withMaxImageSize(n int64) envOption {
	return func(o *envOptions) { o.maxImageSize = n }
}

func withoutPersistence() envOption {
	return func(o *envOptions) { o.persist = false }
}

// testEnv wires the handlers over an in-memory database seeded with the
// bundled dataset. Requests share one session through X-Session-ID and
// carry the latest session cookie for flashes.
type testEnv struct {
	engine    *gin.Engine
	sessions  *inspectionapp.SessionService
	storage   *storage.MemoryObjectStorage
	sessionID string
	cookie    *http.Cookie
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	o := envOptions{maxImageSize: 1 << 20, persist: true}
	for _, opt := range opts {
		opt(&o)
	}

	ctx := context.Background()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	t.Cleanup(func() { _ = db.Close() })

	products := persistence.NewGormProductRepository(db.DB)
	attachments := persistence.NewGormAttachmentRepository(db.DB)
	records, err := dataset.Parse(dataset.Bundled())
	require.NoError(t, err)
	_, err = dataset.Seed(ctx, products, records, nil)
	require.NoError(t, err)

	store := cache.NewInMemorySessionStore(time.Hour, 0)
	t.Cleanup(func() { _ = store.Close() })
	objects := storage.NewMemoryObjectStorage()

	seen := cache.NewInMemoryIdempotencyStore(time.Hour)
	t.Cleanup(func() { _ = seen.Close() })

	lookup := inspectionapp.NewLookupService(products)
	sessions := inspectionapp.NewSessionService(store, lookup)
	conditions := inspectionapp.NewConditionService(sessions, products, inspectionapp.ConditionServiceConfig{
		SubmitDelay:      0,
		PersistUpdates:   o.persist,
		DefaultInspector: "Field Inspector",
		SubmissionTTL:    time.Hour,
	}, inspectionapp.WithIdempotencyStore(seen))
	history := inspectionapp.NewHistoryService(lookup)
	images := inspectionapp.NewImageService(sessions, attachments, objects, inspectionapp.ImageServiceConfig{
		MaxImageSize:      o.maxImageSize,
		DownloadURLExpiry: time.Hour,
	})
	locations := NewLocationRecorder(sessions, o.fallback)

	pages := NewPageHandler(sessions, conditions, history, locations, o.maxImageSize)
	sessionHandler := NewSessionHandler(sessions, locations, o.maxImageSize)
	productHandler := NewProductHandler(lookup, history, images)
	conditionHandler := NewConditionHandler(conditions)

	engine := gin.New()
	engine.SetHTMLTemplate(web.MustTemplates())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Session(middleware.NewCookieStore(middleware.CookieConfig{
		Name:   testCookieName,
		Secret: "0123456789abcdef0123456789abcdef",
		MaxAge: time.Hour,
	}), testCookieName))

	engine.GET(PathScan, pages.Scan)
	engine.POST("/scan", pages.SubmitScan)
	engine.POST("/scan/image", pages.ScanImage)
	engine.POST("/scan/new", pages.ScanNew)
	engine.POST("/logout", pages.Logout)
	guarded := engine.Group("", pages.RequireProduct())
	guarded.GET(PathDashboard, pages.Dashboard)
	guarded.GET(PathUpdateCondition, pages.UpdateConditionForm)
	guarded.POST(PathUpdateCondition, pages.SubmitCondition)
	guarded.GET(PathHistory, pages.History)

	api := engine.Group("/api/v1")
	api.GET("/session", sessionHandler.Get)
	api.DELETE("/session", sessionHandler.Clear)
	api.POST("/session/scan", sessionHandler.Scan)
	api.POST("/session/scan/frames", sessionHandler.ScanFrames)
	api.PUT("/session/location", sessionHandler.SetLocation)
	api.GET("/products", productHandler.List)
	api.GET("/products/:code", productHandler.Get)
	api.GET("/products/:code/history", productHandler.History)
	api.GET("/products/:code/history.csv", productHandler.ExportHistory)
	api.GET("/products/:code/qr", productHandler.Label)
	api.GET("/products/:code/images", productHandler.ListImages)
	api.POST("/products/:code/images", productHandler.UploadImage)
	api.POST("/products/:code/condition", conditionHandler.Update)

	return &testEnv{
		engine:    engine,
		sessions:  sessions,
		storage:   objects,
		sessionID: uuid.NewString(),
	}
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	req.Header.Set(middleware.SessionHeader, e.sessionID)
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == testCookieName {
			e.cookie = ck
		}
	}
	return w
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.serve(httptest.NewRequest(http.MethodGet, path, nil))
}

func (e *testEnv) sendJSON(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return e.serve(req)
}

func (e *testEnv) postForm(path, form string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.serve(req)
}

type upload struct {
	field string
	name  string
	data  []byte
}

func (e *testEnv) postMultipart(t *testing.T, path string, fields map[string]string, files ...upload) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.serve(req)
}

// resolve scans code into the test session through the API
func (e *testEnv) resolve(t *testing.T, code string) {
	t.Helper()
	w := e.sendJSON(http.MethodPost, "/api/v1/session/scan", map[string]string{"product_id": code})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	resp := decodeResponse(t, w)
	require.True(t, resp.Success, w.Body.String())
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is not an object: %s", w.Body.String())
	return data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error, w.Body.String())
	return resp.Error.Code
}

func qrLabel(t *testing.T, code string) []byte {
	t.Helper()
	data, err := scanner.GenerateLabel(code, 256)
	require.NoError(t, err)
	return data
}

func blankPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
