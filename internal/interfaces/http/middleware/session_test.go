package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/railinspect/backend/internal/domain/asset"
	"github.com/railinspect/backend/internal/domain/inspection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testCookie = "inspect_session"

func newSessionRouter() *gin.Engine {
	store := NewCookieStore(CookieConfig{
		Name:   testCookie,
		Secret: "0123456789abcdef0123456789abcdef",
		MaxAge: time.Hour,
	})

	router := gin.New()
	router.Use(Session(store, testCookie))
	router.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, GetSessionID(c))
	})
	router.POST("/flash", func(c *gin.Context) {
		AddFlash(c, FlashError, "Product not found in database")
		c.Redirect(http.StatusSeeOther, "/flashes")
	})
	router.GET("/flashes", func(c *gin.Context) {
		c.JSON(http.StatusOK, Flashes(c, FlashError))
	})
	return router
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	// Each save appends a Set-Cookie header; the last one wins in a browser
	var found *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == testCookie {
			found = ck
		}
	}
	require.NotNil(t, found, "session cookie not set")
	return found
}

func TestSession_AssignsAndKeepsID(t *testing.T) {
	router := newSessionRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.Equal(t, http.StatusOK, w.Code)

	first := w.Body.String()
	assert.NotEmpty(t, first)
	assert.Equal(t, first, w.Header().Get(SessionHeader))
	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, first, w.Body.String())
}

func TestSession_HeaderOverridesCookie(t *testing.T) {
	router := newSessionRouter()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(SessionHeader, "tablet-7")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "tablet-7", w.Body.String())
}

func TestSession_TamperedCookieStartsFresh(t *testing.T) {
	router := newSessionRouter()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "forged"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.String())
}

func TestSession_FlashesAreReadOnce(t *testing.T) {
	router := newSessionRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/flash", nil))
	require.Equal(t, http.StatusSeeOther, w.Code)
	cookie := sessionCookie(t, w)

	req := httptest.NewRequest(http.MethodGet, "/flashes", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.JSONEq(t, `["Product not found in database"]`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/flashes", nil)
	req.AddCookie(sessionCookie(t, w))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "null", w.Body.String())
}

type mockResolvedLookup struct {
	mock.Mock
}

func (m *mockResolvedLookup) Resolved(ctx context.Context, sessionID string) (*inspection.ResolvedProduct, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inspection.ResolvedProduct), args.Error(1)
}

func TestRequireResolvedProduct(t *testing.T) {
	product, err := asset.NewProduct("PROD001", "Traction Motor")
	require.NoError(t, err)
	resolved := &inspection.ResolvedProduct{Product: product, ScannedLocation: inspection.LocationNotAvailable}

	lookup := new(mockResolvedLookup)
	lookup.On("Resolved", mock.Anything, "with-product").Return(resolved, nil)
	lookup.On("Resolved", mock.Anything, "empty").Return(nil, inspection.ErrNoProductResolved)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(SessionIDKey, c.GetHeader(SessionHeader))
		c.Next()
	})
	router.GET("/dashboard", RequireResolvedProduct(lookup, "/"), func(c *gin.Context) {
		c.String(http.StatusOK, GetResolvedProduct(c).Product.Code)
	})

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set(SessionHeader, "with-product")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PROD001", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set(SessionHeader, "empty")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	lookup.AssertExpectations(t)
}
