package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/railinspect/backend/internal/domain/inspection"
	"github.com/railinspect/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Gin context keys set by the session middleware
const (
	SessionIDKey       = "session_id"
	ResolvedProductKey = "resolved_product"
	cookieSessionKey   = "inspection_cookie_session"
)

// SessionHeader lets API clients carry the session without cookies
const SessionHeader = "X-Session-ID"

const sessionValueID = "sid"

// Flash kinds
const (
	FlashError   = "error"
	FlashSuccess = "success"
)

// CookieConfig holds the session cookie settings
type CookieConfig struct {
	Name   string
	Secret string
	MaxAge time.Duration
	Secure bool
}

// NewCookieStore creates the signed cookie store backing inspector sessions
func NewCookieStore(cfg CookieConfig) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Session assigns every request an inspector session ID.
// The X-Session-ID header wins over the cookie; a missing or unreadable
// cookie starts a new session. The ID is added to the request logger.
func Session(store sessions.Store, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// A tampered or stale cookie still yields a usable empty session
		sess, err := store.Get(c.Request, cookieName)
		if err != nil {
			logger.GetGinLogger(c).Debug("Discarding unreadable session cookie", zap.Error(err))
		}
		c.Set(cookieSessionKey, sess)

		sessionID := c.GetHeader(SessionHeader)
		if !validSessionID(sessionID) {
			sessionID, _ = sess.Values[sessionValueID].(string)
		}
		if !validSessionID(sessionID) {
			sessionID = uuid.NewString()
			sess.Values[sessionValueID] = sessionID
			if err := sess.Save(c.Request, c.Writer); err != nil {
				logger.GetGinLogger(c).Warn("Failed to save session cookie", zap.Error(err))
			}
		}

		c.Set(SessionIDKey, sessionID)
		c.Header(SessionHeader, sessionID)

		ctx, reqLogger := logger.WithSessionID(c.Request.Context(), logger.GetGinLogger(c), sessionID)
		c.Request = c.Request.WithContext(ctx)
		c.Set("logger", reqLogger)

		c.Next()
	}
}

func validSessionID(id string) bool {
	return id != "" && len(id) <= 64
}

// GetSessionID returns the inspector session ID of the request
func GetSessionID(c *gin.Context) string {
	return c.GetString(SessionIDKey)
}

func cookieSession(c *gin.Context) *sessions.Session {
	if v, ok := c.Get(cookieSessionKey); ok {
		if sess, ok := v.(*sessions.Session); ok {
			return sess
		}
	}
	return nil
}

// AddFlash queues a one-time notice for the next rendered page
func AddFlash(c *gin.Context, kind, message string) {
	sess := cookieSession(c)
	if sess == nil {
		return
	}
	sess.AddFlash(message, kind)
	if err := sess.Save(c.Request, c.Writer); err != nil {
		logger.GetGinLogger(c).Warn("Failed to save flash", zap.Error(err))
	}
}

// Flashes pops the queued notices of one kind
func Flashes(c *gin.Context, kind string) []string {
	sess := cookieSession(c)
	if sess == nil {
		return nil
	}
	raw := sess.Flashes(kind)
	if len(raw) == 0 {
		return nil
	}
	if err := sess.Save(c.Request, c.Writer); err != nil {
		logger.GetGinLogger(c).Warn("Failed to save session after reading flashes", zap.Error(err))
	}

	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// ResolvedLookup finds the product resolved in a session
type ResolvedLookup interface {
	Resolved(ctx context.Context, sessionID string) (*inspection.ResolvedProduct, error)
}

// RequireResolvedProduct redirects to the scan screen when the session has
// no resolved product. Otherwise the product is stored under ResolvedProductKey.
func RequireResolvedProduct(lookup ResolvedLookup, redirectTo string) gin.HandlerFunc {
	return func(c *gin.Context) {
		resolved, err := lookup.Resolved(c.Request.Context(), GetSessionID(c))
		if err != nil {
			if !errors.Is(err, inspection.ErrNoProductResolved) {
				logger.GetGinLogger(c).Error("Failed to load session", zap.Error(err))
			}
			c.Redirect(http.StatusFound, redirectTo)
			c.Abort()
			return
		}
		c.Set(ResolvedProductKey, resolved)
		c.Next()
	}
}

// GetResolvedProduct returns the product stored by RequireResolvedProduct
func GetResolvedProduct(c *gin.Context) *inspection.ResolvedProduct {
	if v, ok := c.Get(ResolvedProductKey); ok {
		if r, ok := v.(*inspection.ResolvedProduct); ok {
			return r
		}
	}
	return nil
}
