package handler

import (
	"github.com/gin-gonic/gin"
	inspectionapp "github.com/railinspect/backend/internal/application/inspection"
	"github.com/railinspect/backend/internal/domain/inspection"
	"github.com/railinspect/backend/internal/infrastructure/geo"
	"github.com/railinspect/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// LocationRecorder updates a session's last known location from the
// coordinate the browser sends along with a scan.
type LocationRecorder struct {
	sessions *inspectionapp.SessionService
	fallback inspection.Locator
}

// NewLocationRecorder creates a LocationRecorder. fallback may be nil.
func NewLocationRecorder(sessions *inspectionapp.SessionService, fallback inspection.Locator) *LocationRecorder {
	return &LocationRecorder{sessions: sessions, fallback: fallback}
}

// Record stores the coordinate reported with the request. Without one the
// fallback only fills a session that has no location yet.
func (r *LocationRecorder) Record(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := getSessionID(c)

	var locator inspection.Locator
	client := geo.FromRequest(c.Request)
	switch {
	case client.Latitude != "" || client.Longitude != "":
		locator = geo.ForRequest(c.Request, r.fallback)
	case r.fallback != nil:
		state, err := r.sessions.State(ctx, sessionID)
		if err != nil || state.Location != inspection.LocationNotAvailable {
			return
		}
		locator = r.fallback
	default:
		return
	}

	location := inspection.Describe(ctx, locator)
	if _, err := r.sessions.SetLocation(ctx, sessionID, location); err != nil {
		logger.GetGinLogger(c).Warn("Failed to record location", zap.Error(err))
	}
}
