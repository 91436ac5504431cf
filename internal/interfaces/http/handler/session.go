package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	inspectionapp "github.com/railinspect/backend/internal/application/inspection"
	"github.com/railinspect/backend/internal/domain/inspection"
	"github.com/railinspect/backend/internal/domain/shared"
	"github.com/railinspect/backend/internal/interfaces/http/dto"
	"github.com/railinspect/backend/internal/interfaces/http/middleware"
)

// MaxScanFrames bounds the frames accepted by one scan request
const MaxScanFrames = 10

// SessionHandler handles the inspector session API
type SessionHandler struct {
	BaseHandler
	sessions     *inspectionapp.SessionService
	locations    *LocationRecorder
	maxFrameSize int64
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessions *inspectionapp.SessionService, locations *LocationRecorder, maxFrameSize int64) *SessionHandler {
	return &SessionHandler{
		sessions:     sessions,
		locations:    locations,
		maxFrameSize: maxFrameSize,
	}
}

// Get godoc
// @Summary      Get the current session
// @Description  Returns the session ID, last known location and resolved product
// @Tags         session
// @Produce      json
// @Success      200 {object} dto.Response{data=inspectionapp.SessionResponse}
// @Router       /session [get]
func (h *SessionHandler) Get(c *gin.Context) {
	state, err := h.sessions.State(c.Request.Context(), getSessionID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, state)
}

// Clear godoc
// @Summary      Clear the resolved product
// @Tags         session
// @Success      204
// @Router       /session [delete]
func (h *SessionHandler) Clear(c *gin.Context) {
	if err := h.sessions.Clear(c.Request.Context(), getSessionID(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Scan godoc
// @Summary      Resolve a product by ID
// @Description  Looks up the product and stores it in the session, tagged with the current location
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        X-Geo-Latitude  header string false "Device latitude"
// @Param        X-Geo-Longitude header string false "Device longitude"
// @Param        request body inspectionapp.ScanRequest true "Product identifier"
// @Success      200 {object} dto.Response{data=inspectionapp.ResolvedProductResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /session/scan [post]
func (h *SessionHandler) Scan(c *gin.Context) {
	var req inspectionapp.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	h.locations.Record(c)

	resolved, err := h.sessions.Scan(c.Request.Context(), getSessionID(c), req.ProductID, inspectionapp.ScanSourceManual)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resolved)
}

// ScanFrames godoc
// @Summary      Scan camera frames
// @Description  Decodes the uploaded frames in order and resolves the first QR code found
// @Tags         session
// @Accept       multipart/form-data
// @Produce      json
// @Param        frames formData file true "Camera frames (repeatable)"
// @Success      200 {object} dto.Response{data=inspectionapp.ResolvedProductResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /session/scan/frames [post]
func (h *SessionHandler) ScanFrames(c *gin.Context) {
	frames, err := h.readFrames(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.locations.Record(c)

	resolved, err := h.sessions.ScanFrames(c.Request.Context(), getSessionID(c), frames)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resolved)
}

func (h *SessionHandler) readFrames(c *gin.Context) ([][]byte, error) {
	form, err := c.MultipartForm()
	if err != nil {
		// No multipart body means the camera produced no frames
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, shared.NewDomainError(dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
		}
		return nil, err
	}
	files := form.File["frames"]
	if len(files) > MaxScanFrames {
		return nil, shared.NewDomainError("INVALID_FRAME_COUNT",
			fmt.Sprintf("At most %d frames can be scanned at once, got %d", MaxScanFrames, len(files)))
	}

	frames := make([][]byte, 0, len(files))
	for _, fh := range files {
		data, err := readFormFile(fh, h.maxFrameSize)
		if err != nil {
			return nil, err
		}
		frames = append(frames, data)
	}
	return frames, nil
}

// SetLocation godoc
// @Summary      Record the device location
// @Description  Stores the coordinate reported by the browser as the session's last known location
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        request body inspectionapp.LocationRequest true "Coordinate"
// @Success      200 {object} dto.Response{data=inspectionapp.SessionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /session/location [put]
func (h *SessionHandler) SetLocation(c *gin.Context) {
	var req inspectionapp.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	coord, err := inspection.NewCoordinate(*req.Latitude, *req.Longitude)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	state, err := h.sessions.SetLocation(c.Request.Context(), getSessionID(c), coord.String())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, state)
}
