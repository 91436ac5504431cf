package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	inspectionapp "github.com/railinspect/backend/internal/application/inspection"
	"github.com/railinspect/backend/internal/domain/asset"
	"github.com/railinspect/backend/internal/domain/inspection"
	"github.com/railinspect/backend/internal/domain/shared"
	"github.com/railinspect/backend/internal/infrastructure/logger"
	"github.com/railinspect/backend/internal/interfaces/http/middleware"
	"github.com/railinspect/backend/internal/interfaces/web"
	"go.uber.org/zap"
)

// Screen paths
const (
	PathScan            = "/"
	PathDashboard       = "/dashboard"
	PathUpdateCondition = "/update-condition"
	PathHistory         = "/history"
)

// Notices shown on the screens
const (
	noticeProductNotFound = "Product not found in database"
	noticeNoCode          = "No QR code could be read from the photo. Please try again or enter the ID manually."
	noticeEnterProductID  = "Please enter a product ID"
	noticeUpdated         = "Product condition updated successfully!"
	noticeLoggedOut       = "You have been logged out"
	noticeUnexpected      = "Something went wrong. Please try again."
	noticeAlreadySaved    = "This update was already saved."
)

// conditionFormFields maps domain validation codes to the form field they concern
var conditionFormFields = map[string]string{
	"INVALID_CONDITION":        "condition",
	"INVALID_STATUS":           "status",
	"INVALID_MAINTENANCE_TYPE": "maintenance_type",
	"INVALID_INSPECTOR":        "inspector",
	"INVALID_INSPECTION_DATE":  "inspection_date",
	"INVALID_NEXT_MAINTENANCE": "next_maintenance",
	"INVALID_PRIORITY":         "priority",
	"INVALID_ISSUE":            "issues",
}

// PageHandler renders the inspection screens
type PageHandler struct {
	sessions   *inspectionapp.SessionService
	conditions *inspectionapp.ConditionService
	history    *inspectionapp.HistoryService
	locations  *LocationRecorder
	maxUpload  int64
	now        func() time.Time
}

// NewPageHandler creates a new PageHandler
func NewPageHandler(
	sessions *inspectionapp.SessionService,
	conditions *inspectionapp.ConditionService,
	history *inspectionapp.HistoryService,
	locations *LocationRecorder,
	maxUpload int64,
) *PageHandler {
	return &PageHandler{
		sessions:   sessions,
		conditions: conditions,
		history:    history,
		locations:  locations,
		maxUpload:  maxUpload,
		now:        time.Now,
	}
}

// RequireProduct guards the screens that need a resolved product
func (h *PageHandler) RequireProduct() gin.HandlerFunc {
	return middleware.RequireResolvedProduct(h.sessions, PathScan)
}

func (h *PageHandler) render(c *gin.Context, status int, name string, page web.Page) {
	page.SessionID = getSessionID(c)
	page.Errors = append(middleware.Flashes(c, middleware.FlashError), page.Errors...)
	page.Notices = append(middleware.Flashes(c, middleware.FlashSuccess), page.Notices...)
	if page.Resolved == nil {
		if resolved := middleware.GetResolvedProduct(c); resolved != nil {
			page.Resolved = inspectionapp.ToResolvedProductResponse(resolved)
		}
	}
	c.HTML(status, name, page)
}

func (h *PageHandler) redirect(c *gin.Context, path string) {
	c.Redirect(http.StatusSeeOther, path)
}

// Scan renders the scan screen, or moves on to the dashboard when a
// product is already resolved.
func (h *PageHandler) Scan(c *gin.Context) {
	ctx := c.Request.Context()
	state, err := h.sessions.State(ctx, getSessionID(c))
	if err != nil {
		logger.GetGinLogger(c).Error("Failed to load session", zap.Error(err))
		state = &inspectionapp.SessionResponse{Location: inspection.LocationNotAvailable}
	}
	if state.Resolved != nil {
		c.Redirect(http.StatusFound, PathDashboard)
		return
	}

	h.render(c, http.StatusOK, web.TemplateScan, web.Page{
		Title:  "Scan",
		Active: "scan",
		Data: web.ScanData{
			ProductID:         c.Query("product_id"),
			CameraUnavailable: c.Query("camera") == "unavailable",
			Location:          state.Location,
		},
	})
}

// SubmitScan resolves the product ID typed into the scan form
func (h *PageHandler) SubmitScan(c *gin.Context) {
	var req inspectionapp.ScanRequest
	if err := c.ShouldBind(&req); err != nil || strings.TrimSpace(req.ProductID) == "" {
		middleware.AddFlash(c, middleware.FlashError, noticeEnterProductID)
		h.redirect(c, PathScan)
		return
	}
	h.locations.Record(c)

	_, err := h.sessions.Scan(c.Request.Context(), getSessionID(c), req.ProductID, inspectionapp.ScanSourceManual)
	h.afterScan(c, err)
}

// ScanImage decodes a photo of a QR label and resolves its product
func (h *PageHandler) ScanImage(c *gin.Context) {
	fh, err := formFile(c, "image")
	if err != nil {
		h.afterScan(c, err)
		return
	}

	var frames [][]byte
	if fh != nil {
		data, err := readFormFile(fh, h.maxUpload)
		if err != nil {
			h.afterScan(c, err)
			return
		}
		frames = append(frames, data)
	}
	h.locations.Record(c)

	_, err = h.sessions.ScanFrames(c.Request.Context(), getSessionID(c), frames)
	h.afterScan(c, err)
}

func (h *PageHandler) afterScan(c *gin.Context, err error) {
	if err == nil {
		h.redirect(c, PathDashboard)
		return
	}

	var domainErr *shared.DomainError
	switch {
	case errors.Is(err, inspectionapp.ErrProductNotFound):
		middleware.AddFlash(c, middleware.FlashError, noticeProductNotFound)
	case errors.Is(err, inspectionapp.ErrNoCodeDetected):
		middleware.AddFlash(c, middleware.FlashError, noticeNoCode)
	case errors.Is(err, inspectionapp.ErrCameraUnavailable):
		middleware.AddFlash(c, middleware.FlashError, inspectionapp.ErrCameraUnavailable.Message)
		h.redirect(c, PathScan+"?camera=unavailable")
		return
	case errors.As(err, &domainErr):
		middleware.AddFlash(c, middleware.FlashError, domainErr.Message)
	default:
		logger.GetGinLogger(c).Error("Scan failed", zap.Error(err))
		middleware.AddFlash(c, middleware.FlashError, noticeUnexpected)
	}
	h.redirect(c, PathScan)
}

// ScanNew drops the resolved product and returns to the scanner
func (h *PageHandler) ScanNew(c *gin.Context) {
	if err := h.sessions.Clear(c.Request.Context(), getSessionID(c)); err != nil {
		logger.GetGinLogger(c).Error("Failed to clear session", zap.Error(err))
	}
	h.redirect(c, PathScan)
}

// Logout forgets the session state and returns to the scanner
func (h *PageHandler) Logout(c *gin.Context) {
	if err := h.sessions.Forget(c.Request.Context(), getSessionID(c)); err != nil {
		logger.GetGinLogger(c).Error("Failed to forget session", zap.Error(err))
	}
	middleware.AddFlash(c, middleware.FlashSuccess, noticeLoggedOut)
	h.redirect(c, PathScan)
}

// Dashboard renders the resolved product
func (h *PageHandler) Dashboard(c *gin.Context) {
	h.render(c, http.StatusOK, web.TemplateDashboard, web.Page{
		Title:  "Dashboard",
		Active: "dashboard",
	})
}

// UpdateConditionForm renders the condition form with its defaults
func (h *PageHandler) UpdateConditionForm(c *gin.Context) {
	resolved := middleware.GetResolvedProduct(c)
	form := inspectionapp.ConditionUpdateRequest{
		Inspector:      h.conditions.Config().DefaultInspector,
		InspectionDate: h.now().Format(inspectionapp.DateLayout),
		Priority:       string(asset.DefaultPriority),
	}
	if resolved != nil {
		form.Condition = string(resolved.Product.Condition)
		form.Status = string(resolved.Product.Status)
	}
	h.renderConditionForm(c, http.StatusOK, form, nil, nil)
}

// renderConditionForm always issues a fresh submission ID so a re-rendered
// form can be submitted once more
func (h *PageHandler) renderConditionForm(c *gin.Context, status int, form inspectionapp.ConditionUpdateRequest, fieldErrors map[string]string, errs []string) {
	form.SubmissionID = uuid.NewString()
	h.render(c, status, web.TemplateUpdateCondition, web.Page{
		Title:  "Update Condition",
		Active: "update",
		Errors: errs,
		Data: web.ConditionFormData{
			Form:             form,
			FieldErrors:      fieldErrors,
			Conditions:       enumStrings(asset.Conditions()),
			Statuses:         enumStrings(asset.Statuses()),
			MaintenanceTypes: asset.FormMaintenanceTypes(),
			Priorities:       enumStrings(asset.Priorities()),
			CommonIssues:     asset.CommonIssues(),
			SubmitDelay:      h.conditions.Config().SubmitDelay.String(),
		},
	})
}

// SubmitCondition records the condition form, waits for the submission
// to complete and returns to the dashboard.
func (h *PageHandler) SubmitCondition(c *gin.Context) {
	var form inspectionapp.ConditionUpdateRequest
	if err := c.ShouldBind(&form); err != nil {
		fieldErrors := make(map[string]string)
		for _, d := range middleware.ValidationDetails(err) {
			fieldErrors[d.Field] = d.Message
		}
		var errs []string
		if len(fieldErrors) == 0 {
			errs = append(errs, "The form could not be read. Please try again.")
		}
		h.renderConditionForm(c, http.StatusUnprocessableEntity, form, fieldErrors, errs)
		return
	}

	ctx := c.Request.Context()
	task, err := h.conditions.Submit(ctx, getSessionID(c), c.PostForm("product_id"), form)
	if err == nil {
		_, err = task.Wait(ctx)
	}
	if err != nil {
		h.conditionFailed(c, form, err)
		return
	}

	middleware.AddFlash(c, middleware.FlashSuccess, noticeUpdated)
	h.redirect(c, PathDashboard)
}

func (h *PageHandler) conditionFailed(c *gin.Context, form inspectionapp.ConditionUpdateRequest, err error) {
	switch {
	case errors.Is(err, inspection.ErrNoProductResolved):
		h.redirect(c, PathScan)
		return
	case errors.Is(err, inspection.ErrProductMismatch):
		middleware.AddFlash(c, middleware.FlashError, inspection.ErrProductMismatch.Message)
		h.redirect(c, PathDashboard)
		return
	case errors.Is(err, inspection.ErrDuplicateSubmission):
		middleware.AddFlash(c, middleware.FlashSuccess, noticeAlreadySaved)
		h.redirect(c, PathDashboard)
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		if field, ok := conditionFormFields[domainErr.Code]; ok {
			h.renderConditionForm(c, http.StatusUnprocessableEntity, form, map[string]string{field: domainErr.Message}, nil)
			return
		}
		h.renderConditionForm(c, http.StatusUnprocessableEntity, form, nil, []string{domainErr.Message})
		return
	}

	logger.GetGinLogger(c).Error("Condition update failed", zap.Error(err))
	h.renderConditionForm(c, http.StatusInternalServerError, form, nil, []string{noticeUnexpected})
}

// History renders the filtered maintenance history
func (h *PageHandler) History(c *gin.Context) {
	var q inspectionapp.HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		// an unusable filter shows the whole history
		logger.GetGinLogger(c).Debug("Ignoring invalid history filter", zap.Error(err))
		q = inspectionapp.HistoryQuery{}
	}

	resolved := middleware.GetResolvedProduct(c)
	if resolved == nil {
		h.redirect(c, PathScan)
		return
	}

	resp, err := h.history.History(c.Request.Context(), resolved.Product.Code, q)
	if err != nil {
		logger.GetGinLogger(c).Error("Failed to load history", zap.Error(err))
		middleware.AddFlash(c, middleware.FlashError, noticeUnexpected)
		h.redirect(c, PathDashboard)
		return
	}

	h.render(c, http.StatusOK, web.TemplateHistory, web.Page{
		Title:  "History",
		Active: "history",
		Data:   resp,
	})
}

func enumStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
