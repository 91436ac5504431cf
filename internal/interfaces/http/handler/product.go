package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	inspectionapp "github.com/railinspect/backend/internal/application/inspection"
	"github.com/railinspect/backend/internal/infrastructure/scanner"
	"github.com/railinspect/backend/internal/interfaces/http/middleware"
)

// QR label sizes in pixels
const (
	DefaultLabelSize = 256
	MinLabelSize     = 64
	MaxLabelSize     = 1024
)

// ProductHandler handles product lookup, history, labels and photos
type ProductHandler struct {
	BaseHandler
	lookup  *inspectionapp.LookupService
	history *inspectionapp.HistoryService
	images  *inspectionapp.ImageService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(
	lookup *inspectionapp.LookupService,
	history *inspectionapp.HistoryService,
	images *inspectionapp.ImageService,
) *ProductHandler {
	return &ProductHandler{
		lookup:  lookup,
		history: history,
		images:  images,
	}
}

// List godoc
// @Summary      List products
// @Tags         products
// @Produce      json
// @Param        category  query string false "Category (case-insensitive)"
// @Param        condition query string false "Condition"
// @Param        status    query string false "Operational status"
// @Param        sort      query string false "product_id, name, category, condition, status, last_maintenance or next_maintenance"
// @Param        order     query string false "asc or desc"
// @Success      200 {object} dto.Response{data=[]inspectionapp.ProductResponse}
// @Failure      400 {object} dto.Response
// @Router       /products [get]
func (h *ProductHandler) List(c *gin.Context) {
	var q inspectionapp.ProductListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	products, err := h.lookup.List(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, products)
}

// Get godoc
// @Summary      Get a product
// @Description  Returns the product record with its specifications and maintenance history
// @Tags         products
// @Produce      json
// @Param        code path string true "Product ID" example(PROD001)
// @Success      200 {object} dto.Response{data=inspectionapp.ProductResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/{code} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.lookup.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// History godoc
// @Summary      Get maintenance history
// @Description  Filters the history by a search over notes and inspector, and by entry type
// @Tags         products
// @Produce      json
// @Param        code   path  string true  "Product ID"
// @Param        search query string false "Search text"
// @Param        type   query string false "Entry type or all"
// @Success      200 {object} dto.Response{data=inspectionapp.HistoryResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/{code}/history [get]
func (h *ProductHandler) History(c *gin.Context) {
	var q inspectionapp.HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.history.History(c.Request.Context(), c.Param("code"), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ExportHistory godoc
// @Summary      Export maintenance history as CSV
// @Tags         products
// @Produce      text/csv
// @Param        code   path  string true  "Product ID"
// @Param        search query string false "Search text"
// @Param        type   query string false "Entry type or all"
// @Success      200 {file} file
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/{code}/history.csv [get]
func (h *ProductHandler) ExportHistory(c *gin.Context) {
	var q inspectionapp.HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	code := c.Param("code")

	// Look the product up first so a miss is still a JSON error
	if _, err := h.lookup.Find(c.Request.Context(), code); err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-history.csv"`, code))
	c.Status(http.StatusOK)
	if err := h.history.ExportCSV(c.Request.Context(), code, q, c.Writer); err != nil {
		_ = c.Error(err)
	}
}

// Label godoc
// @Summary      Get the QR label of a product
// @Description  Returns a PNG QR code encoding the product ID
// @Tags         products
// @Produce      png
// @Param        code path  string true  "Product ID"
// @Param        size query int    false "Image size in pixels (64-1024)"
// @Success      200 {file} file
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/{code}/qr [get]
func (h *ProductHandler) Label(c *gin.Context) {
	size := DefaultLabelSize
	if v := c.Query("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < MinLabelSize || n > MaxLabelSize {
			h.BadRequest(c, fmt.Sprintf("size must be an integer between %d and %d", MinLabelSize, MaxLabelSize))
			return
		}
		size = n
	}

	product, err := h.lookup.Find(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	png, err := scanner.GenerateLabel(product.Code, size)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", png)
}

// ListImages godoc
// @Summary      List product photos
// @Tags         products
// @Produce      json
// @Param        code path string true "Product ID"
// @Success      200 {object} dto.Response{data=[]inspectionapp.ImageAttachmentResponse}
// @Router       /products/{code}/images [get]
func (h *ProductHandler) ListImages(c *gin.Context) {
	images, err := h.images.List(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, images)
}

// UploadImage godoc
// @Summary      Upload a product photo
// @Description  Stores a photo of the product resolved in the session, tagged with time and scan location
// @Tags         products
// @Accept       multipart/form-data
// @Produce      json
// @Param        code      path     string true  "Product ID"
// @Param        image     formData file   true  "Photo"
// @Param        inspector formData string false "Inspector name"
// @Success      201 {object} dto.Response{data=inspectionapp.UploadImageResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      415 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/{code}/images [post]
func (h *ProductHandler) UploadImage(c *gin.Context) {
	fh, err := formFile(c, "image")
	if err != nil {
		h.HandleError(c, err)
		return
	}

	req := inspectionapp.UploadImageRequest{
		ProductID: c.Param("code"),
		Inspector: c.PostForm("inspector"),
	}
	if fh != nil {
		data, err := readFormFile(fh, h.images.MaxImageSize())
		if err != nil {
			h.HandleError(c, err)
			return
		}
		req.FileName = fh.Filename
		req.Data = data
	}

	resp, err := h.images.Upload(c.Request.Context(), getSessionID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}
