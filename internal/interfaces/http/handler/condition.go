package handler

import (
	"github.com/gin-gonic/gin"
	inspectionapp "github.com/railinspect/backend/internal/application/inspection"
	"github.com/railinspect/backend/internal/interfaces/http/middleware"
)

// ConditionHandler records condition updates through the API
type ConditionHandler struct {
	BaseHandler
	conditions *inspectionapp.ConditionService
}

// NewConditionHandler creates a new ConditionHandler
func NewConditionHandler(conditions *inspectionapp.ConditionService) *ConditionHandler {
	return &ConditionHandler{conditions: conditions}
}

// Update godoc
// @Summary      Update product condition
// @Description  Records an inspection against the product resolved in the session.
// @Description  The response is sent once the submission completes.
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        code    path string                               true "Product ID"
// @Param        request body inspectionapp.ConditionUpdateRequest true "Inspection"
// @Success      200 {object} dto.Response{data=inspectionapp.ProductResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/{code}/condition [post]
func (h *ConditionHandler) Update(c *gin.Context) {
	var req inspectionapp.ConditionUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	ctx := c.Request.Context()
	task, err := h.conditions.Submit(ctx, getSessionID(c), c.Param("code"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	product, err := task.Wait(ctx)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}
