package handler

import (
	"net/http"

	"hvac_crm_backend/internal/projects/transport"
	"hvac_crm_backend/internal/projects/validation"
	"hvac_crm_backend/platform/httpkit"
	"hvac_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	engine *validation.Engine
	val    *validator.Validator
}

func New(engine *validation.Engine, val *validator.Validator) *Handler {
	return &Handler{engine: engine, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/validate", h.Validate)
}

// Validate always answers 200 with the evaluated result; failing rules are
// data, not HTTP errors.
func (h *Handler) Validate(c *gin.Context) {
	var req transport.ValidateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", validator.FieldErrors(err))
		return
	}

	result, err := h.engine.Validate(c.Request.Context(), validation.Request{
		SourceType:       validation.SourceType(req.SourceType),
		QuotationID:      req.QuotationID,
		CustomerID:       req.CustomerID,
		Budget:           req.Budget,
		ProjectManagerID: req.ProjectManagerID,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
