package handler

import (
	"net/http"

	"hvac_crm_backend/internal/pipeline/service"
	"hvac_crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/workflow-status", h.WorkflowStatus)
}

func (h *Handler) WorkflowStatus(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	status, err := h.svc.GetWorkflowStatus(c.Request.Context(), customerID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, status)
}
