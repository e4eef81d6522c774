package handler

import (
	"net/http"

	"hvac_crm_backend/internal/analytics/service"
	"hvac_crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/conversion", h.Conversion)
}

func (h *Handler) Conversion(c *gin.Context) {
	tf, err := service.ParseTimeframe(c.Query("timeframe"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid timeframe", err.Error())
		return
	}

	result, err := h.svc.GetConversionMetrics(c.Request.Context(), tf)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
