package handler

import (
	"net/http"
	"strings"

	"hvac_crm_backend/internal/leads/domain"
	"hvac_crm_backend/internal/leads/repository"
	"hvac_crm_backend/internal/leads/service"
	"hvac_crm_backend/internal/leads/transport"
	"hvac_crm_backend/platform/httpkit"
	"hvac_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

func New(svc *service.Service, val *validator.Validator) *Handler {
	transport.RegisterValidations(val)
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/history", h.History)
	rg.POST("/:id/actions", h.Action)
	rg.PUT("/:id/status", h.SetStatus)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if !h.bind(c, &req) {
		return
	}

	var actor *string
	if a := httpkit.GetIdentity(c).Actor(); a != "" {
		actor = &a
	}

	lead, err := h.svc.CreateLead(c.Request.Context(), repository.CreateLeadParams{
		CustomerID:  req.CustomerID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		ServiceType: req.ServiceType,
		Source:      req.Source,
		Actor:       actor,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, toLeadResponse(lead))
}

func (h *Handler) List(c *gin.Context) {
	var query transport.ListLeadsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	filter := repository.LeadFilter{
		CreatedFrom: query.CreatedFrom,
		CreatedTo:   query.CreatedTo,
		ServiceType: strings.TrimSpace(query.ServiceType),
		Source:      strings.TrimSpace(query.Source),
	}
	if query.CustomerID != "" {
		customerID, err := uuid.Parse(query.CustomerID)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		filter.CustomerID = &customerID
	}
	for _, raw := range strings.Split(query.Status, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		status, err := domain.ParseStatus(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
			return
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	leads, err := h.svc.ListLeads(c.Request.Context(), filter)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.LeadResponse, len(leads))
	for i, lead := range leads {
		items[i] = toLeadResponse(lead)
	}
	httpkit.OK(c, transport.ListLeadsResponse{Items: items, Total: len(items)})
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	lead, err := h.svc.GetLead(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toLeadResponse(lead))
}

func (h *Handler) History(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	view, err := h.svc.GetHistory(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.HistoryEntryResponse, len(view.Entries))
	for i, entry := range view.Entries {
		items[i] = toHistoryEntryResponse(entry)
	}
	httpkit.OK(c, transport.HistoryResponse{Items: items, Consistent: view.Consistent, Problem: view.Problem})
}

func (h *Handler) Action(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.ActionRequest
	if !h.bind(c, &req) {
		return
	}

	action, err := domain.ParseAction(req.Action)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	data := domain.ActionData{
		Actor:       httpkit.GetIdentity(c).Actor(),
		ProjectID:   req.ProjectID,
		QuotationID: req.QuotationID,
		Positive:    req.Positive,
		Note:        req.Note,
	}

	var result service.ProgressResult
	if req.CurrentStatus != nil {
		current, parseErr := domain.ParseStatus(*req.CurrentStatus)
		if parseErr != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, parseErr.Error())
			return
		}
		result, err = h.svc.Progress(c.Request.Context(), id, current, action, data)
	} else {
		result, err = h.svc.ProgressStatus(c.Request.Context(), id, action, data)
	}
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toProgressResponse(result))
}

func (h *Handler) SetStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.SetStatusRequest
	if !h.bind(c, &req) {
		return
	}

	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.SetStatus(c.Request.Context(), id, status, httpkit.GetIdentity(c).Actor(), req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toProgressResponse(result))
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}

func toLeadResponse(lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:                   lead.ID,
		CustomerID:           lead.CustomerID,
		Name:                 lead.Name,
		Email:                lead.Email,
		Phone:                lead.Phone,
		ServiceType:          lead.ServiceType,
		Source:               lead.Source,
		Status:               string(lead.Status),
		CreatedAt:            lead.CreatedAt,
		UpdatedAt:            lead.UpdatedAt,
		ConvertedAt:          lead.ConvertedAt,
		ConvertedToProjectID: lead.ConvertedToProjectID,
	}
}

func toHistoryEntryResponse(entry repository.StatusHistoryEntry) transport.HistoryEntryResponse {
	var previous *string
	if entry.PreviousStatus != nil {
		p := string(*entry.PreviousStatus)
		previous = &p
	}
	return transport.HistoryEntryResponse{
		ID:             entry.ID,
		PreviousStatus: previous,
		NewStatus:      string(entry.NewStatus),
		Actor:          entry.Actor,
		Reason:         entry.Reason,
		Notes:          entry.Notes,
		CreatedAt:      entry.CreatedAt,
	}
}

func toProgressResponse(result service.ProgressResult) transport.ProgressResponse {
	resp := transport.ProgressResponse{
		Changed:        result.Changed,
		PreviousStatus: string(result.PreviousStatus),
		NewStatus:      string(result.NewStatus),
	}
	if result.Lead != nil {
		lead := toLeadResponse(*result.Lead)
		resp.Lead = &lead
	}
	if result.Entry != nil {
		entry := toHistoryEntryResponse(*result.Entry)
		resp.Entry = &entry
	}
	return resp
}
