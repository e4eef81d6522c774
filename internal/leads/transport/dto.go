// Package transport defines the JSON request and response shapes of the
// leads HTTP API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateLeadRequest struct {
	CustomerID  *uuid.UUID `json:"customerId" validate:"omitempty"`
	Name        string     `json:"name" validate:"required,min=1,max=200"`
	Email       *string    `json:"email" validate:"omitempty,email,max=254"`
	Phone       *string    `json:"phone" validate:"omitempty,min=5,max=32"`
	ServiceType string     `json:"serviceType" validate:"required,min=1,max=100"`
	Source      string     `json:"source" validate:"required,min=1,max=100"`
}

// ActionRequest raises a workflow action against a lead. CurrentStatus is
// optional; when omitted the stored status is used.
type ActionRequest struct {
	Action        string     `json:"action" validate:"required,lead_action"`
	CurrentStatus *string    `json:"currentStatus" validate:"omitempty,lead_status"`
	ProjectID     *uuid.UUID `json:"projectId" validate:"required_if=Action project_created"`
	QuotationID   *uuid.UUID `json:"quotationId" validate:"omitempty"`
	Positive      *bool      `json:"positive"`
	Note          string     `json:"note" validate:"max=1000"`
}

type SetStatusRequest struct {
	Status string `json:"status" validate:"required,lead_status"`
	Reason string `json:"reason" validate:"max=1000"`
}

// ListLeadsQuery filters GET /leads. Status accepts a comma separated list.
type ListLeadsQuery struct {
	Status      string     `form:"status" validate:"max=200"`
	ServiceType string     `form:"serviceType" validate:"max=100"`
	Source      string     `form:"source" validate:"max=100"`
	CustomerID  string     `form:"customerId" validate:"omitempty,uuid"`
	CreatedFrom *time.Time `form:"createdFrom" time_format:"2006-01-02T15:04:05Z07:00"`
	CreatedTo   *time.Time `form:"createdTo" time_format:"2006-01-02T15:04:05Z07:00"`
}

type ListLeadsResponse struct {
	Items []LeadResponse `json:"items"`
	Total int            `json:"total"`
}

type LeadResponse struct {
	ID                   uuid.UUID  `json:"id"`
	CustomerID           *uuid.UUID `json:"customerId,omitempty"`
	Name                 string     `json:"name"`
	Email                *string    `json:"email,omitempty"`
	Phone                *string    `json:"phone,omitempty"`
	ServiceType          string     `json:"serviceType"`
	Source               string     `json:"source"`
	Status               string     `json:"status"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
	ConvertedAt          *time.Time `json:"convertedAt,omitempty"`
	ConvertedToProjectID *uuid.UUID `json:"convertedToProjectId,omitempty"`
}

type HistoryEntryResponse struct {
	ID             uuid.UUID      `json:"id"`
	PreviousStatus *string        `json:"previousStatus"`
	NewStatus      string         `json:"newStatus"`
	Actor          *string        `json:"actor,omitempty"`
	Reason         string         `json:"reason"`
	Notes          map[string]any `json:"notes,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

type HistoryResponse struct {
	Items      []HistoryEntryResponse `json:"items"`
	Consistent bool                   `json:"consistent"`
	Problem    string                 `json:"problem,omitempty"`
}

// ProgressResponse reports whether an action or override changed the lead.
type ProgressResponse struct {
	Changed        bool                  `json:"changed"`
	PreviousStatus string                `json:"previousStatus"`
	NewStatus      string                `json:"newStatus"`
	Lead           *LeadResponse         `json:"lead,omitempty"`
	Entry          *HistoryEntryResponse `json:"entry,omitempty"`
}
