// Package events defines the workflow domain events. The bus itself lives in
// platform/events and is aliased here so modules need a single import.
package events

import (
	"hvac_crm_backend/platform/events"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Lead Workflow Events
// =============================================================================

// LeadStatusChanged is published after a status transition commits.
type LeadStatusChanged struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	Reason         string    `json:"reason"`
	Actor          string    `json:"actor,omitempty"`
	Manual         bool      `json:"manual"`
}

func (e LeadStatusChanged) EventName() string { return "leads.status.changed" }

// LeadConverted is published when a lead reaches won through project creation.
type LeadConverted struct {
	BaseEvent
	LeadID    uuid.UUID  `json:"leadId"`
	ProjectID *uuid.UUID `json:"projectId,omitempty"`
}

func (e LeadConverted) EventName() string { return "leads.converted" }

// =============================================================================
// Project Events
// =============================================================================

// ProjectCreated is published by the project CRUD layer once a project row
// exists. The leads module reacts by progressing the originating lead.
type ProjectCreated struct {
	BaseEvent
	ProjectID   uuid.UUID  `json:"projectId"`
	CustomerID  uuid.UUID  `json:"customerId"`
	LeadID      *uuid.UUID `json:"leadId,omitempty"`
	QuotationID *uuid.UUID `json:"quotationId,omitempty"`
}

func (e ProjectCreated) EventName() string { return "projects.created" }
