package service

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

type Stage string

const (
	StageLead      Stage = "lead"
	StageQuotation Stage = "quotation"
	StageProject   Stage = "project"
	StageInvoice   Stage = "invoice"
	StagePayment   Stage = "payment"
)

var stages = []Stage{StageLead, StageQuotation, StageProject, StageInvoice, StagePayment}

// Record statuses the projector interprets.
const (
	QuotationStatusApproved = "approved"
	ProjectStatusCompleted  = "completed"
	InvoiceStatusPaid       = "paid"
	InvoiceStatusOverdue    = "overdue"
	InvoiceStatusCancelled  = "cancelled"
	PaymentStatusCompleted  = "completed"
)

type LeadRef struct {
	ID     uuid.UUID
	Status string
}

type QuotationRef struct {
	ID     uuid.UUID
	Status string
}

type ProjectRef struct {
	ID     uuid.UUID
	Status string
}

type InvoiceRef struct {
	ID      uuid.UUID
	Status  string
	DueDate *time.Time
}

type PaymentRef struct {
	ID     uuid.UUID
	Status string
}

// Records are everything a customer has across the pipeline.
type Records struct {
	Leads      []LeadRef
	Quotations []QuotationRef
	Projects   []ProjectRef
	Invoices   []InvoiceRef
	Payments   []PaymentRef
}

type WorkflowStatus struct {
	CustomerID           uuid.UUID `json:"customerId"`
	CurrentStep          Stage     `json:"currentStep"`
	NextStep             *Stage    `json:"nextStep"`
	CompletionPercentage float64   `json:"completionPercentage"`
	Blockers             []string  `json:"blockers"`
}

// Project derives the pipeline position from a customer's records.
func Project(records Records, now time.Time) WorkflowStatus {
	current := currentStage(records)
	idx := stageIndex(current)

	status := WorkflowStatus{
		CurrentStep:          current,
		CompletionPercentage: float64(idx+1) / float64(len(stages)) * 100,
		Blockers:             blockers(current, records, now),
	}
	if idx+1 < len(stages) {
		next := stages[idx+1]
		status.NextStep = &next
	}
	return status
}

func currentStage(r Records) Stage {
	switch {
	case anyPaymentCompleted(r.Payments):
		return StagePayment
	case len(r.Invoices) > 0:
		return StageInvoice
	case len(r.Projects) > 0:
		return StageProject
	case len(r.Quotations) > 0:
		return StageQuotation
	default:
		return StageLead
	}
}

func stageIndex(s Stage) int {
	for i, stage := range stages {
		if stage == s {
			return i
		}
	}
	return 0
}

func blockers(current Stage, r Records, now time.Time) []string {
	out := []string{}
	switch current {
	case StageQuotation:
		approved := false
		for _, q := range r.Quotations {
			if q.Status == QuotationStatusApproved {
				approved = true
				break
			}
		}
		if !approved {
			out = append(out, "No quotation has been approved yet")
		}
	case StageProject:
		completed := false
		for _, p := range r.Projects {
			if p.Status == ProjectStatusCompleted {
				completed = true
				break
			}
		}
		if !completed {
			out = append(out, "No project has been completed yet")
		}
	case StageInvoice:
		overdue := 0
		for _, inv := range r.Invoices {
			if isOverdue(inv, now) {
				overdue++
			}
		}
		if overdue == 1 {
			out = append(out, "1 invoice is overdue")
		} else if overdue > 1 {
			out = append(out, strconv.Itoa(overdue)+" invoices are overdue")
		}
	}
	return out
}

// isOverdue is true for invoices marked overdue, or open invoices whose due
// date lies before the start of today.
func isOverdue(inv InvoiceRef, now time.Time) bool {
	switch inv.Status {
	case InvoiceStatusOverdue:
		return true
	case InvoiceStatusPaid, InvoiceStatusCancelled:
		return false
	}
	if inv.DueDate == nil {
		return false
	}
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return inv.DueDate.Before(today)
}

func anyPaymentCompleted(payments []PaymentRef) bool {
	for _, p := range payments {
		if p.Status == PaymentStatusCompleted {
			return true
		}
	}
	return false
}
