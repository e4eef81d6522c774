// Package validation evaluates project creation requests against a fixed set
// of business rules.
package validation

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by a Store when the referenced record is absent.
var ErrNotFound = errors.New("not found")

type SourceType string

const (
	SourceQuotation SourceType = "quotation"
	SourceDirect    SourceType = "direct"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Request is a project creation attempt. It is never persisted.
type Request struct {
	SourceType       SourceType
	QuotationID      *uuid.UUID
	CustomerID       uuid.UUID
	Budget           float64
	ProjectManagerID *uuid.UUID
}

type Quotation struct {
	ID          uuid.UUID
	CustomerID  uuid.UUID
	Status      string
	TotalAmount float64
}

// QuotationApproved is the only quotation status a project may start from.
const QuotationApproved = "approved"

type Project struct {
	ID          uuid.UUID
	QuotationID *uuid.UUID
	CustomerID  uuid.UUID
	Status      string
}

// Subject is what rules are evaluated against: the request plus the facts
// resolved from the store. Quotation and Duplicate are nil when absent.
type Subject struct {
	Request   Request
	Quotation *Quotation
	Duplicate *Project
}

func (s Subject) fromQuotation() bool {
	return s.Request.SourceType == SourceQuotation
}

// Rule is a named predicate. Check returns true when the subject passes.
type Rule struct {
	ID          string
	Name        string
	Description string
	Severity    Severity
	Check       func(Subject) bool
	Message     func(Subject) string
}

// Issue is a failed rule as shown to the user.
type Issue struct {
	RuleID   string   `json:"ruleId"`
	Name     string   `json:"name"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

type Result struct {
	IsValid  bool    `json:"isValid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
	Infos    []Issue `json:"infos"`
}
