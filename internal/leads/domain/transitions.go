package domain

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Action is a workflow trigger raised by the UI or another module.
type Action string

const (
	ActionContactAttempted Action = "contact_attempted"
	ActionLeadResponded    Action = "lead_responded"
	ActionQuotationSent    Action = "quotation_sent"
	ActionProjectCreated   Action = "project_created"
	ActionLeadLost         Action = "lead_lost"
)

// ParseAction converts a raw value into a known Action.
func ParseAction(raw string) (Action, error) {
	a := Action(raw)
	switch a {
	case ActionContactAttempted, ActionLeadResponded, ActionQuotationSent,
		ActionProjectCreated, ActionLeadLost:
		return a, nil
	}
	return "", fmt.Errorf("unknown lead action %q", raw)
}

func (a Action) String() string { return string(a) }

// History reasons that are not action names.
const (
	ReasonLeadCreated    = "lead_created"
	ReasonManualOverride = "manual_override"
)

// ActionData is the context supplied with an action. It is stored as the
// structured notes of the resulting history entry.
type ActionData struct {
	// Actor identifies who raised the action; empty means the system.
	Actor       string     `json:"-"`
	ProjectID   *uuid.UUID `json:"projectId,omitempty"`
	QuotationID *uuid.UUID `json:"quotationId,omitempty"`
	// Positive qualifies lead_responded. Nil counts as a positive response.
	Positive *bool  `json:"positive,omitempty"`
	Note     string `json:"note,omitempty"`
}

// Notes renders the data as the notes payload of a history entry.
func (d ActionData) Notes() map[string]any {
	notes := make(map[string]any)
	if d.ProjectID != nil {
		notes["projectId"] = d.ProjectID.String()
	}
	if d.QuotationID != nil {
		notes["quotationId"] = d.QuotationID.String()
	}
	if d.Positive != nil {
		notes["positive"] = *d.Positive
	}
	if d.Note != "" {
		notes["note"] = d.Note
	}
	return notes
}

// Rule moves a lead from any of From to To when Action is raised and the
// optional Condition holds.
type Rule struct {
	Action    Action
	From      []Status
	To        Status
	Condition func(ActionData) bool
}

func (r Rule) matches(current Status, action Action) bool {
	return r.Action == action && slices.Contains(r.From, current)
}

func positiveResponse(d ActionData) bool {
	return d.Positive == nil || *d.Positive
}

// transitionRules is evaluated top to bottom; the first match wins.
var transitionRules = []Rule{
	{Action: ActionContactAttempted, From: []Status{StatusNew}, To: StatusContacted},
	{Action: ActionLeadResponded, From: []Status{StatusContacted}, To: StatusQualified, Condition: positiveResponse},
	{Action: ActionQuotationSent, From: []Status{StatusQualified, StatusContacted}, To: StatusProposalSent},
	{Action: ActionProjectCreated, From: []Status{StatusQualified, StatusProposalSent}, To: StatusWon},
	{Action: ActionLeadLost, From: []Status{StatusContacted, StatusQualified, StatusProposalSent}, To: StatusLost},
}

// NextStatus returns the target of the first rule matching the action and
// current status. ok is false when no rule applies; that is a valid outcome,
// not an error.
func NextStatus(current Status, action Action, data ActionData) (next Status, ok bool) {
	for _, rule := range transitionRules {
		if !rule.matches(current, action) {
			continue
		}
		if rule.Condition != nil && !rule.Condition(data) {
			continue
		}
		return rule.To, true
	}
	return "", false
}

// IsTableTransition reports whether some rule for action leads from prev to
// next, ignoring rule conditions.
func IsTableTransition(prev, next Status, action Action) bool {
	for _, rule := range transitionRules {
		if rule.matches(prev, action) && rule.To == next {
			return true
		}
	}
	return false
}
