package domain

import (
	"errors"
	"fmt"
)

// HistoryStep is the part of a status history entry that the path invariant
// depends on.
type HistoryStep struct {
	PreviousStatus *Status
	NewStatus      Status
	Reason         string
	Actor          *string
}

// ErrEmptyHistory is returned for a lead without any history entry.
var ErrEmptyHistory = errors.New("lead has no status history")

// HistoryViolation describes the first entry that breaks the path invariant.
type HistoryViolation struct {
	Index   int
	Message string
}

func (v *HistoryViolation) Error() string {
	return fmt.Sprintf("history entry %d: %s", v.Index, v.Message)
}

// ValidateHistory checks that steps, in creation order, form a path that
// starts at the initial status, where every previous status equals the prior
// new status, every automatic step is a table transition for the action named
// in its reason, and every manual step names an actor.
func ValidateHistory(steps []HistoryStep) error {
	if len(steps) == 0 {
		return ErrEmptyHistory
	}

	first := steps[0]
	if first.PreviousStatus != nil {
		return &HistoryViolation{Index: 0, Message: "creation entry must not have a previous status"}
	}
	if first.NewStatus != InitialStatus {
		return &HistoryViolation{Index: 0, Message: fmt.Sprintf("lead must start as %q, got %q", InitialStatus, first.NewStatus)}
	}

	for i := 1; i < len(steps); i++ {
		step := steps[i]
		prior := steps[i-1].NewStatus

		if step.PreviousStatus == nil {
			return &HistoryViolation{Index: i, Message: "missing previous status"}
		}
		if *step.PreviousStatus != prior {
			return &HistoryViolation{Index: i, Message: fmt.Sprintf("previous status %q contradicts prior new status %q", *step.PreviousStatus, prior)}
		}

		if step.Reason == ReasonManualOverride {
			if step.Actor == nil || *step.Actor == "" {
				return &HistoryViolation{Index: i, Message: "manual status change without an actor"}
			}
			continue
		}

		if !IsTableTransition(prior, step.NewStatus, Action(step.Reason)) {
			return &HistoryViolation{Index: i, Message: fmt.Sprintf("%q -> %q is not a transition for %q", prior, step.NewStatus, step.Reason)}
		}
	}

	return nil
}
