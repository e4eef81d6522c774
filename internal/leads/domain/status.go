// Package domain provides core business rules for the leads bounded context:
// the lead status lifecycle, the ordered progression rule table and the
// invariants of the status history.
package domain

import "fmt"

// Status is the lifecycle state of a lead.
type Status string

const (
	StatusNew          Status = "new"
	StatusContacted    Status = "contacted"
	StatusQualified    Status = "qualified"
	StatusProposalSent Status = "proposal_sent"
	StatusWon          Status = "won"
	StatusLost         Status = "lost"
	StatusCancelled    Status = "cancelled"
)

// InitialStatus is the only status a lead can be created with.
const InitialStatus = StatusNew

var allStatuses = []Status{
	StatusNew,
	StatusContacted,
	StatusQualified,
	StatusProposalSent,
	StatusWon,
	StatusLost,
	StatusCancelled,
}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a raw value into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown lead status %q", raw)
	}
	return s, nil
}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusQualified, StatusProposalSent,
		StatusWon, StatusLost, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no progression rule leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusWon || s == StatusLost || s == StatusCancelled
}

// IsActive reports whether the lead is still being worked.
func (s Status) IsActive() bool {
	return s.IsValid() && !s.IsTerminal()
}

// IsClosedLost reports whether the lead ended without conversion.
func (s Status) IsClosedLost() bool {
	return s == StatusLost || s == StatusCancelled
}

func (s Status) String() string { return string(s) }
