package service

import (
	"context"
	"errors"

	"hvac_crm_backend/internal/leads/domain"
	"hvac_crm_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// HistoryView is a lead's audit trail together with the result of checking
// it against the path invariant.
type HistoryView struct {
	Entries    []repository.StatusHistoryEntry
	Consistent bool
	Problem    string
}

// GetHistory returns the status history of a lead.
func (s *Service) GetHistory(ctx context.Context, leadID uuid.UUID) (HistoryView, error) {
	const op = "leads.GetHistory"

	if _, err := s.GetLead(ctx, leadID); err != nil {
		return HistoryView{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entries, err := s.store.ListStatusHistory(ctx, leadID)
	if err != nil {
		return HistoryView{}, s.storeError(op, err)
	}

	steps := make([]domain.HistoryStep, len(entries))
	for i, entry := range entries {
		steps[i] = entry.Step()
	}

	view := HistoryView{Entries: entries, Consistent: true}
	if err := domain.ValidateHistory(steps); err != nil {
		view.Consistent = false
		view.Problem = err.Error()
		var violation *domain.HistoryViolation
		if errors.As(err, &violation) {
			s.log.WithContext(ctx).Warn("inconsistent lead history", "leadId", leadID, "index", violation.Index, "problem", violation.Message)
		}
	}
	return view, nil
}
