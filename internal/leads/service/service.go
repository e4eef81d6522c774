// Package service implements the lead status progression engine.
//
// Status changes only happen through Progress (table driven) or SetStatus
// (manual override). Both write the status and its history entry in a single
// store transaction guarded by a compare-and-swap on the current status.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"hvac_crm_backend/internal/events"
	"hvac_crm_backend/internal/leads/domain"
	"hvac_crm_backend/internal/leads/repository"
	"hvac_crm_backend/platform/apperr"
	"hvac_crm_backend/platform/config"
	"hvac_crm_backend/platform/db"
	"hvac_crm_backend/platform/logger"
	"hvac_crm_backend/platform/metrics"
	"hvac_crm_backend/platform/sanitize"

	"github.com/google/uuid"
)

const defaultStoreTimeout = 5 * time.Second

// maxReasonLen bounds operator supplied override reasons.
const maxReasonLen = 500

// Store is the record store consumed by the engine.
type Store interface {
	GetLead(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	CreateLead(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error)
	ApplyTransition(ctx context.Context, params repository.TransitionParams) (repository.Lead, repository.StatusHistoryEntry, error)
	ListStatusHistory(ctx context.Context, leadID uuid.UUID) ([]repository.StatusHistoryEntry, error)
	QueryLeads(ctx context.Context, filter repository.LeadFilter) ([]repository.Lead, error)
}

// ProgressResult reports the outcome of a progression attempt. Changed is
// false when no rule applied; Lead and Entry are only set when it is true.
type ProgressResult struct {
	Changed        bool
	PreviousStatus domain.Status
	NewStatus      domain.Status
	Lead           *repository.Lead
	Entry          *repository.StatusHistoryEntry
}

type Service struct {
	store   Store
	bus     events.Bus
	metrics *metrics.Metrics
	log     *logger.Logger
	timeout time.Duration
	now     func() time.Time
}

func New(store Store, bus events.Bus, m *metrics.Metrics, log *logger.Logger, cfg config.WorkflowConfig) *Service {
	timeout := defaultStoreTimeout
	if cfg != nil && cfg.GetStoreTimeout() > 0 {
		timeout = cfg.GetStoreTimeout()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		store:   store,
		bus:     bus,
		metrics: m,
		log:     log,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// planFunc decides the transition to attempt from the lead's current state.
// ok=false means nothing should change.
type planFunc func(lead repository.Lead) (params repository.TransitionParams, ok bool)

// Progress applies the first progression rule matching action and
// currentStatus. When no rule matches it returns Changed=false and a nil
// error: many actions legitimately have no automatic effect.
func (s *Service) Progress(ctx context.Context, leadID uuid.UUID, currentStatus domain.Status, action domain.Action, data domain.ActionData) (ProgressResult, error) {
	const op = "leads.Progress"

	plan := s.progressPlan(action, data)
	params, ok := plan(repository.Lead{ID: leadID, Status: currentStatus})
	if !ok {
		s.metrics.RecordNoop(string(action))
		return ProgressResult{PreviousStatus: currentStatus, NewStatus: currentStatus}, nil
	}
	if params.Conversion != nil && params.Conversion.ProjectID == nil {
		return ProgressResult{}, apperr.Validation("project_created requires a project id").WithOp(op)
	}

	return s.transition(ctx, op, params, plan)
}

// ProgressStatus loads the lead and progresses it from its stored status.
func (s *Service) ProgressStatus(ctx context.Context, leadID uuid.UUID, action domain.Action, data domain.ActionData) (ProgressResult, error) {
	lead, err := s.GetLead(ctx, leadID)
	if err != nil {
		return ProgressResult{}, err
	}
	return s.Progress(ctx, leadID, lead.Status, action, data)
}

// SetStatus is the operator override: it bypasses the rule table but still
// records a history entry naming the operator.
func (s *Service) SetStatus(ctx context.Context, leadID uuid.UUID, target domain.Status, actor string, reason string) (ProgressResult, error) {
	const op = "leads.SetStatus"

	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ProgressResult{}, apperr.Validation("an operator is required for manual status changes").WithOp(op)
	}
	if !target.IsValid() {
		return ProgressResult{}, apperr.Validation("unknown lead status").WithOp(op)
	}

	lead, err := s.GetLead(ctx, leadID)
	if err != nil {
		return ProgressResult{}, err
	}

	notes := map[string]any{}
	if cleaned := sanitize.Text(reason, maxReasonLen); cleaned != "" {
		notes["reason"] = cleaned
	}

	plan := func(current repository.Lead) (repository.TransitionParams, bool) {
		if current.Status == target {
			return repository.TransitionParams{}, false
		}
		return repository.TransitionParams{
			LeadID: current.ID,
			From:   current.Status,
			To:     target,
			Actor:  &actor,
			Reason: domain.ReasonManualOverride,
			Notes:  notes,
		}, true
	}

	params, ok := plan(lead)
	if !ok {
		return ProgressResult{PreviousStatus: lead.Status, NewStatus: lead.Status}, nil
	}
	return s.transition(ctx, op, params, plan)
}

func (s *Service) progressPlan(action domain.Action, data domain.ActionData) planFunc {
	return func(lead repository.Lead) (repository.TransitionParams, bool) {
		next, ok := domain.NextStatus(lead.Status, action, data)
		if !ok {
			return repository.TransitionParams{}, false
		}

		params := repository.TransitionParams{
			LeadID: lead.ID,
			From:   lead.Status,
			To:     next,
			Reason: string(action),
			Notes:  data.Notes(),
		}
		if actor := strings.TrimSpace(data.Actor); actor != "" {
			params.Actor = &actor
		}
		if action == domain.ActionProjectCreated && next == domain.StatusWon {
			params.Conversion = &repository.Conversion{At: s.now(), ProjectID: data.ProjectID}
		}
		return params, true
	}
}

// transition applies params; on a lost race it reloads the lead, re-plans
// from the fresh status and tries once more.
func (s *Service) transition(ctx context.Context, op string, params repository.TransitionParams, plan planFunc) (ProgressResult, error) {
	lead, entry, err := s.apply(ctx, params)
	if errors.Is(err, repository.ErrConflict) {
		s.metrics.RecordConflict()
		s.log.WithContext(ctx).Warn("lead status conflict, retrying", "leadId", params.LeadID, "expected", params.From)

		fresh, getErr := s.GetLead(ctx, params.LeadID)
		if getErr != nil {
			return ProgressResult{}, getErr
		}
		retry, ok := plan(fresh)
		if !ok {
			return ProgressResult{PreviousStatus: fresh.Status, NewStatus: fresh.Status}, nil
		}
		params = retry
		lead, entry, err = s.apply(ctx, params)
		if errors.Is(err, repository.ErrConflict) {
			s.metrics.RecordConflict()
			return ProgressResult{}, apperr.Wrap(apperr.KindConflict, "lead was modified concurrently, please retry", err).WithOp(op)
		}
	}
	if err != nil {
		return ProgressResult{}, s.storeError(op, err)
	}

	s.afterCommit(ctx, params, lead)

	return ProgressResult{
		Changed:        true,
		PreviousStatus: params.From,
		NewStatus:      lead.Status,
		Lead:           &lead,
		Entry:          &entry,
	}, nil
}

func (s *Service) apply(ctx context.Context, params repository.TransitionParams) (repository.Lead, repository.StatusHistoryEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.store.ApplyTransition(ctx, params)
}

func (s *Service) afterCommit(ctx context.Context, params repository.TransitionParams, lead repository.Lead) {
	manual := params.Reason == domain.ReasonManualOverride
	actor := ""
	if params.Actor != nil {
		actor = *params.Actor
	}

	s.metrics.RecordTransition(string(params.From), string(params.To), params.Reason)
	s.log.WithContext(ctx).StatusTransition(lead.ID.String(), string(params.From), string(params.To), params.Reason, manual)

	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.LeadStatusChanged{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         lead.ID,
		PreviousStatus: string(params.From),
		NewStatus:      string(params.To),
		Reason:         params.Reason,
		Actor:          actor,
		Manual:         manual,
	})
	if params.Conversion != nil {
		s.bus.Publish(ctx, events.LeadConverted{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			ProjectID: lead.ConvertedToProjectID,
		})
	}
}

// CreateLead registers a new inquiry in the initial status.
func (s *Service) CreateLead(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	const op = "leads.CreateLead"

	params.Name = strings.TrimSpace(params.Name)
	if params.Name == "" {
		return repository.Lead{}, apperr.Validation("lead name is required").WithOp(op)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	lead, err := s.store.CreateLead(ctx, params)
	if err != nil {
		return repository.Lead{}, s.storeError(op, err)
	}
	return lead, nil
}

// GetLead returns a lead or a typed NotFound/Unavailable error.
func (s *Service) GetLead(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	lead, err := s.store.GetLead(ctx, id)
	if err != nil {
		return repository.Lead{}, s.storeError("leads.GetLead", err)
	}
	return lead, nil
}

// ListLeads returns leads matching filter ordered by creation time.
func (s *Service) ListLeads(ctx context.Context, filter repository.LeadFilter) ([]repository.Lead, error) {
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && !filter.CreatedFrom.Before(*filter.CreatedTo) {
		return nil, apperr.Validation("createdFrom must be before createdTo").WithOp("leads.ListLeads")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	leads, err := s.store.QueryLeads(ctx, filter)
	if err != nil {
		return nil, s.storeError("leads.ListLeads", err)
	}
	return leads, nil
}

func (s *Service) storeError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.Wrap(apperr.KindNotFound, "lead not found", err).WithOp(op)
	case db.IsTransient(err):
		s.log.DatabaseError(op, err)
		return apperr.Unavailable(err).WithOp(op)
	default:
		s.log.DatabaseError(op, err)
		return apperr.Wrap(apperr.KindInternal, "lead workflow store error", err).WithOp(op)
	}
}
