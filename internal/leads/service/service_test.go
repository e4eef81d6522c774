package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hvac_crm_backend/internal/events"
	"hvac_crm_backend/internal/leads/domain"
	"hvac_crm_backend/internal/leads/repository"
	"hvac_crm_backend/platform/apperr"
	"hvac_crm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	mu      sync.Mutex
	leads   map[uuid.UUID]repository.Lead
	history map[uuid.UUID][]repository.StatusHistoryEntry

	// beforeApply runs on every ApplyTransition call before the CAS check.
	beforeApply func(call int, params repository.TransitionParams)
	applyErr    error
	applyCalls  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		leads:   make(map[uuid.UUID]repository.Lead),
		history: make(map[uuid.UUID][]repository.StatusHistoryEntry),
	}
}

func (f *fakeStore) seed(status domain.Status) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.leads[id] = repository.Lead{ID: id, Name: "Jansen", Status: status}
	return id
}

func (f *fakeStore) setStatus(id uuid.UUID, status domain.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead := f.leads[id]
	lead.Status = status
	f.leads[id] = lead
}

func (f *fakeStore) GetLead(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeStore) CreateLead(_ context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead := repository.Lead{ID: uuid.New(), Name: params.Name, Status: domain.InitialStatus}
	f.leads[lead.ID] = lead
	f.history[lead.ID] = append(f.history[lead.ID], repository.StatusHistoryEntry{
		ID: uuid.New(), LeadID: lead.ID, NewStatus: domain.InitialStatus,
		Reason: domain.ReasonLeadCreated, Actor: params.Actor,
	})
	return lead, nil
}

func (f *fakeStore) ApplyTransition(ctx context.Context, params repository.TransitionParams) (repository.Lead, repository.StatusHistoryEntry, error) {
	f.mu.Lock()
	f.applyCalls++
	call := f.applyCalls
	hook := f.beforeApply
	f.mu.Unlock()

	if hook != nil {
		hook(call, params)
	}
	if f.applyErr != nil {
		return repository.Lead{}, repository.StatusHistoryEntry{}, f.applyErr
	}
	if err := ctx.Err(); err != nil {
		return repository.Lead{}, repository.StatusHistoryEntry{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[params.LeadID]
	if !ok {
		return repository.Lead{}, repository.StatusHistoryEntry{}, repository.ErrNotFound
	}
	if lead.Status != params.From {
		return repository.Lead{}, repository.StatusHistoryEntry{}, repository.ErrConflict
	}

	lead.Status = params.To
	if params.To != domain.StatusWon {
		lead.ConvertedAt, lead.ConvertedToProjectID = nil, nil
	}
	if params.Conversion != nil {
		at := params.Conversion.At
		lead.ConvertedAt = &at
		lead.ConvertedToProjectID = params.Conversion.ProjectID
	}
	f.leads[lead.ID] = lead

	from := params.From
	entry := repository.StatusHistoryEntry{
		ID: uuid.New(), LeadID: lead.ID, PreviousStatus: &from, NewStatus: params.To,
		Actor: params.Actor, Reason: params.Reason, Notes: params.Notes, CreatedAt: time.Now(),
	}
	f.history[lead.ID] = append(f.history[lead.ID], entry)
	return lead, entry, nil
}

func (f *fakeStore) ListStatusHistory(_ context.Context, leadID uuid.UUID) ([]repository.StatusHistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]repository.StatusHistoryEntry(nil), f.history[leadID]...), nil
}

func (f *fakeStore) QueryLeads(_ context.Context, filter repository.LeadFilter) ([]repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Lead, 0, len(f.leads))
	for _, lead := range f.leads {
		if filter.Source == "" || lead.Source == filter.Source {
			out = append(out, lead)
		}
	}
	return out, nil
}

func (f *fakeStore) historyLen(id uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.history[id])
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.EventName()
	}
	return out
}

type workflowConfig struct{ timeout time.Duration }

func (c workflowConfig) GetStoreTimeout() time.Duration { return c.timeout }
func (c workflowConfig) GetBudgetTolerance() float64    { return 0.10 }

func newTestService(store Store, bus events.Bus) *Service {
	return New(store, bus, nil, logger.Discard(), workflowConfig{timeout: time.Second})
}

func TestProgressContactAttemptedWritesOneEntry(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusNew)
	bus := &recordingBus{}
	svc := newTestService(store, bus)

	res, err := svc.Progress(context.Background(), id, domain.StatusNew, domain.ActionContactAttempted, domain.ActionData{})
	if err != nil {
		t.Fatalf("Progress returned error: %v", err)
	}
	if !res.Changed || res.NewStatus != domain.StatusContacted {
		t.Fatalf("expected change to contacted, got %+v", res)
	}
	if store.historyLen(id) != 1 {
		t.Fatalf("expected exactly one history entry, got %d", store.historyLen(id))
	}
	if res.Entry == nil || res.Entry.PreviousStatus == nil || *res.Entry.PreviousStatus != domain.StatusNew {
		t.Fatalf("entry must record previous status new, got %+v", res.Entry)
	}
	if res.Entry.Reason != string(domain.ActionContactAttempted) {
		t.Fatalf("entry reason = %q", res.Entry.Reason)
	}
	if names := bus.names(); len(names) != 1 || names[0] != "leads.status.changed" {
		t.Fatalf("unexpected events %v", names)
	}
}

func TestProjectCreatedConvertsQualifiedLead(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusQualified)
	bus := &recordingBus{}
	svc := newTestService(store, bus)
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	projectID := uuid.New()
	data := domain.ActionData{ProjectID: &projectID}

	res, err := svc.ProgressStatus(context.Background(), id, domain.ActionProjectCreated, data)
	if err != nil {
		t.Fatalf("ProgressStatus returned error: %v", err)
	}
	if !res.Changed || res.NewStatus != domain.StatusWon {
		t.Fatalf("expected won, got %+v", res)
	}
	if res.Lead.ConvertedAt == nil || !res.Lead.ConvertedAt.Equal(fixed) {
		t.Fatalf("converted_at not set: %v", res.Lead.ConvertedAt)
	}
	if res.Lead.ConvertedToProjectID == nil || *res.Lead.ConvertedToProjectID != projectID {
		t.Fatalf("converted project id not set")
	}
	if names := bus.names(); len(names) != 2 || names[1] != "leads.converted" {
		t.Fatalf("expected status change and conversion events, got %v", names)
	}

	again, err := svc.ProgressStatus(context.Background(), id, domain.ActionProjectCreated, data)
	if err != nil {
		t.Fatalf("second ProgressStatus returned error: %v", err)
	}
	if again.Changed {
		t.Fatal("second project_created on a won lead must not change anything")
	}
	if store.historyLen(id) != 1 {
		t.Fatalf("expected one history entry, got %d", store.historyLen(id))
	}
}

func TestTerminalStatusesNeverChange(t *testing.T) {
	actions := []domain.Action{
		domain.ActionContactAttempted, domain.ActionLeadResponded, domain.ActionQuotationSent,
		domain.ActionProjectCreated, domain.ActionLeadLost,
	}
	for _, status := range []domain.Status{domain.StatusWon, domain.StatusLost, domain.StatusCancelled} {
		store := newFakeStore()
		id := store.seed(status)
		svc := newTestService(store, nil)

		for _, action := range actions {
			res, err := svc.Progress(context.Background(), id, status, action, domain.ActionData{})
			if err != nil {
				t.Fatalf("%s/%s: unexpected error %v", status, action, err)
			}
			if res.Changed {
				t.Errorf("%s/%s: terminal status changed to %s", status, action, res.NewStatus)
			}
		}
		if store.applyCalls != 0 {
			t.Errorf("%s: store written %d times", status, store.applyCalls)
		}
	}
}

func TestNegativeResponseIsNoop(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusContacted)
	svc := newTestService(store, nil)

	positive := false
	res, err := svc.Progress(context.Background(), id, domain.StatusContacted, domain.ActionLeadResponded, domain.ActionData{Positive: &positive})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Changed {
		t.Fatal("negative response must not qualify the lead")
	}
}

func TestConflictRetriesOnceFromFreshStatus(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusContacted)
	store.beforeApply = func(call int, _ repository.TransitionParams) {
		if call == 1 {
			// Another writer moves the lead first.
			store.setStatus(id, domain.StatusQualified)
		}
	}
	svc := newTestService(store, nil)

	res, err := svc.Progress(context.Background(), id, domain.StatusContacted, domain.ActionQuotationSent, domain.ActionData{})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if res.PreviousStatus != domain.StatusQualified || res.NewStatus != domain.StatusProposalSent {
		t.Fatalf("retry should re-plan from qualified, got %+v", res)
	}
	if store.applyCalls != 2 {
		t.Fatalf("expected 2 writes, got %d", store.applyCalls)
	}
}

func TestConflictRetryCanBecomeNoop(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusNew)
	store.beforeApply = func(call int, _ repository.TransitionParams) {
		if call == 1 {
			store.setStatus(id, domain.StatusLost)
		}
	}
	svc := newTestService(store, nil)

	res, err := svc.Progress(context.Background(), id, domain.StatusNew, domain.ActionContactAttempted, domain.ActionData{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Changed || res.NewStatus != domain.StatusLost {
		t.Fatalf("expected no change after lead was lost concurrently, got %+v", res)
	}
}

func TestSecondConflictSurfaces(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusQualified)
	store.applyErr = repository.ErrConflict
	svc := newTestService(store, nil)

	_, err := svc.Progress(context.Background(), id, domain.StatusQualified, domain.ActionLeadLost, domain.ActionData{})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if !apperr.IsRetryable(err) {
		t.Fatal("conflict must be reported as retryable")
	}
	if store.applyCalls != 2 {
		t.Fatalf("expected exactly one retry, got %d writes", store.applyCalls)
	}
}

func TestStoreTimeoutIsUnavailable(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusNew)
	store.beforeApply = func(int, repository.TransitionParams) { time.Sleep(50 * time.Millisecond) }
	svc := New(store, nil, nil, logger.Discard(), workflowConfig{timeout: 10 * time.Millisecond})

	_, err := svc.Progress(context.Background(), id, domain.StatusNew, domain.ActionContactAttempted, domain.ActionData{})
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("cause should be the deadline, got %v", err)
	}
}

func TestUnknownLeadIsNotFound(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)

	_, err := svc.ProgressStatus(context.Background(), uuid.New(), domain.ActionContactAttempted, domain.ActionData{})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSetStatusRequiresActor(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusNew)
	svc := newTestService(store, nil)

	_, err := svc.SetStatus(context.Background(), id, domain.StatusCancelled, "  ", "duplicate")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.applyCalls != 0 {
		t.Fatal("store must not be written without an actor")
	}
}

func TestSetStatusWritesManualEntry(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusNew)
	bus := &recordingBus{}
	svc := newTestService(store, bus)

	res, err := svc.SetStatus(context.Background(), id, domain.StatusCancelled, "ops@example.com", "<b>duplicate</b> inquiry")
	if err != nil {
		t.Fatalf("SetStatus returned error: %v", err)
	}
	if !res.Changed || res.NewStatus != domain.StatusCancelled {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Entry.Reason != domain.ReasonManualOverride {
		t.Fatalf("reason = %q", res.Entry.Reason)
	}
	if res.Entry.Actor == nil || *res.Entry.Actor != "ops@example.com" {
		t.Fatal("manual entry must name the operator")
	}
	if res.Entry.Notes["reason"] != "duplicate inquiry" {
		t.Fatalf("reason note not sanitized: %v", res.Entry.Notes)
	}

	changed, ok := bus.events[0].(events.LeadStatusChanged)
	if !ok || !changed.Manual {
		t.Fatalf("expected manual status change event, got %#v", bus.events[0])
	}
}

func TestSetStatusSameStatusIsNoop(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusQualified)
	svc := newTestService(store, nil)

	res, err := svc.SetStatus(context.Background(), id, domain.StatusQualified, "ops", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Changed || store.applyCalls != 0 {
		t.Fatal("setting the current status must not write history")
	}
}

func TestGetHistoryReportsConsistency(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	lead, err := svc.CreateLead(ctx, repository.CreateLeadParams{Name: "De Vries"})
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	for _, action := range []domain.Action{domain.ActionContactAttempted, domain.ActionLeadResponded, domain.ActionQuotationSent} {
		if _, err := svc.ProgressStatus(ctx, lead.ID, action, domain.ActionData{}); err != nil {
			t.Fatalf("%s: %v", action, err)
		}
	}
	if _, err := svc.SetStatus(ctx, lead.ID, domain.StatusCancelled, "ops", "customer moved"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	view, err := svc.GetHistory(ctx, lead.ID)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(view.Entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(view.Entries))
	}
	if !view.Consistent {
		t.Fatalf("history should be consistent: %s", view.Problem)
	}
}

func TestCreateLeadRequiresName(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)
	_, err := svc.CreateLead(context.Background(), repository.CreateLeadParams{Name: " "})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListLeadsRejectsInvertedRange(t *testing.T) {
	svc := New(newFakeStore(), nil, nil, logger.Discard(), workflowConfig{timeout: time.Second})

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)
	_, err := svc.ListLeads(context.Background(), repository.LeadFilter{CreatedFrom: &from, CreatedTo: &to})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestProjectCreatedWithoutProjectIDIsRejected(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusQualified)
	bus := &recordingBus{}
	svc := newTestService(store, bus)

	_, err := svc.ProgressStatus(context.Background(), id, domain.ActionProjectCreated, domain.ActionData{})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	lead, _ := store.GetLead(context.Background(), id)
	if lead.Status != domain.StatusQualified || lead.ConvertedAt != nil || lead.ConvertedToProjectID != nil {
		t.Fatalf("lead must be untouched, got %+v", lead)
	}
	if store.historyLen(id) != 0 || len(bus.names()) != 0 {
		t.Fatal("nothing may be written or published")
	}
}

func TestProjectCreatedWithoutProjectIDOnWonLeadIsNoop(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusWon)
	svc := newTestService(store, nil)

	res, err := svc.ProgressStatus(context.Background(), id, domain.ActionProjectCreated, domain.ActionData{})
	if err != nil || res.Changed {
		t.Fatalf("expected no-op, got %+v err=%v", res, err)
	}
}
