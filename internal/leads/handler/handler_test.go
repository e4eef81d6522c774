package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"hvac_crm_backend/internal/leads/domain"
	"hvac_crm_backend/internal/leads/repository"
	"hvac_crm_backend/internal/leads/service"
	"hvac_crm_backend/internal/leads/transport"
	"hvac_crm_backend/platform/httpkit"
	"hvac_crm_backend/platform/logger"
	"hvac_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type memStore struct {
	mu      sync.Mutex
	leads   map[uuid.UUID]repository.Lead
	history map[uuid.UUID][]repository.StatusHistoryEntry
}

func newMemStore() *memStore {
	return &memStore{
		leads:   make(map[uuid.UUID]repository.Lead),
		history: make(map[uuid.UUID][]repository.StatusHistoryEntry),
	}
}

func (s *memStore) GetLead(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (s *memStore) CreateLead(_ context.Context, p repository.CreateLeadParams) (repository.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	lead := repository.Lead{
		ID: uuid.New(), CustomerID: p.CustomerID, Name: p.Name, ServiceType: p.ServiceType,
		Source: p.Source, Status: domain.InitialStatus, CreatedAt: now, UpdatedAt: now,
	}
	s.leads[lead.ID] = lead
	s.history[lead.ID] = []repository.StatusHistoryEntry{{
		ID: uuid.New(), LeadID: lead.ID, NewStatus: domain.InitialStatus,
		Reason: domain.ReasonLeadCreated, Actor: p.Actor, CreatedAt: now,
	}}
	return lead, nil
}

func (s *memStore) ApplyTransition(_ context.Context, p repository.TransitionParams) (repository.Lead, repository.StatusHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[p.LeadID]
	if !ok {
		return repository.Lead{}, repository.StatusHistoryEntry{}, repository.ErrNotFound
	}
	if lead.Status != p.From {
		return repository.Lead{}, repository.StatusHistoryEntry{}, repository.ErrConflict
	}
	lead.Status = p.To
	s.leads[lead.ID] = lead
	from := p.From
	entry := repository.StatusHistoryEntry{
		ID: uuid.New(), LeadID: lead.ID, PreviousStatus: &from, NewStatus: p.To,
		Actor: p.Actor, Reason: p.Reason, Notes: p.Notes, CreatedAt: time.Now().UTC(),
	}
	s.history[lead.ID] = append(s.history[lead.ID], entry)
	return lead, entry, nil
}

func (s *memStore) ListStatusHistory(_ context.Context, id uuid.UUID) ([]repository.StatusHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]repository.StatusHistoryEntry(nil), s.history[id]...), nil
}

func (s *memStore) QueryLeads(_ context.Context, filter repository.LeadFilter) ([]repository.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.Lead, 0, len(s.leads))
	for _, lead := range s.leads {
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, lead.Status) {
			continue
		}
		if filter.ServiceType != "" && lead.ServiceType != filter.ServiceType {
			continue
		}
		out = append(out, lead)
	}
	slices.SortFunc(out, func(a, b repository.Lead) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

type workflowConfig struct{}

func (workflowConfig) GetStoreTimeout() time.Duration { return time.Second }
func (workflowConfig) GetBudgetTolerance() float64    { return 0.1 }

func newTestRouter(t *testing.T, store *memStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := service.New(store, nil, nil, logger.Discard(), workflowConfig{})
	h := New(svc, validator.New())

	r := gin.New()
	group := r.Group("/leads", func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, uuid.MustParse("7b0c4c1e-55d4-4a33-9a43-0c7e8f6a1d20"))
		c.Set(httpkit.ContextRolesKey, []string{"admin"})
		c.Set(httpkit.ContextUserNameKey, "planner@example.com")
		c.Next()
	})
	h.RegisterRoutes(group)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func createLead(t *testing.T, r http.Handler) transport.LeadResponse {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/leads", transport.CreateLeadRequest{
		Name: "Bakker", ServiceType: "heat_pump", Source: "website",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", rec.Code, rec.Body.String())
	}
	var lead transport.LeadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &lead); err != nil {
		t.Fatalf("decode lead: %v", err)
	}
	return lead
}

func TestActionAdvancesLead(t *testing.T) {
	r := newTestRouter(t, newMemStore())
	lead := createLead(t, r)
	if lead.Status != "new" {
		t.Fatalf("new lead status = %q", lead.Status)
	}

	rec := doJSON(t, r, http.MethodPost, "/leads/"+lead.ID.String()+"/actions", map[string]any{"action": "contact_attempted"})
	if rec.Code != http.StatusOK {
		t.Fatalf("action: status %d body %s", rec.Code, rec.Body.String())
	}
	var resp transport.ProgressResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Changed || resp.NewStatus != "contacted" {
		t.Fatalf("unexpected progress response %+v", resp)
	}
	if resp.Entry == nil || resp.Entry.Actor == nil || *resp.Entry.Actor != "planner@example.com" {
		t.Fatalf("entry should carry the caller as actor: %+v", resp.Entry)
	}
}

func TestActionWithoutMatchingRuleIsNoop(t *testing.T) {
	r := newTestRouter(t, newMemStore())
	lead := createLead(t, r)

	rec := doJSON(t, r, http.MethodPost, "/leads/"+lead.ID.String()+"/actions", map[string]any{"action": "project_created", "projectId": uuid.NewString()})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp transport.ProgressResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Changed || resp.NewStatus != "new" {
		t.Fatalf("expected no change, got %+v", resp)
	}
}

func TestUnknownActionRejected(t *testing.T) {
	r := newTestRouter(t, newMemStore())
	lead := createLead(t, r)

	rec := doJSON(t, r, http.MethodPost, "/leads/"+lead.ID.String()+"/actions", map[string]any{"action": "teleport"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSetStatusAndHistory(t *testing.T) {
	r := newTestRouter(t, newMemStore())
	lead := createLead(t, r)

	rec := doJSON(t, r, http.MethodPut, "/leads/"+lead.ID.String()+"/status", transport.SetStatusRequest{Status: "cancelled", Reason: "duplicate"})
	if rec.Code != http.StatusOK {
		t.Fatalf("set status: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodGet, "/leads/"+lead.ID.String()+"/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: %d", rec.Code)
	}
	var history transport.HistoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(history.Items) != 2 || !history.Consistent {
		t.Fatalf("unexpected history %+v", history)
	}
	if history.Items[0].PreviousStatus != nil {
		t.Fatal("creation entry must have no previous status")
	}
	if history.Items[1].Reason != domain.ReasonManualOverride {
		t.Fatalf("override reason = %q", history.Items[1].Reason)
	}
}

func TestGetUnknownLead(t *testing.T) {
	r := newTestRouter(t, newMemStore())

	rec := doJSON(t, r, http.MethodGet, "/leads/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodGet, "/leads/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}
}

func TestListLeadsFiltersByStatus(t *testing.T) {
	r := newTestRouter(t, newMemStore())
	first := createLead(t, r)
	_ = createLead(t, r)

	rec := doJSON(t, r, http.MethodPost, "/leads/"+first.ID.String()+"/actions", map[string]any{"action": "contact_attempted"})
	if rec.Code != http.StatusOK {
		t.Fatalf("action: %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodGet, "/leads?status=contacted,qualified", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	var resp transport.ListLeadsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || resp.Items[0].ID != first.ID {
		t.Fatalf("expected only the contacted lead, got %+v", resp)
	}
}

func TestListLeadsRejectsUnknownStatus(t *testing.T) {
	r := newTestRouter(t, newMemStore())

	rec := doJSON(t, r, http.MethodGet, "/leads?status=archived", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSetStatusReportsFieldDetails(t *testing.T) {
	r := newTestRouter(t, newMemStore())
	lead := createLead(t, r)

	rec := doJSON(t, r, http.MethodPut, "/leads/"+lead.ID.String()+"/status", map[string]any{"status": "archived"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body struct {
		Details map[string]string `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Details["status"] != "lead_status" {
		t.Fatalf("expected lead_status failure on status, got %v", body.Details)
	}
}

func TestProjectCreatedRequiresProjectID(t *testing.T) {
	r := newTestRouter(t, newMemStore())
	lead := createLead(t, r)

	rec := doJSON(t, r, http.MethodPost, "/leads/"+lead.ID.String()+"/actions", map[string]any{"action": "project_created"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body struct {
		Details map[string]string `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Details["projectId"] != "required_if" {
		t.Fatalf("expected required_if on projectId, got %v", body.Details)
	}
}
