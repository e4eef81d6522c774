// Package leads provides the lead workflow bounded context module.
package leads

import (
	"context"

	"hvac_crm_backend/internal/events"
	apphttp "hvac_crm_backend/internal/http"
	"hvac_crm_backend/internal/leads/domain"
	"hvac_crm_backend/internal/leads/handler"
	"hvac_crm_backend/internal/leads/repository"
	"hvac_crm_backend/internal/leads/service"
	"hvac_crm_backend/platform/config"
	"hvac_crm_backend/platform/logger"
	"hvac_crm_backend/platform/metrics"
	"hvac_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

var _ service.Store = (*repository.Repository)(nil)

// RefreshEnqueuer schedules a recomputation of cached conversion metrics.
type RefreshEnqueuer interface {
	EnqueueConversionRefresh(ctx context.Context) error
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the progression engine and subscribes it to project
// events. refresher may be nil when no background scheduler is configured.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, cfg config.WorkflowConfig, m *metrics.Metrics, refresher RefreshEnqueuer, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, m, log, cfg)

	Subscribe(eventBus, svc, refresher, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Subscribe registers the leads reactions on the bus.
func Subscribe(eventBus events.Bus, svc *service.Service, refresher RefreshEnqueuer, log *logger.Logger) {
	eventBus.Subscribe(events.ProjectCreated{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.ProjectCreated)
		if !ok || e.LeadID == nil {
			return nil
		}

		projectID := e.ProjectID
		result, err := svc.ProgressStatus(ctx, *e.LeadID, domain.ActionProjectCreated, domain.ActionData{
			ProjectID:   &projectID,
			QuotationID: e.QuotationID,
		})
		if err != nil {
			return err
		}
		if !result.Changed {
			log.Info("project created for lead without status change", "leadId", *e.LeadID, "status", result.NewStatus)
		}
		return nil
	}))

	if refresher == nil {
		return
	}
	eventBus.Subscribe(events.LeadStatusChanged{}.EventName(), events.HandlerFunc(func(ctx context.Context, _ events.Event) error {
		return refresher.EnqueueConversionRefresh(ctx)
	}))
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the progression engine for use by other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leadsGroup := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
