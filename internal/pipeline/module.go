// Package pipeline provides the customer workflow status module.
package pipeline

import (
	apphttp "hvac_crm_backend/internal/http"
	"hvac_crm_backend/internal/pipeline/handler"
	"hvac_crm_backend/internal/pipeline/repository"
	"hvac_crm_backend/internal/pipeline/service"
	"hvac_crm_backend/platform/config"
	"hvac_crm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
}

func NewModule(pool *pgxpool.Pool, cfg config.WorkflowConfig, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), log, cfg.GetStoreTimeout())
	return &Module{handler: handler.New(svc)}
}

func (m *Module) Name() string {
	return "pipeline"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/customers"))
}

var _ apphttp.Module = (*Module)(nil)
