// Package projects provides the project creation checks module.
package projects

import (
	apphttp "hvac_crm_backend/internal/http"
	"hvac_crm_backend/internal/projects/handler"
	"hvac_crm_backend/internal/projects/repository"
	"hvac_crm_backend/internal/projects/validation"
	"hvac_crm_backend/platform/config"
	"hvac_crm_backend/platform/logger"
	"hvac_crm_backend/platform/metrics"
	"hvac_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	engine  *validation.Engine
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator, cfg config.WorkflowConfig, m *metrics.Metrics, log *logger.Logger) *Module {
	engine := validation.NewEngine(
		repository.New(pool),
		validation.DefaultRules(cfg.GetBudgetTolerance()),
		m,
		log,
		cfg.GetStoreTimeout(),
	)
	return &Module{handler: handler.New(engine, val), engine: engine}
}

func (m *Module) Name() string {
	return "projects"
}

// Engine exposes ValidateProjectCreation to other modules.
func (m *Module) Engine() *validation.Engine {
	return m.engine
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/projects"))
}

var _ apphttp.Module = (*Module)(nil)
