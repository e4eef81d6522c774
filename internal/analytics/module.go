// Package analytics provides the conversion metrics module.
package analytics

import (
	"hvac_crm_backend/internal/analytics/cache"
	"hvac_crm_backend/internal/analytics/handler"
	"hvac_crm_backend/internal/analytics/repository"
	"hvac_crm_backend/internal/analytics/service"
	apphttp "hvac_crm_backend/internal/http"
	"hvac_crm_backend/platform/config"
	"hvac_crm_backend/platform/logger"
	"hvac_crm_backend/platform/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Config combines what the analytics module reads.
type Config interface {
	config.AnalyticsConfig
	config.WorkflowConfig
}

type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the analytics service. rdb may be nil; metrics are then
// computed on every request.
func NewModule(pool *pgxpool.Pool, rdb redis.UniversalClient, cfg Config, m *metrics.Metrics, log *logger.Logger) *Module {
	var c service.Cache
	if rdb != nil {
		c = cache.NewRedisCache(rdb, cfg.GetMetricsCacheTTL())
	}

	svc := service.New(repository.New(pool), c, m, log, cfg.GetStoreTimeout())
	return &Module{handler: handler.New(svc), service: svc}
}

func (m *Module) Name() string {
	return "analytics"
}

// Service is used by the background worker to refresh cached metrics.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/analytics"))
}

var _ apphttp.Module = (*Module)(nil)
