package http

import (
	"context"

	"hvac_crm_backend/platform/config"
	"hvac_crm_backend/platform/logger"
	"hvac_crm_backend/platform/metrics"
)

// RouterConfig is the slice of configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs /api/health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is assembled by cmd/api and turned into a gin engine by router.New.
// Metrics and Health may be nil.
type App struct {
	Config  RouterConfig
	Logger  *logger.Logger
	Metrics *metrics.Metrics
	Health  HealthChecker
	Modules []Module
}
