package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hvac_crm_backend/internal/analytics"
	"hvac_crm_backend/internal/events"
	apphttp "hvac_crm_backend/internal/http"
	"hvac_crm_backend/internal/http/router"
	"hvac_crm_backend/internal/leads"
	"hvac_crm_backend/internal/pipeline"
	"hvac_crm_backend/internal/projects"
	"hvac_crm_backend/internal/scheduler"
	"hvac_crm_backend/migrations"
	"hvac_crm_backend/platform/cache"
	"hvac_crm_backend/platform/config"
	"hvac_crm_backend/platform/db"
	"hvac_crm_backend/platform/logger"
	"hvac_crm_backend/platform/metrics"
	"hvac_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := db.WithRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS, log)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := db.WithRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)

	val := validator.New()
	m := metrics.NewMetrics()

	rdb, closeRedis := initRedis(cfg, log)
	if closeRedis != nil {
		defer closeRedis()
	}

	refresher, closeScheduler := initRefreshScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}
	// Registered last so in-flight handlers drain before the scheduler
	// client and redis close.
	defer eventBus.Wait()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadsModule := leads.NewModule(pool, eventBus, val, cfg, m, refresher, log)
	projectsModule := projects.NewModule(pool, val, cfg, m, log)
	analyticsModule := analytics.NewModule(pool, rdb, cfg, m, log)
	pipelineModule := pipeline.NewModule(pool, cfg, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:  cfg,
		Logger:  log,
		Metrics: m,
		Health:  db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			leadsModule,
			projectsModule,
			analyticsModule,
			pipelineModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initRedis returns nil when REDIS_URL is unset; conversion metrics are then
// computed on every request.
func initRedis(cfg *config.Config, log *logger.Logger) (redis.UniversalClient, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; conversion metrics cache disabled")
		return nil, nil
	}

	client, err := cache.NewRedisClient(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func initRefreshScheduler(cfg config.SchedulerConfig, log *logger.Logger) (leads.RefreshEnqueuer, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; background metrics refresh disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}
