package scheduler

import (
	"context"
	"fmt"
	"strings"

	analytics "hvac_crm_backend/internal/analytics/service"
	"hvac_crm_backend/platform/config"
	"hvac_crm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// MetricsRefresher recomputes and caches conversion metrics.
type MetricsRefresher interface {
	Refresh(ctx context.Context, tf analytics.Timeframe) (analytics.ConversionMetrics, error)
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	refresher MetricsRefresher
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, refresher MetricsRefresher, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(refresher, log)
	w.server = server
	return w, nil
}

func newWorker(refresher MetricsRefresher, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.Discard()
	}
	w := &Worker{
		mux:       asynq.NewServeMux(),
		refresher: refresher,
		log:       log,
	}
	w.mux.HandleFunc(TaskConversionRefresh, w.handleConversionRefresh)
	return w
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	if err := w.server.Start(w.mux); err != nil {
		w.log.Error("scheduler worker failed to start", "error", err)
		return
	}
	w.log.Info("scheduler worker started")

	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info("scheduler worker stopped")
}

func (w *Worker) handleConversionRefresh(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseConversionRefreshPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	// Producers always set the timeframe; an empty one is a malformed task,
	// not a request for the default window.
	if strings.TrimSpace(payload.Timeframe) == "" {
		return fmt.Errorf("%w: %s payload has no timeframe", asynq.SkipRetry, TaskConversionRefresh)
	}

	tf, err := analytics.ParseTimeframe(payload.Timeframe)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	result, err := w.refresher.Refresh(ctx, tf)
	if err != nil {
		return err
	}

	w.log.Info("conversion metrics refreshed", "timeframe", tf, "totalLeads", result.TotalLeads, "conversionRate", result.ConversionRate)
	return nil
}
