package scheduler

import (
	"context"
	"fmt"
	"time"

	analytics "hvac_crm_backend/internal/analytics/service"
	"hvac_crm_backend/platform/config"
	"hvac_crm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const defaultRefreshInterval = 15 * time.Minute

// Periodic enqueues a conversion refresh for every timeframe on a fixed
// interval.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.Discard()
	}

	interval := cfg.GetMetricsRefreshInterval()
	if interval <= 0 {
		interval = defaultRefreshInterval
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})
	for _, tf := range analytics.AllTimeframes() {
		task, err := NewConversionRefreshTask(ConversionRefreshPayload{Timeframe: string(tf)})
		if err != nil {
			return nil, err
		}
		if _, err := scheduler.Register(cronSpec(interval), task, asynq.Queue(queueName(cfg)), asynq.Unique(interval)); err != nil {
			return nil, fmt.Errorf("register %s refresh: %w", tf, err)
		}
	}

	return &Periodic{scheduler: scheduler, log: log}, nil
}

// Run blocks until ctx is cancelled.
func (p *Periodic) Run(ctx context.Context) {
	if err := p.scheduler.Start(); err != nil {
		p.log.Error("periodic scheduler failed to start", "error", err)
		return
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
}

func cronSpec(interval time.Duration) string {
	return "@every " + interval.String()
}
