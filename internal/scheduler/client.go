package scheduler

import (
	"context"
	"errors"
	"time"

	analytics "hvac_crm_backend/internal/analytics/service"
	"hvac_crm_backend/platform/cache"
	"hvac_crm_backend/platform/config"

	"github.com/hibiken/asynq"
)

// refreshUniqueWindow collapses bursts of status changes into one refresh
// per timeframe.
const refreshUniqueWindow = time.Minute

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueConversionRefresh queues a recomputation of every timeframe. Tasks
// already pending within the unique window are not duplicated.
func (c *Client) EnqueueConversionRefresh(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}

	var errs []error
	for _, tf := range analytics.AllTimeframes() {
		task, err := NewConversionRefreshTask(ConversionRefreshPayload{Timeframe: string(tf)})
		if err != nil {
			return err
		}
		_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.Unique(refreshUniqueWindow))
		if err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func queueName(cfg config.SchedulerConfig) string {
	if queue := cfg.GetAsynqQueueName(); queue != "" {
		return queue
	}
	return "default"
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := cache.ParseRedisURL(redisURL, tlsInsecure)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
