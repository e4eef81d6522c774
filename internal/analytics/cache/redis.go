// Package cache stores computed conversion metrics in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"hvac_crm_backend/internal/analytics/service"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "analytics:conversion:"

type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func key(tf service.Timeframe) string {
	return keyPrefix + string(tf)
}

func (c *RedisCache) Get(ctx context.Context, tf service.Timeframe) (service.ConversionMetrics, bool, error) {
	raw, err := c.client.Get(ctx, key(tf)).Bytes()
	if errors.Is(err, redis.Nil) {
		return service.ConversionMetrics{}, false, nil
	}
	if err != nil {
		return service.ConversionMetrics{}, false, err
	}

	var m service.ConversionMetrics
	if err := json.Unmarshal(raw, &m); err != nil {
		return service.ConversionMetrics{}, false, err
	}
	return m, true, nil
}

func (c *RedisCache) Set(ctx context.Context, tf service.Timeframe, m service.ConversionMetrics) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(tf), raw, c.ttl).Err()
}

var _ service.Cache = (*RedisCache)(nil)
