// Package service computes lead conversion metrics for dashboards.
package service

import (
	"context"
	"time"

	"hvac_crm_backend/platform/apperr"
	"hvac_crm_backend/platform/db"
	"hvac_crm_backend/platform/logger"
	"hvac_crm_backend/platform/metrics"
)

const defaultStoreTimeout = 5 * time.Second

// Store lists leads created in [start, end) with the value of the project
// each converted lead turned into.
type Store interface {
	ListLeadsForConversion(ctx context.Context, start, end time.Time) ([]LeadRecord, error)
}

// Cache holds computed metrics per timeframe. A miss returns ok=false and a
// nil error.
type Cache interface {
	Get(ctx context.Context, tf Timeframe) (result ConversionMetrics, ok bool, err error)
	Set(ctx context.Context, tf Timeframe, result ConversionMetrics) error
}

type Service struct {
	store   Store
	cache   Cache
	metrics *metrics.Metrics
	log     *logger.Logger
	timeout time.Duration
	now     func() time.Time
}

// New creates the service. cache may be nil, in which case every call
// computes from the store.
func New(store Store, cache Cache, m *metrics.Metrics, log *logger.Logger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		store:   store,
		cache:   cache,
		metrics: m,
		log:     log,
		timeout: timeout,
		now:     time.Now,
	}
}

// GetConversionMetrics serves from cache when possible. Cache errors are
// logged and fall through to the store.
func (s *Service) GetConversionMetrics(ctx context.Context, tf Timeframe) (ConversionMetrics, error) {
	started := time.Now()

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, tf)
		if err != nil {
			s.log.WithContext(ctx).Warn("conversion metrics cache read failed", "timeframe", tf, "error", err)
		}
		if ok {
			s.metrics.ObserveConversionMetrics(string(tf), true, time.Since(started).Seconds())
			return cached, nil
		}
	}

	result, err := s.compute(ctx, tf)
	if err != nil {
		return ConversionMetrics{}, err
	}
	s.writeCache(ctx, tf, result)

	s.metrics.ObserveConversionMetrics(string(tf), false, time.Since(started).Seconds())
	return result, nil
}

// Refresh recomputes tf and overwrites the cached value.
func (s *Service) Refresh(ctx context.Context, tf Timeframe) (ConversionMetrics, error) {
	started := time.Now()

	result, err := s.compute(ctx, tf)
	if err != nil {
		return ConversionMetrics{}, err
	}
	s.writeCache(ctx, tf, result)

	s.metrics.ObserveConversionMetrics(string(tf), false, time.Since(started).Seconds())
	s.log.WithContext(ctx).Debug("conversion metrics refreshed", "timeframe", tf, "totalLeads", result.TotalLeads)
	return result, nil
}

func (s *Service) compute(ctx context.Context, tf Timeframe) (ConversionMetrics, error) {
	const op = "analytics.GetConversionMetrics"

	now := s.now()
	start, end := ResolveWindow(tf, now)

	storeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	records, err := s.store.ListLeadsForConversion(storeCtx, start, end)
	if err != nil {
		s.log.DatabaseError(op, err)
		if db.IsTransient(err) {
			return ConversionMetrics{}, apperr.Unavailable(err).WithOp(op)
		}
		return ConversionMetrics{}, apperr.Wrap(apperr.KindInternal, "conversion metrics store error", err).WithOp(op)
	}

	return Compute(tf, start, end, records, now), nil
}

func (s *Service) writeCache(ctx context.Context, tf Timeframe, result ConversionMetrics) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, tf, result); err != nil {
		s.log.WithContext(ctx).Warn("conversion metrics cache write failed", "timeframe", tf, "error", err)
	}
}
