// Package metrics registers the Prometheus collectors shared by all modules.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the workflow backend.
type Metrics struct {
	// Lead workflow
	StatusTransitions *prometheus.CounterVec
	ProgressNoops     *prometheus.CounterVec
	ProgressConflicts prometheus.Counter

	// Project validation
	ProjectValidations *prometheus.CounterVec

	// Analytics
	ConversionMetricsDuration *prometheus.HistogramVec

	// HTTP
	HTTPRequestsTotal *prometheus.CounterVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// NewMetrics creates and registers all collectors on the default registry.
// Repeated calls return the same instance.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			StatusTransitions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hvac_lead_status_transitions_total",
					Help: "Committed lead status transitions",
				},
				[]string{"from", "to", "action"},
			),
			ProgressNoops: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hvac_lead_progress_noop_total",
					Help: "Progress calls that matched no transition rule",
				},
				[]string{"action"},
			),
			ProgressConflicts: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "hvac_lead_progress_conflicts_total",
					Help: "Status writes that lost a concurrent race",
				},
			),
			ProjectValidations: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hvac_project_validations_total",
					Help: "Project creation validations by outcome",
				},
				[]string{"outcome"},
			),
			ConversionMetricsDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "hvac_conversion_metrics_duration_seconds",
					Help:    "Time spent producing conversion metrics",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"timeframe", "cached"},
			),
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hvac_http_requests_total",
					Help: "HTTP requests by route and status",
				},
				[]string{"method", "path", "status"},
			),
		}
	})
	return sharedMetrics
}

// RecordTransition counts a committed transition.
func (m *Metrics) RecordTransition(from, to, action string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(from, to, action).Inc()
}

// RecordNoop counts a progress call with no matching rule.
func (m *Metrics) RecordNoop(action string) {
	if m == nil {
		return
	}
	m.ProgressNoops.WithLabelValues(action).Inc()
}

// RecordConflict counts a lost optimistic write.
func (m *Metrics) RecordConflict() {
	if m == nil {
		return
	}
	m.ProgressConflicts.Inc()
}

// RecordValidation counts a validation outcome ("valid", "invalid", "error").
func (m *Metrics) RecordValidation(outcome string) {
	if m == nil {
		return
	}
	m.ProjectValidations.WithLabelValues(outcome).Inc()
}

// ObserveConversionMetrics records how long producing metrics took.
func (m *Metrics) ObserveConversionMetrics(timeframe string, cached bool, seconds float64) {
	if m == nil {
		return
	}
	label := "false"
	if cached {
		label = "true"
	}
	m.ConversionMetricsDuration.WithLabelValues(timeframe, label).Observe(seconds)
}
