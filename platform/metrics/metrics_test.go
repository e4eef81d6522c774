package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsIsSingleton(t *testing.T) {
	if NewMetrics() != NewMetrics() {
		t.Fatal("NewMetrics should return the shared instance")
	}
}

func TestRecordTransition(t *testing.T) {
	m := NewMetrics()
	before := testutil.ToFloat64(m.StatusTransitions.WithLabelValues("new", "contacted", "contact_attempted"))

	m.RecordTransition("new", "contacted", "contact_attempted")

	after := testutil.ToFloat64(m.StatusTransitions.WithLabelValues("new", "contacted", "contact_attempted"))
	if after != before+1 {
		t.Fatalf("expected counter to increase by 1, got %v -> %v", before, after)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordTransition("a", "b", "c")
	m.RecordNoop("x")
	m.RecordConflict()
	m.RecordValidation("valid")
	m.ObserveConversionMetrics("all", false, 0.1)
}
