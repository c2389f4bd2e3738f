package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestGatewayMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewGatewayMetrics(reg)

	m.ObserveDuration("cart_create", 250*time.Millisecond)
	m.IncSuccess("cart_create")
	m.IncFailure("cart_create")
	m.IncFailure("")

	if got := testutil.ToFloat64(m.success.WithLabelValues("cart_create")); got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues("cart_create")); got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected empty operation to normalize to unknown, got %f", got)
	}
}

func TestReconcileMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReconcileMetrics(reg)

	m.IncCompleted()
	m.IncCompleted()
	m.IncUnresolved()

	if got := testutil.ToFloat64(m.completed); got != 2 {
		t.Fatalf("expected completed=2, got %f", got)
	}
	if got := testutil.ToFloat64(m.unresolved); got != 1 {
		t.Fatalf("expected unresolved=1, got %f", got)
	}
}

func TestNilRegistererYieldsNoopMetrics(t *testing.T) {
	g := NewGatewayMetrics(nil)
	g.IncSuccess("cart_create")
	r := NewReconcileMetrics(nil)
	r.IncCompleted()
}
