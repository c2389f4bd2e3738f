package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReconcileMetrics records outcomes of order-completion reconciliation runs.
type ReconcileMetrics struct {
	completed  prometheus.Counter
	unresolved prometheus.Counter
}

// NewReconcileMetrics registers the reconciliation metrics on the provided registerer.
func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	if reg == nil {
		return &ReconcileMetrics{}
	}
	completed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_completed_total",
		Help: "Checkout sessions confirmed complete after payment handoff.",
	})
	unresolved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_unresolved_total",
		Help: "Reconciliation runs that could not confirm order completion.",
	})
	reg.MustRegister(completed, unresolved)
	return &ReconcileMetrics{completed: completed, unresolved: unresolved}
}

// IncCompleted increments the completed counter.
func (r *ReconcileMetrics) IncCompleted() {
	if r == nil || r.completed == nil {
		return
	}
	r.completed.Inc()
}

// IncUnresolved increments the unresolved counter.
func (r *ReconcileMetrics) IncUnresolved() {
	if r == nil || r.unresolved == nil {
		return
	}
	r.unresolved.Inc()
}
