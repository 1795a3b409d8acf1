package metrics

import "github.com/prometheus/client_golang/prometheus"

// Cart mutation results.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// CartMetrics counts cart mutations and version conflicts.
type CartMetrics struct {
	mutations *prometheus.CounterVec
	conflicts prometheus.Counter
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutations by operation and result.",
	}, []string{"op", "result"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "document_version_conflicts_total",
		Help: "Conditional writes retried after a version conflict.",
	})
	reg.MustRegister(mutations, conflicts)
	return &CartMetrics{mutations: mutations, conflicts: conflicts}
}

// IncMutation records one cart mutation outcome.
func (c *CartMetrics) IncMutation(op, result string) {
	if c == nil || c.mutations == nil {
		return
	}
	c.mutations.WithLabelValues(normalizeLabel(op), normalizeLabel(result)).Inc()
}

// IncConflict records a retried conditional write.
func (c *CartMetrics) IncConflict() {
	if c == nil || c.conflicts == nil {
		return
	}
	c.conflicts.Inc()
}
