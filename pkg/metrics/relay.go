package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RelayMetrics records outbox relay batch outcomes.
type RelayMetrics struct {
	duration  *prometheus.HistogramVec
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

// NewRelayMetrics registers the relay metrics on the provided registerer.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	if reg == nil {
		return &RelayMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_relay_batch_duration_seconds",
		Help:    "Duration of outbox relay batches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"relay"})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_relay_published_total",
		Help: "Document events delivered to subscribers.",
	}, []string{"relay"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_relay_failed_total",
		Help: "Document events that failed to publish.",
	}, []string{"relay"})
	reg.MustRegister(duration, published, failed)
	return &RelayMetrics{
		duration:  duration,
		published: published,
		failed:    failed,
	}
}

// ObserveBatch records the duration of one relay batch.
func (r *RelayMetrics) ObserveBatch(relay string, duration time.Duration) {
	if r == nil || r.duration == nil {
		return
	}
	r.duration.WithLabelValues(normalizeLabel(relay)).Observe(duration.Seconds())
}

// AddPublished increments the published counter by n.
func (r *RelayMetrics) AddPublished(relay string, n int) {
	if r == nil || r.published == nil || n <= 0 {
		return
	}
	r.published.WithLabelValues(normalizeLabel(relay)).Add(float64(n))
}

// IncFailed increments the failure counter.
func (r *RelayMetrics) IncFailed(relay string) {
	if r == nil || r.failed == nil {
		return
	}
	r.failed.WithLabelValues(normalizeLabel(relay)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
