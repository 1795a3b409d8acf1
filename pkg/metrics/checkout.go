package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheckoutMetrics separates validation rejections from address-save failures.
type CheckoutMetrics struct {
	advances           *prometheus.CounterVec
	addressSaveFailure prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	advances := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_advance_total",
		Help: "Checkout step transitions by result.",
	}, []string{"result"})
	saveFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_address_save_failures_total",
		Help: "Opt-in address saves that failed during checkout.",
	})
	reg.MustRegister(advances, saveFailures)
	return &CheckoutMetrics{advances: advances, addressSaveFailure: saveFailures}
}

// IncAdvance records a delivery to payment attempt.
func (c *CheckoutMetrics) IncAdvance(result string) {
	if c == nil || c.advances == nil {
		return
	}
	c.advances.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncAddressSaveFailure records a non-fatal address persistence failure.
func (c *CheckoutMetrics) IncAddressSaveFailure() {
	if c == nil || c.addressSaveFailure == nil {
		return
	}
	c.addressSaveFailure.Inc()
}
