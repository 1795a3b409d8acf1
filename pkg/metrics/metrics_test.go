package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRelayMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewRelayMetrics(reg)
	relay := "documents"
	metrics.ObserveBatch(relay, 250*time.Millisecond)
	metrics.AddPublished(relay, 3)
	metrics.IncFailed(relay)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "outbox_relay_published_total", "relay", relay); err != nil {
		t.Fatalf("fetch published: %v", err)
	} else if got != 3 {
		t.Fatalf("expected published=3, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "outbox_relay_failed_total", "relay", relay); err != nil {
		t.Fatalf("fetch failed: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failed=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "outbox_relay_batch_duration_seconds", "relay", relay); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestCartMetricsCountsByOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCartMetrics(reg)
	metrics.IncMutation("add", ResultOK)
	metrics.IncMutation("add", ResultOK)
	metrics.IncMutation("update", ResultRejected)
	metrics.IncConflict()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "cart_mutations_total", "op", "add"); err != nil {
		t.Fatalf("fetch add: %v", err)
	} else if got != 2 {
		t.Fatalf("expected add=2, got %f", got)
	}
	if mf := findMetricFamily(mfs, "document_version_conflicts_total"); mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatal("expected one conflict recorded")
	}
}

func TestCheckoutMetricsSeparatesSaveFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCheckoutMetrics(reg)
	metrics.IncAdvance("invalid")
	metrics.IncAddressSaveFailure()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "checkout_advance_total", "result", "invalid"); err != nil {
		t.Fatalf("fetch advance: %v", err)
	} else if got != 1 {
		t.Fatalf("expected invalid=1, got %f", got)
	}
	if mf := findMetricFamily(mfs, "checkout_address_save_failures_total"); mf == nil {
		t.Fatal("expected save failure metric")
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	NewCartMetrics(nil).IncMutation("add", ResultOK)
	NewCheckoutMetrics(nil).IncAddressSaveFailure()
	NewRelayMetrics(nil).AddPublished("x", 1)
	var nilMetrics *CartMetrics
	nilMetrics.IncConflict()
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
