package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestInventoryMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewInventoryMetrics(reg)

	metrics.IncMutation("apply")
	metrics.IncMutation("apply")
	metrics.IncMutation("revert")
	metrics.IncInsufficientStock()
	metrics.IncLowStockAlert()
	metrics.ObserveRecalcDuration(150 * time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "stock_mutations_total", "op", "apply"); err != nil {
		t.Fatalf("fetch apply mutations: %v", err)
	} else if got != 2 {
		t.Fatalf("expected apply=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "stock_mutations_total", "op", "revert"); err != nil {
		t.Fatalf("fetch revert mutations: %v", err)
	} else if got != 1 {
		t.Fatalf("expected revert=1, got %f", got)
	}

	if got, err := fetchPlainCounter(mfs, "insufficient_stock_total"); err != nil {
		t.Fatalf("fetch insufficient stock: %v", err)
	} else if got != 1 {
		t.Fatalf("expected insufficient_stock=1, got %f", got)
	}

	if got, err := fetchPlainCounter(mfs, "low_stock_alerts_total"); err != nil {
		t.Fatalf("fetch low stock alerts: %v", err)
	} else if got != 1 {
		t.Fatalf("expected low_stock_alerts=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "availability_recalc_duration_seconds"); err != nil {
		t.Fatalf("fetch recalc duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestInventoryMetricsNilReceiverSafe(t *testing.T) {
	var metrics *InventoryMetrics
	metrics.IncMutation("apply")
	metrics.IncInsufficientStock()
	metrics.IncLowStockAlert()
	metrics.ObserveRecalcDuration(time.Second)

	empty := NewInventoryMetrics(nil)
	empty.IncMutation("apply")
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

func fetchPlainCounter(mfs []*dto.MetricFamily, name string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	if len(mf.GetMetric()) == 0 {
		return 0, fmt.Errorf("metric %q has no samples", name)
	}
	return mf.GetMetric()[0].GetCounter().GetValue(), nil
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	if len(mf.GetMetric()) == 0 {
		return 0, fmt.Errorf("histogram %q has no samples", name)
	}
	return mf.GetMetric()[0].GetHistogram().GetSampleSum(), nil
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
