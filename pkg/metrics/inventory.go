package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// InventoryMetrics records stock ledger activity.
type InventoryMetrics struct {
	mutations         *prometheus.CounterVec
	insufficientStock prometheus.Counter
	lowStockAlerts    prometheus.Counter
	recalcDuration    prometheus.Histogram
}

// NewInventoryMetrics registers the inventory metrics on the provided registerer.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_mutations_total",
		Help: "Applied stock ledger mutations by operation.",
	}, []string{"op"})
	insufficient := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "insufficient_stock_total",
		Help: "Operations rejected because physical quantity would go negative.",
	})
	alerts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "low_stock_alerts_total",
		Help: "Low-stock notifications raised.",
	})
	recalc := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "availability_recalc_duration_seconds",
		Help:    "Duration of availability balance recalculations.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(mutations, insufficient, alerts, recalc)
	return &InventoryMetrics{
		mutations:         mutations,
		insufficientStock: insufficient,
		lowStockAlerts:    alerts,
		recalcDuration:    recalc,
	}
}

// IncMutation increments the mutation counter for the named operation.
func (m *InventoryMetrics) IncMutation(op string) {
	if m == nil || m.mutations == nil {
		return
	}
	m.mutations.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncInsufficientStock increments the rejected-consumption counter.
func (m *InventoryMetrics) IncInsufficientStock() {
	if m == nil || m.insufficientStock == nil {
		return
	}
	m.insufficientStock.Inc()
}

// IncLowStockAlert increments the low-stock alert counter.
func (m *InventoryMetrics) IncLowStockAlert() {
	if m == nil || m.lowStockAlerts == nil {
		return
	}
	m.lowStockAlerts.Inc()
}

// ObserveRecalcDuration records how long a balance recalculation took.
func (m *InventoryMetrics) ObserveRecalcDuration(duration time.Duration) {
	if m == nil || m.recalcDuration == nil {
		return
	}
	m.recalcDuration.Observe(duration.Seconds())
}

func normalizeLabel(op string) string {
	if op == "" {
		return "unknown"
	}
	return op
}
