package metrics

import "github.com/prometheus/client_golang/prometheus"

// RecordStoreMetrics tracks calls made to the external record store.
type RecordStoreMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	BreakerState    prometheus.Gauge
}

// NewRecordStoreMetrics creates and registers record store metrics on the given registry.
func NewRecordStoreMetrics(reg prometheus.Registerer) *RecordStoreMetrics {
	m := &RecordStoreMetrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "record_store",
			Name:      "requests_total",
			Help:      "Total number of record store requests, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "record_store",
			Name:      "request_duration_seconds",
			Help:      "Duration of record store requests in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "record_store",
			Name:      "circuit_breaker_state",
			Help:      "Record store circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
	}

	reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.BreakerState)
	return m
}
