package metrics

import "github.com/prometheus/client_golang/prometheus"

// AppMetrics covers sessions, list controllers and handled errors.
type AppMetrics struct {
	ErrorsTotal       *prometheus.CounterVec
	AuthAttempts      *prometheus.CounterVec
	ActiveControllers prometheus.Gauge
	MutationsTotal    *prometheus.CounterVec
}

// NewAppMetrics creates and registers application metrics on the given registry.
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of errors returned by handlers, by type.",
		}, []string{"type"}),
		AuthAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "auth_attempts_total",
			Help:      "Login and registration attempts, by operation and result.",
		}, []string{"operation", "result"}),
		ActiveControllers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "active_controllers",
			Help:      "Number of list controllers held in memory.",
		}),
		MutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "mutations_total",
			Help:      "Job mutations, by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}

	reg.MustRegister(m.ErrorsTotal, m.AuthAttempts, m.ActiveControllers, m.MutationsTotal)
	return m
}
