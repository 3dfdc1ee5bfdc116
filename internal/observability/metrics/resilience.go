package metrics

import "github.com/prometheus/client_golang/prometheus"

var breakerStates = []string{"closed", "half-open", "open"}

type resilienceMetrics struct {
	retriesTotal *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

func newResilienceMetrics(registry *prometheus.Registry) *resilienceMetrics {
	m := &resilienceMetrics{
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "resilience",
				Name:      "retries_total",
				Help:      "Total retried attempts by operation and failure reason.",
			},
			[]string{"service", "operation", "reason"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "resilience",
				Name:      "breaker_state",
				Help:      "Circuit breaker state by operation (1 for the current state).",
			},
			[]string{"service", "operation", "state"},
		),
	}
	registry.MustRegister(m.retriesTotal, m.breakerState)
	return m
}

func (m *resilienceMetrics) observeRetry(service, operation, reason string) {
	m.retriesTotal.WithLabelValues(service, operation, reason).Inc()
}

func (m *resilienceMetrics) observeBreakerState(service, operation, state string) {
	for _, s := range breakerStates {
		value := 0.0
		if s == state {
			value = 1
		}
		m.breakerState.WithLabelValues(service, operation, s).Set(value)
	}
}
