package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "gateway"

// Metrics holds the auth filter's Prometheus collectors on a private registry.
type Metrics struct {
	registry           *prometheus.Registry
	decisionsTotal     *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	breakerState       *prometheus.GaugeVec
}

func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = defaultNamespace
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "decisions_total",
				Help:      "Auth filter decisions by outcome and reason",
			},
			[]string{"decision", "reason"},
		),
		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "evaluation_duration_seconds",
				Help:      "Time spent evaluating a request in the auth filter",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"decision"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "revocation_breaker_open",
				Help:      "1 while the revocation backend circuit breaker is not closed",
			},
			[]string{"breaker"},
		),
	}

	m.registry.MustRegister(
		m.decisionsTotal,
		m.evaluationDuration,
		m.breakerState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) ObserveDecision(decision, reason string, d time.Duration) {
	m.decisionsTotal.WithLabelValues(decision, reason).Inc()
	m.evaluationDuration.WithLabelValues(decision).Observe(d.Seconds())
}

// SetBreakerState records a circuit breaker transition.
func (m *Metrics) SetBreakerState(name, state string) {
	v := 0.0
	if state != "closed" {
		v = 1
	}
	m.breakerState.WithLabelValues(name).Set(v)
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
