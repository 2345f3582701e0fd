package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks dashboard events and their outcomes.
type Metrics struct {
	registry *prometheus.Registry

	events   *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics registers the dashboard collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "countrydash_events_total",
			Help: "Dashboard events handled, by kind",
		}, []string{"kind"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "countrydash_outcomes_total",
			Help: "Pipeline outcomes, by status",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "countrydash_render_duration_seconds",
			Help:    "Time spent recomputing the dashboard after an event",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(m.events, m.outcomes, m.duration)
	return m
}

func (m *Metrics) observe(kind, status string, seconds float64) {
	m.events.WithLabelValues(kind).Inc()
	m.outcomes.WithLabelValues(status).Inc()
	m.duration.Observe(seconds)
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
