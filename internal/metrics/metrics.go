// Package metrics holds the Prometheus collectors for the engagement
// service. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service collectors.
type Metrics struct {
	events      *prometheus.CounterVec
	allocations *prometheus.CounterVec
	railReqs    *prometheus.CounterVec
	railItems   *prometheus.HistogramVec
	concluded   *prometheus.CounterVec
	gatherer    prometheus.Gatherer
}

// New registers the collectors with reg. Pass prometheus.NewRegistry() in
// tests to avoid clashing with the default registry.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "engagement_events_total",
			Help: "Tracked engagement events by kind and outcome.",
		}, []string{"kind", "outcome"}),
		allocations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "variant_allocations_total",
			Help: "Variant allocation decisions.",
		}, []string{"outcome"}),
		railReqs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "feed_rail_requests_total",
			Help: "Feed rail requests by rail.",
		}, []string{"rail"}),
		railItems: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feed_rail_items",
			Help:    "Snippets returned per rail request.",
			Buckets: []float64{0, 1, 5, 10, 20, 30, 50},
		}, []string{"rail"}),
		concluded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ab_tests_concluded_total",
			Help: "Concluded A/B tests by significance.",
		}, []string{"significant"}),
		gatherer: reg,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Event counts one tracked event. outcome is accepted, deduped, throttled
// or rejected.
func (m *Metrics) Event(kind, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind, outcome).Inc()
}

// Allocation counts one allocation decision.
func (m *Metrics) Allocation(original bool) {
	if m == nil {
		return
	}
	outcome := "variant"
	if original {
		outcome = "original"
	}
	m.allocations.WithLabelValues(outcome).Inc()
}

// Rail records one rail request and its result size.
func (m *Metrics) Rail(rail string, items int) {
	if m == nil {
		return
	}
	m.railReqs.WithLabelValues(rail).Inc()
	m.railItems.WithLabelValues(rail).Observe(float64(items))
}

// Concluded counts one test conclusion.
func (m *Metrics) Concluded(significant bool) {
	if m == nil {
		return
	}
	m.concluded.WithLabelValues(strconv.FormatBool(significant)).Inc()
}
