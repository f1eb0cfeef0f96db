// Package metrics instruments the sync engine with Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the engine's Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	RefreshTotal    *prometheus.CounterVec
	StaleDiscarded  *prometheus.CounterVec
	InFlight        *prometheus.GaugeVec
	MutationTotal   *prometheus.CounterVec
	UploadFailures  prometheus.Counter
	GeocodeFailures prometheus.Counter
}

// NewCollector creates and registers all metrics.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trafficshield_refresh_total",
			Help: "Collection refreshes by resource and outcome",
		}, []string{"resource", "outcome"}),
		StaleDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trafficshield_stale_responses_discarded_total",
			Help: "Responses discarded because a newer request was issued",
		}, []string{"resource"}),
		InFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trafficshield_requests_in_flight",
			Help: "Backend requests currently in flight per resource",
		}, []string{"resource"}),
		MutationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trafficshield_mutation_total",
			Help: "Mutations by resource, action and outcome",
		}, []string{"resource", "action", "outcome"}),
		UploadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trafficshield_upload_failures_total",
			Help: "Evidence uploads rejected by the media host",
		}),
		GeocodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trafficshield_geocode_failures_total",
			Help: "Reverse geocoding failures (non-fatal)",
		}),
	}

	registry.MustRegister(
		c.RefreshTotal,
		c.StaleDiscarded,
		c.InFlight,
		c.MutationTotal,
		c.UploadFailures,
		c.GeocodeFailures,
	)

	return c
}

// Handler exposes the registry for the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
