// ABOUTME: Prometheus metrics for angler-gateway
// ABOUTME: Tracks realtime connections, recorded catches, and auth outcomes

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus collectors. A fresh instance with
// its own registry is created per server, so tests never collide on the
// default registerer.
type Metrics struct {
	registry *prometheus.Registry

	ConnectionsActive prometheus.Gauge
	CatchesRecorded   prometheus.Counter
	CatchWriteErrors  prometheus.Counter
	AuthSuccesses     prometheus.Counter
	AuthFailures      prometheus.Counter
	AuthTimeouts      prometheus.Counter
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "angler",
			Name:      "connections_active",
			Help:      "Number of authenticated realtime connections.",
		}),
		CatchesRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "angler",
			Name:      "catches_recorded_total",
			Help:      "Catch records durably written.",
		}),
		CatchWriteErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "angler",
			Name:      "catch_write_errors_total",
			Help:      "Catch writes that failed and were negatively acknowledged.",
		}),
		AuthSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "angler",
			Name:      "ws_auth_successes_total",
			Help:      "Successful realtime authentications.",
		}),
		AuthFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "angler",
			Name:      "ws_auth_failures_total",
			Help:      "Rejected realtime authentications.",
		}),
		AuthTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "angler",
			Name:      "ws_auth_timeouts_total",
			Help:      "Connections closed for not authenticating in time.",
		}),
	}
}

// Handler returns an HTTP handler serving this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
