// Package metrics exposes the engine's operational gauges/counters through
// github.com/prometheus/client_golang, grounded on packetd-packetd's go.mod
// dependency on the same library. Nothing in spec.md requires metrics (and
// nothing in its Non-goals excludes them); wiring them is DOMAIN STACK
// enrichment per SPEC_FULL.md — a thin, optional observability surface over
// the H2 flow-control windows and dispatcher in-flight count that operators
// of a real engine would want.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry groups the collectors this engine registers. Callers that don't
// want metrics simply never call New/MustRegister.
type Registry struct {
	H1ActiveConnections prometheus.Gauge
	H1ExchangesTotal    *prometheus.CounterVec // label: "role" = client|server
	H2ActiveStreams     prometheus.Gauge
	H2ConnWindow        prometheus.Gauge
	DispatchInFlight    prometheus.Gauge
}

// New constructs a Registry with freshly created (unregistered) collectors.
func New() *Registry {
	return &Registry{
		H1ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "httpengine",
			Subsystem: "h1",
			Name:      "active_connections",
			Help:      "Number of currently open HTTP/1.x connections.",
		}),
		H1ExchangesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "httpengine",
			Subsystem: "h1",
			Name:      "exchanges_total",
			Help:      "Total number of completed HTTP/1.x request/response exchanges.",
		}, []string{"role"}),
		H2ActiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "httpengine",
			Subsystem: "h2",
			Name:      "active_streams",
			Help:      "Number of currently open HTTP/2 streams across all connections.",
		}),
		H2ConnWindow: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "httpengine",
			Subsystem: "h2",
			Name:      "connection_window_bytes",
			Help:      "Most recently observed HTTP/2 connection-level send window.",
		}),
		DispatchInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "httpengine",
			Subsystem: "dispatch",
			Name:      "in_flight_requests",
			Help:      "Number of requests currently dispatched to the application Service.",
		}),
	}
}

// MustRegister registers every collector in r with reg.
func (r *Registry) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(r.H1ActiveConnections, r.H1ExchangesTotal, r.H2ActiveStreams, r.H2ConnWindow, r.DispatchInFlight)
}
