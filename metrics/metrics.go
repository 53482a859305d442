// Package metrics exposes Prometheus counters/gauges for a capture+DPI
// pipeline instance. Grounded on the Metrics struct of
// grimm-is-flywall/internal/ebpf/metrics/prometheus.go (one field per
// counter/gauge, constructed up front in New), but registered against a
// private prometheus.Registry per instance rather than the global
// default registry, so more than one netwatch pipeline can run in the
// same process without a MustRegister collision.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every counter/gauge the capture and DPI pipeline exports.
type Metrics struct {
	Registry *prometheus.Registry

	PacketsReceived prometheus.Counter
	PacketsDropped  prometheus.Counter
	BytesReceived   prometheus.Counter

	FlowsActive prometheus.Gauge
	FlowsAged   prometheus.Counter

	SessionsCreated  prometheus.Counter
	SessionsRejected prometheus.Counter

	AlertsRaised  prometheus.Counter
	AlertsDropped prometheus.Counter

	ProtocolPackets *prometheus.CounterVec
}

// New creates a Metrics instance with every series registered against a
// fresh, private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		PacketsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netwatch_packets_received_total",
			Help: "Total number of packets received by the capture session.",
		}),
		PacketsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netwatch_packets_dropped_total",
			Help: "Total number of packets dropped due to ring buffer overflow.",
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netwatch_bytes_received_total",
			Help: "Total number of bytes received by the capture session.",
		}),
		FlowsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "netwatch_flows_active",
			Help: "Number of flow table entries currently occupied.",
		}),
		FlowsAged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netwatch_flows_aged_total",
			Help: "Total number of flows evicted by idle timeout.",
		}),
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netwatch_dpi_sessions_created_total",
			Help: "Total number of DPI sessions created.",
		}),
		SessionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netwatch_dpi_sessions_rejected_total",
			Help: "Total number of DPI session creations rejected because the table was full.",
		}),
		AlertsRaised: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netwatch_alerts_raised_total",
			Help: "Total number of alerts pushed onto the alert queue.",
		}),
		AlertsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netwatch_alerts_dropped_total",
			Help: "Total number of alerts dropped because the alert queue was full.",
		}),
		ProtocolPackets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netwatch_protocol_packets_total",
			Help: "Total number of packets classified per protocol.",
		}, []string{"protocol"}),
	}

	reg.MustRegister(
		m.PacketsReceived, m.PacketsDropped, m.BytesReceived,
		m.FlowsActive, m.FlowsAged,
		m.SessionsCreated, m.SessionsRejected,
		m.AlertsRaised, m.AlertsDropped,
		m.ProtocolPackets,
	)

	return m
}
