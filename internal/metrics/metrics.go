package metrics

import (
	"mcpgateway/internal/upstream"

	"github.com/prometheus/client_golang/prometheus"
)

// stateCode assigns each connector State a stable numeric value for the
// upstream_state gauge, since Prometheus gauges carry a single float value
// rather than a set of named states.
var stateCode = map[upstream.State]float64{
	upstream.StateStopped:      0,
	upstream.StateStarting:     1,
	upstream.StateRunning:      2,
	upstream.StateReconnecting: 3,
	upstream.StateError:        4,
	upstream.StateStopping:     5,
}

// Metrics collects every gauge/counter/histogram the gateway exposes on
// /metrics. It is built against a private prometheus.Registry rather than
// the global default so multiple instances (e.g. in tests) never collide.
type Metrics struct {
	registry *prometheus.Registry

	upstreamState   *prometheus.GaugeVec
	toolCalls       *prometheus.CounterVec
	toolCallLatency *prometheus.HistogramVec
	activeSessions  prometheus.Gauge
}

// New builds a Metrics instance and registers its collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		upstreamState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mcpgateway",
			Name:      "upstream_state",
			Help:      "Current connector state per upstream (0=stopped 1=starting 2=running 3=reconnecting 4=error 5=stopping).",
		}, []string{"upstream_id"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcpgateway",
			Name:      "tool_calls_total",
			Help:      "Gateway-dispatched JSON-RPC calls by method and outcome.",
		}, []string{"method", "outcome"}),
		toolCallLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mcpgateway",
			Name:      "tool_call_duration_seconds",
			Help:      "Gateway dispatch latency by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mcpgateway",
			Name:      "active_sessions",
			Help:      "Number of live sessions in the session store.",
		}),
	}
	reg.MustRegister(m.upstreamState, m.toolCalls, m.toolCallLatency, m.activeSessions)
	return m
}

// Registry exposes the private prometheus.Registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetUpstreamState satisfies gateway.Metrics.
func (m *Metrics) SetUpstreamState(upstreamID string, state upstream.State) {
	m.upstreamState.WithLabelValues(upstreamID).Set(stateCode[state])
}

// ObserveToolCall satisfies gateway.Metrics.
func (m *Metrics) ObserveToolCall(method, outcome string, durationSeconds float64) {
	m.toolCalls.WithLabelValues(method, outcome).Inc()
	m.toolCallLatency.WithLabelValues(method).Observe(durationSeconds)
}

// SetActiveSessions satisfies gateway.Metrics.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}
