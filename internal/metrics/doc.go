// Package metrics is C8: the gateway's Prometheus exposition surface. It
// reports upstream connector state, tool-call outcomes and latency, and
// active session count. Connector state is updated from the registry event
// bus and tool calls from the gateway dispatcher; the active session count is
// set only when the gateway serves /health.
package metrics
