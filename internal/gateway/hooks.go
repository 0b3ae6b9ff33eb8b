package gateway

import (
	"encoding/json"

	"mcpgateway/internal/aggregator"
	"mcpgateway/internal/jsonrpc"
	"mcpgateway/internal/session"
	"mcpgateway/internal/upstream"
)

// Metrics is the subset of internal/metrics the gateway touches. Kept as an
// interface here so this package has no import-time dependency on the
// Prometheus client; a nil Metrics is valid and every method is a no-op.
type Metrics interface {
	SetUpstreamState(upstreamID string, state upstream.State)
	ObserveToolCall(method, outcome string, durationSeconds float64)
	SetActiveSessions(n int)
}

// EventHooks adapts the Upstream Registry's event bus into catalog rebuilds
// and session push fan-out, per the gateway's data-flow design: the
// aggregator and gateway never address a Connector directly, they only ever
// react to what the registry publishes.
//
// Registry is set after construction (see NewEventHooks) because the
// registry itself must be built with these hooks, creating an unavoidable
// one-step ordering dependency that a plain field assignment resolves
// without the two objects needing a cyclic reference to each other.
type EventHooks struct {
	Catalog  *aggregator.Catalog
	Sessions *session.Store
	Metrics  Metrics
	Registry *upstream.Registry

	// OnCatalogChanged, if set, is called after every catalog mutation this
	// hook set makes. internal/sdkcompat subscribes here so its mirrored
	// tool set updates off the same registry event bus C5 reacts to,
	// instead of polling the catalog on a timer.
	OnCatalogChanged func()
}

// NewEventHooks builds an EventHooks with no Registry yet; callers must set
// hooks.Registry immediately after constructing the Registry that uses it.
func NewEventHooks(catalog *aggregator.Catalog, sessions *session.Store, metrics Metrics) *EventHooks {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &EventHooks{Catalog: catalog, Sessions: sessions, Metrics: metrics}
}

// AsRegistryEvents returns the upstream.RegistryEvents callbacks bound to h.
func (h *EventHooks) AsRegistryEvents() upstream.RegistryEvents {
	return upstream.RegistryEvents{
		OnStatusChange: h.onStatusChange,
		OnToolsChanged: h.onToolsChanged,
		OnPush:         h.onPush,
	}
}

func (h *EventHooks) onStatusChange(upstreamID string, state upstream.State) {
	h.Metrics.SetUpstreamState(upstreamID, state)
	if state == upstream.StateRunning {
		return
	}
	// Any transition away from running drops the upstream's catalog
	// entries within the bounded window the aggregator's refresh policy
	// promises; removing eagerly here is well inside that bound.
	h.Catalog.RemoveUpstream(upstreamID)
	h.notifyCatalogChanged()
}

func (h *EventHooks) onToolsChanged(upstreamID string, tools []upstream.ToolDescriptor) {
	prefix := upstreamID
	if h.Registry != nil {
		if def, ok := h.Registry.GetDefinition(upstreamID); ok {
			if def.Alias != "" {
				prefix = def.Alias
			} else if def.Name != "" {
				prefix = def.Name
			}
			if !def.Enabled {
				// A disabled upstream must never contribute tools, even if
				// its connector is (transiently) still reporting some.
				h.Catalog.RemoveUpstream(upstreamID)
				h.notifyCatalogChanged()
				return
			}
		}
	}
	h.Catalog.SetUpstream(upstreamID, prefix, tools)
	h.notifyCatalogChanged()
}

func (h *EventHooks) notifyCatalogChanged() {
	if h.OnCatalogChanged != nil {
		h.OnCatalogChanged()
	}
}

// onPush fans a single upstream push out to every session bound to that
// upstream with an open background stream, and to no one else (P6).
func (h *EventHooks) onPush(upstreamID string, msg jsonrpc.Message) {
	sessions := h.Sessions.ListByUpstream(upstreamID)
	if len(sessions) == 0 {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	for _, sess := range sessions {
		stream := sess.PushStream()
		if stream == nil {
			continue
		}
		_ = stream.Send(data)
	}
}

type noopMetrics struct{}

func (noopMetrics) SetUpstreamState(string, upstream.State)       {}
func (noopMetrics) ObserveToolCall(string, string, float64)       {}
func (noopMetrics) SetActiveSessions(int)                         {}
