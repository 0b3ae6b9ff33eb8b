package upstream

import (
	"context"
	"fmt"
	"sync"

	"mcpgateway/internal/config"
	"mcpgateway/internal/jsonrpc"
	"mcpgateway/pkg/logging"
)

// RegistryEvents has the same shape as Events. The registry hands these
// callbacks unchanged to every connector it creates, so each one fires
// directly from the connector with no registry bookkeeping around it.
type RegistryEvents struct {
	OnStatusChange func(upstreamID string, state State)
	OnToolsChanged func(upstreamID string, tools []ToolDescriptor)
	OnPush         func(upstreamID string, msg jsonrpc.Message)
}

// Registry is C2: it owns one Connector per configured upstream, keyed by
// upstream id, and is the only thing in the gateway allowed to start, stop,
// or replace one.
type Registry struct {
	events RegistryEvents

	mu         sync.RWMutex
	connectors map[string]*Connector
	defs       map[string]config.UpstreamConfig
}

// NewRegistry builds an empty Registry. Call LoadFromManager or Register to
// populate it.
func NewRegistry(events RegistryEvents) *Registry {
	return &Registry{
		events:     events,
		connectors: make(map[string]*Connector),
		defs:       make(map[string]config.UpstreamConfig),
	}
}

// LoadFromManager starts a connector for every enabled upstream manager
// already has loaded. Individual connector start failures are logged, not
// returned, so one broken upstream never prevents the others from starting.
func (r *Registry) LoadFromManager(ctx context.Context, manager *config.Manager) {
	for _, def := range manager.List() {
		if !def.Enabled {
			continue
		}
		if err := r.Register(ctx, def); err != nil {
			logging.Warn("UpstreamRegistry", "failed to start upstream %s: %v", def.ID, err)
		}
	}
}

// Register starts a new connector for def. It is an error to register an id
// that already has a connector; use Update for that.
func (r *Registry) Register(ctx context.Context, def config.UpstreamConfig) error {
	r.mu.Lock()
	if _, exists := r.connectors[def.ID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("upstream %s is already registered", def.ID)
	}
	conn := NewConnector(toDefinition(def), r.connectorEvents())
	r.connectors[def.ID] = conn
	r.defs[def.ID] = def
	r.mu.Unlock()

	if !def.Enabled {
		return nil
	}
	return conn.Start(ctx)
}

// Update applies a changed definition to an existing connector. When the
// wire-level connection is unchanged (same command/args/env or same
// url/headers), only bookkeeping is updated and the live connection is left
// alone; otherwise the connector is stopped and a fresh one started in its
// place so the new parameters take effect.
func (r *Registry) Update(ctx context.Context, def config.UpstreamConfig) error {
	r.mu.Lock()
	old, exists := r.defs[def.ID]
	r.mu.Unlock()
	if !exists {
		return r.Register(ctx, def)
	}

	if old.HasSameConnectionParams(def) {
		r.mu.Lock()
		r.defs[def.ID] = def
		r.mu.Unlock()
		return nil
	}

	r.mu.Lock()
	conn := r.connectors[def.ID]
	delete(r.connectors, def.ID)
	delete(r.defs, def.ID)
	r.mu.Unlock()
	if conn != nil {
		conn.Stop()
	}
	return r.Register(ctx, def)
}

// Delete stops and removes the connector for id, if any.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	conn := r.connectors[id]
	delete(r.connectors, id)
	delete(r.defs, id)
	r.mu.Unlock()
	if conn != nil {
		conn.Stop()
	}
}

// Get returns the connector for id, or false if none is registered.
func (r *Registry) Get(id string) (*Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.connectors[id]
	return conn, ok
}

// GetDefinition returns the configuration the connector for id was started
// or last updated with, e.g. so a caller can derive its namespace prefix
// (alias or name) without this package needing to know about namespacing.
func (r *Registry) GetDefinition(id string) (config.UpstreamConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[id]
	return def, ok
}

// List returns every registered connector.
func (r *Registry) List() []*Connector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Connector, 0, len(r.connectors))
	for _, conn := range r.connectors {
		out = append(out, conn)
	}
	return out
}

// Shutdown stops every connector, e.g. during gateway process termination.
func (r *Registry) Shutdown() {
	r.mu.RLock()
	conns := make([]*Connector, 0, len(r.connectors))
	for _, conn := range r.connectors {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func(c *Connector) {
			defer wg.Done()
			c.Stop()
		}(conn)
	}
	wg.Wait()
}

func (r *Registry) connectorEvents() Events {
	return Events{
		OnStatusChange: r.events.OnStatusChange,
		OnToolsChanged: r.events.OnToolsChanged,
		OnPush:         r.events.OnPush,
	}
}

func toDefinition(def config.UpstreamConfig) Definition {
	return Definition{
		ID:      def.ID,
		Name:    def.Name,
		Alias:   def.Alias,
		Type:    TransportKind(def.Type),
		Enabled: def.Enabled,
		Params: ConnectionParams{
			Command:    def.Command,
			Args:       def.Args,
			WorkingDir: def.WorkingDir,
			Env:        def.Env,
			URL:        def.URL,
			Headers:    def.Headers,
		},
		RequestTimeout: def.RequestTimeout,
	}
}
