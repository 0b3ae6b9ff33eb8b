package config

import (
	"sync"

	"mcpgateway/pkg/logging"
)

// Manager owns the in-memory view of the upstreams directory under
// configPath. It is the boot-time source of truth the registry
// (internal/upstream) reads from. Writing upstream definition files is the
// job of the administrative CRUD surface that registers upstreams and issues
// API keys (out of scope here); Manager only ever reads what that surface,
// or an operator by hand, has placed on disk, then reflects it with Load.
type Manager struct {
	mu          sync.RWMutex
	configPath  string
	definitions map[string]UpstreamConfig
}

// NewManager creates a Manager rooted at configPath.
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath:  configPath,
		definitions: make(map[string]UpstreamConfig),
	}
}

func validateUpstream(def UpstreamConfig) error {
	var errs ValidationErrors
	if err := ValidateEntityName(def.ID, "upstream"); err != nil {
		errs = append(errs, err.(ValidationError))
	}
	if err := ValidateOneOf("type", string(def.Type),
		[]string{string(TransportStdio), string(TransportWebSocket), string(TransportSSE), string(TransportStreamableHTTP)}); err != nil {
		errs = append(errs, err.(ValidationError))
	}
	if def.Type == TransportStdio && def.Command == "" {
		errs.Add("command", "is required for stdio upstreams")
	}
	if def.Type != TransportStdio && def.URL == "" {
		errs.Add("url", "is required for network upstreams")
	}
	if errs.HasErrors() {
		return FormatValidationError("upstream", def.ID, errs)
	}
	return nil
}

// Load populates the in-memory definition set from <configPath>/upstreams.
func (m *Manager) Load() error {
	defs, errColl, err := LoadUpstreams(m.configPath, validateUpstream)
	if err != nil {
		return err
	}
	if errColl.HasErrors() {
		logging.Warn("ConfigManager", "some upstream files had errors:\n%s", errColl.GetSummary())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.definitions = make(map[string]UpstreamConfig, len(defs))
	for _, def := range defs {
		m.definitions[def.ID] = def
	}
	logging.Info("ConfigManager", "loaded %d upstream definitions", len(defs))
	return nil
}

// List returns a snapshot of every loaded upstream definition.
func (m *Manager) List() []UpstreamConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]UpstreamConfig, 0, len(m.definitions))
	for _, def := range m.definitions {
		out = append(out, def)
	}
	return out
}

// Get returns the loaded definition for id.
func (m *Manager) Get(id string) (UpstreamConfig, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	def, ok := m.definitions[id]
	return def, ok
}
