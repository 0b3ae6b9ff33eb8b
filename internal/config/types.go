package config

import "time"

// TransportKind identifies one of the four upstream transport realizations.
type TransportKind string

const (
	TransportStdio          TransportKind = "stdio"
	TransportWebSocket      TransportKind = "websocket"
	TransportSSE            TransportKind = "sse"
	TransportStreamableHTTP TransportKind = "streamable-http"
)

// GatewayConfig is the top-level configuration structure for the gateway process.
type GatewayConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`

	// SDKCompatPort is the port the mark3labs/mcp-go-backed SDK-compatibility
	// listener (C9) binds, separate from Port so its SDK-native streamable
	// HTTP handler never shares a mux with the gateway endpoint's own.
	SDKCompatPort int `yaml:"sdkCompatPort,omitempty"`

	// RequestTimeout is loaded and defaulted but not passed to connectors:
	// the registry builds each connector from its UpstreamConfig alone, and a
	// connector waits UpstreamConfig.RequestTimeout, or 30s when that is zero.
	RequestTimeout time.Duration `yaml:"requestTimeout,omitempty"`
	// ConnectTimeout is loaded and defaulted but not passed to connectors; the
	// initial handshake in Connector.Start is bounded only by the caller's
	// context.
	ConnectTimeout time.Duration `yaml:"connectTimeout,omitempty"`
	// SessionIdleTimeout is how long a session may sit idle before expiry.
	SessionIdleTimeout time.Duration `yaml:"sessionIdleTimeout,omitempty"`
	// SessionCleanupInterval is how often the idle sweep runs.
	SessionCleanupInterval time.Duration `yaml:"sessionCleanupInterval,omitempty"`

	// AuthBypass disables API-key enforcement. Only ever honored when Dev is true.
	AuthBypass bool `yaml:"authBypass,omitempty"`
	// Dev marks a development build; production builds must refuse AuthBypass.
	Dev bool `yaml:"dev,omitempty"`

	// DatabaseURL is the pgx connection string for the traffic log / api key store.
	// When empty, the gateway runs with no persisted api keys and discards
	// traffic records.
	DatabaseURL string `yaml:"databaseUrl,omitempty"`

	// Watch enables the fsnotify-based dev-watcher (C7) for stdio upstreams
	// that declare WatchPaths.
	Watch bool `yaml:"watch,omitempty"`
}

// UpstreamConfig is the persisted definition of one upstream MCP server.
// It is the YAML-file counterpart of the managed_mcp_server row described
// in the gateway's data contract.
type UpstreamConfig struct {
	ID      string        `yaml:"id"`
	Name    string        `yaml:"name"`
	Alias   string        `yaml:"alias,omitempty"`
	Type    TransportKind `yaml:"type"`
	Enabled bool          `yaml:"enabled"`

	// Standard-stream connection parameters.
	Command    string            `yaml:"command,omitempty"`
	Args       []string          `yaml:"args,omitempty"`
	WorkingDir string            `yaml:"workingDir,omitempty"`
	Env        map[string]string `yaml:"env,omitempty"`
	WatchPaths []string          `yaml:"watchPaths,omitempty"`

	// Network transport connection parameters.
	URL     string            `yaml:"url,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`

	// RequestTimeout overrides the connector's default 30s request timeout for
	// this upstream.
	RequestTimeout time.Duration `yaml:"requestTimeout,omitempty"`

	Description string `yaml:"description,omitempty"`
}

// HasSameConnectionParams reports whether two definitions describe the same
// wire-level connection. updateConfig uses this to decide between an
// in-place option update and a stop-and-restart.
func (c UpstreamConfig) HasSameConnectionParams(other UpstreamConfig) bool {
	if c.Type != other.Type {
		return false
	}
	switch c.Type {
	case TransportStdio:
		if c.Command != other.Command || c.WorkingDir != other.WorkingDir || len(c.Args) != len(other.Args) {
			return false
		}
		for i := range c.Args {
			if c.Args[i] != other.Args[i] {
				return false
			}
		}
		return mapsEqual(c.Env, other.Env)
	default:
		return c.URL == other.URL && mapsEqual(c.Headers, other.Headers)
	}
}

func mapsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
