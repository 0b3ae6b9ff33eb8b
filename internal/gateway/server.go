package gateway

import (
	"net/http"
	"time"

	"mcpgateway/internal/aggregator"
	"mcpgateway/internal/auth"
	"mcpgateway/internal/session"
	"mcpgateway/internal/upstream"
)

// Version is reported on /health; overridden at build time via -ldflags if
// the caller wants a real build version baked in.
var Version = "dev"

// Server is C5: it owns the HTTP surface in the gateway's external
// interfaces table and holds read-only handles to the components that
// answer a request — it never owns a Connector, a Session, or a catalog
// Entry directly, only the registry/store/catalog that do.
type Server struct {
	registry *upstream.Registry
	catalog  *aggregator.Catalog
	sessions *session.Store
	authr    *auth.Authenticator
	audit    auth.Sink
	metrics  Metrics

	mux       *http.ServeMux
	startedAt time.Time
}

// NewServer wires a Server over already-constructed components. Callers
// build the registry with EventHooks.AsRegistryEvents() first so catalog
// rebuilds and push fan-out are live before any upstream starts.
func NewServer(registry *upstream.Registry, catalog *aggregator.Catalog, sessions *session.Store, authr *auth.Authenticator, audit auth.Sink, metrics Metrics) *Server {
	if audit == nil {
		audit = auth.NoopSink{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	s := &Server{
		registry:  registry,
		catalog:   catalog,
		sessions:  sessions,
		authr:     authr,
		audit:     audit,
		metrics:   metrics,
		startedAt: time.Now(),
	}
	s.mux = http.NewServeMux()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/mcp/{upstreamId}", s.handleMCP)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/stats", s.handleStats)
}

// Handle registers an additional handler on the gateway's mux, e.g. the
// caller's /metrics Prometheus handler, so every HTTP surface the process
// exposes shares one *http.Server.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// ServeHTTP satisfies http.Handler so a Server can be dropped straight into
// an *http.Server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) recordToolCallMetric(method, outcome string, d time.Duration) {
	s.metrics.ObserveToolCall(method, outcome, d.Seconds())
}
