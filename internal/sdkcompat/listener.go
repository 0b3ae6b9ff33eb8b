package sdkcompat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"mcpgateway/internal/aggregator"
	"mcpgateway/internal/upstream"
	"mcpgateway/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Listener mirrors an aggregator.Catalog into an mcp-go MCPServer and serves
// it over streamable HTTP, forwarding every tool call back through the same
// upstream.Registry the gateway endpoint uses. It has no polling loop of its
// own; Sync is meant to be wired as a gateway.EventHooks.OnCatalogChanged
// callback so it reacts to the same registry events the gateway endpoint's
// catalog does.
type Listener struct {
	catalog  *aggregator.Catalog
	registry *upstream.Registry

	mcpServer *mcpserver.MCPServer
	http      *mcpserver.StreamableHTTPServer

	mu     sync.Mutex
	active map[string]bool
}

// New builds a Listener over catalog and registry, performing an initial
// Sync. Call Handler to mount it on an http.ServeMux.
func New(catalog *aggregator.Catalog, registry *upstream.Registry) *Listener {
	mcpSrv := mcpserver.NewMCPServer(
		"mcpgateway-sdkcompat",
		Version,
		mcpserver.WithToolCapabilities(true),
	)
	l := &Listener{
		catalog:   catalog,
		registry:  registry,
		mcpServer: mcpSrv,
		http:      mcpserver.NewStreamableHTTPServer(mcpSrv),
		active:    make(map[string]bool),
	}
	l.Sync()
	return l
}

// Version is stamped by the same build as internal/gateway.Version.
var Version = "dev"

// Handler returns the SDK's own http.Handler for the streamable HTTP
// transport. cmd/serve.go serves it on its own http.Server bound to
// GatewayConfig.SDKCompatPort, not on the gateway's mux.
func (l *Listener) Handler() http.Handler {
	return l.http
}

// Sync diffs the catalog's current entries against what has already been
// registered, adding new tools and removing ones the catalog dropped. This
// mirrors the active-item-set diffing the gateway's own teacher codebase
// uses for the same problem (registering only what changed on each
// notification, not the whole set). Wire it as a gateway.EventHooks'
// OnCatalogChanged to keep this listener's tool set live.
func (l *Listener) Sync() {
	entries := l.catalog.List()
	seen := make(map[string]struct{}, len(entries))

	var toAdd []mcpserver.ServerTool
	l.mu.Lock()
	for _, entry := range entries {
		seen[entry.GatewayName] = struct{}{}
		if l.active[entry.GatewayName] {
			continue
		}
		toAdd = append(toAdd, mcpserver.ServerTool{
			Tool:    toMCPTool(entry),
			Handler: l.toolHandler(entry.UpstreamID, entry.OriginalName),
		})
		l.active[entry.GatewayName] = true
	}

	var toRemove []string
	for name := range l.active {
		if _, ok := seen[name]; !ok {
			toRemove = append(toRemove, name)
			delete(l.active, name)
		}
	}
	l.mu.Unlock()

	if len(toAdd) > 0 {
		l.mcpServer.AddTools(toAdd...)
		logging.Debug("SDKCompat", "registered %d tool(s)", len(toAdd))
	}
	if len(toRemove) > 0 {
		l.mcpServer.DeleteTools(toRemove...)
		logging.Debug("SDKCompat", "removed %d tool(s)", len(toRemove))
	}
}

func toMCPTool(entry aggregator.Entry) mcp.Tool {
	desc, _ := entry.Descriptor["description"].(string)
	tool := mcp.Tool{
		Name:        entry.GatewayName,
		Description: desc,
	}
	if schema, ok := entry.Descriptor["inputSchema"]; ok {
		if raw, err := json.Marshal(schema); err == nil {
			tool.RawInputSchema = raw
		}
	}
	return tool
}

// toolHandler closes over the upstream id and original tool name an entry
// resolved to at registration time, so a later rename in the catalog takes
// effect on the next sync rather than retroactively on in-flight handlers.
func (l *Listener) toolHandler(upstreamID, originalName string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		conn, ok := l.registry.Get(upstreamID)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("upstream %s is not connected", upstreamID)), nil
		}

		args, _ := req.Params.Arguments.(map[string]interface{})
		result, rpcErr, err := conn.SendRequest(ctx, "tools/call", map[string]any{
			"name":      originalName,
			"arguments": args,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if rpcErr != nil {
			return mcp.NewToolResultError(rpcErr.Message), nil
		}

		var callResult mcp.CallToolResult
		if err := json.Unmarshal(result, &callResult); err != nil {
			return mcp.NewToolResultText(string(result)), nil
		}
		return &callResult, nil
	}
}
