package sdkcompat

import (
	"context"
	"testing"

	"mcpgateway/internal/aggregator"
	"mcpgateway/internal/upstream"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestSyncAddsAndRemovesTools(t *testing.T) {
	catalog := aggregator.NewCatalog()
	registry := upstream.NewRegistry(upstream.RegistryEvents{})
	l := New(catalog, registry)

	if got := len(l.active); got != 0 {
		t.Fatalf("expected no tools registered initially, got %d", got)
	}

	catalog.SetUpstream("u1", "u1", []upstream.ToolDescriptor{
		{UpstreamID: "u1", Name: "echo", Descriptor: map[string]any{"name": "echo", "description": "echoes input"}},
	})
	l.Sync()

	if !l.active["u1__echo"] {
		t.Fatalf("expected u1__echo to be registered after sync, got %+v", l.active)
	}

	catalog.RemoveUpstream("u1")
	l.Sync()

	if l.active["u1__echo"] {
		t.Fatalf("expected u1__echo to be removed after upstream removal, got %+v", l.active)
	}
}

func TestToolHandlerReturnsErrorForUnknownUpstream(t *testing.T) {
	catalog := aggregator.NewCatalog()
	registry := upstream.NewRegistry(upstream.RegistryEvents{})
	l := New(catalog, registry)

	handler := l.toolHandler("missing", "echo")
	result, err := handler(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatalf("expected a tool error result for an unconnected upstream, got %+v", result)
	}
}

func TestToMCPToolCarriesDescriptionAndSchema(t *testing.T) {
	entry := aggregator.Entry{
		GatewayName: "u1__echo",
		Descriptor: map[string]any{
			"description": "echoes input",
			"inputSchema": map[string]any{"type": "object"},
		},
	}
	tool := toMCPTool(entry)
	if tool.Name != "u1__echo" || tool.Description != "echoes input" {
		t.Fatalf("unexpected tool: %+v", tool)
	}
	if len(tool.RawInputSchema) == 0 {
		t.Fatalf("expected a raw input schema to be set")
	}
}
