package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"mcpgateway/internal/aggregator"
	"mcpgateway/internal/auth"
	"mcpgateway/internal/jsonrpc"
	"mcpgateway/internal/session"
	"mcpgateway/internal/upstream"
)

func newTestServer() *Server {
	registry := upstream.NewRegistry(upstream.RegistryEvents{})
	catalog := aggregator.NewCatalog()
	sessions := session.NewStore(time.Hour, time.Hour, 0)
	authr := auth.NewAuthenticator(nil, true)
	return NewServer(registry, catalog, sessions, authr, nil, nil)
}

func TestDispatchInitializeSucceeds(t *testing.T) {
	s := newTestServer()
	defer s.sessions.Stop()

	req := jsonrpc.Message{JSONRPC: jsonrpc.Version, ID: json.RawMessage(`1`), Method: "initialize"}
	resp := s.dispatchOne(context.Background(), nil, auth.Ref{}, req)
	if resp.Error != nil {
		t.Fatalf("expected success, got error %+v", resp.Error)
	}
}

func TestDispatchToolsListReflectsCatalog(t *testing.T) {
	s := newTestServer()
	defer s.sessions.Stop()

	s.catalog.SetUpstream("u1", "u1", []upstream.ToolDescriptor{
		{UpstreamID: "u1", Name: "echo", Descriptor: map[string]any{"name": "echo", "description": "echoes input"}},
	})

	req := jsonrpc.Message{JSONRPC: jsonrpc.Version, ID: json.RawMessage(`2`), Method: "tools/list"}
	resp := s.dispatchOne(context.Background(), nil, auth.Ref{}, req)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	var payload struct {
		Tools []map[string]any `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &payload); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(payload.Tools) != 1 || payload.Tools[0]["name"] != "u1__echo" {
		t.Fatalf("expected one namespaced tool, got %+v", payload.Tools)
	}
}

func TestDispatchToolsCallUnknownToolFails(t *testing.T) {
	s := newTestServer()
	defer s.sessions.Stop()

	req := jsonrpc.Message{
		JSONRPC: jsonrpc.Version, ID: json.RawMessage(`3`), Method: "tools/call",
		Params: json.RawMessage(`{"name":"nope","arguments":{}}`),
	}
	resp := s.dispatchOne(context.Background(), nil, auth.Ref{}, req)
	if resp.Error == nil || resp.Error.Code != jsonrpc.CodeMethodNotFound {
		t.Fatalf("expected CodeMethodNotFound, got %+v", resp.Error)
	}
}

func TestDispatchToolsCallRejectsCrossUpstreamSession(t *testing.T) {
	s := newTestServer()
	defer s.sessions.Stop()

	s.catalog.SetUpstream("u2", "u2", []upstream.ToolDescriptor{
		{UpstreamID: "u2", Name: "echo", Descriptor: map[string]any{"name": "echo"}},
	})
	sess, err := s.sessions.Create("u1", "key1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	req := jsonrpc.Message{
		JSONRPC: jsonrpc.Version, ID: json.RawMessage(`4`), Method: "tools/call",
		Params: json.RawMessage(`{"name":"u2__echo","arguments":{}}`),
	}
	resp := s.dispatchOne(context.Background(), sess, auth.Ref{}, req)
	if resp.Error == nil || resp.Error.Code != jsonrpc.CodeSessionNotFound {
		t.Fatalf("expected P3 session scoping rejection, got %+v", resp.Error)
	}
}
