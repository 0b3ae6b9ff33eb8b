package upstream

import (
	"context"
	"testing"
	"time"

	"mcpgateway/internal/jsonrpc"
)

func TestSendRequestBeforeStartReturnsServerUnavailable(t *testing.T) {
	c := NewConnector(Definition{ID: "u1", Type: TransportStdio}, Events{})

	_, rpcErr, err := c.SendRequest(context.Background(), "tools/call", map[string]any{})
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if rpcErr == nil || rpcErr.Code != jsonrpc.CodeServerUnavailable {
		t.Fatalf("expected CODE_SERVER_UNAVAILABLE, got %+v", rpcErr)
	}
}

func TestForwardBeforeStartReturnsError(t *testing.T) {
	c := NewConnector(Definition{ID: "u1", Type: TransportStdio}, Events{})
	notif, err := jsonrpc.NewNotification("notifications/initialized", map[string]any{})
	if err != nil {
		t.Fatalf("NewNotification: %v", err)
	}
	if err := c.Forward(context.Background(), notif); err == nil {
		t.Fatal("expected error forwarding on a stopped connector")
	}
}

func TestRequestTimeoutDefaultsTo30s(t *testing.T) {
	c := NewConnector(Definition{ID: "u1", Type: TransportStdio}, Events{})
	if got := c.requestTimeout(); got != 30*time.Second {
		t.Fatalf("expected default 30s timeout, got %v", got)
	}
	c2 := NewConnector(Definition{ID: "u2", Type: TransportStdio, RequestTimeout: 5 * time.Second}, Events{})
	if got := c2.requestTimeout(); got != 5*time.Second {
		t.Fatalf("expected overridden 5s timeout, got %v", got)
	}
}

func TestNewRequestIDIncrements(t *testing.T) {
	c := NewConnector(Definition{ID: "u1", Type: TransportStdio}, Events{})
	first := c.newRequestID()
	second := c.newRequestID()
	if first == second {
		t.Fatalf("expected distinct ids, got %q twice", first)
	}
}

func TestStopOnNeverStartedConnectorIsNoop(t *testing.T) {
	c := NewConnector(Definition{ID: "u1", Type: TransportStdio}, Events{})
	c.Stop()
	if c.State() != StateStopped {
		t.Fatalf("expected StateStopped, got %v", c.State())
	}
}
