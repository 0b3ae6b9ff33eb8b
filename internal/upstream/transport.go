package upstream

import (
	"context"

	"mcpgateway/internal/jsonrpc"
)

// Transport is the single capability set shared by all four upstream wire
// realizations: open the connection, write one framed JSON-RPC message,
// receive one, close. The Connector is transport-agnostic; it never branches
// on transport kind outside of the constructor that picks one.
type Transport interface {
	// Open establishes the underlying connection. Called once per start().
	Open(ctx context.Context) error
	// Send writes one framed message. Safe to call concurrently with Recv
	// and with other Send calls: the Connector sends from independent
	// per-request goroutines, and each realization serializes its own writes.
	Send(ctx context.Context, msg jsonrpc.Message) error
	// Recv blocks until one framed message arrives or the transport closes
	// (io.EOF-flavored error). The SSE and streamable-HTTP realizations also
	// return when ctx is done; the stdio and websocket realizations do not
	// watch ctx.
	Recv(ctx context.Context) (jsonrpc.Message, error)
	// Close tears down the connection. Idempotent.
	Close() error
}

// NewTransport constructs the Transport realization named by kind.
func NewTransport(kind TransportKind, params ConnectionParams) (Transport, error) {
	switch kind {
	case TransportStdio:
		return newStdioTransport(params), nil
	case TransportWebSocket:
		return newWebSocketTransport(params), nil
	case TransportSSE:
		return newSSETransport(params), nil
	case TransportStreamableHTTP:
		return newStreamableHTTPTransport(params), nil
	default:
		return nil, &UnsupportedTransportError{Kind: kind}
	}
}

// ConnectionParams is the union-typed connection parameter set: standard-stream
// fields are used by TransportStdio, URL/Headers by the three network
// transports.
type ConnectionParams struct {
	Command    string
	Args       []string
	WorkingDir string
	Env        map[string]string

	URL     string
	Headers map[string]string
}

// UnsupportedTransportError is returned by NewTransport for an unknown kind.
type UnsupportedTransportError struct {
	Kind TransportKind
}

func (e *UnsupportedTransportError) Error() string {
	return "unsupported transport: " + string(e.Kind)
}
