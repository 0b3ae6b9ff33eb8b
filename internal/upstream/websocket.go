package upstream

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"mcpgateway/internal/jsonrpc"

	"github.com/gorilla/websocket"
)

// websocketTransport dials params.URL and exchanges one JSON-RPC message per
// WebSocket text frame.
type websocketTransport struct {
	params ConnectionParams

	mu   sync.Mutex
	conn *websocket.Conn

	// writeMu serializes WriteJSON calls: gorilla/websocket panics if more
	// than one goroutine writes to a *websocket.Conn concurrently, and
	// Connector.SendRequest/Forward are called from independent per-request
	// goroutines, so this transport must do its own write serialization.
	writeMu sync.Mutex
}

func newWebSocketTransport(params ConnectionParams) *websocketTransport {
	return &websocketTransport{params: params}
}

func (t *websocketTransport) Open(ctx context.Context) error {
	header := http.Header{}
	for k, v := range t.params.Headers {
		header.Set(k, v)
	}

	dialer := websocket.Dialer{}
	conn, resp, err := dialer.DialContext(ctx, t.params.URL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket transport: dial %s: %w (http %d)", t.params.URL, err, resp.StatusCode)
		}
		return fmt.Errorf("websocket transport: dial %s: %w", t.params.URL, err)
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
	return nil
}

func (t *websocketTransport) Send(ctx context.Context, msg jsonrpc.Message) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("websocket transport: not open")
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

func (t *websocketTransport) Recv(ctx context.Context) (jsonrpc.Message, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return jsonrpc.Message{}, fmt.Errorf("websocket transport: not open")
	}

	var msg jsonrpc.Message
	if err := conn.ReadJSON(&msg); err != nil {
		return jsonrpc.Message{}, err
	}
	return msg, nil
}

func (t *websocketTransport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()
	if conn == nil {
		return nil
	}
	t.writeMu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	t.writeMu.Unlock()
	return conn.Close()
}
