package upstream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"mcpgateway/internal/jsonrpc"
	"mcpgateway/pkg/logging"
)

// streamableHTTPTransport implements the MCP "streamable HTTP" transport: each
// outbound message is a POST to params.URL. The response is either a single
// JSON-RPC message (application/json) or a short-lived SSE stream
// (text/event-stream) carrying one or more messages produced while the
// upstream handled that request. A session id handed back on the first
// response is replayed on every later request, per the transport's session
// resumption convention.
type streamableHTTPTransport struct {
	params ConnectionParams

	client *http.Client

	mu        sync.Mutex
	sessionID string

	msgCh chan jsonrpc.Message
}

func newStreamableHTTPTransport(params ConnectionParams) *streamableHTTPTransport {
	return &streamableHTTPTransport{
		params: params,
		client: &http.Client{},
		msgCh:  make(chan jsonrpc.Message, 256),
	}
}

func (t *streamableHTTPTransport) Open(ctx context.Context) error {
	return nil
}

func (t *streamableHTTPTransport) Send(ctx context.Context, msg jsonrpc.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.params.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	for k, v := range t.params.Headers {
		req.Header.Set(k, v)
	}
	if sid := t.currentSessionID(); sid != "" {
		req.Header.Set("Mcp-Session-Id", sid)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("streamable-http transport: post %s: %w", t.params.URL, err)
	}
	defer resp.Body.Close()

	if sid := resp.Header.Get("Mcp-Session-Id"); sid != "" {
		t.setSessionID(sid)
	}

	if resp.StatusCode == http.StatusAccepted {
		return nil
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("streamable-http transport: post to %s returned %d", t.params.URL, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "text/event-stream"):
		return t.consumeSSEBody(resp.Body)
	default:
		return t.consumeJSONBody(resp.Body)
	}
}

func (t *streamableHTTPTransport) consumeJSONBody(body interface{ Read([]byte) (int, error) }) error {
	var msg jsonrpc.Message
	if err := json.NewDecoder(body).Decode(&msg); err != nil {
		return fmt.Errorf("streamable-http transport: decode response: %w", err)
	}
	t.deliver(msg)
	return nil
}

// consumeSSEBody reads one short-lived event stream to completion, delivering
// every "message" event it carries. The stream ends when the upstream closes
// the response body, which is what ends this POST's request/response cycle.
func (t *streamableHTTPTransport) consumeSSEBody(body interface{ Read([]byte) (int, error) }) error {
	reader := bufio.NewReader(body)
	var eventName string
	var dataBuf bytes.Buffer

	dispatch := func() {
		defer func() { eventName = ""; dataBuf.Reset() }()
		data := dataBuf.String()
		if data == "" {
			return
		}
		if eventName != "" && eventName != "message" {
			return
		}
		var msg jsonrpc.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			logging.Warn("UpstreamStreamableHTTP", "discarding malformed frame: %v", err)
			return
		}
		t.deliver(msg)
	}

	for {
		line, err := reader.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")
		switch {
		case strings.HasPrefix(trimmed, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(trimmed, "event:"))
		case strings.HasPrefix(trimmed, "data:"):
			dataBuf.WriteString(strings.TrimSpace(strings.TrimPrefix(trimmed, "data:")))
		case trimmed == "":
			dispatch()
		}
		if err != nil {
			return nil
		}
	}
}

func (t *streamableHTTPTransport) deliver(msg jsonrpc.Message) {
	select {
	case t.msgCh <- msg:
	default:
		logging.Warn("UpstreamStreamableHTTP", "recv queue full, dropping frame")
	}
}

func (t *streamableHTTPTransport) Recv(ctx context.Context) (jsonrpc.Message, error) {
	select {
	case msg := <-t.msgCh:
		return msg, nil
	case <-ctx.Done():
		return jsonrpc.Message{}, ctx.Err()
	}
}

func (t *streamableHTTPTransport) Close() error {
	return nil
}

func (t *streamableHTTPTransport) currentSessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

func (t *streamableHTTPTransport) setSessionID(sid string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessionID = sid
}
