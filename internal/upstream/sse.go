package upstream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"mcpgateway/internal/jsonrpc"
	"mcpgateway/pkg/logging"
)

// sseTransport implements the classic two-legged MCP SSE client transport:
// a persistent GET request receives an initial "endpoint" event naming the
// URL to POST messages to, then a stream of "message" events each carrying
// one JSON-RPC frame. Send issues one POST per outbound message; Recv serves
// frames decoded off the GET stream by a background reader.
type sseTransport struct {
	params ConnectionParams

	client *http.Client

	mu          sync.Mutex
	endpointURL string
	endpointSet chan struct{}
	msgCh       chan jsonrpc.Message
	errCh       chan error
	closeOnce   sync.Once
	cancel      context.CancelFunc
	body        interface{ Close() error }
}

func newSSETransport(params ConnectionParams) *sseTransport {
	return &sseTransport{
		params:      params,
		client:      &http.Client{},
		endpointSet: make(chan struct{}),
		msgCh:       make(chan jsonrpc.Message, 256),
		errCh:       make(chan error, 1),
	}
}

func (t *sseTransport) Open(ctx context.Context) error {
	streamCtx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, t.params.URL, nil)
	if err != nil {
		cancel()
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	for k, v := range t.params.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		cancel()
		return fmt.Errorf("sse transport: connect %s: %w", t.params.URL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("sse transport: unexpected status %d from %s", resp.StatusCode, t.params.URL)
	}

	t.body = resp.Body
	go t.readLoop(resp.Body)

	select {
	case <-t.endpointSet:
	case <-time.After(10 * time.Second):
		return fmt.Errorf("sse transport: timed out waiting for endpoint event from %s", t.params.URL)
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (t *sseTransport) readLoop(body interface{ Read([]byte) (int, error) }) {
	reader := bufio.NewReader(body)
	var eventName string
	var dataBuf bytes.Buffer

	dispatch := func() {
		defer func() { eventName = ""; dataBuf.Reset() }()
		data := dataBuf.String()
		if data == "" {
			return
		}
		switch eventName {
		case "endpoint":
			t.setEndpoint(data)
		case "message", "":
			var msg jsonrpc.Message
			if err := json.Unmarshal([]byte(data), &msg); err != nil {
				logging.Warn("UpstreamSSE", "discarding malformed frame: %v", err)
				return
			}
			select {
			case t.msgCh <- msg:
			default:
				logging.Warn("UpstreamSSE", "recv queue full, dropping frame")
			}
		}
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
			select {
			case t.errCh <- err:
			default:
			}
			return
		}
	}
}

func (t *sseTransport) setEndpoint(raw string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.endpointURL != "" {
		return
	}
	resolved := raw
	if base, err := url.Parse(t.params.URL); err == nil {
		if ref, err := url.Parse(raw); err == nil {
			resolved = base.ResolveReference(ref).String()
		}
	}
	t.endpointURL = resolved
	close(t.endpointSet)
}

func (t *sseTransport) Send(ctx context.Context, msg jsonrpc.Message) error {
	t.mu.Lock()
	endpoint := t.endpointURL
	t.mu.Unlock()
	if endpoint == "" {
		return fmt.Errorf("sse transport: no endpoint established")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range t.params.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sse transport: post to %s returned %d", endpoint, resp.StatusCode)
	}
	return nil
}

func (t *sseTransport) Recv(ctx context.Context) (jsonrpc.Message, error) {
	select {
	case msg := <-t.msgCh:
		return msg, nil
	case err := <-t.errCh:
		return jsonrpc.Message{}, err
	case <-ctx.Done():
		return jsonrpc.Message{}, ctx.Err()
	}
}

func (t *sseTransport) Close() error {
	t.closeOnce.Do(func() {
		if t.cancel != nil {
			t.cancel()
		}
		if t.body != nil {
			t.body.Close()
		}
	})
	return nil
}
