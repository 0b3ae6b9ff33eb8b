package upstream

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"sync"
	"time"

	"mcpgateway/internal/jsonrpc"
	"mcpgateway/pkg/logging"
)

// Events is the set of callbacks a Connector fires as its lifecycle and
// catalog change. The registry (C2) wires these into the aggregator and
// gateway so tool changes and upstream pushes propagate without the
// connector knowing anything about its consumers.
type Events struct {
	OnStatusChange func(upstreamID string, state State)
	OnToolsChanged func(upstreamID string, tools []ToolDescriptor)
	OnPush         func(upstreamID string, msg jsonrpc.Message)
}

// Connector owns one upstream's transport and drives it through the
// stopped -> starting -> running -> {reconnecting|error|stopping} -> stopped
// lifecycle, performing the MCP initialize handshake itself as an ordinary
// request/response exchange over whatever Transport it was given.
type Connector struct {
	def    Definition
	events Events

	mu        sync.Mutex
	state     State
	transport Transport
	tools     []ToolDescriptor
	stopCh    chan struct{}
	stopping  bool

	reqMu   sync.Mutex
	nextID  int64
	pending map[string]chan jsonrpc.Message
}

// NewConnector builds a Connector for def. It does not start the transport;
// call Start for that.
func NewConnector(def Definition, events Events) *Connector {
	return &Connector{
		def:     def,
		events:  events,
		state:   StateStopped,
		pending: make(map[string]chan jsonrpc.Message),
	}
}

func (c *Connector) ID() string { return c.def.ID }

func (c *Connector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connector) Tools() []ToolDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ToolDescriptor, len(c.tools))
	copy(out, c.tools)
	return out
}

func (c *Connector) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	if c.events.OnStatusChange != nil {
		c.events.OnStatusChange(c.def.ID, s)
	}
}

// Start opens the transport, performs the initialize handshake, fetches the
// initial tool list, and begins the background receive loop. It blocks until
// the connector is running or the first attempt definitively fails; retries
// after that happen in the background via the reconnect loop.
func (c *Connector) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateStopped {
		c.mu.Unlock()
		return fmt.Errorf("connector %s: already started", c.def.ID)
	}
	c.stopCh = make(chan struct{})
	c.stopping = false
	c.mu.Unlock()

	c.setState(StateStarting)

	connectCtx := ctx
	if c.def.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, c.def.ConnectTimeout)
		defer cancel()
	}

	if err := c.connectOnce(connectCtx); err != nil {
		c.setState(StateError)
		go c.reconnectLoop()
		return err
	}

	c.setState(StateRunning)
	go c.readLoop()
	return nil
}

// connectOnce opens a fresh transport and runs the MCP handshake plus an
// initial tools/list. Callers set the resulting state themselves.
func (c *Connector) connectOnce(ctx context.Context) error {
	transport, err := NewTransport(c.def.Type, c.def.Params)
	if err != nil {
		return err
	}
	if err := transport.Open(ctx); err != nil {
		return fmt.Errorf("connector %s: open: %w", c.def.ID, err)
	}

	c.mu.Lock()
	c.transport = transport
	c.mu.Unlock()

	if err := c.handshake(ctx, transport); err != nil {
		transport.Close()
		return fmt.Errorf("connector %s: handshake: %w", c.def.ID, err)
	}

	tools, err := c.fetchTools(ctx, transport)
	if err != nil {
		logging.Warn("UpstreamConnector", "%s: initial tools/list failed: %v", c.def.ID, err)
		tools = nil
	}
	c.mu.Lock()
	c.tools = tools
	c.mu.Unlock()
	if c.events.OnToolsChanged != nil {
		c.events.OnToolsChanged(c.def.ID, tools)
	}

	return nil
}

func (c *Connector) handshake(ctx context.Context, transport Transport) error {
	initID := c.newRequestID()
	req, err := jsonrpc.NewRequest(json.RawMessage(initID), "initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    "mcpgateway",
			"version": "1",
		},
	})
	if err != nil {
		return err
	}
	if err := transport.Send(ctx, req); err != nil {
		return err
	}
	resp, err := c.awaitOnTransport(ctx, transport, initID)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("initialize rejected: %s", resp.Error.Message)
	}

	notif, err := jsonrpc.NewNotification("notifications/initialized", map[string]any{})
	if err != nil {
		return err
	}
	return transport.Send(ctx, notif)
}

func (c *Connector) fetchTools(ctx context.Context, transport Transport) ([]ToolDescriptor, error) {
	id := c.newRequestID()
	req, err := jsonrpc.NewRequest(json.RawMessage(id), "tools/list", map[string]any{})
	if err != nil {
		return nil, err
	}
	if err := transport.Send(ctx, req); err != nil {
		return nil, err
	}
	resp, err := c.awaitOnTransport(ctx, transport, id)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("tools/list rejected: %s", resp.Error.Message)
	}

	var payload struct {
		Tools []map[string]any `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &payload); err != nil {
		return nil, err
	}
	out := make([]ToolDescriptor, 0, len(payload.Tools))
	for _, tool := range payload.Tools {
		name, _ := tool["name"].(string)
		if name == "" {
			continue
		}
		out = append(out, ToolDescriptor{UpstreamID: c.def.ID, Name: name, Descriptor: tool})
	}
	return out, nil
}

// awaitOnTransport is used only during connectOnce/handshake, before the
// background readLoop exists to service c.pending. It reads directly off the
// transport until the expected id arrives.
func (c *Connector) awaitOnTransport(ctx context.Context, transport Transport, id string) (jsonrpc.Message, error) {
	for {
		msg, err := transport.Recv(ctx)
		if err != nil {
			return jsonrpc.Message{}, err
		}
		if msg.IsResponse() && string(msg.ID) == id {
			return msg, nil
		}
	}
}

// readLoop services the transport once the connector is running, dispatching
// responses to waiting SendRequest callers and notifications to the push
// callback. It runs until the transport errors or Stop closes stopCh.
func (c *Connector) readLoop() {
	for {
		c.mu.Lock()
		transport := c.transport
		c.mu.Unlock()
		if transport == nil {
			return
		}

		msg, err := transport.Recv(context.Background())
		if err != nil {
			c.mu.Lock()
			stopping := c.stopping
			c.mu.Unlock()
			if stopping {
				return
			}
			logging.Warn("UpstreamConnector", "%s: transport error: %v", c.def.ID, err)
			c.setState(StateReconnecting)
			go c.reconnectLoop()
			return
		}

		switch {
		case msg.IsResponse():
			c.deliverResponse(msg)
		case msg.IsNotification():
			if c.events.OnPush != nil {
				c.events.OnPush(c.def.ID, msg)
			}
			if msg.Method == "notifications/tools/list_changed" {
				// refreshTools waits on a response that only this loop
				// delivers, so it must not run on this goroutine.
				go c.refreshTools()
			}
		case msg.IsRequest():
			// A request-shaped frame from the upstream that does not
			// correlate to anything we sent (e.g. sampling/roots) is still
			// a push: surface it the same way as a notification.
			if c.events.OnPush != nil {
				c.events.OnPush(c.def.ID, msg)
			}
		}
	}
}

func (c *Connector) refreshTools() {
	c.mu.Lock()
	transport := c.transport
	c.mu.Unlock()
	if transport == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout())
	defer cancel()
	tools, err := c.fetchToolsViaRequest(ctx)
	if err != nil {
		logging.Warn("UpstreamConnector", "%s: tools refresh failed: %v", c.def.ID, err)
		return
	}
	c.mu.Lock()
	c.tools = tools
	c.mu.Unlock()
	if c.events.OnToolsChanged != nil {
		c.events.OnToolsChanged(c.def.ID, tools)
	}
}

func (c *Connector) fetchToolsViaRequest(ctx context.Context) ([]ToolDescriptor, error) {
	raw, rpcErr, err := c.SendRequest(ctx, "tools/list", map[string]any{})
	if err != nil {
		return nil, err
	}
	if rpcErr != nil {
		return nil, fmt.Errorf("tools/list rejected: %s", rpcErr.Message)
	}
	var payload struct {
		Tools []map[string]any `json:"tools"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	out := make([]ToolDescriptor, 0, len(payload.Tools))
	for _, tool := range payload.Tools {
		name, _ := tool["name"].(string)
		if name == "" {
			continue
		}
		out = append(out, ToolDescriptor{UpstreamID: c.def.ID, Name: name, Descriptor: tool})
	}
	return out, nil
}

func (c *Connector) deliverResponse(msg jsonrpc.Message) {
	key := string(msg.ID)
	c.reqMu.Lock()
	ch, ok := c.pending[key]
	if ok {
		delete(c.pending, key)
	}
	c.reqMu.Unlock()
	if !ok {
		return
	}
	ch <- msg
}

// Forward writes msg (a notification or a response the client is sending
// back upstream, e.g. in reply to a server-initiated request) without
// waiting for anything further. It is the fire-and-forget path POST
// handling uses for batch elements that carry no request of their own.
func (c *Connector) Forward(ctx context.Context, msg jsonrpc.Message) error {
	c.mu.Lock()
	state := c.state
	transport := c.transport
	c.mu.Unlock()
	if state != StateRunning || transport == nil {
		return fmt.Errorf("connector %s: not ready", c.def.ID)
	}
	return transport.Send(ctx, msg)
}

// SendRequest forwards method/params to the upstream and waits for the
// matching response, or CODE_REQUEST_TIMEOUT if none arrives in time, or
// CODE_SERVER_UNAVAILABLE if the connector is not currently running.
func (c *Connector) SendRequest(ctx context.Context, method string, params any) (json.RawMessage, *jsonrpc.Error, error) {
	c.mu.Lock()
	state := c.state
	transport := c.transport
	c.mu.Unlock()

	if state != StateRunning || transport == nil {
		return nil, jsonrpc.NewError(jsonrpc.CodeServerUnavailable, fmt.Sprintf("upstream %s is not ready", c.def.ID)), nil
	}

	id := c.newRequestID()
	req, err := jsonrpc.NewRequest(json.RawMessage(id), method, params)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan jsonrpc.Message, 1)
	c.reqMu.Lock()
	c.pending[id] = ch
	c.reqMu.Unlock()

	reqCtx := ctx
	var cancel context.CancelFunc
	if c.requestTimeout() > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, c.requestTimeout())
		defer cancel()
	}

	if err := transport.Send(reqCtx, req); err != nil {
		c.reqMu.Lock()
		delete(c.pending, id)
		c.reqMu.Unlock()
		return nil, jsonrpc.NewError(jsonrpc.CodeServerSend, err.Error()), nil
	}

	select {
	case resp := <-ch:
		return resp.Result, resp.Error, nil
	case <-reqCtx.Done():
		c.reqMu.Lock()
		delete(c.pending, id)
		c.reqMu.Unlock()
		return nil, jsonrpc.NewError(jsonrpc.CodeRequestTimeout, fmt.Sprintf("upstream %s timed out", c.def.ID)), nil
	}
}

func (c *Connector) requestTimeout() time.Duration {
	if c.def.RequestTimeout > 0 {
		return c.def.RequestTimeout
	}
	return 30 * time.Second
}

// reconnectLoop retries connectOnce with exponential backoff and jitter,
// giving up and settling into StateError after MaxReconnectTries attempts.
func (c *Connector) reconnectLoop() {
	delay := BackoffBase
	for attempt := 1; attempt <= MaxReconnectTries; attempt++ {
		c.mu.Lock()
		stopping := c.stopping
		stopCh := c.stopCh
		c.mu.Unlock()
		if stopping {
			return
		}

		jitter := randJitter(BackoffMaxJitter)
		select {
		case <-time.After(delay + jitter):
		case <-stopCh:
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout())
		err := c.connectOnce(ctx)
		cancel()
		if err == nil {
			c.setState(StateRunning)
			go c.readLoop()
			return
		}
		logging.Warn("UpstreamConnector", "%s: reconnect attempt %d/%d failed: %v", c.def.ID, attempt, MaxReconnectTries, err)

		delay = time.Duration(math.Min(float64(delay*BackoffFactor), float64(BackoffCap)))
	}
	c.setState(StateError)
}

// Stop tears down the transport and fails any in-flight requests with
// CODE_SERVER_UNAVAILABLE. It is idempotent.
func (c *Connector) Stop() {
	c.mu.Lock()
	if c.state == StateStopped {
		c.mu.Unlock()
		return
	}
	c.stopping = true
	transport := c.transport
	stopCh := c.stopCh
	c.transport = nil
	c.mu.Unlock()

	c.setState(StateStopping)

	if stopCh != nil {
		close(stopCh)
	}
	if transport != nil {
		transport.Close()
	}

	c.reqMu.Lock()
	for id, ch := range c.pending {
		ch <- jsonrpc.NewErrorResponse(json.RawMessage(id), jsonrpc.NewError(jsonrpc.CodeServerUnavailable, "upstream stopped"))
		delete(c.pending, id)
	}
	c.reqMu.Unlock()

	c.setState(StateStopped)
}

func (c *Connector) newRequestID() string {
	c.reqMu.Lock()
	c.nextID++
	id := c.nextID
	c.reqMu.Unlock()
	return fmt.Sprintf("%d", id)
}

func randJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}
