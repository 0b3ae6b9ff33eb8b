package gateway

import (
	"context"
	"encoding/json"
	"time"

	"mcpgateway/internal/aggregator"
	"mcpgateway/internal/auth"
	"mcpgateway/internal/jsonrpc"
	"mcpgateway/internal/session"
)

// ProtocolVersion is the MCP protocol version the gateway declares during
// initialize. Upstreams negotiate their own version independently; the
// gateway does not have to match it since it never forwards initialize
// itself (each connector performed its own handshake already).
const ProtocolVersion = "2024-11-05"

// dispatchOne runs a single JSON-RPC request against the gateway's own
// method table and returns the response Message to write back, never an
// error: every failure mode becomes a JSON-RPC error response instead, so
// callers can always write exactly one frame per request.
func (s *Server) dispatchOne(ctx context.Context, sess *session.Session, ref auth.Ref, req jsonrpc.Message) jsonrpc.Message {
	started := time.Now()
	var result jsonrpc.Message
	var outcome string

	switch req.Method {
	case "initialize":
		if err := auth.CheckScope(ref, auth.ScopeConnect); err != nil {
			result = jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.CodeAuthenticationFailed, err.Error()))
			outcome = "failure"
			break
		}
		result = s.handleInitialize(req)
		outcome = "success"
	case "tools/list":
		if err := auth.CheckScope(ref, auth.ScopeList); err != nil {
			result = jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.CodeAuthenticationFailed, err.Error()))
			outcome = "failure"
			break
		}
		result = s.handleToolsList(req)
		outcome = "success"
	case "tools/call":
		if err := auth.CheckScope(ref, auth.ScopeCall); err != nil {
			result = jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.CodeAuthenticationFailed, err.Error()))
			outcome = "failure"
			break
		}
		result, outcome = s.handleToolsCall(ctx, sess, req)
	default:
		result, outcome = s.handlePassthrough(ctx, sess, req)
	}

	s.recordToolCallMetric(req.Method, outcome, time.Since(started))
	return result
}

func (s *Server) handleInitialize(req jsonrpc.Message) jsonrpc.Message {
	resp, err := jsonrpc.NewResponse(req.ID, map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{"listChanged": true},
		},
		"serverInfo": map[string]any{
			"name":    "mcpgateway",
			"version": "1",
		},
	})
	if err != nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.CodeInternalError, err.Error()))
	}
	return resp
}

func (s *Server) handleToolsList(req jsonrpc.Message) jsonrpc.Message {
	entries := s.catalog.List()
	tools := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		tools = append(tools, describeEntry(e))
	}
	resp, err := jsonrpc.NewResponse(req.ID, map[string]any{"tools": tools})
	if err != nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.CodeInternalError, err.Error()))
	}
	return resp
}

// describeEntry copies the upstream's tool descriptor, replacing its name
// with the gateway-namespaced one so clients never see the original name.
func describeEntry(e aggregator.Entry) map[string]any {
	out := make(map[string]any, len(e.Descriptor)+1)
	for k, v := range e.Descriptor {
		out[k] = v
	}
	out["name"] = e.GatewayName
	return out
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall implements P2 routing correctness: resolve(g) -> (u, t0),
// then forward a tools/call to upstream u with the original name and the
// caller's arguments untouched, finally rewrapping upstream's result (or
// error) under the client's original request id.
func (s *Server) handleToolsCall(ctx context.Context, sess *session.Session, req jsonrpc.Message) (jsonrpc.Message, string) {
	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "malformed tools/call params")), "failure"
	}

	upstreamID, original, ok := s.catalog.Resolve(params.Name)
	if !ok {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.CodeMethodNotFound, "unknown tool: "+params.Name)), "failure"
	}
	if sess != nil && sess.UpstreamID != "" && sess.UpstreamID != upstreamID {
		// P3 session scoping: a session bound to one upstream endpoint path
		// cannot be used to reach a tool namespaced under another.
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.CodeSessionNotFound, "session not bound to this upstream")), "failure"
	}

	conn, ok := s.registry.Get(upstreamID)
	if !ok {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.CodeServerConnection, "upstream unavailable")), "failure"
	}

	innerParams := map[string]any{"name": original, "arguments": json.RawMessage(params.Arguments)}
	raw, rpcErr, err := conn.SendRequest(ctx, "tools/call", innerParams)
	if err != nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.CodeInternalError, err.Error())), "failure"
	}
	if rpcErr != nil {
		return jsonrpc.NewErrorResponse(req.ID, rpcErr), "failure"
	}
	return jsonrpc.Message{JSONRPC: jsonrpc.Version, ID: req.ID, Result: raw}, "success"
}

// handlePassthrough forwards any method the gateway does not interpret
// itself straight to the session's owning upstream, unmodified. The core
// never interprets tool arguments or other payload shapes beyond routing,
// so a well-behaved upstream exposing resources or prompts works through
// the same session without the gateway needing a dedicated handler per
// method name.
func (s *Server) handlePassthrough(ctx context.Context, sess *session.Session, req jsonrpc.Message) (jsonrpc.Message, string) {
	if sess == nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.CodeSessionNotFound, "no session")), "failure"
	}
	conn, ok := s.registry.Get(sess.UpstreamID)
	if !ok {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.CodeServerConnection, "upstream unavailable")), "failure"
	}
	var params any
	if len(req.Params) > 0 {
		params = json.RawMessage(req.Params)
	} else {
		params = map[string]any{}
	}
	raw, rpcErr, err := conn.SendRequest(ctx, req.Method, params)
	if err != nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.CodeInternalError, err.Error())), "failure"
	}
	if rpcErr != nil {
		return jsonrpc.NewErrorResponse(req.ID, rpcErr), "failure"
	}
	return jsonrpc.Message{JSONRPC: jsonrpc.Version, ID: req.ID, Result: raw}, "success"
}
