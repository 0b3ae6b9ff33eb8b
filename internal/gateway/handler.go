package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"mcpgateway/internal/auth"
	"mcpgateway/internal/jsonrpc"
	"mcpgateway/internal/session"
	"mcpgateway/pkg/logging"

	"github.com/google/uuid"
)

// sessionHeader is the header carrying a session id on every POST/GET/DELETE
// except the initialize POST that mints one.
const sessionHeader = "Mcp-Session-Id"

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	upstreamID := r.PathValue("upstreamId")
	switch r.Method {
	case http.MethodPost:
		s.handlePost(w, r, upstreamID)
	case http.MethodGet:
		s.handleGet(w, r, upstreamID)
	case http.MethodDelete:
		s.handleDelete(w, r, upstreamID)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request, upstreamID string) {
	started := time.Now()
	ref, authErr := s.authr.Authenticate(r.Header)
	if authErr != nil {
		s.writeAuthError(w, r, upstreamID, "", authErr, started)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 16<<20))
	if err != nil {
		s.writeJSONRPCError(w, nil, jsonrpc.NewError(jsonrpc.CodeParseError, "failed to read body"), 400)
		return
	}
	messages, err := jsonrpc.DecodeBody(body)
	if err != nil {
		s.writeJSONRPCError(w, nil, jsonrpc.NewError(jsonrpc.CodeParseError, "malformed json-rpc body"), 400)
		return
	}

	requests := make([]jsonrpc.Message, 0, len(messages))
	others := make([]jsonrpc.Message, 0, len(messages))
	for _, m := range messages {
		if m.IsRequest() {
			requests = append(requests, m)
		} else {
			others = append(others, m)
		}
	}

	// Case 1: only notifications and/or responses in the batch.
	if len(requests) == 0 {
		sess, sessErr := s.requireSession(r, upstreamID)
		if sessErr != nil {
			s.writeJSONRPCError(w, nil, sessErr, httpStatusForCode(sessErr.Code))
			return
		}
		conn, ok := s.registry.Get(upstreamID)
		if ok {
			for _, m := range others {
				_ = conn.Forward(r.Context(), m)
			}
		}
		_ = sess
		w.WriteHeader(http.StatusAccepted)
		s.recordTraffic(r, upstreamID, "", ref, "", len(body), 0, 202, true, "", started)
		return
	}

	isInit := requests[0].Method == "initialize"

	var sess *session.Session
	if isInit {
		newSess, err := s.sessions.Create(upstreamID, ref.ID)
		if err != nil {
			s.writeJSONRPCError(w, requests[0].ID, jsonrpc.NewError(jsonrpc.CodeMaxSessions, err.Error()), 503)
			return
		}
		sess = newSess
	} else {
		found, sessErr := s.requireSession(r, upstreamID)
		if sessErr != nil {
			s.writeJSONRPCError(w, requests[0].ID, sessErr, httpStatusForCode(sessErr.Code))
			return
		}
		sess = found
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	if isInit {
		w.Header().Set(sessionHeader, sess.ID)
	}
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	stream := newResponseStream(w)
	streamID := requestStreamID(r)
	sess.RegisterResponseStream(streamID, stream)
	defer sess.UnregisterResponseStream(streamID)
	defer stream.Close()

	ctx := r.Context()
	for _, req := range requests {
		reqStarted := time.Now()
		resp := s.dispatchOne(ctx, sess, ref, req)
		success := resp.Error == nil
		errMsg := ""
		if resp.Error != nil {
			errMsg = resp.Error.Message
		}

		data, err := json.Marshal(resp)
		if err != nil {
			logging.Error("Gateway", err, "failed to marshal response for request %s", string(req.ID))
			s.recordTrafficWithID(r, upstreamID, sess.ID, rawMessageID(req.ID), ref, req.Method, len(req.Params), 0, 200, false, err.Error(), reqStarted)
			continue
		}

		s.recordTrafficWithID(r, upstreamID, sess.ID, rawMessageID(req.ID), ref, req.Method, len(req.Params), len(data), 200, success, errMsg, reqStarted)

		if err := stream.Send(data); err != nil {
			logging.Warn("Gateway", "failed writing response frame: %v", err)
			break
		}
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, upstreamID string) {
	if r.Header.Get("Accept") != "text/event-stream" {
		http.Error(w, "Accept header must be text/event-stream", http.StatusNotAcceptable)
		return
	}
	ref, authErr := s.authr.Authenticate(r.Header)
	if authErr != nil {
		s.writeAuthError(w, r, upstreamID, "", authErr, time.Now())
		return
	}

	sess, sessErr := s.requireSession(r, upstreamID)
	if sessErr != nil {
		s.writeJSONRPCError(w, nil, sessErr, httpStatusForCode(sessErr.Code))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	stream := newPushStream(w)
	sess.SetPushStream(stream)
	_ = stream.SendComment("background stream open")

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			sess.ClearPushStream(stream)
			stream.Close()
			s.recordTraffic(r, upstreamID, sess.ID, ref, "stream", 0, 0, 200, true, "", time.Now())
			return
		case <-ticker.C:
			if err := stream.SendComment("keepalive"); err != nil {
				sess.ClearPushStream(stream)
				return
			}
		}
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, upstreamID string) {
	ref, authErr := s.authr.Authenticate(r.Header)
	if authErr != nil {
		s.writeAuthError(w, r, upstreamID, "", authErr, time.Now())
		return
	}
	sess, sessErr := s.requireSession(r, upstreamID)
	if sessErr != nil {
		s.writeJSONRPCError(w, nil, sessErr, httpStatusForCode(sessErr.Code))
		return
	}
	s.sessions.Delete(sess.ID)
	w.WriteHeader(http.StatusNoContent)
	s.recordTraffic(r, upstreamID, sess.ID, ref, "delete", 0, 0, 204, true, "", time.Now())
}

// requireSession resolves the caller's session id from the header, falling
// back to the mcpSessionId query parameter for every method, and verifies it
// belongs to upstreamID (P3 session scoping).
func (s *Server) requireSession(r *http.Request, upstreamID string) (*session.Session, *jsonrpc.Error) {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		id = r.URL.Query().Get("mcpSessionId")
	}
	if id == "" {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidSessionID, "missing "+sessionHeader)
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, jsonrpc.NewError(jsonrpc.CodeSessionNotFound, "session not found")
	}
	if sess.UpstreamID != upstreamID {
		return nil, jsonrpc.NewError(jsonrpc.CodeSessionNotFound, "session not found")
	}
	return sess, nil
}

func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, upstreamID, sessionID string, err error, started time.Time) {
	var rpcErr *jsonrpc.Error
	switch err.(type) {
	case *auth.UnauthenticatedError:
		rpcErr = jsonrpc.NewError(jsonrpc.CodeUnauthenticated, err.Error())
	default:
		rpcErr = jsonrpc.NewError(jsonrpc.CodeAuthenticationFailed, err.Error())
	}
	status := httpStatusForCode(rpcErr.Code)
	s.writeJSONRPCError(w, nil, rpcErr, status)
	s.recordTraffic(r, upstreamID, sessionID, auth.Ref{}, "", 0, 0, status, false, rpcErr.Message, started)
}

func (s *Server) writeJSONRPCError(w http.ResponseWriter, id json.RawMessage, rpcErr *jsonrpc.Error, status int) {
	resp := jsonrpc.NewErrorResponse(id, rpcErr)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) recordTraffic(r *http.Request, upstreamID, sessionID string, ref auth.Ref, method string, reqSize, respSize, httpStatus int, success bool, errMsg string, started time.Time) {
	s.recordTrafficWithID(r, upstreamID, sessionID, "", ref, method, reqSize, respSize, httpStatus, success, errMsg, started)
}

func (s *Server) recordTrafficWithID(r *http.Request, upstreamID, sessionID, requestID string, ref auth.Ref, method string, reqSize, respSize, httpStatus int, success bool, errMsg string, started time.Time) {
	s.audit.Record(auth.TrafficRecord{
		UpstreamID:        upstreamID,
		SessionID:         sessionID,
		RequestID:         requestID,
		MCPMethod:         method,
		APIKeyID:          ref.ID,
		SourceIP:          sourceIP(r),
		RequestSizeBytes:  reqSize,
		ResponseSizeBytes: respSize,
		HTTPStatus:        httpStatus,
		IsSuccess:         success,
		DurationMS:        time.Since(started).Milliseconds(),
		ErrorMessage:      errMsg,
		Timestamp:         started,
	})
}

// rawMessageID renders a JSON-RPC id field as a plain string for audit
// storage, stripping the quoting json.RawMessage carries for string ids.
func rawMessageID(id json.RawMessage) string {
	if len(id) == 0 {
		return ""
	}
	s := string(id)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func sourceIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}

// requestStreamID gives each POST its own identifier for registering and
// later deregistering its response stream on the session.
func requestStreamID(r *http.Request) string {
	return uuid.NewString()
}
