package session

import (
	"sync"
	"time"
)

// PushSink is the gateway-endpoint side of one open SSE connection: a
// session writes frames into it without knowing whether it is the one
// background push stream or a POST response stream. Implementations must be
// safe to Close twice.
type PushSink interface {
	Send(data []byte) error
	Close() error
}

// Session is one client's registration with the gateway. ExclusionLock is a
// per-session mutex available to callers that need to serialize work on one
// session without blocking unrelated sessions; nothing in the gateway takes
// it. The session's own fields are guarded by its internal mutex.
type Session struct {
	ID         string
	UpstreamID string
	APIKeyID   string
	CreatedAt  time.Time

	mu             sync.Mutex
	lastActivity   time.Time
	pushStream     PushSink
	responseStream map[string]PushSink

	ExclusionLock sync.Mutex
}

func newSession(id, upstreamID, apiKeyID string) *Session {
	now := time.Now()
	return &Session{
		ID:             id,
		UpstreamID:     upstreamID,
		APIKeyID:       apiKeyID,
		CreatedAt:      now,
		lastActivity:   now,
		responseStream: make(map[string]PushSink),
	}
}

// Touch refreshes the session's idle timer.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// SetPushStream installs sink as the session's single background push
// stream, closing and replacing any prior one (a client that reconnects its
// GET stream supersedes the old connection rather than fighting it for
// writes).
func (s *Session) SetPushStream(sink PushSink) {
	s.mu.Lock()
	old := s.pushStream
	s.pushStream = sink
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

// ClearPushStream removes the push stream if it is still sink, e.g. when the
// underlying connection's handler goroutine returns.
func (s *Session) ClearPushStream(sink PushSink) {
	s.mu.Lock()
	if s.pushStream == sink {
		s.pushStream = nil
	}
	s.mu.Unlock()
}

// PushStream returns the current background push stream, or nil if the
// client has none open.
func (s *Session) PushStream() PushSink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushStream
}

// RegisterResponseStream tracks one in-flight POST's SSE response stream
// under streamID so it can be located and torn down, e.g. on session delete.
func (s *Session) RegisterResponseStream(streamID string, sink PushSink) {
	s.mu.Lock()
	s.responseStream[streamID] = sink
	s.mu.Unlock()
}

// UnregisterResponseStream drops the tracked response stream for streamID.
func (s *Session) UnregisterResponseStream(streamID string) {
	s.mu.Lock()
	delete(s.responseStream, streamID)
	s.mu.Unlock()
}

// closeAllStreams closes every stream the session is tracking, used on
// deletion and idle expiry.
func (s *Session) closeAllStreams() {
	s.mu.Lock()
	push := s.pushStream
	s.pushStream = nil
	streams := s.responseStream
	s.responseStream = make(map[string]PushSink)
	s.mu.Unlock()

	if push != nil {
		push.Close()
	}
	for _, sink := range streams {
		sink.Close()
	}
}

// now is a seam for tests; production code always uses time.Now.
var now = time.Now
