package session

import (
	"sync"
	"time"

	"mcpgateway/pkg/logging"
)

// DefaultMaxSessions caps concurrent sessions so a client cannot exhaust
// memory by opening an unbounded number of them.
const DefaultMaxSessions = 10000

// Store is C4: the registry of live sessions, their idle timers, and the
// background sweep that expires them.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	idleTimeout     time.Duration
	cleanupInterval time.Duration
	maxSessions     int

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewStore creates a Store and starts its background cleanup sweep.
// Callers must call Stop when the gateway shuts down.
func NewStore(idleTimeout, cleanupInterval time.Duration, maxSessions int) *Store {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	st := &Store{
		sessions:        make(map[string]*Session),
		idleTimeout:     idleTimeout,
		cleanupInterval: cleanupInterval,
		maxSessions:     maxSessions,
		stopCleanup:     make(chan struct{}),
	}
	go st.cleanupLoop()
	return st
}

// Create mints a new session bound to upstreamID, with a fresh random id.
// apiKeyID is the authenticated caller's key id, or empty under auth bypass.
func (st *Store) Create(upstreamID, apiKeyID string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if len(st.sessions) >= st.maxSessions {
		return nil, &LimitExceededError{Limit: st.maxSessions, Current: len(st.sessions)}
	}

	// A collision against idEntropyBytes=32 bytes of crypto/rand is not a
	// practical concern; the retry loop exists only to make that explicit
	// rather than trusting it silently.
	for attempt := 0; attempt < 3; attempt++ {
		id, err := newID()
		if err != nil {
			return nil, err
		}
		if _, exists := st.sessions[id]; exists {
			continue
		}
		sess := newSession(id, upstreamID, apiKeyID)
		st.sessions[id] = sess
		logging.Debug("SessionStore", "created session %s for upstream %s (total: %d)", logging.TruncateSessionID(id), upstreamID, len(st.sessions))
		return sess, nil
	}
	return nil, &LimitExceededError{Limit: st.maxSessions, Current: len(st.sessions)}
}

// Get returns the session for id and refreshes its idle timer, or reports
// false if id is unknown.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, false
	}
	sess.Touch()
	return sess, true
}

// Delete removes a session and closes every stream it holds.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	sess, ok := st.sessions[id]
	if ok {
		delete(st.sessions, id)
	}
	st.mu.Unlock()
	if ok {
		sess.closeAllStreams()
		logging.Debug("SessionStore", "deleted session %s", logging.TruncateSessionID(id))
	}
}

// ListByUpstream returns every live session owned by upstreamID, used to
// fan out an upstream push to every background stream bound to it.
func (st *Store) ListByUpstream(upstreamID string) []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	var out []*Session
	for _, sess := range st.sessions {
		if sess.UpstreamID == upstreamID {
			out = append(out, sess)
		}
	}
	return out
}

// Count returns the number of live sessions.
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Stop halts the cleanup sweep and closes every session's streams.
func (st *Store) Stop() {
	st.stopOnce.Do(func() { close(st.stopCleanup) })

	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()

	for _, sess := range sessions {
		sess.closeAllStreams()
	}
}

func (st *Store) cleanupLoop() {
	ticker := time.NewTicker(st.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			st.sweep()
		case <-st.stopCleanup:
			return
		}
	}
}

func (st *Store) sweep() {
	cutoff := time.Now().Add(-st.idleTimeout)

	st.mu.Lock()
	var expired []*Session
	for id, sess := range st.sessions {
		if sess.idleSince().Before(cutoff) {
			expired = append(expired, sess)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, sess := range expired {
		sess.closeAllStreams()
	}
	if len(expired) > 0 {
		logging.Debug("SessionStore", "cleaned up %d idle sessions", len(expired))
	}
}
