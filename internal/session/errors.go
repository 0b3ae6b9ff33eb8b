package session

import (
	"fmt"

	"mcpgateway/pkg/logging"
)

// NotFoundError is returned when a session id has no session, whether
// because it was never created or because it has already expired.
type NotFoundError struct {
	SessionID string
}

func (e *NotFoundError) Error() string {
	return "session not found: " + logging.TruncateSessionID(e.SessionID)
}

// LimitExceededError is returned when Create would exceed the store's
// configured session ceiling.
type LimitExceededError struct {
	Limit   int
	Current int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("session limit exceeded: %d/%d sessions", e.Current, e.Limit)
}
