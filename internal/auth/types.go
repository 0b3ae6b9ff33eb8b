package auth

import "time"

// APIKey is the fields the authenticator needs out of a persisted api_key
// row; it is a read-only view, not the full administrative record.
type APIKey struct {
	ID           string
	Name         string
	Prefix       string
	HashedSecret string
	Scopes       []string
	ExpiresAt    *time.Time
	RevokedAt    *time.Time
}

// Ref identifies the API key that authenticated a request, without carrying
// the secret or hash around past the point of verification.
type Ref struct {
	ID     string
	Name   string
	Scopes []string
}

// HasScope reports whether ref is entitled to scope. An empty Scopes list
// means the key is unrestricted (every scope check passes) — scopes are an
// allowlist, not a requirement, matching keys issued before scoping existed.
func (r Ref) HasScope(scope string) bool {
	if len(r.Scopes) == 0 {
		return true
	}
	for _, s := range r.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// KeySource is the persistence-layer abstraction the authenticator reads
// candidate keys from. internal/store provides the pgx-backed implementation;
// tests can supply an in-memory one.
type KeySource interface {
	ActiveKeys() ([]APIKey, error)
	TouchLastUsed(id string)
}

// Scopes the gateway enforces, per the three operations the spec recognizes.
const (
	ScopeConnect = "mcp:connect"
	ScopeList    = "tools:list"
	ScopeCall    = "tools:call"
)
