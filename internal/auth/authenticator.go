package auth

import (
	"net/http"
	"strings"
	"time"

	"mcpgateway/pkg/logging"

	"golang.org/x/crypto/bcrypt"
)

// Authenticator implements authenticate(headers) -> ApiKeyRef | UNAUTHENTICATED
// from the gateway's auth fast path. Construct one per gateway process; it is
// safe for concurrent use.
type Authenticator struct {
	source KeySource
	bypass bool
}

// NewAuthenticator builds an Authenticator reading candidate keys from
// source. bypass mirrors GatewayConfig.AuthBypass and must only ever be true
// in a development build; production callers are responsible for refusing it.
func NewAuthenticator(source KeySource, bypass bool) *Authenticator {
	return &Authenticator{source: source, bypass: bypass}
}

// Authenticate extracts a bearer token from headers and verifies it against
// every active key. It never logs the raw token, and never reveals which
// key, if any, came closest to matching.
func (a *Authenticator) Authenticate(headers http.Header) (Ref, error) {
	if a.bypass {
		return Ref{ID: "bypass", Name: "auth-bypass", Scopes: nil}, nil
	}

	token := extractToken(headers)
	if token == "" {
		return Ref{}, &UnauthenticatedError{}
	}

	keys, err := a.source.ActiveKeys()
	if err != nil {
		logging.Error("Auth", err, "failed to load active api keys")
		return Ref{}, &AuthenticationFailedError{}
	}

	now := time.Now()
	for _, key := range keys {
		if key.RevokedAt != nil {
			continue
		}
		if key.ExpiresAt != nil && key.ExpiresAt.Before(now) {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(key.HashedSecret), []byte(token)) != nil {
			continue
		}

		matched := key.ID
		go a.source.TouchLastUsed(matched)
		return Ref{ID: key.ID, Name: key.Name, Scopes: key.Scopes}, nil
	}

	return Ref{}, &AuthenticationFailedError{}
}

// CheckScope enforces that ref is entitled to perform an operation requiring
// scope, returning AuthenticationFailedError otherwise.
func CheckScope(ref Ref, scope string) error {
	if !ref.HasScope(scope) {
		return &AuthenticationFailedError{Reason: "missing scope " + scope}
	}
	return nil
}

// HashSecret bcrypt-hashes a raw api key secret for storage. Used by the
// (out of core scope) administrative key-issuance path.
func HashSecret(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func extractToken(headers http.Header) string {
	if v := headers.Get("X-Api-Key"); v != "" {
		return v
	}
	if v := headers.Get("Authorization"); strings.HasPrefix(v, "Bearer ") {
		return strings.TrimPrefix(v, "Bearer ")
	}
	return ""
}
