package auth

import (
	"net/http"
	"testing"
	"time"
)

type fakeSource struct {
	keys   []APIKey
	touched []string
}

func (f *fakeSource) ActiveKeys() ([]APIKey, error) { return f.keys, nil }
func (f *fakeSource) TouchLastUsed(id string)       { f.touched = append(f.touched, id) }

func newKey(t *testing.T, id, secret string) APIKey {
	t.Helper()
	hashed, err := HashSecret(secret)
	if err != nil {
		t.Fatalf("hash secret: %v", err)
	}
	return APIKey{ID: id, Name: id, HashedSecret: hashed}
}

func TestAuthenticateBearerToken(t *testing.T) {
	key := newKey(t, "k1", "s3cret")
	source := &fakeSource{keys: []APIKey{key}}
	authr := NewAuthenticator(source, false)

	headers := http.Header{}
	headers.Set("Authorization", "Bearer s3cret")

	ref, err := authr.Authenticate(headers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.ID != "k1" {
		t.Errorf("expected k1, got %s", ref.ID)
	}
}

func TestAuthenticateXApiKeyHeader(t *testing.T) {
	key := newKey(t, "k1", "s3cret")
	source := &fakeSource{keys: []APIKey{key}}
	authr := NewAuthenticator(source, false)

	headers := http.Header{}
	headers.Set("X-Api-Key", "s3cret")

	ref, err := authr.Authenticate(headers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.ID != "k1" {
		t.Errorf("expected k1, got %s", ref.ID)
	}
}

func TestAuthenticateMissingCredentialIsUnauthenticated(t *testing.T) {
	source := &fakeSource{}
	authr := NewAuthenticator(source, false)

	_, err := authr.Authenticate(http.Header{})
	if _, ok := err.(*UnauthenticatedError); !ok {
		t.Fatalf("expected UnauthenticatedError, got %v", err)
	}
}

func TestAuthenticateWrongSecretFails(t *testing.T) {
	key := newKey(t, "k1", "s3cret")
	source := &fakeSource{keys: []APIKey{key}}
	authr := NewAuthenticator(source, false)

	headers := http.Header{}
	headers.Set("X-Api-Key", "wrong")

	_, err := authr.Authenticate(headers)
	if _, ok := err.(*AuthenticationFailedError); !ok {
		t.Fatalf("expected AuthenticationFailedError, got %v", err)
	}
}

func TestAuthenticateRevokedKeyFails(t *testing.T) {
	key := newKey(t, "k1", "s3cret")
	revoked := time.Now().Add(-time.Minute)
	key.RevokedAt = &revoked
	source := &fakeSource{keys: []APIKey{key}}
	authr := NewAuthenticator(source, false)

	headers := http.Header{}
	headers.Set("X-Api-Key", "s3cret")

	if _, err := authr.Authenticate(headers); err == nil {
		t.Fatal("expected revoked key to fail authentication")
	}
}

func TestAuthenticateExpiredKeyFails(t *testing.T) {
	key := newKey(t, "k1", "s3cret")
	expired := time.Now().Add(-time.Minute)
	key.ExpiresAt = &expired
	source := &fakeSource{keys: []APIKey{key}}
	authr := NewAuthenticator(source, false)

	headers := http.Header{}
	headers.Set("X-Api-Key", "s3cret")

	if _, err := authr.Authenticate(headers); err == nil {
		t.Fatal("expected expired key to fail authentication")
	}
}

func TestAuthenticateBypass(t *testing.T) {
	authr := NewAuthenticator(&fakeSource{}, true)
	ref, err := authr.Authenticate(http.Header{})
	if err != nil {
		t.Fatalf("unexpected error under bypass: %v", err)
	}
	if ref.ID != "bypass" {
		t.Errorf("expected bypass ref, got %s", ref.ID)
	}
}

func TestCheckScope(t *testing.T) {
	unrestricted := Ref{ID: "k1"}
	if err := CheckScope(unrestricted, ScopeCall); err != nil {
		t.Errorf("unrestricted key should pass any scope check: %v", err)
	}

	scoped := Ref{ID: "k2", Scopes: []string{ScopeList}}
	if err := CheckScope(scoped, ScopeList); err != nil {
		t.Errorf("expected scoped key to pass its own scope: %v", err)
	}
	if err := CheckScope(scoped, ScopeCall); err == nil {
		t.Error("expected scoped key to fail a scope it was not granted")
	}
}
