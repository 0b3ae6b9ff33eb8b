package store

import (
	"context"
	"encoding/json"
	"time"

	"mcpgateway/internal/auth"
	"mcpgateway/pkg/logging"
)

// PgKeySource implements auth.KeySource against the api_key table, making
// the authenticator's fast path read directly off Postgres rather than an
// in-memory mirror.
type PgKeySource struct {
	db DB
}

// NewPgKeySource builds a PgKeySource over db.
func NewPgKeySource(db DB) *PgKeySource {
	return &PgKeySource{db: db}
}

// ActiveKeys returns every non-revoked key row; the authenticator itself
// still checks expiry so a clock skew between gateway and database never
// makes an expired key look valid.
func (s *PgKeySource) ActiveKeys() ([]auth.APIKey, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT id, name, prefix, hashed_api_key, scopes, expires_at, revoked_at
		FROM api_key
		WHERE revoked_at IS NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []auth.APIKey
	for rows.Next() {
		var key auth.APIKey
		var scopesJSON []byte
		if err := rows.Scan(&key.ID, &key.Name, &key.Prefix, &key.HashedSecret, &scopesJSON, &key.ExpiresAt, &key.RevokedAt); err != nil {
			return nil, err
		}
		if len(scopesJSON) > 0 {
			_ = json.Unmarshal(scopesJSON, &key.Scopes)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// TouchLastUsed updates last_used_at for id. Called asynchronously by the
// authenticator on every successful match; failures are logged, never
// propagated, since a stale last_used_at is cosmetic.
func (s *PgKeySource) TouchLastUsed(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.db.Exec(ctx, `UPDATE api_key SET last_used_at = now() WHERE id = $1`, id); err != nil {
		logging.Warn("Store", "failed to update last_used_at for key %s: %v", id, err)
	}
}
