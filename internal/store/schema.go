package store

// Schema is the SQL DDL for every table the core reads or writes. Execute it
// via Migrate to bring a fresh database up to date; it is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS api_key (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL,
    hashed_api_key TEXT NOT NULL UNIQUE,
    salt           TEXT NOT NULL DEFAULT '',
    prefix         TEXT NOT NULL DEFAULT '',
    scopes         JSONB NOT NULL DEFAULT '[]',
    expires_at     TIMESTAMPTZ,
    last_used_at   TIMESTAMPTZ,
    revoked_at     TIMESTAMPTZ,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS managed_mcp_server (
    id                 TEXT PRIMARY KEY,
    name               TEXT NOT NULL,
    description        TEXT NOT NULL DEFAULT '',
    server_type        TEXT NOT NULL,
    connection_details JSONB NOT NULL DEFAULT '{}',
    mcp_options        JSONB NOT NULL DEFAULT '{}',
    status             TEXT NOT NULL DEFAULT 'stopped',
    is_enabled         BOOLEAN NOT NULL DEFAULT true,
    tags               JSONB NOT NULL DEFAULT '[]',
    created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_pinged_at     TIMESTAMPTZ,
    last_error         TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS traffic_log (
    id                         BIGSERIAL PRIMARY KEY,
    server_id                  TEXT REFERENCES managed_mcp_server(id),
    timestamp                  TIMESTAMPTZ NOT NULL DEFAULT now(),
    mcp_method                 TEXT NOT NULL DEFAULT '',
    mcp_request_id             TEXT NOT NULL DEFAULT '',
    source_ip                  TEXT NOT NULL DEFAULT '',
    request_size_bytes         INTEGER NOT NULL DEFAULT 0,
    response_size_bytes        INTEGER NOT NULL DEFAULT 0,
    http_status                INTEGER NOT NULL DEFAULT 0,
    target_server_http_status  INTEGER NOT NULL DEFAULT 0,
    is_success                 BOOLEAN NOT NULL DEFAULT false,
    duration_ms                BIGINT NOT NULL DEFAULT 0,
    api_key_id                 TEXT REFERENCES api_key(id),
    error_message              TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_traffic_log_server ON traffic_log(server_id);
CREATE INDEX IF NOT EXISTS idx_traffic_log_timestamp ON traffic_log(timestamp);

-- server_extension_installation and mcp_marketplace_server back the
-- administrative marketplace surface; the core never reads or writes them,
-- it only needs the database to carry the same schema version.
CREATE TABLE IF NOT EXISTS server_extension_installation (
    id            TEXT PRIMARY KEY,
    server_id     TEXT REFERENCES managed_mcp_server(id),
    extension_id  TEXT NOT NULL,
    version       TEXT NOT NULL DEFAULT '',
    installed_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS mcp_marketplace_server (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    repo_url    TEXT NOT NULL DEFAULT '',
    metadata    JSONB NOT NULL DEFAULT '{}'
);
`
