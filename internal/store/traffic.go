package store

import (
	"context"
	"time"

	"mcpgateway/internal/auth"
	"mcpgateway/pkg/logging"
)

// PgTrafficSink implements auth.Sink against the traffic_log table. Writes
// are fire-and-forget from the caller's perspective (Record never blocks
// the request that produced the row and never returns an error) per the
// audit design's best-effort write guarantee.
type PgTrafficSink struct {
	db DB
}

// NewPgTrafficSink builds a PgTrafficSink over db.
func NewPgTrafficSink(db DB) *PgTrafficSink {
	return &PgTrafficSink{db: db}
}

// Record inserts rec as a traffic_log row in the background so a slow or
// failing database write never adds latency to the client's request.
func (s *PgTrafficSink) Record(rec auth.TrafficRecord) {
	go s.insert(rec)
}

func (s *PgTrafficSink) insert(rec auth.TrafficRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var serverID, apiKeyID any
	if rec.UpstreamID != "" {
		serverID = rec.UpstreamID
	}
	if rec.APIKeyID != "" {
		apiKeyID = rec.APIKeyID
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO traffic_log (
			server_id, timestamp, mcp_method, mcp_request_id, source_ip,
			request_size_bytes, response_size_bytes, http_status,
			target_server_http_status, is_success, duration_ms, api_key_id, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		serverID, rec.Timestamp, rec.MCPMethod, rec.RequestID, rec.SourceIP,
		rec.RequestSizeBytes, rec.ResponseSizeBytes, rec.HTTPStatus,
		rec.TargetServerHTTPStatus, rec.IsSuccess, rec.DurationMS, apiKeyID, rec.ErrorMessage)
	if err != nil {
		logging.Warn("Store", "failed to write traffic log row: %v", err)
	}
}
