package auth

import "time"

// TrafficRecord is the append-only row the audit sink writes for every
// handled request, mirroring the traffic_log table.
type TrafficRecord struct {
	UpstreamID             string
	SessionID              string
	RequestID              string
	MCPMethod              string
	APIKeyID               string
	SourceIP               string
	RequestSizeBytes       int
	ResponseSizeBytes      int
	HTTPStatus             int
	TargetServerHTTPStatus int
	IsSuccess              bool
	DurationMS             int64
	ErrorMessage           string
	Timestamp              time.Time
}

// Sink persists TrafficRecords. Writes are best-effort from the gateway's
// point of view: a Sink failure is logged by the implementation and must
// never be allowed to fail the client request that produced the record.
type Sink interface {
	Record(rec TrafficRecord)
}

// NoopSink discards every record. Used when GatewayConfig.DatabaseURL is
// empty, so the gateway still runs with no persisted rows; the discarded
// records are not written to the log either.
type NoopSink struct{}

func (NoopSink) Record(TrafficRecord) {}
