// Package gateway is C5: the session-aware MCP endpoint clients speak to.
// It authenticates callers, allocates and resolves sessions, dispatches
// tools/list and tools/call against the aggregator and registry, and
// manages the two kinds of SSE stream described in the gateway's protocol
// design — the short-lived POST response stream and the long-lived
// background push stream.
package gateway
