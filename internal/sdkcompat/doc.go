// Package sdkcompat is C9: an optional second front door onto the same
// catalog and registry as the gateway endpoint, speaking the
// mark3labs/mcp-go server SDK's own wire format instead of the gateway's
// hand-rolled JSON-RPC/SSE handling in internal/gateway.
//
// The gateway endpoint (internal/gateway) and this listener are two
// independent implementations of "expose the aggregated tool catalog over
// MCP" sitting side by side, resolving the specification's open question
// about which implementation is canonical by keeping both: the gateway
// endpoint for clients that need the gateway's session- and auth-aware
// semantics, this listener for clients (IDE integrations, the mcp-go
// ecosystem's own tooling) that expect an SDK-native streamable-HTTP
// server and don't need gateway-level auth.
package sdkcompat
