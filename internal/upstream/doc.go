// Package upstream implements the Upstream Connector and Upstream Registry:
// the runtime objects that own one live connection to one downstream MCP
// server and the keyed collection of all of them.
//
// A Connector owns exactly one Transport realization — standard-stream,
// WebSocket, SSE, or streamable-HTTP — behind the single capability set
// Open/Send/Recv/Close, runs the MCP initialize handshake, and drives a
// state machine (stopped → starting → running → {reconnecting|error|stopping}
// → stopped) with exponential backoff on reconnection. It never interprets
// tool arguments; it only correlates request ids and forwards frames.
//
// The Registry holds upstreamId → *Connector, starts a connector for every
// enabled definition at boot, and is the sole path through which the rest of
// the gateway observes upstream state — the aggregator and gateway endpoint
// learn of status, tool and push changes through its event callbacks, and
// reach a connector only by looking it up in the registry.
package upstream
