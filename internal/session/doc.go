// Package session implements the gateway's session store (C4): opaque
// session identifiers, idle expiry, and the bookkeeping for each session's
// one background push stream plus however many concurrent POST response
// streams it has open.
//
// A session carries no upstream connection state of its own; it is purely a
// client-identity and stream-routing record. Tool calls are dispatched
// straight from the gateway endpoint to the registry/connector for whichever
// upstream the catalog resolves; the endpoint rejects a call whose tool
// resolves to an upstream other than the one the session is bound to.
package session
