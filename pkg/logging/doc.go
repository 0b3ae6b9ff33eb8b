// Package logging provides the structured logging and audit trail used across
// the gateway's components.
//
// Log entries are tagged with a subsystem name (e.g. "Connector", "Gateway",
// "Auth") so operators can filter a single run by component. Audit events
// describe security-sensitive actions such as authentication attempts and
// session lifecycle; Audit writes them as INFO lines with an [AUDIT] prefix,
// so a configured level above INFO suppresses them like any other INFO line.
//
// Session ids are never logged in full; TruncateSessionID keeps enough of the
// token for correlation without leaking the caller's credential.
package logging
