// Package aggregator implements the tool catalog (C3): it combines every
// connected upstream's tool list into one namespaced view for gateway
// clients, and resolves a client-visible tool name back to the upstream and
// original name that owns it.
//
// Namespacing is not a conflict-avoidance nicety, it is unconditional: every
// tool name, whether or not it collides with another, is rewritten to
// sanitize(alias-or-name) + "__" + originalName, with a numeric "__N" suffix
// (N starting at 2) for the second and later tools that land on the same
// base name, in the order upstreams and their tools were registered. This
// keeps name assignment stable across catalog rebuilds for a fixed
// registration order, which is what lets a client cache tool names between
// tools/list_changed notifications without them ever pointing at the wrong
// upstream.
package aggregator
