package aggregator

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"mcpgateway/internal/upstream"
)

// Entry is one tool as exposed to gateway clients: its gateway-visible name,
// the upstream that owns it, and that upstream's own name for it.
type Entry struct {
	GatewayName  string
	UpstreamID   string
	OriginalName string
	Descriptor   map[string]any
}

// upstreamTools is the per-upstream slice the catalog rebuilds from; order
// matters; it is the order the connector returned tools in.
type upstreamTools struct {
	prefix string // sanitize(alias or name), as passed to the latest SetUpstream
	tools  []upstream.ToolDescriptor
}

// Catalog is C3: a namespaced view over every registered upstream's tools.
// SetUpstream and RemoveUpstream rebuild the whole derived view while holding
// the write lock, so readers never observe a partially rebuilt catalog. Reads
// take the read lock: they wait for an in-progress rebuild, and a rebuild
// waits for in-progress reads.
type Catalog struct {
	mu sync.RWMutex

	upstreamOrder []string
	perUpstream   map[string]*upstreamTools

	entries []Entry
	byName  map[string]Entry
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		perUpstream: make(map[string]*upstreamTools),
		byName:      make(map[string]Entry),
	}
}

// SetUpstream records (or replaces) the tool list for upstreamID, derived
// using prefix as its alias-or-name, and rebuilds the namespaced view. Call
// this from the registry's OnToolsChanged callback.
func (c *Catalog) SetUpstream(upstreamID, prefix string, tools []upstream.ToolDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.perUpstream[upstreamID]; !exists {
		c.upstreamOrder = append(c.upstreamOrder, upstreamID)
	}
	c.perUpstream[upstreamID] = &upstreamTools{prefix: sanitize(prefix), tools: tools}
	c.rebuildLocked()
}

// RemoveUpstream drops upstreamID from the catalog entirely, e.g. when it is
// deregistered from the registry.
func (c *Catalog) RemoveUpstream(upstreamID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.perUpstream[upstreamID]; !exists {
		return
	}
	delete(c.perUpstream, upstreamID)
	for i, id := range c.upstreamOrder {
		if id == upstreamID {
			c.upstreamOrder = append(c.upstreamOrder[:i], c.upstreamOrder[i+1:]...)
			break
		}
	}
	c.rebuildLocked()
}

// rebuildLocked recomputes gateway names for every tool across every
// upstream, in upstream-registration order then per-upstream tool order, so
// the same registration history always yields the same names.
func (c *Catalog) rebuildLocked() {
	entries := make([]Entry, 0, len(c.byName))
	byName := make(map[string]Entry, len(c.byName))
	counts := make(map[string]int)

	for _, upstreamID := range c.upstreamOrder {
		ut := c.perUpstream[upstreamID]
		if ut == nil {
			continue
		}
		for _, tool := range ut.tools {
			base := ut.prefix + "__" + tool.Name
			counts[base]++
			gatewayName := base
			if n := counts[base]; n > 1 {
				gatewayName = fmt.Sprintf("%s__%d", base, n)
			}
			entry := Entry{
				GatewayName:  gatewayName,
				UpstreamID:   upstreamID,
				OriginalName: tool.Name,
				Descriptor:   tool.Descriptor,
			}
			entries = append(entries, entry)
			byName[gatewayName] = entry
		}
	}

	c.entries = entries
	c.byName = byName
}

// List returns a snapshot of every tool currently in the catalog, in stable
// registration order.
func (c *Catalog) List() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Resolve maps a client-visible tool name back to the upstream and original
// name that owns it. The bool is false when gatewayName is unknown.
func (c *Catalog) Resolve(gatewayName string) (upstreamID, originalName string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, found := c.byName[gatewayName]
	if !found {
		return "", "", false
	}
	return entry.UpstreamID, entry.OriginalName, true
}

// sanitize replaces whitespace in s with '_', strips every remaining
// character outside [A-Za-z0-9_], then lowercases the result, so an alias or
// upstream name of arbitrary origin always makes a usable, stable namespace
// prefix.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune('_')
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		}
	}
	out := strings.ToLower(b.String())
	if out == "" {
		return "x"
	}
	return out
}
