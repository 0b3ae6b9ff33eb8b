package aggregator

import (
	"testing"

	"mcpgateway/internal/upstream"
)

func descriptor(name string) upstream.ToolDescriptor {
	return upstream.ToolDescriptor{Name: name, Descriptor: map[string]any{"name": name}}
}

func TestCatalogNamespacesTools(t *testing.T) {
	c := NewCatalog()
	c.SetUpstream("u1", "files", []upstream.ToolDescriptor{descriptor("read"), descriptor("write")})

	entries := c.List()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].GatewayName != "files__read" {
		t.Errorf("expected files__read, got %s", entries[0].GatewayName)
	}
	if entries[1].GatewayName != "files__write" {
		t.Errorf("expected files__write, got %s", entries[1].GatewayName)
	}
}

func TestCatalogCollisionGetsNumericSuffix(t *testing.T) {
	c := NewCatalog()
	c.SetUpstream("u1", "files", []upstream.ToolDescriptor{descriptor("read")})
	c.SetUpstream("u2", "files", []upstream.ToolDescriptor{descriptor("read")})

	entries := c.List()
	names := map[string]string{}
	for _, e := range entries {
		names[e.UpstreamID] = e.GatewayName
	}
	if names["u1"] != "files__read" {
		t.Errorf("expected u1 to keep base name, got %s", names["u1"])
	}
	if names["u2"] != "files__read__2" {
		t.Errorf("expected u2 to get numeric suffix, got %s", names["u2"])
	}
}

func TestCatalogResolve(t *testing.T) {
	c := NewCatalog()
	c.SetUpstream("u1", "files", []upstream.ToolDescriptor{descriptor("read")})

	upstreamID, original, ok := c.Resolve("files__read")
	if !ok || upstreamID != "u1" || original != "read" {
		t.Fatalf("unexpected resolve result: %s %s %v", upstreamID, original, ok)
	}

	if _, _, ok := c.Resolve("nope"); ok {
		t.Errorf("expected unknown name to resolve false")
	}
}

func TestCatalogRemoveUpstreamReflowsCollisions(t *testing.T) {
	c := NewCatalog()
	c.SetUpstream("u1", "files", []upstream.ToolDescriptor{descriptor("read")})
	c.SetUpstream("u2", "files", []upstream.ToolDescriptor{descriptor("read")})

	c.RemoveUpstream("u1")

	entries := c.List()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after removal, got %d", len(entries))
	}
	if entries[0].GatewayName != "files__read" {
		t.Errorf("expected remaining upstream to reclaim base name, got %s", entries[0].GatewayName)
	}
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"My Server!":  "my_server",
		"already_ok":  "already_ok",
		"":            "x",
		"Mixed-Case1": "mixedcase1",
		"My Tool-X!":  "my_toolx",
	}
	for in, want := range cases {
		if got := sanitize(in); got != want {
			t.Errorf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
