package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want default %d", cfg.Port, DefaultPort)
	}
	if cfg.SessionIdleTimeout != DefaultSessionIdleTimeout {
		t.Errorf("SessionIdleTimeout = %v, want %v", cfg.SessionIdleTimeout, DefaultSessionIdleTimeout)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := "port: 9090\nhost: 127.0.0.1\n"
	if err := os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != 9090 || cfg.Host != "127.0.0.1" {
		t.Errorf("got %+v, want overridden port/host", cfg)
	}
	if cfg.RequestTimeout != DefaultRequestTimeout {
		t.Errorf("RequestTimeout should fall back to default, got %v", cfg.RequestTimeout)
	}
}

func TestManagerLoadReflectsUpstreamsDirectory(t *testing.T) {
	dir := t.TempDir()
	upstreamsPath := filepath.Join(dir, upstreamsDir)
	if err := os.MkdirAll(upstreamsPath, 0755); err != nil {
		t.Fatal(err)
	}
	content := "id: echo\nname: echo\ntype: stdio\nenabled: true\ncommand: echo-server\n"
	if err := os.WriteFile(filepath.Join(upstreamsPath, "echo.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(dir)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, ok := m.Get("echo")
	if !ok {
		t.Fatal("Get: expected upstream to be loaded")
	}
	if got.Command != "echo-server" {
		t.Errorf("got %+v", got)
	}
	if len(m.List()) != 1 {
		t.Errorf("List: got %d upstreams, want 1", len(m.List()))
	}

	if err := os.Remove(filepath.Join(upstreamsPath, "echo.yaml")); err != nil {
		t.Fatal(err)
	}
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := m.Get("echo"); ok {
		t.Error("expected upstream to be gone after the file was removed and Load re-ran")
	}
}

func TestManagerLoadSkipsInvalidUpstream(t *testing.T) {
	dir := t.TempDir()
	upstreamsPath := filepath.Join(dir, upstreamsDir)
	if err := os.MkdirAll(upstreamsPath, 0755); err != nil {
		t.Fatal(err)
	}
	content := "id: bad\ntype: stdio\nenabled: true\n"
	if err := os.WriteFile(filepath.Join(upstreamsPath, "bad.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(dir)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := m.Get("bad"); ok {
		t.Error("expected invalid stdio upstream (no command) to be skipped")
	}
}

func TestHasSameConnectionParams(t *testing.T) {
	a := UpstreamConfig{Type: TransportStdio, Command: "x", Args: []string{"--a"}}
	b := UpstreamConfig{Type: TransportStdio, Command: "x", Args: []string{"--a"}}
	c := UpstreamConfig{Type: TransportStdio, Command: "y", Args: []string{"--a"}}

	if !a.HasSameConnectionParams(b) {
		t.Error("expected identical configs to match")
	}
	if a.HasSameConnectionParams(c) {
		t.Error("expected different commands to not match")
	}
}
