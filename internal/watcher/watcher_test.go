package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mcpgateway/internal/config"
)

type fakeConnector struct {
	mu       sync.Mutex
	starts   int
	stops    int
}

func (f *fakeConnector) Stop() {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
}

func (f *fakeConnector) Start(ctx context.Context) error {
	f.mu.Lock()
	f.starts++
	f.mu.Unlock()
	return nil
}

func (f *fakeConnector) snapshot() (starts, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

type fakeRestarter struct {
	conn *fakeConnector
}

func (f *fakeRestarter) Get(id string) (connector, bool) {
	return f.conn, true
}

func TestWatcherDebouncesRapidEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.bin")
	if err := os.WriteFile(path, []byte("v1"), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	conn := &fakeConnector{}
	w, err := New(&fakeRestarter{conn: conn})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	if err := w.Watch(config.UpstreamConfig{ID: "u1", WatchPaths: []string{dir}}); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	w.Start(context.Background())

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("v2"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(DebounceInterval + 150*time.Millisecond)

	starts, stops := conn.snapshot()
	if starts != 1 || stops != 1 {
		t.Errorf("expected exactly one coalesced restart, got starts=%d stops=%d", starts, stops)
	}
}
