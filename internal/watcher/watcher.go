package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"mcpgateway/internal/config"
	"mcpgateway/internal/upstream"
	"mcpgateway/pkg/logging"

	"github.com/fsnotify/fsnotify"
)

// DebounceInterval is how long the watcher waits after the last filesystem
// event on a path before it restarts the owning upstream, so a burst of
// writes (e.g. a compiler rewriting a binary) triggers one restart.
const DebounceInterval = 100 * time.Millisecond

// connector is the subset of *upstream.Connector a restart needs. Declaring
// it here, rather than depending on the concrete type, lets tests exercise
// the debounce and dispatch logic with a fake.
type connector interface {
	Stop()
	Start(ctx context.Context) error
}

// restarter is the subset of upstream.Registry the watcher needs, so this
// package depends on one lookup method rather than the whole registry API.
type restarter interface {
	Get(id string) (connector, bool)
}

// RegistryAdapter wraps an *upstream.Registry as a restarter, bridging the
// concrete *upstream.Connector it returns to the narrower connector
// interface this package tests against.
type RegistryAdapter struct {
	Registry *upstream.Registry
}

func (a RegistryAdapter) Get(id string) (connector, bool) {
	c, ok := a.Registry.Get(id)
	if !ok {
		return nil, false
	}
	return c, true
}

// Watcher watches every configured stdio upstream's WatchPaths and restarts
// its connector on a create/modify/delete event, debounced per upstream id.
type Watcher struct {
	registry restarter
	fsw      *fsnotify.Watcher

	mu       sync.Mutex
	pathToID map[string]string
	timers   map[string]*time.Timer
	stopCh   chan struct{}
}

// New builds a Watcher over registry. Call Watch for each upstream whose
// WatchPaths should trigger a restart, then Start.
func New(registry restarter) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		registry: registry,
		fsw:      fsw,
		pathToID: make(map[string]string),
		timers:   make(map[string]*time.Timer),
		stopCh:   make(chan struct{}),
	}, nil
}

// Watch registers def's WatchPaths against its upstream id. A no-op if def
// has no WatchPaths (most upstreams, and every non-stdio one, never call it).
func (w *Watcher) Watch(def config.UpstreamConfig) error {
	for _, path := range def.WatchPaths {
		if err := w.fsw.Add(path); err != nil {
			logging.Warn("DevWatcher", "failed to watch %s for upstream %s: %v", path, def.ID, err)
			continue
		}
		w.mu.Lock()
		w.pathToID[path] = def.ID
		w.mu.Unlock()
	}
	return nil
}

// Start begins the watch loop. It returns immediately; call Stop to end it.
func (w *Watcher) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !isRelevant(event.Op) {
				continue
			}
			w.mu.Lock()
			upstreamID, known := w.pathToID[event.Name]
			if !known {
				// Events for a file inside a watched directory name the file.
				upstreamID, known = w.pathToID[filepath.Dir(event.Name)]
			}
			w.mu.Unlock()
			if !known {
				continue
			}
			w.scheduleRestart(ctx, upstreamID)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Warn("DevWatcher", "watch error: %v", err)
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		}
	}
}

func isRelevant(op fsnotify.Op) bool {
	return op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}

// scheduleRestart debounces back-to-back events for the same upstream
// within DebounceInterval into a single restart.
func (w *Watcher) scheduleRestart(ctx context.Context, upstreamID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, exists := w.timers[upstreamID]; exists {
		t.Stop()
	}
	w.timers[upstreamID] = time.AfterFunc(DebounceInterval, func() {
		w.restart(ctx, upstreamID)
	})
}

func (w *Watcher) restart(ctx context.Context, upstreamID string) {
	conn, ok := w.registry.Get(upstreamID)
	if !ok {
		return
	}
	logging.Info("DevWatcher", "restarting upstream %s after filesystem change", upstreamID)
	conn.Stop()
	if err := conn.Start(ctx); err != nil {
		logging.Warn("DevWatcher", "restart of upstream %s failed: %v", upstreamID, err)
	}
}

// Stop tears down the fsnotify watcher and the watch loop.
func (w *Watcher) Stop() {
	close(w.stopCh)
	_ = w.fsw.Close()
}
