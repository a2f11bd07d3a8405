package sources

import (
	"context"
	"sync"

	"github.com/fsnotify/fsnotify"

	typerrors "github.com/systmms/typenv/internal/errors"
	"github.com/systmms/typenv/pkg/resolver"
)

// Watch wraps a file-backed source and invalidates its snapshot when the
// file changes on disk, so the next load re-reads it. An optional callback
// fires after each change. This is a convenience, not a live-reload
// guarantee: already-resolved results are never mutated.
type Watch struct {
	inner   resolver.Resolver
	watcher *fsnotify.Watcher

	mu       sync.Mutex
	snapshot map[string]string
	onChange func()
	closed   chan struct{}
}

// NewWatch wraps inner and watches path. onChange may be nil.
func NewWatch(inner resolver.Resolver, path string, onChange func()) (*Watch, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &Watch{
		inner:    inner,
		watcher:  watcher,
		onChange: onChange,
		closed:   make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watch) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			w.snapshot = nil
			cb := w.onChange
			w.mu.Unlock()
			if cb != nil {
				cb()
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		case <-w.closed:
			return
		}
	}
}

// Name implements resolver.Resolver.
func (w *Watch) Name() string {
	return w.inner.Name()
}

// Metadata implements resolver.Resolver.
func (w *Watch) Metadata() map[string]interface{} {
	return w.inner.Metadata()
}

// Load implements resolver.Resolver.
func (w *Watch) Load(ctx context.Context) (map[string]string, error) {
	w.mu.Lock()
	if w.snapshot != nil {
		snapshot := copyValues(w.snapshot)
		w.mu.Unlock()
		return snapshot, nil
	}
	w.mu.Unlock()

	values, err := w.inner.Load(ctx)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.snapshot = copyValues(values)
	w.mu.Unlock()
	return values, nil
}

// LoadSync implements resolver.SyncResolver when the inner source does.
func (w *Watch) LoadSync() (map[string]string, error) {
	w.mu.Lock()
	if w.snapshot != nil {
		snapshot := copyValues(w.snapshot)
		w.mu.Unlock()
		return snapshot, nil
	}
	w.mu.Unlock()

	sync, ok := resolver.SyncCapable(w.inner)
	if !ok {
		return nil, typerrors.ConfigError{
			Field:   "watch",
			Value:   w.inner.Name(),
			Message: "wrapped source does not support synchronous loading",
		}
	}

	values, err := sync.LoadSync()
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.snapshot = copyValues(values)
	w.mu.Unlock()
	return values, nil
}

// Close stops watching and releases the watcher.
func (w *Watch) Close() error {
	close(w.closed)
	return w.watcher.Close()
}
