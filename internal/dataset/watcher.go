package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/howeyc/fsnotify"
)

// ChangeFunc is called after the watched file changed and the cache entry
// was dropped.
type ChangeFunc func(path string)

// Watcher invalidates a Cache entry when the dataset file changes on disk.
// The parent directory is watched so editors that replace the file by rename
// are still noticed.
type Watcher struct {
	path   string
	cache  *Cache
	logger *slog.Logger

	mu       sync.RWMutex
	onChange []ChangeFunc
}

// NewWatcher creates a watcher for path.
func NewWatcher(path string, cache *Cache, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dataset path: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:   abs,
		cache:  cache,
		logger: logger.With(slog.String("component", "dataset_watcher")),
	}, nil
}

// OnChange registers a callback for file changes.
func (w *Watcher) OnChange(fn ChangeFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Watch(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.logger.Info("watching dataset file", slog.String("path", w.path))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("dataset watcher stopped")
			return nil
		case ev, ok := <-fw.Event:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-fw.Error:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) handle(ev *fsnotify.FileEvent) {
	if ev == nil || ev.IsAttrib() {
		return
	}
	name, err := filepath.Abs(ev.Name)
	if err != nil || name != w.path {
		return
	}

	w.logger.Info("dataset file changed", slog.String("event", ev.String()))
	w.notify()
}

// notify drops the cache entry and runs the registered callbacks.
func (w *Watcher) notify() {
	if w.cache != nil {
		w.cache.Invalidate(w.path)
	}

	w.mu.RLock()
	callbacks := make([]ChangeFunc, len(w.onChange))
	copy(callbacks, w.onChange)
	w.mu.RUnlock()

	for _, fn := range callbacks {
		fn(w.path)
	}
}
