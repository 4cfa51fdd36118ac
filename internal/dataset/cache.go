package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LoadFunc loads a dataset from a path. Load is the default.
type LoadFunc func(path string) (*Dataset, error)

// Cache memoizes loaded datasets per file. An entry stays valid while the
// file's modification time and size are unchanged.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	load    LoadFunc
	logger  *slog.Logger

	// loadMu serializes loads so each file version is read at most once
	loadMu sync.Mutex

	hits   int64
	misses int64
	loads  int64
}

type cacheEntry struct {
	dataset  *Dataset
	modTime  time.Time
	size     int64
	cachedAt time.Time
}

// CacheStats reports cache activity for monitoring.
type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Loads   int64 `json:"loads"`
	Entries int   `json:"entries"`
}

// NewCache creates a cache. A nil load uses Load.
func NewCache(load LoadFunc, logger *slog.Logger) *Cache {
	if load == nil {
		load = Load
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries: make(map[string]*cacheEntry),
		load:    load,
		logger:  logger.With(slog.String("component", "dataset_cache")),
	}
}

// Get returns the dataset for path, loading it when there is no entry or the
// file changed since it was cached.
func (c *Cache) Get(ctx context.Context, path string) (*Dataset, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dataset path: %w", err)
	}

	info, err := os.Stat(key)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}

	if ds, ok := c.lookup(key, info); ok {
		c.recordHit()
		c.logger.DebugContext(ctx, "using cached dataset", slog.String("path", key))
		return ds, nil
	}

	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	// Double-check after acquiring the lock; another caller may have loaded it
	if ds, ok := c.lookup(key, info); ok {
		c.recordHit()
		return ds, nil
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	ds, err := c.load(key)
	if err != nil {
		c.logger.ErrorContext(ctx, "dataset load failed",
			slog.String("path", key),
			slog.String("error", err.Error()))
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = &cacheEntry{
		dataset:  ds,
		modTime:  info.ModTime(),
		size:     info.Size(),
		cachedAt: time.Now(),
	}
	c.loads++
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "dataset loaded",
		slog.String("path", key),
		slog.Int("rows", ds.Len()),
		slog.Int("hospitals", len(ds.Hospitals())),
		slog.Duration("duration", time.Since(start)))

	return ds, nil
}

func (c *Cache) lookup(key string, info os.FileInfo) (*Dataset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !entry.modTime.Equal(info.ModTime()) || entry.size != info.Size() {
		return nil, false
	}
	return entry.dataset, true
}

func (c *Cache) recordHit() {
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
}

// Invalidate drops the entry for path. It reports whether an entry existed.
func (c *Cache) Invalidate(path string) bool {
	key, err := filepath.Abs(path)
	if err != nil {
		key = path
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	delete(c.entries, key)
	if ok {
		c.logger.Info("dataset cache invalidated", slog.String("path", key))
	}
	return ok
}

// Stats returns a snapshot of cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{
		Hits:    c.hits,
		Misses:  c.misses,
		Loads:   c.loads,
		Entries: len(c.entries),
	}
}
