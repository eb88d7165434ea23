// Package cache memoizes grid-classification results by query fingerprint.
// Two tiers: a small in-memory map capped by insertion order, and an optional
// persistent store with age-based eviction. The cache is strictly
// best-effort: persistence failures are logged and swallowed, never surfaced.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/FWeynschenk/dotsmap/internal/geo"
)

// Namespace prefix for persisted keys, bumped on layout changes.
const keyPrefix = "dotsmap:v1:"

// Entry is one cached classification result set.
type Entry struct {
	Key        string                     `json:"key"`
	Dots       []geo.ClassificationResult `json:"dots"`
	Debug      geo.DebugInfo              `json:"debugInfo"`
	Created    time.Time                  `json:"created"`
	LastAccess time.Time                  `json:"lastAccess"`
	SizeBytes  int64                      `json:"sizeBytes"`
}

// payload is the serialized portion of an entry; metadata lives beside it.
type payload struct {
	Dots  []geo.ClassificationResult `json:"dots"`
	Debug geo.DebugInfo              `json:"debugInfo"`
}

// Store is the persistent tier. Get returns nil, nil on a miss.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, e *Entry) error
	Touch(ctx context.Context, key string, at time.Time) error
	EvictOlderThan(ctx context.Context, cutoff time.Time) (int, error)
	EvictOldestHalf(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
	Migrate(ctx context.Context) error
	Close() error
}

// Options tunes the cache.
type Options struct {
	MemoryEntries int           // memory tier cap; default 10
	TTL           time.Duration // normal eviction age; default 7 days
	AggressiveTTL time.Duration // aggressive eviction age; default 1 day
	MaxEntryBytes int64         // persistence ceiling per entry; default 8 MiB
}

func (o *Options) defaults() {
	if o.MemoryEntries <= 0 {
		o.MemoryEntries = 10
	}
	if o.TTL <= 0 {
		o.TTL = 7 * 24 * time.Hour
	}
	if o.AggressiveTTL <= 0 {
		o.AggressiveTTL = 24 * time.Hour
	}
	if o.MaxEntryBytes <= 0 {
		o.MaxEntryBytes = 8 << 20
	}
}

// Stats summarizes cache behavior for diagnostics.
type Stats struct {
	MemoryEntries    int     `json:"memory_entries"`
	MemoryCap        int     `json:"memory_cap"`
	PersistedEntries int     `json:"persisted_entries"`
	Hits             int64   `json:"hits"`
	Misses           int64   `json:"misses"`
	HitRate          float64 `json:"hit_rate"`
}

// Cache is the two-tier result cache. One mutex guards both tiers, so a
// single instance may be shared across goroutines.
type Cache struct {
	mu    sync.Mutex
	opts  Options
	store Store // nil for memory-only operation

	mem   map[string]*Entry
	order []string // insertion order: front = oldest; access does not reorder

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache over an optional persistent store.
func New(store Store, opts Options) *Cache {
	opts.defaults()
	return &Cache{
		opts:  opts,
		store: store,
		mem:   make(map[string]*Entry),
	}
}

// Get returns the cached entry for a fingerprint, or nil. Persistent hits are
// promoted into the memory tier with a refreshed last-access time. Store
// errors degrade to a miss.
func (c *Cache) Get(ctx context.Context, fingerprint string) *Entry {
	key := keyPrefix + fingerprint

	c.mu.Lock()
	if e, ok := c.mem[key]; ok {
		e.LastAccess = time.Now().UTC()
		c.mu.Unlock()
		c.hits.Add(1)
		return e
	}
	c.mu.Unlock()

	if c.store != nil {
		e, err := c.store.Get(ctx, key)
		if err != nil {
			zap.L().Warn("cache: persistent read failed", zap.String("key", key), zap.Error(err))
		} else if e != nil {
			e.LastAccess = time.Now().UTC()
			if err := c.store.Touch(ctx, key, e.LastAccess); err != nil {
				zap.L().Warn("cache: touch failed", zap.String("key", key), zap.Error(err))
			}
			c.mu.Lock()
			c.insertMemory(e)
			c.mu.Unlock()
			c.hits.Add(1)
			return e
		}
	}

	c.misses.Add(1)
	return nil
}

// Set stores a result under a fingerprint. The entry always enters the memory
// tier; persistence is skipped for oversized entries and write failures
// trigger one aggressive eviction before being swallowed.
func (c *Cache) Set(ctx context.Context, fingerprint string, dots []geo.ClassificationResult, debug geo.DebugInfo) *Entry {
	key := keyPrefix + fingerprint
	now := time.Now().UTC()

	raw, err := json.Marshal(payload{Dots: dots, Debug: debug})
	if err != nil {
		zap.L().Warn("cache: marshal failed", zap.String("key", key), zap.Error(err))
		return nil
	}

	e := &Entry{
		Key:        key,
		Dots:       dots,
		Debug:      debug,
		Created:    now,
		LastAccess: now,
		SizeBytes:  int64(len(raw)),
	}

	c.mu.Lock()
	c.insertMemory(e)
	c.mu.Unlock()

	if c.store == nil {
		return e
	}
	if e.SizeBytes > c.opts.MaxEntryBytes {
		zap.L().Info("cache: entry over byte ceiling, not persisted",
			zap.String("key", key),
			zap.Int64("size_bytes", e.SizeBytes),
			zap.Int64("ceiling", c.opts.MaxEntryBytes),
		)
		return e
	}
	if err := c.store.Put(ctx, e); err != nil {
		zap.L().Warn("cache: persistent write failed, running aggressive eviction",
			zap.String("key", key), zap.Error(err))
		if _, evictErr := c.Evict(ctx, true); evictErr != nil {
			zap.L().Warn("cache: aggressive eviction failed", zap.Error(evictErr))
		}
	}
	return e
}

// insertMemory appends under the insertion-order cap. Callers hold c.mu.
func (c *Cache) insertMemory(e *Entry) {
	if _, ok := c.mem[e.Key]; !ok {
		c.order = append(c.order, e.Key)
	}
	c.mem[e.Key] = e

	for len(c.mem) > c.opts.MemoryEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.mem, oldest)
	}
}

// Evict removes stale persistent entries: older than the normal TTL, or the
// aggressive TTL when aggressive is set. Aggressive eviction that finds
// nothing stale force-evicts the oldest half of entries by last access.
func (c *Cache) Evict(ctx context.Context, aggressive bool) (int, error) {
	if c.store == nil {
		return 0, nil
	}
	ttl := c.opts.TTL
	if aggressive {
		ttl = c.opts.AggressiveTTL
	}

	removed, err := c.store.EvictOlderThan(ctx, time.Now().UTC().Add(-ttl))
	if err != nil {
		return 0, err
	}
	if aggressive && removed == 0 {
		removed, err = c.store.EvictOldestHalf(ctx)
		if err != nil {
			return 0, err
		}
	}

	if removed > 0 {
		zap.L().Info("cache: evicted entries",
			zap.Int("removed", removed),
			zap.Bool("aggressive", aggressive),
		)
	}
	return removed, nil
}

// Stats returns current cache statistics. Persistent counts are best-effort.
func (c *Cache) Stats(ctx context.Context) Stats {
	c.mu.Lock()
	memEntries := len(c.mem)
	c.mu.Unlock()

	persisted := 0
	if c.store != nil {
		if n, err := c.store.Count(ctx); err == nil {
			persisted = n
		}
	}

	hits := c.hits.Load()
	misses := c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}

	return Stats{
		MemoryEntries:    memEntries,
		MemoryCap:        c.opts.MemoryEntries,
		PersistedEntries: persisted,
		Hits:             hits,
		Misses:           misses,
		HitRate:          rate,
	}
}

// Close releases the persistent store, if any.
func (c *Cache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}
