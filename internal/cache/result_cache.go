package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/config"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/domain"
)

// ResultCache stores the outcome of each upload so later queries and
// exports can reuse it. The last Put for an id wins.
type ResultCache interface {
	Put(ctx context.Context, id domain.UploadID, entry *domain.CacheEntry) error
	Get(ctx context.Context, id domain.UploadID) (*domain.CacheEntry, bool, error)
	Close(ctx context.Context) error
}

// EvictionPolicy decides whether an entry created at createdAt is stale at now.
type EvictionPolicy func(createdAt, now time.Time) bool

// NeverEvict keeps entries for the lifetime of the process.
func NeverEvict(createdAt, now time.Time) bool {
	return false
}

// MaxAge evicts entries older than d.
func MaxAge(d time.Duration) EvictionPolicy {
	return func(createdAt, now time.Time) bool {
		return now.Sub(createdAt) > d
	}
}

type memoryEntry struct {
	entry    *domain.CacheEntry
	storedAt time.Time
}

type memoryResultCache struct {
	mu      sync.RWMutex
	entries map[domain.UploadID]memoryEntry
	evict   EvictionPolicy
	now     func() time.Time
}

// MemoryOption configures the in-process cache.
type MemoryOption func(*memoryResultCache)

// WithEviction sets the eviction policy. The default is NeverEvict.
func WithEviction(policy EvictionPolicy) MemoryOption {
	return func(c *memoryResultCache) {
		if policy != nil {
			c.evict = policy
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *memoryResultCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewMemoryResultCache returns a process-local cache.
func NewMemoryResultCache(opts ...MemoryOption) ResultCache {
	c := &memoryResultCache{
		entries: make(map[domain.UploadID]memoryEntry),
		evict:   NeverEvict,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewResultCache picks the backend named by cfg.Backend.
func NewResultCache(cfg config.CacheConfig) (ResultCache, error) {
	switch cfg.Backend {
	case "", "memory":
		var opts []MemoryOption
		if cfg.MaxAgeSeconds > 0 {
			opts = append(opts, WithEviction(MaxAge(time.Duration(cfg.MaxAgeSeconds)*time.Second)))
		}
		return NewMemoryResultCache(opts...), nil
	case "redis":
		return NewRedisResultCache(cfg)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func (c *memoryResultCache) Put(ctx context.Context, id domain.UploadID, entry *domain.CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("nil cache entry for upload %s", id)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = memoryEntry{entry: entry, storedAt: c.now()}
	return nil
}

func (c *memoryResultCache) Get(ctx context.Context, id domain.UploadID) (*domain.CacheEntry, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.evict(e.storedAt, c.now()) {
		c.mu.Lock()
		// Another Put may have replaced it meanwhile.
		if cur, still := c.entries[id]; still && cur.storedAt.Equal(e.storedAt) {
			delete(c.entries, id)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.entry, true, nil
}

func (c *memoryResultCache) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[domain.UploadID]memoryEntry)
	return nil
}
