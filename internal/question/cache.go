package question

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL bounds how long a generated set is served from memory.
const DefaultCacheTTL = 30 * time.Minute

// Cache stores generated question sets by request key.
type Cache interface {
	Get(key string) ([]Question, bool)
	Put(key string, questions []Question)
}

// CacheKey derives the cache key for a validated request.
func CacheKey(req GenerationRequest) string {
	return strings.Join([]string{
		NormalizeTopic(req.Topic),
		strings.ToLower(req.Difficulty),
		strconv.Itoa(req.Count),
	}, ":")
}

type cacheEntry struct {
	questions []Question
	createdAt time.Time
}

// MemoryCache is an in-process Cache with lazy TTL expiry. Expired entries are
// reported absent and stay in the map until overwritten.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

var _ Cache = (*MemoryCache)(nil)

// CacheOption customizes a MemoryCache.
type CacheOption func(*MemoryCache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *MemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}

func NewMemoryCache(ttl time.Duration, opts ...CacheOption) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &MemoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MemoryCache) Get(key string) ([]Question, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.createdAt) > c.ttl {
		return nil, false
	}
	return CloneAll(entry.questions), true
}

func (c *MemoryCache) Put(key string, questions []Question) {
	entry := cacheEntry{questions: CloneAll(questions), createdAt: c.now()}
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

// Len reports stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
