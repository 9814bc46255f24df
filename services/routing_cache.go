package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/sync/singleflight"

	"canon-router/models"
)

// Clock is an injectable time source so expiry is testable
type Clock func() time.Time

// CacheStats reports routing cache performance
type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Entries int     `json:"entries"`
	MaxSize int     `json:"max_size"`
}

// cacheEntry holds one cached routing result
type cacheEntry struct {
	result    *models.RoutingResult
	createdAt time.Time
	expiresAt time.Time
}

// RoutingCache memoizes routing results keyed by normalized query, category
// pair and artifact version. Because the version is part of the key, a
// version bump makes every prior entry unreachable without any explicit
// invalidation; the janitor reclaims the memory as entries expire.
type RoutingCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry

	successTTL time.Duration
	refusalTTL time.Duration
	maxSize    int

	clock  Clock
	flight singleflight.Group

	hits   int64
	misses int64

	janitor  *time.Ticker
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewRoutingCache creates a routing cache. A nil clock uses wall time;
// cleanupInterval <= 0 disables the janitor.
func NewRoutingCache(successTTL, refusalTTL time.Duration, maxSize int, cleanupInterval time.Duration, clock Clock) *RoutingCache {
	if clock == nil {
		clock = time.Now
	}

	c := &RoutingCache{
		entries:    make(map[string]*cacheEntry),
		successTTL: successTTL,
		refusalTTL: refusalTTL,
		maxSize:    maxSize,
		clock:      clock,
		stopChan:   make(chan struct{}),
	}

	if cleanupInterval > 0 {
		c.janitor = time.NewTicker(cleanupInterval)
		go c.runJanitor()
	}

	return c
}

// NormalizeQuery lowercases, strips punctuation, collapses whitespace and
// trims. "How do I deal with things I can't control?" becomes
// "how do i deal with things i cant control".
func NormalizeQuery(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	for _, r := range strings.ToLower(query) {
		if unicode.IsPunct(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// CacheKey derives the lookup key for a query at an artifact version
func CacheKey(query, categoryID, subcategoryID string, artifactVersion int) string {
	components := fmt.Sprintf("%s::%s::%s::%d",
		NormalizeQuery(query), categoryID, subcategoryID, artifactVersion)
	sum := sha256.Sum256([]byte(components))
	return hex.EncodeToString(sum[:])[:16]
}

// Get returns the cached result for the key, if present and unexpired
func (c *RoutingCache) Get(query, categoryID, subcategoryID string, artifactVersion int) (*models.RoutingResult, bool) {
	key := CacheKey(query, categoryID, subcategoryID, artifactVersion)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	if c.clock().After(entry.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}

	c.hits++
	return entry.result, true
}

// Peek looks up a precomputed key without touching the hit/miss counters.
// It exists for the double-check inside a single-flight call, where the
// caller's miss has already been counted once.
func (c *RoutingCache) Peek(key string) (*models.RoutingResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.clock().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.result, true
}

// Put stores a result, choosing the TTL by outcome: refusals expire sooner
// so bad queries retry once artifacts improve, without hammering the
// recommender in the meantime.
func (c *RoutingCache) Put(query, categoryID, subcategoryID string, artifactVersion int, result *models.RoutingResult) {
	key := CacheKey(query, categoryID, subcategoryID, artifactVersion)

	ttl := c.successTTL
	if !result.IsValid {
		ttl = c.refusalTTL
	}

	now := c.clock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}

	c.entries[key] = &cacheEntry{
		result:    result,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
}

// Do coalesces concurrent computations for the same key: N concurrent
// misses trigger exactly one fn call, the rest receive its result. A
// caller whose context is cancelled stops waiting while the in-flight
// call continues for the remaining waiters.
func (c *RoutingCache) Do(ctx context.Context, key string, fn func() (*models.RoutingResult, error)) (*models.RoutingResult, error) {
	ch := c.flight.DoChan(key, func() (interface{}, error) {
		return fn()
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.RoutingResult), nil
	}
}

// Sweep removes expired entries and reports how many were removed
func (c *RoutingCache) Sweep() int {
	now := c.clock()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear removes all entries and resets counters
func (c *RoutingCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics
func (c *RoutingCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Hits:    c.hits,
		Misses:  c.misses,
		Entries: len(c.entries),
		MaxSize: c.maxSize,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// Stop terminates the janitor goroutine
func (c *RoutingCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
		if c.janitor != nil {
			c.janitor.Stop()
		}
	})
}

func (c *RoutingCache) runJanitor() {
	for {
		select {
		case <-c.janitor.C:
			c.Sweep()
		case <-c.stopChan:
			return
		}
	}
}

// evictOldestLocked drops the oldest entry; caller holds the lock
func (c *RoutingCache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.createdAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.createdAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
