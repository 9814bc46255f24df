package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canon-router/models"
)

func newTestCache(clock Clock) *RoutingCache {
	return NewRoutingCache(time.Hour, 5*time.Minute, 100, 0, clock)
}

func successResult() *models.RoutingResult {
	return &models.RoutingResult{
		IsValid: true,
		Paths: []models.ReadingPath{
			{
				Angle: "Foundational understanding",
				Recommendations: []models.Recommendation{
					{ItemID: "item_d9d95145167f", ItemTitle: "Meditations", SubitemNumber: 1},
				},
			},
		},
	}
}

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t,
		"how do i deal with things i cant control",
		NormalizeQuery("How do I deal with things I can't control?"))

	assert.Equal(t, "hello world", NormalizeQuery("  Hello,   WORLD!  "))
	assert.Equal(t, "", NormalizeQuery("?!..."))
}

func TestCacheKey_NormalizedVariantsCollide(t *testing.T) {
	a := CacheKey("How do I deal with things I can't control?", "philosophy", "stoicism", 3)
	b := CacheKey("how do i deal   with things i cant control", "philosophy", "stoicism", 3)
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestCacheKey_VersionChangesKey(t *testing.T) {
	a := CacheKey("what is virtue", "philosophy", "stoicism", 3)
	b := CacheKey("what is virtue", "philosophy", "stoicism", 4)
	assert.NotEqual(t, a, b)
}

func TestRoutingCache_PutAndGet(t *testing.T) {
	cache := newTestCache(nil)
	defer cache.Stop()

	_, ok := cache.Get("what is virtue", "philosophy", "stoicism", 1)
	assert.False(t, ok)

	cache.Put("what is virtue", "philosophy", "stoicism", 1, successResult())

	got, ok := cache.Get("What is virtue?", "philosophy", "stoicism", 1)
	require.True(t, ok)
	assert.True(t, got.IsValid)

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate)
}

func TestRoutingCache_PeekDoesNotTouchCounters(t *testing.T) {
	cache := newTestCache(nil)
	defer cache.Stop()

	key := CacheKey("what is virtue", "philosophy", "stoicism", 1)

	_, ok := cache.Peek(key)
	assert.False(t, ok)

	cache.Put("what is virtue", "philosophy", "stoicism", 1, successResult())

	got, ok := cache.Peek(key)
	require.True(t, ok)
	assert.True(t, got.IsValid)

	stats := cache.Stats()
	assert.Zero(t, stats.Hits)
	assert.Zero(t, stats.Misses)
}

func TestRoutingCache_SuccessTTLExpiry(t *testing.T) {
	now := time.Now()
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	cache := newTestCache(clock)
	defer cache.Stop()

	cache.Put("q", "philosophy", "", 1, successResult())

	_, ok := cache.Get("q", "philosophy", "", 1)
	require.True(t, ok)

	mu.Lock()
	now = now.Add(time.Hour + time.Second)
	mu.Unlock()

	_, ok = cache.Get("q", "philosophy", "", 1)
	assert.False(t, ok)
}

func TestRoutingCache_RefusalUsesShorterTTL(t *testing.T) {
	now := time.Now()
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	cache := newTestCache(clock)
	defer cache.Stop()

	cache.Put("q", "philosophy", "", 1, models.Refusal("no valid recommendations in candidate set"))

	_, ok := cache.Get("q", "philosophy", "", 1)
	require.True(t, ok)

	// Past the refusal TTL but well inside the success TTL
	mu.Lock()
	now = now.Add(6 * time.Minute)
	mu.Unlock()

	_, ok = cache.Get("q", "philosophy", "", 1)
	assert.False(t, ok)
}

func TestRoutingCache_VersionBumpMakesEntriesUnreachable(t *testing.T) {
	cache := newTestCache(nil)
	defer cache.Stop()

	cache.Put("q", "philosophy", "stoicism", 1, successResult())

	_, ok := cache.Get("q", "philosophy", "stoicism", 2)
	assert.False(t, ok)

	// The old entry is still there under its own version
	_, ok = cache.Get("q", "philosophy", "stoicism", 1)
	assert.True(t, ok)
}

func TestRoutingCache_EvictionAtCapacity(t *testing.T) {
	now := time.Now()
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	cache := NewRoutingCache(time.Hour, 5*time.Minute, 3, 0, clock)
	defer cache.Stop()

	for i := 0; i < 3; i++ {
		cache.Put(fmt.Sprintf("query %d", i), "philosophy", "", 1, successResult())
		mu.Lock()
		now = now.Add(time.Second)
		mu.Unlock()
	}

	cache.Put("query 3", "philosophy", "", 1, successResult())

	// Oldest entry was evicted, newest survives
	_, ok := cache.Get("query 0", "philosophy", "", 1)
	assert.False(t, ok)
	_, ok = cache.Get("query 3", "philosophy", "", 1)
	assert.True(t, ok)
	assert.Equal(t, 3, cache.Stats().Entries)
}

func TestRoutingCache_Sweep(t *testing.T) {
	now := time.Now()
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	cache := newTestCache(clock)
	defer cache.Stop()

	cache.Put("keep", "philosophy", "", 1, successResult())
	cache.Put("drop", "philosophy", "", 1, models.Refusal("no valid recommendations in candidate set"))

	mu.Lock()
	now = now.Add(10 * time.Minute)
	mu.Unlock()

	removed := cache.Sweep()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, cache.Stats().Entries)
}

func TestRoutingCache_Clear(t *testing.T) {
	cache := newTestCache(nil)
	defer cache.Stop()

	cache.Put("q", "philosophy", "", 1, successResult())
	cache.Get("q", "philosophy", "", 1)
	cache.Clear()

	stats := cache.Stats()
	assert.Equal(t, 0, stats.Entries)
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)
}

func TestRoutingCache_DoCollapsesConcurrentCalls(t *testing.T) {
	cache := newTestCache(nil)
	defer cache.Stop()

	var calls int64
	release := make(chan struct{})

	fn := func() (*models.RoutingResult, error) {
		atomic.AddInt64(&calls, 1)
		<-release
		return successResult(), nil
	}

	const waiters = 5
	var wg, ready sync.WaitGroup
	results := make([]*models.RoutingResult, waiters)
	errs := make([]error, waiters)

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		ready.Add(1)
		go func(i int) {
			defer wg.Done()
			ready.Done()
			results[i], errs[i] = cache.Do(context.Background(), "same-key", fn)
		}(i)
	}

	// The flight stays blocked on release until every waiter has joined it
	ready.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
	for i := 0; i < waiters; i++ {
		require.NoError(t, errs[i])
		assert.True(t, results[i].IsValid)
	}
}

func TestRoutingCache_DoCancelledCallerStopsWaiting(t *testing.T) {
	cache := newTestCache(nil)
	defer cache.Stop()

	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := cache.Do(ctx, "slow-key", func() (*models.RoutingResult, error) {
			<-release
			return successResult(), nil
		})
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}
}
