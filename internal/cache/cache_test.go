// ABOUTME: Tests for the TTL response cache used by the geocoding handlers.
// ABOUTME: Validates TTL expiration, size limits, eviction, cleanup, and concurrency safety.

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_Get_Missing(t *testing.T) {
	cache := New(5*time.Minute, 100)
	defer cache.Close()

	_, ok := cache.Get("never-set-key")
	assert.False(t, ok)
}

func TestCache_SetAndGet(t *testing.T) {
	cache := New(5*time.Minute, 100)
	defer cache.Close()

	cache.Set("autocomplete:zarag", []byte(`{"predictions":[]}`))

	got, ok := cache.Get("autocomplete:zarag")
	assert.True(t, ok)
	assert.Equal(t, []byte(`{"predictions":[]}`), got)
}

func TestCache_Get_Expired(t *testing.T) {
	// Use a very short TTL for testing
	cache := New(10*time.Millisecond, 100)
	defer cache.Close()

	cache.Set("expiring-key", []byte("value"))

	// Should be present initially
	_, ok := cache.Get("expiring-key")
	assert.True(t, ok)

	// Wait for TTL to expire
	time.Sleep(20 * time.Millisecond)

	// Should no longer be returned after TTL
	_, ok = cache.Get("expiring-key")
	assert.False(t, ok)
}

func TestCache_SetWithTTL_Overrides(t *testing.T) {
	cache := New(5*time.Minute, 100)
	defer cache.Close()

	cache.SetWithTTL("short-lived", []byte("value"), 10*time.Millisecond)

	_, ok := cache.Get("short-lived")
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	// The entry TTL wins over the cache default
	_, ok = cache.Get("short-lived")
	assert.False(t, ok)
}

func TestCache_Set_ReplacesValue(t *testing.T) {
	cache := New(5*time.Minute, 100)
	defer cache.Close()

	cache.Set("key", []byte("first"))
	cache.Set("key", []byte("second"))

	got, ok := cache.Get("key")
	assert.True(t, ok)
	assert.Equal(t, []byte("second"), got)
}

func TestCache_Delete(t *testing.T) {
	cache := New(5*time.Minute, 100)
	defer cache.Close()

	cache.Set("key", []byte("value"))
	cache.Delete("key")

	_, ok := cache.Get("key")
	assert.False(t, ok)

	// Deleting an absent key is a no-op
	cache.Delete("key")
}

func TestCache_Eviction(t *testing.T) {
	// Small cache for testing eviction
	cache := New(5*time.Minute, 3)
	defer cache.Close()

	// Fill the cache
	cache.Set("key-1", []byte("1"))
	cache.Set("key-2", []byte("2"))
	cache.Set("key-3", []byte("3"))

	// All three should be present
	_, ok := cache.Get("key-1")
	assert.True(t, ok)
	_, ok = cache.Get("key-2")
	assert.True(t, ok)
	_, ok = cache.Get("key-3")
	assert.True(t, ok)

	// Add a fourth key - should evict the oldest (key-1)
	cache.Set("key-4", []byte("4"))

	_, ok = cache.Get("key-1")
	assert.False(t, ok, "oldest key should be evicted")

	// Other keys should remain
	_, ok = cache.Get("key-2")
	assert.True(t, ok)
	_, ok = cache.Get("key-3")
	assert.True(t, ok)
	_, ok = cache.Get("key-4")
	assert.True(t, ok)
}

func TestCache_UpdateMovesToBack(t *testing.T) {
	cache := New(5*time.Minute, 3)
	defer cache.Close()

	cache.Set("key-1", []byte("1"))
	cache.Set("key-2", []byte("2"))
	cache.Set("key-3", []byte("3"))

	// Refresh key-1 so key-2 becomes the oldest
	cache.Set("key-1", []byte("1b"))
	cache.Set("key-4", []byte("4"))

	_, ok := cache.Get("key-2")
	assert.False(t, ok, "key-2 should be evicted after key-1 was refreshed")

	got, ok := cache.Get("key-1")
	assert.True(t, ok)
	assert.Equal(t, []byte("1b"), got)
}

func TestCache_Cleanup(t *testing.T) {
	// Note: cleanup runs every minute by default, so we test that expired
	// entries are correctly removed, not the actual goroutine timing
	cache := New(10*time.Millisecond, 100)
	defer cache.Close()

	cache.Set("cleanup-1", []byte("1"))
	cache.Set("cleanup-2", []byte("2"))

	// Wait for entries to expire
	time.Sleep(20 * time.Millisecond)

	cache.runCleanup()

	// Verify the map is empty after cleanup
	cache.mu.RLock()
	mapLen := len(cache.entries)
	cache.mu.RUnlock()
	assert.Equal(t, 0, mapLen, "cleanup should remove expired entries from map")
}

func TestCache_Concurrent(t *testing.T) {
	cache := New(5*time.Minute, 1000)
	defer cache.Close()

	const numGoroutines = 100
	const opsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	// Concurrent sets and gets
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < opsPerGoroutine; j++ {
				key := fmt.Sprintf("key-%d-%d", id%26, j%10)
				cache.Set(key, []byte("value"))
				cache.Get(key)
			}
		}(i)
	}

	wg.Wait()

	// No panics or race conditions - test passes if we get here
	// Also verify cache is still functional
	cache.Set("final-key", []byte("final"))
	_, ok := cache.Get("final-key")
	assert.True(t, ok)
}

func TestCache_Close_Idempotent(t *testing.T) {
	cache := New(5*time.Minute, 100)

	cache.Set("before-close", []byte("value"))
	cache.Close()

	// Second close must not panic
	cache.Close()
}
