package cache

import (
	"testing"
	"time"
)

func TestNewTTLCacheRejectsBadConfig(t *testing.T) {
	if _, err := NewTTLCache[string, int](0, time.Minute); err == nil {
		t.Fatalf("expected error for zero max size")
	}
	if _, err := NewTTLCache[string, int](-1, time.Minute); err == nil {
		t.Fatalf("expected error for negative max size")
	}
	if _, err := NewTTLCache[string, int](10, 0); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
}

func TestTTLCacheEvictsLRU(t *testing.T) {
	c, err := NewTTLCache[string, int](2, 60*time.Second)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a evicted")
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Fatalf("expected b=2, got %v %v", v, ok)
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("expected c=3, got %v %v", v, ok)
	}
}

func TestTTLCacheReadRefreshesRecency(t *testing.T) {
	c, err := NewTTLCache[string, int](2, 60*time.Second)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	c.Set("a", 1)
	c.Set("b", 2)

	// Touch a so b becomes the LRU entry.
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a present")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a retained")
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c, err := NewTTLCache[string, string](10, time.Minute)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	now := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })

	c.Set("k", "v")
	if _, ok := c.Get("k"); !ok {
		t.Fatalf("expected hit before expiry")
	}

	now = now.Add(time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected miss at expiry boundary")
	}
}

func TestTTLCacheSetResetsExpiry(t *testing.T) {
	c, err := NewTTLCache[string, int](10, time.Minute)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	now := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })

	c.Set("k", 1)
	now = now.Add(45 * time.Second)
	c.Set("k", 2)
	now = now.Add(45 * time.Second)

	if v, ok := c.Get("k"); !ok || v != 2 {
		t.Fatalf("expected refreshed entry, got %v %v", v, ok)
	}
}

func TestTTLCacheSetPurgesExpiredBeforeEvicting(t *testing.T) {
	c, err := NewTTLCache[string, int](2, time.Minute)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	now := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })

	c.Set("a", 1)
	now = now.Add(30 * time.Second)
	c.Set("b", 2)

	// Touch a so it sits at the recent end while b is the LRU entry, then
	// let a expire. The expired entry must free its slot on the next write
	// instead of the live LRU entry being evicted.
	now = now.Add(20 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a present before expiry")
	}
	now = now.Add(20 * time.Second)
	c.Set("c", 3)

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected expired a gone")
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Fatalf("expected live b retained, got %v %v", v, ok)
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("expected c=3, got %v %v", v, ok)
	}
	if got := c.Len(); got != 2 {
		t.Fatalf("expected len 2, got %d", got)
	}
}

func TestTTLCacheLenPurges(t *testing.T) {
	c, err := NewTTLCache[string, int](10, time.Minute)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	now := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })

	c.Set("a", 1)
	c.Set("b", 2)
	if got := c.Len(); got != 2 {
		t.Fatalf("expected len 2, got %d", got)
	}

	now = now.Add(2 * time.Minute)
	if got := c.Len(); got != 0 {
		t.Fatalf("expected len 0 after expiry, got %d", got)
	}
}

func TestTTLCacheDeleteAbsentKey(t *testing.T) {
	c, err := NewTTLCache[string, int](10, time.Minute)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	c.Delete("missing") // no-op
	c.Set("a", 1)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a deleted")
	}
}
