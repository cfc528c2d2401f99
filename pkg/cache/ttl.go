package cache

import (
	"container/list"
	"fmt"
	"time"
)

// TTLCache is a fixed-capacity key/value store with per-entry absolute expiry
// and strict LRU eviction. Reads refresh recency. Expired entries are purged
// lazily on every access, so there is no background timer.
//
// TTLCache is not safe for concurrent use. Callers that share one across
// goroutines must serialize access themselves (see SharedTTL).
type TTLCache[K comparable, V any] struct {
	maxSize int
	ttl     time.Duration
	entries map[K]*list.Element
	order   *list.List // front = most recently used
	now     func() time.Time
}

type ttlEntry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// NewTTLCache creates a bounded TTL cache. maxSize and ttl must be positive.
func NewTTLCache[K comparable, V any](maxSize int, ttl time.Duration) (*TTLCache[K, V], error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("ttl cache: max size must be positive, got %d", maxSize)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl cache: ttl must be positive, got %s", ttl)
	}
	return &TTLCache[K, V]{
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[K]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}, nil
}

// SetClock replaces the cache's time source. Test hook.
func (c *TTLCache[K, V]) SetClock(now func() time.Time) {
	c.now = now
}

// Set purges expired entries, inserts or replaces the entry, resets its
// expiry to now+ttl, marks it most recently used, then evicts the LRU entry
// if capacity is exceeded. Purging first keeps a full cache from evicting a
// live entry while an expired one still holds a slot.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.purge()
	if el, ok := c.entries[key]; ok {
		ent := el.Value.(*ttlEntry[K, V])
		ent.value = value
		ent.expiresAt = c.now().Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&ttlEntry[K, V]{
		key:       key,
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	})
	c.entries[key] = el

	if len(c.entries) > c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// Get purges expired entries, then returns the value if present, marking it
// most recently used. Absence does not distinguish expiry from never-set.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.purge()
	var zero V
	el, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*ttlEntry[K, V]).value, true
}

// Delete removes the entry if present.
func (c *TTLCache[K, V]) Delete(key K) {
	if el, ok := c.entries[key]; ok {
		c.removeElement(el)
	}
}

// Len returns the count of non-expired entries, purging as a side effect.
func (c *TTLCache[K, V]) Len() int {
	c.purge()
	return len(c.entries)
}

func (c *TTLCache[K, V]) purge() {
	now := c.now()
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if ent := el.Value.(*ttlEntry[K, V]); !now.Before(ent.expiresAt) {
			c.removeElement(el)
		}
		el = prev
	}
}

func (c *TTLCache[K, V]) removeElement(el *list.Element) {
	ent := el.Value.(*ttlEntry[K, V])
	c.order.Remove(el)
	delete(c.entries, ent.key)
}
