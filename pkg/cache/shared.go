package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// SharedTTL adapts the unsynchronized TTLCache to the Service interface by
// serializing access behind a mutex. Values are stored as JSON so Get can
// unmarshal into the caller's destination, mirroring the Redis backend.
//
// The per-entry expiration argument is ignored: entries live for the TTL the
// underlying cache was constructed with.
type SharedTTL struct {
	mu    sync.Mutex
	cache *TTLCache[string, []byte]
}

// NewSharedTTL wraps a bounded TTL cache for concurrent callers.
func NewSharedTTL(maxSize int, ttl time.Duration) (*SharedTTL, error) {
	c, err := NewTTLCache[string, []byte](maxSize, ttl)
	if err != nil {
		return nil, err
	}
	return &SharedTTL{cache: c}, nil
}

func (s *SharedTTL) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		var err error
		data, err = json.Marshal(value)
		if err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.cache.Set(key, data)
	s.mu.Unlock()
	return nil
}

func (s *SharedTTL) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	data, ok := s.cache.Get(key)
	s.mu.Unlock()
	if !ok {
		return ErrCacheMiss
	}
	if strPtr, ok := dest.(*string); ok {
		*strPtr = string(data)
		return nil
	}
	return json.Unmarshal(data, dest)
}

func (s *SharedTTL) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, key := range keys {
		s.cache.Delete(key)
	}
	s.mu.Unlock()
	return nil
}

func (s *SharedTTL) Close() error { return nil }
