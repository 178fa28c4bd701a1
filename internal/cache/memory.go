package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is the in-process cache layer
type Memory struct {
	store *gocache.Cache
}

// NewMemory creates an in-memory cache with the given default TTL
func NewMemory(defaultTTL, cleanupInterval time.Duration) *Memory {
	return &Memory{store: gocache.New(defaultTTL, cleanupInterval)}
}

// Get retrieves a value
func (m *Memory) Get(key string) ([]byte, bool) {
	v, found := m.store.Get(key)
	if !found {
		return nil, false
	}
	return v.([]byte), true
}

// Set stores a value; ttl of 0 uses the cache default
func (m *Memory) Set(key string, value []byte, ttl time.Duration) error {
	m.store.Set(key, value, ttl)
	return nil
}

// Delete removes a value
func (m *Memory) Delete(key string) error {
	m.store.Delete(key)
	return nil
}

// Clear drops everything
func (m *Memory) Clear() error {
	m.store.Flush()
	return nil
}
