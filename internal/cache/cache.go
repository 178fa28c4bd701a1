// Package cache stores per-run computed artifacts, primarily embedding
// vectors, so repeated runs over the same promise corpus skip paid
// embedding-service calls.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is the byte-value cache contract shared by all layers
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a stable cache key from arbitrary text. The text itself never
// becomes a filename; only its digest does.
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "promislink:v1:" + hex.EncodeToString(sum[:])
}
