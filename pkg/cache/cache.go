// Package cache provides a pluggable byte cache used by the registry client
// to avoid re-fetching published version lists.
//
// Three backends implement the [Cache] interface:
//   - [FileCache]: entries as files on disk, TTL via modification time
//   - [RedisCache]: go-redis backed, native TTL, for shared build machines
//   - [NullCache]: no-op, for --no-cache runs and tests
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is the interface all cache backends implement.
type Cache interface {
	// Get retrieves a value. The bool reports whether the key was found
	// and fresh; expired or corrupt entries are misses, not errors.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
