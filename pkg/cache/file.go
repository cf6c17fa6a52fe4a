package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// FileCache stores cache entries as raw files in a directory. The filename
// is the SHA-256 of the key (first two hex chars as a subdirectory for
// distribution), and expiration is tracked through the file's modification
// time. Expired or unreadable entries self-evict as misses.
//
// Multiple FileCache instances, even in different processes, can safely
// share the same directory; the filesystem provides atomic file operations.
type FileCache struct {
	dir string
	ttl time.Duration
}

// NewFileCache creates a file-based cache in the given directory, creating
// it if needed. A ttl of 0 means entries never expire.
func NewFileCache(dir string, ttl time.Duration) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir, ttl: ttl}, nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string { return c.dir }

// Get retrieves a value from the cache.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if c.ttl > 0 && time.Since(info.ModTime()) > c.ttl {
		_ = os.Remove(path)
		return nil, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		// Entry vanished or is unreadable - treat as miss
		return nil, false, nil
	}
	return data, true, nil
}

// Set stores a value in the cache. Expiration is enforced through mtime
// against the cache-level TTL; the per-call ttl is ignored.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Delete removes a value from the cache.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close does nothing for file cache.
func (c *FileCache) Close() error {
	return nil
}

// path converts a cache key to a file path.
// Uses a hash-based directory structure to avoid too many files in one dir.
func (c *FileCache) path(key string) string {
	hash := Hash([]byte(key))
	return filepath.Join(c.dir, hash[:2], hash[2:])
}

// Ensure FileCache implements Cache.
var _ Cache = (*FileCache)(nil)
