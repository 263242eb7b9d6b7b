// Package cache stores encoded boundary catalogs between runs so the load
// path can skip slow open-data fetches. A cache is optional: misses and
// cache errors never change what the dashboard computes.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
)

// Cache is a byte-payload store addressed by key.
type Cache interface {
	// Get returns the payload for key and whether it was found and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores the payload under key, replacing any previous value.
	Put(ctx context.Context, key string, data []byte) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Close releases the backing store.
	Close() error
}

// Key derives a stable cache key from its parts (for example a source URL
// and key field). Parts are trimmed and joined before hashing.
func Key(parts ...string) string {
	trimmed := make([]string, len(parts))
	for i, p := range parts {
		trimmed[i] = strings.TrimSpace(p)
	}
	h := sha256.Sum256([]byte(strings.Join(trimmed, "|")))
	return fmt.Sprintf("%x", h)
}

// shortKey truncates a key for log fields.
func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
