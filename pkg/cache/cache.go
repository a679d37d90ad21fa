// Package cache stores fetched documents between runs.
//
// Providers re-read the same documents many times: every mount resolution of
// a remote outline, XML file or taxonomy fetches the document again with
// different query parameters. The source fetcher keeps the raw bytes in a
// [Cache] so only the first fetch touches the network.
//
// Three backends are available:
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: shared across `graftwood serve` instances
//   - [NullCache]: caching disabled
//
// Keys are built by a [Keyer] so that backends never see raw URLs.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry TTL.
type Cache interface {
	// Get returns the stored value and whether it was found. Expired entries
	// are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of 0 means the entry does not expire.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}

// Keyer builds the key under which a fetched document is stored.
type Keyer interface {
	DocumentKey(source string) string
}

// DefaultKeyer builds unscoped keys of the form "doc:<sha256 of source>".
type DefaultKeyer struct{}

// NewDefaultKeyer creates a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// DocumentKey hashes the source so keys have a fixed length.
func (DefaultKeyer) DocumentKey(source string) string {
	return "doc:" + digest(source)
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
