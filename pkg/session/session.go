// Package session holds the per-provider backend state that makes repeated
// mount resolution cheap and loop-safe.
//
// A [Cache] memoizes exactly one open backend session (a database
// connection, a parsed document, a client) keyed by its source. Sibling
// subtrees of one document usually mount continuations that point back at
// the same document with different query parameters, so the second and later
// resolutions reuse the session instead of reopening the backend.
//
// A [Guard] remembers the last top-level source a provider was asked to open
// and refuses the same source again, which stops a document that links to
// itself from looping through "follow link" actions.
//
// # Concurrency
//
// Both types are plain provider-instance state and are not safe for
// concurrent use. Callers that share a provider between goroutines must
// serialize access; distinct provider instances need no coordination.
//
// # Usage
//
//	cache := session.NewCache(func(ctx context.Context, key string) (*sql.DB, error) {
//	    return sql.Open("sqlite", key)
//	})
//	defer cache.Close()
//
//	db, err := cache.Get(ctx, "file:///data/app.db") // opens
//	db, err = cache.Get(ctx, "file:///data/app.db")  // reused
//	db, err = cache.Get(ctx, "file:///data/other.db") // closes app.db, opens other.db
package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/matzehuels/graftwood/pkg/observability"
)

// ErrClosed is returned by [Cache.Get] after [Cache.Close].
var ErrClosed = errors.New("session cache closed")

// Opener opens a backend session for a source key.
type Opener[S io.Closer] func(ctx context.Context, key string) (S, error)

// Cache holds one (key, session) pair. Get with the key of the held session
// returns it unchanged; any other key closes the held session first and then
// opens a new one.
type Cache[S io.Closer] struct {
	open   Opener[S]
	key    string
	sess   S
	held   bool
	closed bool
}

// NewCache creates an empty cache that opens sessions with open.
func NewCache[S io.Closer](open Opener[S]) *Cache[S] {
	return &Cache[S]{open: open}
}

// Get returns the session for key, opening it if the cache holds a session
// for a different key (or none). The previous session is closed before the
// new one is opened even if opening then fails, so at most one backend
// session is alive per cache.
func (c *Cache[S]) Get(ctx context.Context, key string) (S, error) {
	var zero S
	if c.closed {
		return zero, ErrClosed
	}
	if c.held && c.key == key {
		observability.Session().OnSessionReuse(ctx, key)
		return c.sess, nil
	}

	// A failing Close must not keep the stale session around.
	_ = c.release(ctx)

	s, err := c.open(ctx, key)
	observability.Session().OnSessionOpen(ctx, key, err)
	if err != nil {
		return zero, fmt.Errorf("open session %s: %w", key, err)
	}
	c.key, c.sess, c.held = key, s, true
	return s, nil
}

// Key returns the key of the held session, or "" when nothing is held.
func (c *Cache[S]) Key() string {
	if !c.held {
		return ""
	}
	return c.key
}

// Held reports whether a session is currently cached.
func (c *Cache[S]) Held() bool { return c.held }

// Invalidate closes the held session, if any. The next Get reopens.
func (c *Cache[S]) Invalidate(ctx context.Context) error {
	return c.release(ctx)
}

// Close releases the held session and makes further Get calls fail.
// Close is idempotent.
func (c *Cache[S]) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.release(context.Background())
}

func (c *Cache[S]) release(ctx context.Context) error {
	if !c.held {
		return nil
	}
	key, s := c.key, c.sess
	var zero S
	c.key, c.sess, c.held = "", zero, false
	err := s.Close()
	observability.Session().OnSessionClose(ctx, key, err)
	if err != nil {
		return fmt.Errorf("close session %s: %w", key, err)
	}
	return nil
}

// NopCloser wraps a value with nothing to release (a parsed document held in
// memory) so it can be kept in a [Cache].
type NopCloser[T any] struct {
	Value T
}

// Close does nothing.
func (NopCloser[T]) Close() error { return nil }
