// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about tree builds, mount resolution, backend sessions,
// cache operations, and HTTP fetches.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, so the core packages never
// import a metrics backend. The Prometheus implementation lives in the prom
// subpackage.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    m := prom.New(prometheus.DefaultRegisterer)
//	    observability.SetMountHooks(m)
//	    observability.SetSessionHooks(m)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Mount().OnBuildStart(ctx, provider, source)
//	// ... build the tree ...
//	observability.Mount().OnBuildComplete(ctx, provider, source, nodeCount, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Mount Hooks
// =============================================================================

// MountHooks receives events from tree builds and mount resolution.
type MountHooks interface {
	// Build events (one per Provider.BuildTree call)
	OnBuildStart(ctx context.Context, provider, source string)
	OnBuildComplete(ctx context.Context, provider, source string, nodeCount int, duration time.Duration, err error)

	// Resolution events (one per mount point resolved or refused)
	OnMountResolved(ctx context.Context, provider, continuation string, eager bool, duration time.Duration)
	OnMountFailed(ctx context.Context, provider, continuation, reason string)
}

// =============================================================================
// Session Hooks
// =============================================================================

// SessionHooks receives events from backend session caches.
type SessionHooks interface {
	// OnSessionOpen records a backend session being opened.
	OnSessionOpen(ctx context.Context, key string, err error)

	// OnSessionReuse records a cached session being returned unchanged.
	OnSessionReuse(ctx context.Context, key string)

	// OnSessionClose records a session being released.
	OnSessionClose(ctx context.Context, key string, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopMountHooks is a no-op implementation of MountHooks.
type NoopMountHooks struct{}

func (NoopMountHooks) OnBuildStart(context.Context, string, string) {}
func (NoopMountHooks) OnBuildComplete(context.Context, string, string, int, time.Duration, error) {
}
func (NoopMountHooks) OnMountResolved(context.Context, string, string, bool, time.Duration) {}
func (NoopMountHooks) OnMountFailed(context.Context, string, string, string)               {}

// NoopSessionHooks is a no-op implementation of SessionHooks.
type NoopSessionHooks struct{}

func (NoopSessionHooks) OnSessionOpen(context.Context, string, error)  {}
func (NoopSessionHooks) OnSessionReuse(context.Context, string)        {}
func (NoopSessionHooks) OnSessionClose(context.Context, string, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	mountHooks   MountHooks   = NoopMountHooks{}
	sessionHooks SessionHooks = NoopSessionHooks{}
	cacheHooks   CacheHooks   = NoopCacheHooks{}
	httpHooks    HTTPHooks    = NoopHTTPHooks{}
	hooksMu      sync.RWMutex
)

// SetMountHooks registers custom mount hooks.
// This should be called once at application startup before any tree is built.
func SetMountHooks(h MountHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		mountHooks = h
	}
}

// SetSessionHooks registers custom session hooks.
func SetSessionHooks(h SessionHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		sessionHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Mount returns the registered mount hooks.
func Mount() MountHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return mountHooks
}

// Session returns the registered session hooks.
func Session() SessionHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return sessionHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	mountHooks = NoopMountHooks{}
	sessionHooks = NoopSessionHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
