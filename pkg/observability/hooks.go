// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about manipulator execution, cache operations, and
// registry HTTP calls.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetManipulationHooks(&myManipulationHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Manipulation().OnManipulatorStart(ctx, kind)
//	// ... apply changes ...
//	observability.Manipulation().OnManipulatorComplete(ctx, kind, changed, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Manipulation Hooks
// =============================================================================

// ManipulationHooks receives events from the manipulation manager.
type ManipulationHooks interface {
	// OnManipulatorStart records the start of one manipulator's execution.
	OnManipulatorStart(ctx context.Context, kind string)

	// OnManipulatorComplete records a finished manipulator along with the
	// number of projects it reported as changed.
	OnManipulatorComplete(ctx context.Context, kind string, changed int, duration time.Duration, err error)

	// OnPersist records one project persistence attempt.
	OnPersist(ctx context.Context, project string, err error)
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

// NoopManipulationHooks is a no-op implementation of ManipulationHooks.
type NoopManipulationHooks struct{}

func (NoopManipulationHooks) OnManipulatorStart(context.Context, string) {}
func (NoopManipulationHooks) OnManipulatorComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopManipulationHooks) OnPersist(context.Context, string, error) {}

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
	manipulationHooks ManipulationHooks = NoopManipulationHooks{}
	cacheHooks        CacheHooks        = NoopCacheHooks{}
	httpHooks         HTTPHooks         = NoopHTTPHooks{}
	hooksMu           sync.RWMutex
)

// SetManipulationHooks registers custom manipulation hooks.
// This should be called once at application startup before any manipulation runs.
func SetManipulationHooks(h ManipulationHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		manipulationHooks = h
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

// Manipulation returns the registered manipulation hooks.
func Manipulation() ManipulationHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return manipulationHooks
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
	manipulationHooks = NoopManipulationHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
