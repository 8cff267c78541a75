// Package observability lets callers attach metrics, tracing or logging to
// update runs without the core packages depending on a backend.
//
// Hooks default to no-ops. Register implementations once at startup:
//
//	observability.SetUpdateHooks(&myUpdateHooks{})
//	observability.SetCacheHooks(&myCacheHooks{})
//
// Library code emits events through the accessors:
//
//	observability.Update().OnManifestStart(ctx, path, "automatic")
//	// ... process the manifest ...
//	observability.Update().OnManifestComplete(ctx, path, "updated", 3, elapsed, nil)
package observability

import (
	"context"
	"sync"
	"time"
)

// UpdateHooks receives events from manifest processing.
type UpdateHooks interface {
	OnManifestStart(ctx context.Context, path, mode string)
	OnManifestComplete(ctx context.Context, path, outcome string, actions int, duration time.Duration, err error)

	// OnRegistryQuery fires once per package lookup that reaches the
	// registry, after memoisation.
	OnRegistryQuery(ctx context.Context, pkg string, candidates int, duration time.Duration, err error)
}

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)
	// OnError records a transport failure such as a timeout.
	OnError(ctx context.Context, method, host, path string, err error)
}

// NoopUpdateHooks ignores all events.
type NoopUpdateHooks struct{}

func (NoopUpdateHooks) OnManifestStart(context.Context, string, string) {}
func (NoopUpdateHooks) OnManifestComplete(context.Context, string, string, int, time.Duration, error) {
}
func (NoopUpdateHooks) OnRegistryQuery(context.Context, string, int, time.Duration, error) {}

// NoopCacheHooks ignores all events.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks ignores all events.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

var (
	updateHooks UpdateHooks = NoopUpdateHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	httpHooks   HTTPHooks   = NoopHTTPHooks{}
	hooksMu     sync.RWMutex
)

// SetUpdateHooks registers update hooks. Nil is ignored.
func SetUpdateHooks(h UpdateHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		updateHooks = h
	}
}

// SetCacheHooks registers cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers HTTP hooks. Nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Update returns the registered update hooks.
func Update() UpdateHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return updateHooks
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

// Reset restores the no-op defaults.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	updateHooks = NoopUpdateHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
