// Package observability provides hooks for logging, metrics and auditing of
// roundabout construction and vehicle traversals.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about builds, route cache operations and vehicle movement.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Vehicles are identified by their string ID so this package stays free of
// any dependency on the simulator types.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetVehicleHooks(&myVehicleHooks{})
//	    // ... run simulation
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Build().OnBuildStart(ctx, lanes, entries, exits)
//	// ... build graph ...
//	observability.Build().OnBuildComplete(ctx, vertices, edges, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Build Hooks
// =============================================================================

// BuildHooks receives events from roundabout construction.
type BuildHooks interface {
	OnBuildStart(ctx context.Context, lanes, entries, exits int)
	OnBuildComplete(ctx context.Context, vertices, edges int, duration time.Duration, err error)
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
// Vehicle Hooks
// =============================================================================

// VehicleHooks receives events from vehicle traversals. Every event of one
// vehicle is emitted from that vehicle's goroutine, in program order.
type VehicleHooks interface {
	// OnRouted records the outcome of route resolution.
	OnRouted(ctx context.Context, id string, entry, exit, hops int, err error)

	// OnQueued records that a vehicle joined an entry queue with the given ticket.
	OnQueued(ctx context.Context, id string, entry int, ticket uint64)

	// OnEnter records that a vehicle left its entry queue. served is the
	// number of vehicles dequeued from that entry before it.
	OnEnter(ctx context.Context, id string, entry int, ticket, served uint64)

	// OnAcquire fires after a vehicle has taken a lane vertex.
	OnAcquire(ctx context.Context, id string, vertex int)

	// OnRelease fires just before a vehicle gives a lane vertex back.
	OnRelease(ctx context.Context, id string, vertex int)

	// OnContention records a failed attempt to take an occupied vertex.
	OnContention(ctx context.Context, id string, vertex int)

	// OnExit records the end of a traversal. err is nil when the vehicle
	// reached its exit.
	OnExit(ctx context.Context, id string, exit int, elapsed time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopBuildHooks is a no-op implementation of BuildHooks.
type NoopBuildHooks struct{}

func (NoopBuildHooks) OnBuildStart(context.Context, int, int, int)                     {}
func (NoopBuildHooks) OnBuildComplete(context.Context, int, int, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopVehicleHooks is a no-op implementation of VehicleHooks.
type NoopVehicleHooks struct{}

func (NoopVehicleHooks) OnRouted(context.Context, string, int, int, int, error)    {}
func (NoopVehicleHooks) OnQueued(context.Context, string, int, uint64)             {}
func (NoopVehicleHooks) OnEnter(context.Context, string, int, uint64, uint64)      {}
func (NoopVehicleHooks) OnAcquire(context.Context, string, int)                    {}
func (NoopVehicleHooks) OnRelease(context.Context, string, int)                    {}
func (NoopVehicleHooks) OnContention(context.Context, string, int)                 {}
func (NoopVehicleHooks) OnExit(context.Context, string, int, time.Duration, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	buildHooks   BuildHooks   = NoopBuildHooks{}
	cacheHooks   CacheHooks   = NoopCacheHooks{}
	vehicleHooks VehicleHooks = NoopVehicleHooks{}
	hooksMu      sync.RWMutex
)

// SetBuildHooks registers custom build hooks.
// This should be called once at application startup before any build.
func SetBuildHooks(h BuildHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		buildHooks = h
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

// SetVehicleHooks registers custom vehicle hooks.
// This should be called once at application startup before any vehicle runs.
func SetVehicleHooks(h VehicleHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		vehicleHooks = h
	}
}

// Build returns the registered build hooks.
func Build() BuildHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return buildHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Vehicle returns the registered vehicle hooks.
func Vehicle() VehicleHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return vehicleHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	buildHooks = NoopBuildHooks{}
	cacheHooks = NoopCacheHooks{}
	vehicleHooks = NoopVehicleHooks{}
}
