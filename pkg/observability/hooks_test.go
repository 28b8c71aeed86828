package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Build hooks
	b := NoopBuildHooks{}
	b.OnBuildStart(ctx, 2, 4, 4)
	b.OnBuildComplete(ctx, 45, 90, time.Millisecond, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "route")
	c.OnCacheMiss(ctx, "route")
	c.OnCacheSet(ctx, "route", 7)

	// Vehicle hooks
	v := NoopVehicleHooks{}
	v.OnRouted(ctx, "v1", 1, 2, 7, nil)
	v.OnQueued(ctx, "v1", 1, 0)
	v.OnEnter(ctx, "v1", 1, 0, 0)
	v.OnAcquire(ctx, "v1", 3)
	v.OnContention(ctx, "v1", 4)
	v.OnRelease(ctx, "v1", 3)
	v.OnExit(ctx, "v1", 2, time.Second, errors.New("cancelled"))
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Build().(NoopBuildHooks); !ok {
		t.Error("Build() should return NoopBuildHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Vehicle().(NoopVehicleHooks); !ok {
		t.Error("Vehicle() should return NoopVehicleHooks by default")
	}

	// Set custom hooks
	customBuild := &testBuildHooks{}
	SetBuildHooks(customBuild)
	if Build() != customBuild {
		t.Error("SetBuildHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customVehicle := &testVehicleHooks{}
	SetVehicleHooks(customVehicle)
	if Vehicle() != customVehicle {
		t.Error("SetVehicleHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Vehicle().(NoopVehicleHooks); !ok {
		t.Error("Reset() should restore NoopVehicleHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testVehicleHooks{}
	SetVehicleHooks(custom)

	// Setting nil should be ignored
	SetVehicleHooks(nil)

	if Vehicle() != custom {
		t.Error("SetVehicleHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testBuildHooks struct{ NoopBuildHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testVehicleHooks struct{ NoopVehicleHooks }
