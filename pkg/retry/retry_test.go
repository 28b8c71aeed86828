package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestDoSucceedsAfterTransient(t *testing.T) {
	p := Policy{Attempts: 4, Delay: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), func(attempt int) error {
		calls++
		if attempt < 3 {
			return Mark(errBoom)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoPermanentError(t *testing.T) {
	p := Policy{Attempts: 5, Delay: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), func(int) error {
		calls++
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Errorf("err = %v, want %v", err, errBoom)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoExhausted(t *testing.T) {
	p := Policy{Attempts: 3, Delay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), func(int) error {
		calls++
		return Mark(errBoom)
	})
	if err != errBoom {
		t.Errorf("err = %v, want unwrapped %v", err, errBoom)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{Attempts: 10, Delay: time.Hour}
	err := p.Do(ctx, func(int) error {
		cancel()
		return Mark(errBoom)
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestMarkNil(t *testing.T) {
	if Mark(nil) != nil {
		t.Error("Mark(nil) should be nil")
	}
}

func TestZeroPolicyRunsOnce(t *testing.T) {
	calls := 0
	_ = Policy{}.Do(context.Background(), func(int) error {
		calls++
		return Mark(errBoom)
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
