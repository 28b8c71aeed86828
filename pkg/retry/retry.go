// Package retry runs operations that may fail transiently, such as dialing
// a Redis server that is still starting up.
package retry

import (
	"context"
	"errors"
	"time"
)

// Transient marks an error as worth retrying. Errors not wrapped with
// Transient end [Do] immediately.
type Transient struct{ Err error }

func (e *Transient) Error() string { return e.Err.Error() }
func (e *Transient) Unwrap() error { return e.Err }

// Mark wraps err as [Transient]. A nil err stays nil.
func Mark(err error) error {
	if err == nil {
		return nil
	}
	return &Transient{Err: err}
}

// Policy bounds a retry loop. Delay doubles after every failed attempt up
// to MaxDelay when that is set.
type Policy struct {
	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration
}

// Default tries three times starting at 200ms.
var Default = Policy{Attempts: 3, Delay: 200 * time.Millisecond, MaxDelay: 2 * time.Second}

// Do calls fn until it succeeds, returns a non-transient error, or the
// attempts run out. The last error is returned unwrapped from [Transient].
// Cancelling ctx stops the wait between attempts.
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Delay
	var last error

	for i := range attempts {
		err := fn(i + 1)
		if err == nil {
			return nil
		}
		var t *Transient
		if !errors.As(err, &t) {
			return err
		}
		last = t.Err

		if i == attempts-1 {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return last
}

// Do runs fn with the [Default] policy.
func Do(ctx context.Context, fn func(attempt int) error) error {
	return Default.Do(ctx, fn)
}
