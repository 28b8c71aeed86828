package vehicle

import (
	"context"
	"time"

	"github.com/matzehuels/roundabout/pkg/errors"
	"github.com/matzehuels/roundabout/pkg/observability"
)

// Run drives the vehicle from its entry to its exit and returns when it has
// left the roundabout. It must be called once, usually in its own goroutine.
//
// The traversal:
//
//  1. resolve the route
//  2. join the entry queue and wait, polling, until first in line and
//     admitted
//  3. for each lane vertex on the route, take it (polling while it is
//     occupied), travel over it, then give back the previous one
//  4. give back the last vertex and the admission token at the exit
//
// The vehicle leaves its entry queue the moment it holds its first lane
// vertex. Every wait observes ctx; on cancellation all held vertices, the
// queue slot and the admission token are released and ctx.Err() is returned.
func (v *Vehicle) Run(ctx context.Context, r *Roundabout) (err error) {
	if !v.started.CompareAndSwap(false, true) {
		return errors.New(errors.ErrCodeProtocol, "vehicle %s already ran", v.label)
	}

	hooks := observability.Vehicle()
	id := v.ID()
	v.startAt.Store(time.Now().UnixNano())
	defer func() {
		v.finishAt.Store(time.Now().UnixNano())
		if err != nil {
			v.setState(Failed)
		} else {
			v.setState(Exited)
		}
		v.setSpeed(0)
		hooks.OnExit(ctx, id, v.exit, v.Elapsed(), err)
	}()

	v.setState(Routing)
	path, err := v.behavior.computeRoute(ctx, r, v.entry, v.exit)
	hooks.OnRouted(ctx, id, v.entry, v.exit, len(path), err)
	if err != nil {
		return err
	}
	v.path.Store(&path)

	ticket, err := r.EnqueueAtEntry(v, v.entry)
	if err != nil {
		return err
	}
	v.setState(Queued)
	hooks.OnQueued(ctx, id, v.entry, ticket)

	for !(r.AtHead(v.entry, v) && r.TryAdmit()) {
		if err := v.sleep(ctx, v.behavior.queueBackoff(v.timeScale)); err != nil {
			r.Withdraw(v.entry, v)
			return err
		}
	}

	t := traversal{v: v, r: r, ctx: ctx, hooks: hooks, id: id, ticket: ticket}
	if err := t.drive(path); err != nil {
		t.abandon()
		return err
	}
	t.finish()
	return nil
}

// traversal is the state of an admitted vehicle while it is inside.
type traversal struct {
	v      *Vehicle
	r      *Roundabout
	ctx    context.Context
	hooks  observability.VehicleHooks
	id     string
	ticket uint64

	held     []*Vertex
	dequeued bool
}

func (t *traversal) drive(path []*Vertex) error {
	v := t.v
	for _, next := range path {
		if !next.IsLane() {
			break
		}

		v.setSpeed(v.behavior.accelerate(v.Speed()))
		for !next.TryAcquire(v) {
			t.hooks.OnContention(t.ctx, t.id, next.Key())
			v.setSpeed(v.behavior.decelerate(v.Speed()))
			if err := v.sleep(t.ctx, v.behavior.travelBackoff(v.timeScale)); err != nil {
				return err
			}
		}
		t.held = append(t.held, next)
		t.hooks.OnAcquire(t.ctx, t.id, next.Key())

		if !t.dequeued {
			served, err := t.r.Dequeue(v.entry, v)
			if err != nil {
				return err
			}
			t.dequeued = true
			v.setState(Inside)
			t.hooks.OnEnter(t.ctx, t.id, v.entry, t.ticket, served)
		}

		meters := t.r.SegmentLength(next.Lane())
		if err := v.sleep(t.ctx, travelTime(meters, v.Speed(), v.timeScale)); err != nil {
			return err
		}

		if len(t.held) > 1 {
			t.release(t.held[0])
			t.held = t.held[1:]
		}
	}
	return nil
}

func (t *traversal) release(x *Vertex) {
	t.hooks.OnRelease(t.ctx, t.id, x.Key())
	x.Release(t.v)
}

// finish releases the last vertex and the admission token at the exit.
func (t *traversal) finish() {
	for _, x := range t.held {
		t.release(x)
	}
	t.held = nil
	t.r.Leave()
}

// abandon undoes everything an interrupted traversal still holds.
func (t *traversal) abandon() {
	if !t.dequeued {
		t.r.Withdraw(t.v.entry, t.v)
	}
	t.finish()
}

// sleep waits for d or until ctx is done.
func (v *Vehicle) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
