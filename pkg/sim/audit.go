package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/matzehuels/roundabout/pkg/observability"
)

// Auditor checks the traversal invariants from vehicle events and forwards
// every event to Next. Acquire events fire after a cell was taken and release
// events before it is cleared, so a serialized log is exact: any vertex with
// two owners or any vehicle holding more than two vertices is a real
// violation.
//
// Entry order is checked per entry: tickets must grow from one entering
// vehicle to the next, and the served count must match the number of
// vehicles seen entering there. Vehicles that withdraw from a queue never
// enter, so they leave gaps in the tickets but not in the served count.
type Auditor struct {
	Next observability.VehicleHooks

	mu         sync.Mutex
	owner      map[int]string
	held       map[string]int
	entries    map[int]entryMark
	violations []string
	stats      *Stats
}

// entryMark is the last ticket seen entering at one entry and how many
// vehicles entered there.
type entryMark struct {
	ticket  uint64
	entered uint64
}

// NewAuditor returns an auditor that forwards to next and counts into stats.
// Either may be nil.
func NewAuditor(next observability.VehicleHooks, stats *Stats) *Auditor {
	if next == nil {
		next = observability.NoopVehicleHooks{}
	}
	return &Auditor{
		Next:    next,
		owner:   make(map[int]string),
		held:    make(map[string]int),
		entries: make(map[int]entryMark),
		stats:   stats,
	}
}

// Violations returns every invariant breach seen so far.
func (a *Auditor) Violations() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.violations...)
}

// Holding returns how many lane vertices each vehicle holds right now.
func (a *Auditor) Holding() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]int, len(a.held))
	for id, n := range a.held {
		if n > 0 {
			out[id] = n
		}
	}
	return out
}

func (a *Auditor) violate(format string, args ...any) {
	a.violations = append(a.violations, fmt.Sprintf(format, args...))
}

func (a *Auditor) OnRouted(ctx context.Context, id string, entry, exit, hops int, err error) {
	a.Next.OnRouted(ctx, id, entry, exit, hops, err)
}

func (a *Auditor) OnQueued(ctx context.Context, id string, entry int, ticket uint64) {
	a.Next.OnQueued(ctx, id, entry, ticket)
}

func (a *Auditor) OnEnter(ctx context.Context, id string, entry int, ticket, served uint64) {
	a.mu.Lock()
	m, seen := a.entries[entry]
	if seen && ticket <= m.ticket {
		a.violate("vehicle %s entered at entry %d with ticket %d after ticket %d", id, entry, ticket, m.ticket)
	}
	if served != m.entered {
		a.violate("vehicle %s entered at entry %d as number %d, want %d", id, entry, served, m.entered)
	}
	a.entries[entry] = entryMark{ticket: ticket, entered: m.entered + 1}
	a.mu.Unlock()
	if a.stats != nil {
		a.stats.entered()
	}
	a.Next.OnEnter(ctx, id, entry, ticket, served)
}

func (a *Auditor) OnAcquire(ctx context.Context, id string, vertex int) {
	a.mu.Lock()
	if prev, ok := a.owner[vertex]; ok {
		a.violate("vehicle %s took vertex %d held by %s", id, vertex, prev)
	}
	a.owner[vertex] = id
	a.held[id]++
	if n := a.held[id]; n > 2 {
		a.violate("vehicle %s holds %d vertices", id, n)
	}
	a.mu.Unlock()
	a.Next.OnAcquire(ctx, id, vertex)
}

func (a *Auditor) OnRelease(ctx context.Context, id string, vertex int) {
	a.mu.Lock()
	if a.owner[vertex] != id {
		a.violate("vehicle %s released vertex %d it does not hold", id, vertex)
	}
	delete(a.owner, vertex)
	a.held[id]--
	if a.held[id] <= 0 {
		delete(a.held, id)
	}
	a.mu.Unlock()
	a.Next.OnRelease(ctx, id, vertex)
}

func (a *Auditor) OnContention(ctx context.Context, id string, vertex int) {
	if a.stats != nil {
		a.stats.contended()
	}
	a.Next.OnContention(ctx, id, vertex)
}

func (a *Auditor) OnExit(ctx context.Context, id string, exit int, elapsed time.Duration, err error) {
	if a.stats != nil {
		a.stats.finished(elapsed, err)
	}
	a.Next.OnExit(ctx, id, exit, elapsed, err)
}

var _ observability.VehicleHooks = (*Auditor)(nil)
