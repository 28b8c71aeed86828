package roundabout

import (
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/roundabout/pkg/cache"
	"github.com/matzehuels/roundabout/pkg/errors"
	"github.com/matzehuels/roundabout/pkg/graph"
)

// Roundabout wraps a built graph with its entry and exit registries, lane
// geometry and the per-entry FIFO queues.
//
// Registries, rings and perimeters are fixed once Build returns. Queues and
// vertex occupancy change continuously and are safe for concurrent use.
type Roundabout[T any] struct {
	g   *graph.Graph[T]
	cfg Config

	rings      [][]*graph.Vertex[T]
	perimeters []float64
	entries    []*graph.Vertex[T]
	exits      []*graph.Vertex[T]
	entryOrd   map[int]int
	exitOrd    map[int]int
	queues     []*entryQueue[T]

	girth    int
	capacity int

	admitOnce sync.Once
	admission *semaphore.Weighted

	routes cache.Cache[routeKey, []*graph.Vertex[T]]
	flight singleflight.Group
}

func newRoundabout[T any](g *graph.Graph[T], cfg Config, rings [][]*graph.Vertex[T], entries, exits []*graph.Vertex[T]) *Roundabout[T] {
	r := &Roundabout[T]{
		g:          g,
		cfg:        cfg,
		rings:      rings,
		perimeters: make([]float64, len(rings)),
		entries:    entries,
		exits:      exits,
		entryOrd:   make(map[int]int, len(entries)),
		exitOrd:    make(map[int]int, len(exits)),
		queues:     make([]*entryQueue[T], len(entries)),
		routes:     cache.NewMemoryCache[routeKey, []*graph.Vertex[T]](),
	}
	for i := range rings {
		r.perimeters[i] = cfg.Perimeter(i)
	}
	for i, e := range entries {
		r.entryOrd[e.Key()] = i + 1
		r.queues[i] = &entryQueue[T]{}
	}
	for i, x := range exits {
		r.exitOrd[x.Key()] = i + 1
	}
	return r
}

// Graph returns the underlying graph. Its structure must not be modified.
func (r *Roundabout[T]) Graph() *graph.Graph[T] { return r.g }

// Config returns the geometry the roundabout was built from.
func (r *Roundabout[T]) Config() Config { return r.cfg }

// EntriesNumber returns the number of entries.
func (r *Roundabout[T]) EntriesNumber() int { return len(r.entries) }

// ExitsNumber returns the number of exits.
func (r *Roundabout[T]) ExitsNumber() int { return len(r.exits) }

// LanesNumber returns the number of lanes.
func (r *Roundabout[T]) LanesNumber() int { return len(r.rings) }

// Entry returns the vertex of entry ordinal i (1-based).
func (r *Roundabout[T]) Entry(i int) (*graph.Vertex[T], bool) {
	if i < 1 || i > len(r.entries) {
		return nil, false
	}
	return r.entries[i-1], true
}

// Exit returns the vertex of exit ordinal i (1-based).
func (r *Roundabout[T]) Exit(i int) (*graph.Vertex[T], bool) {
	if i < 1 || i > len(r.exits) {
		return nil, false
	}
	return r.exits[i-1], true
}

// IsEntry reports whether v is one of the roundabout's entry vertices.
func (r *Roundabout[T]) IsEntry(v *graph.Vertex[T]) bool {
	_, ok := r.EntryOrdinal(v)
	return ok
}

// IsExit reports whether v is one of the roundabout's exit vertices.
func (r *Roundabout[T]) IsExit(v *graph.Vertex[T]) bool {
	_, ok := r.ExitOrdinal(v)
	return ok
}

// EntryOrdinal returns the 1-based ordinal of entry vertex v.
func (r *Roundabout[T]) EntryOrdinal(v *graph.Vertex[T]) (int, bool) {
	if v == nil {
		return 0, false
	}
	i, ok := r.entryOrd[v.Key()]
	return i, ok && r.entries[i-1] == v
}

// ExitOrdinal returns the 1-based ordinal of exit vertex v.
func (r *Roundabout[T]) ExitOrdinal(v *graph.Vertex[T]) (int, bool) {
	if v == nil {
		return 0, false
	}
	i, ok := r.exitOrd[v.Key()]
	return i, ok && r.exits[i-1] == v
}

// Ring returns the vertices of lane i in cycle order.
func (r *Roundabout[T]) Ring(i int) []*graph.Vertex[T] {
	if i < 0 || i >= len(r.rings) {
		return nil
	}
	return r.rings[i]
}

// LanePerimeter returns the center-line length of lane i in meters, or 0 for
// an unknown lane.
func (r *Roundabout[T]) LanePerimeter(i int) float64 {
	if i < 0 || i >= len(r.perimeters) {
		return 0
	}
	return r.perimeters[i]
}

// SegmentLength returns the length in meters one vertex of lane i stands for.
func (r *Roundabout[T]) SegmentLength(i int) float64 {
	if i < 0 || i >= len(r.rings) || len(r.rings[i]) == 0 {
		return 0
	}
	return r.perimeters[i] / float64(len(r.rings[i]))
}

// Girth returns the length of the shortest directed cycle among lane vertices.
func (r *Roundabout[T]) Girth() int { return r.girth }

// Capacity returns how many vehicles may be inside the roundabout at once
// without risking a circular wait: one less than the shortest lane cycle,
// unless overridden with SetCapacity.
func (r *Roundabout[T]) Capacity() int {
	if r.capacity > 0 {
		return r.capacity
	}
	if r.girth > 1 {
		return r.girth - 1
	}
	return 1
}

// SetCapacity overrides the derived admission cap. Values below one restore
// the derived default. It has no effect once the first vehicle was admitted.
func (r *Roundabout[T]) SetCapacity(n int) {
	if n < 1 {
		n = 0
	}
	r.capacity = n
}

// =============================================================================
// Entry Queues
// =============================================================================

func (r *Roundabout[T]) queue(entry int) (*entryQueue[T], error) {
	if entry < 1 || entry > len(r.queues) {
		return nil, errors.ValidateOrdinal("entry", entry, len(r.queues))
	}
	return r.queues[entry-1], nil
}

// EnqueueAtEntry appends v to the FIFO queue of the given entry and returns
// its ticket. Tickets start at zero and grow by one per enqueue at that entry.
func (r *Roundabout[T]) EnqueueAtEntry(v *T, entry int) (uint64, error) {
	q, err := r.queue(entry)
	if err != nil {
		return 0, err
	}
	return q.push(v), nil
}

// AtHead reports whether v is first in line at the given entry.
func (r *Roundabout[T]) AtHead(entry int, v *T) bool {
	q, err := r.queue(entry)
	if err != nil {
		return false
	}
	return q.atHead(v)
}

// Dequeue removes v from the head of the entry queue and returns how many
// vehicles were dequeued there before it. A vehicle that is not at the head
// gets a protocol violation error.
func (r *Roundabout[T]) Dequeue(entry int, v *T) (uint64, error) {
	q, err := r.queue(entry)
	if err != nil {
		return 0, err
	}
	return q.pop(v)
}

// Withdraw removes v from anywhere in the entry queue. It reports whether v
// was waiting there.
func (r *Roundabout[T]) Withdraw(entry int, v *T) bool {
	q, err := r.queue(entry)
	if err != nil {
		return false
	}
	return q.remove(v)
}

// QueueLen returns the number of vehicles waiting at the given entry.
func (r *Roundabout[T]) QueueLen(entry int) int {
	q, err := r.queue(entry)
	if err != nil {
		return 0
	}
	return q.len()
}

// =============================================================================
// Admission
// =============================================================================

// TryAdmit takes one of the Capacity admission tokens without blocking.
// A vehicle must hold a token from before it takes its first lane vertex
// until it has released its last one.
func (r *Roundabout[T]) TryAdmit() bool {
	r.admitOnce.Do(func() {
		r.admission = semaphore.NewWeighted(int64(r.Capacity()))
	})
	return r.admission.TryAcquire(1)
}

// Leave returns an admission token taken with TryAdmit.
func (r *Roundabout[T]) Leave() {
	r.admission.Release(1)
}
