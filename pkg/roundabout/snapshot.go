package roundabout

import (
	"time"

	"github.com/matzehuels/roundabout/pkg/graph"
)

// VertexState is the state of one vertex at the moment a snapshot was taken.
type VertexState[T any] struct {
	Key      int
	Role     graph.Role
	Lane     int
	Weight   int
	Occupant *T
}

// Snapshot is a read-only picture of the roundabout for display code.
//
// Cells are read one after the other while vehicles keep moving, so a
// snapshot is not a consistent cut: a vehicle between acquiring its next
// vertex and releasing its previous one shows up on both.
type Snapshot[T any] struct {
	Taken    time.Time
	Vertices []VertexState[T]
	// Queues holds the queue length of each entry, index 0 for entry 1.
	Queues []int
}

// Snapshot reads every occupancy cell and queue length.
func (r *Roundabout[T]) Snapshot() Snapshot[T] {
	s := Snapshot[T]{
		Taken:    time.Now(),
		Vertices: make([]VertexState[T], 0, r.g.VertexCount()),
		Queues:   make([]int, len(r.queues)),
	}
	for _, v := range r.g.Vertices() {
		s.Vertices = append(s.Vertices, VertexState[T]{
			Key:      v.Key(),
			Role:     v.Role(),
			Lane:     v.Lane(),
			Weight:   v.Weight(),
			Occupant: v.Occupant(),
		})
	}
	for i, q := range r.queues {
		s.Queues[i] = q.len()
	}
	return s
}

// Occupied groups the occupied vertex keys by occupant.
func (s Snapshot[T]) Occupied() map[*T][]int {
	out := make(map[*T][]int)
	for _, v := range s.Vertices {
		if v.Occupant != nil {
			out[v.Occupant] = append(out[v.Occupant], v.Key)
		}
	}
	return out
}

// Waiting returns the total number of queued vehicles.
func (s Snapshot[T]) Waiting() int {
	n := 0
	for _, q := range s.Queues {
		n += q
	}
	return n
}
