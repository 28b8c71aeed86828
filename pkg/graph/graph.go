package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownSourceVertex is returned by [Graph.AddEdge] when the source key
	// does not name a vertex.
	ErrUnknownSourceVertex = errors.New("unknown source vertex")

	// ErrUnknownTargetVertex is returned by [Graph.AddEdge] when the target key
	// does not name a vertex.
	ErrUnknownTargetVertex = errors.New("unknown target vertex")
)

// Graph is a directed graph with dense integer vertex keys and ordered
// successor lists.
//
// Construction (AddVertex, AddEdge) is not safe for concurrent use. Once built,
// the structure must not be modified and every read method is safe for
// concurrent use; only vertex occupancy cells mutate.
type Graph[T any] struct {
	vertices []*Vertex[T]
	adj      [][]int
	edges    int
}

// New creates an empty graph whose occupancy cells hold *T owners.
func New[T any]() *Graph[T] {
	return &Graph[T]{}
}

// AddVertex appends a vertex with the next free key. For sentinel roles the
// lane is forced to 0.
func (g *Graph[T]) AddVertex(role Role, lane int) *Vertex[T] {
	if role != RoleLane {
		lane = 0
	}
	v := &Vertex[T]{key: len(g.vertices), role: role, lane: lane}
	g.vertices = append(g.vertices, v)
	g.adj = append(g.adj, nil)
	return v
}

// AddEdge appends dst to src's successor list. Parallel edges are allowed but
// the builder never creates them.
func (g *Graph[T]) AddEdge(src, dst int) error {
	if !g.has(src) {
		return fmt.Errorf("%w: %d", ErrUnknownSourceVertex, src)
	}
	if !g.has(dst) {
		return fmt.Errorf("%w: %d", ErrUnknownTargetVertex, dst)
	}
	g.adj[src] = append(g.adj[src], dst)
	g.edges++
	return nil
}

// Vertex returns the vertex with the given key.
func (g *Graph[T]) Vertex(key int) (*Vertex[T], bool) {
	if !g.has(key) {
		return nil, false
	}
	return g.vertices[key], true
}

// MustVertex returns the vertex with the given key and panics if there is
// none. A missing vertex after construction is a builder or routing defect.
func (g *Graph[T]) MustVertex(key int) *Vertex[T] {
	v, ok := g.Vertex(key)
	if !ok {
		panic(fmt.Sprintf("graph: vertex %d does not exist (graph has %d vertices)", key, len(g.vertices)))
	}
	return v
}

// Successors returns the successor keys of key in insertion order.
// The returned slice is shared and must not be modified.
func (g *Graph[T]) Successors(key int) []int {
	if !g.has(key) {
		return nil
	}
	return g.adj[key]
}

// SuccessorVertices returns the successors of key as vertices.
func (g *Graph[T]) SuccessorVertices(key int) []*Vertex[T] {
	keys := g.Successors(key)
	out := make([]*Vertex[T], len(keys))
	for i, k := range keys {
		out[i] = g.vertices[k]
	}
	return out
}

// HasEdge reports whether src has dst as a successor.
func (g *Graph[T]) HasEdge(src, dst int) bool {
	for _, k := range g.Successors(src) {
		if k == dst {
			return true
		}
	}
	return false
}

// Vertices returns all vertices ordered by key. The slice is a copy; the
// vertices are shared.
func (g *Graph[T]) Vertices() []*Vertex[T] {
	out := make([]*Vertex[T], len(g.vertices))
	copy(out, g.vertices)
	return out
}

// VertexCount returns the number of vertices.
func (g *Graph[T]) VertexCount() int { return len(g.vertices) }

// EdgeCount returns the number of edges.
func (g *Graph[T]) EdgeCount() int { return g.edges }

// VerticesByWeight returns the vertices whose [Vertex.Weight] equals w, ordered
// by key. Use a lane index to isolate one ring, [WeightEntry] for all entries
// or [WeightExit] for all exits.
func (g *Graph[T]) VerticesByWeight(w int) []*Vertex[T] {
	return g.filter(func(v *Vertex[T]) bool { return v.Weight() == w })
}

// VerticesByRole returns the vertices with the given role, ordered by key.
func (g *Graph[T]) VerticesByRole(r Role) []*Vertex[T] {
	return g.filter(func(v *Vertex[T]) bool { return v.role == r })
}

// Lane returns the lane vertices of ring i ordered by key, which is cycle order
// for rings that were built one vertex after the other.
func (g *Graph[T]) Lane(i int) []*Vertex[T] {
	return g.filter(func(v *Vertex[T]) bool { return v.role == RoleLane && v.lane == i })
}

func (g *Graph[T]) filter(keep func(*Vertex[T]) bool) []*Vertex[T] {
	var out []*Vertex[T]
	for _, v := range g.vertices {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func (g *Graph[T]) has(key int) bool {
	return key >= 0 && key < len(g.vertices)
}
