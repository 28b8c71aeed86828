// Package graph provides the directed graph that models a roundabout's road
// segments.
//
// # Overview
//
// A [Graph] stores vertices keyed by dense integers (0..N-1, in insertion
// order) and an ordered successor list per vertex. The structure is built once
// by a single goroutine and is read-only afterwards: successor lists, roles and
// lanes never change after construction, so any number of goroutines may walk
// the graph without locking.
//
// The only mutable state is the occupancy cell carried by every [Vertex]. A
// cell holds at most one owner reference and changes hands exclusively through
// atomic compare-and-set ([Vertex.TryAcquire], [Vertex.Release]).
//
// # Roles
//
// Every vertex carries a [Role]:
//
//   - [RoleLane]: a segment of one concentric ring; [Vertex.Lane] is the ring
//     index (0 = outermost).
//   - [RoleEntry]: a sentinel where vehicles join the roundabout.
//   - [RoleExit]: a terminal sentinel where vehicles leave. Exit cells are
//     never locked.
//
// [Vertex.Weight] keeps the legacy numeric encoding (lane index, -1 for entries,
// -2 for exits) for display code and for [Graph.VerticesByWeight].
//
// # Basic Usage
//
//	g := graph.New[Car]()
//	a := g.AddVertex(graph.RoleLane, 0)
//	b := g.AddVertex(graph.RoleLane, 0)
//	_ = g.AddEdge(a.Key(), b.Key())
//	_ = g.AddEdge(b.Key(), a.Key())
//
//	car := &Car{}
//	if b.TryAcquire(car) {
//	    defer b.Release(car)
//	}
package graph
