// Package roundabout builds the road graph of a multi-lane roundabout and
// provides the shared state vehicles coordinate through.
//
// # Geometry
//
// Lane i (0 = outermost) is a ring whose center line has radius
//
//	radius - i*laneWidth - laneWidth/2
//
// and is split into round(perimeter * vertexDensity) vertices chained into a
// directed cycle. Entries and exits hang off the outer ring at evenly spaced
// offsets. Adjacent rings are joined by cross links that let a vehicle drop
// into the inner ring and come back out one position further along.
//
// # Shared State
//
// A [Roundabout] is built once with [Build] and then shared by every vehicle:
//
//   - Entry queues are strict FIFOs. [Roundabout.EnqueueAtEntry] hands out
//     tickets, [Roundabout.AtHead] polls, [Roundabout.Dequeue] removes the head.
//   - [Roundabout.RouteBetween] resolves entry/exit ordinals into a vertex
//     sequence. Results are cached and concurrent first lookups are collapsed.
//   - [Roundabout.Capacity] bounds how many vehicles may be past their entry
//     at once.
//   - [Roundabout.Snapshot] reads occupancy for display code.
//
// Vertex occupancy itself lives in the graph cells; see package graph.
//
// # Errors
//
// Invalid geometry is reported by [Build] with code INVALID_CONFIG before any
// vertex is created. Unknown ordinals and unreachable exits are ROUTING_FAILURE.
package roundabout
