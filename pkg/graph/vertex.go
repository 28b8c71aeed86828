package graph

import (
	"fmt"
	"sync/atomic"
)

// Role distinguishes ring segments from the sentinel vertices that mark where
// vehicles join and leave the roundabout.
type Role int

const (
	// RoleLane is a segment of one concentric ring.
	RoleLane Role = iota
	// RoleEntry marks where vehicles join the roundabout.
	RoleEntry
	// RoleExit marks where vehicles leave the roundabout. Exit vertices are
	// terminal and never locked.
	RoleExit
)

// Legacy weights for sentinel vertices. Lane vertices use their lane index.
const (
	WeightEntry = -1
	WeightExit  = -2
)

// String returns the lowercase role name.
func (r Role) String() string {
	switch r {
	case RoleLane:
		return "lane"
	case RoleEntry:
		return "entry"
	case RoleExit:
		return "exit"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Vertex is a node of the roundabout graph. Key, role and lane are immutable;
// the occupancy cell is the only field that changes after construction.
//
// The zero value is not usable - vertices are created by [Graph.AddVertex].
type Vertex[T any] struct {
	key  int
	role Role
	lane int

	cell atomic.Pointer[T]
}

// Key returns the dense integer identifier assigned at insertion.
func (v *Vertex[T]) Key() int { return v.key }

// Role returns the vertex role.
func (v *Vertex[T]) Role() Role { return v.role }

// Lane returns the ring index for lane vertices and 0 for sentinels, which
// always hang off the outer ring.
func (v *Vertex[T]) Lane() int { return v.lane }

// Weight returns the lane index for lane vertices, [WeightEntry] for entries
// and [WeightExit] for exits.
func (v *Vertex[T]) Weight() int {
	switch v.role {
	case RoleEntry:
		return WeightEntry
	case RoleExit:
		return WeightExit
	default:
		return v.lane
	}
}

// IsLane reports whether v is a ring segment.
func (v *Vertex[T]) IsLane() bool { return v.role == RoleLane }

// IsEntry reports whether v is an entry sentinel.
func (v *Vertex[T]) IsEntry() bool { return v.role == RoleEntry }

// IsExit reports whether v is an exit sentinel.
func (v *Vertex[T]) IsExit() bool { return v.role == RoleExit }

// TryAcquire atomically claims the empty cell for owner. It returns false
// without waiting if the cell is already held, including by owner itself.
func (v *Vertex[T]) TryAcquire(owner *T) bool {
	if owner == nil {
		return false
	}
	return v.cell.CompareAndSwap(nil, owner)
}

// Release atomically empties the cell if, and only if, owner holds it.
// A false result means the caller did not own the cell, which is a protocol
// defect on the caller's side.
func (v *Vertex[T]) Release(owner *T) bool {
	if owner == nil {
		return false
	}
	return v.cell.CompareAndSwap(owner, nil)
}

// Occupant returns the current owner, or nil if the cell is empty. The value
// is a point-in-time snapshot and may be stale as soon as it is returned.
func (v *Vertex[T]) Occupant() *T { return v.cell.Load() }

// String returns a short description such as "(12 lane 1)".
func (v *Vertex[T]) String() string {
	if v.role == RoleLane {
		return fmt.Sprintf("(%d lane %d)", v.key, v.lane)
	}
	return fmt.Sprintf("(%d %s)", v.key, v.role)
}
