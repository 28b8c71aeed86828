package pathfind

import (
	"errors"
	"iter"
	"slices"

	"github.com/matzehuels/roundabout/pkg/graph"
)

var (
	// ErrNoPath is returned when the destination cannot be reached from the
	// source inside the allowed set.
	ErrNoPath = errors.New("no path")

	// ErrVertexNotFound is returned when a source or destination key does not
	// name a vertex of the graph.
	ErrVertexNotFound = errors.New("vertex not found")
)

// Allowed is a set of vertex keys a search may visit. A nil Allowed permits
// every vertex.
type Allowed map[int]struct{}

// Has reports whether key may be visited.
func (a Allowed) Has(key int) bool {
	if a == nil {
		return true
	}
	_, ok := a[key]
	return ok
}

// Restrict returns the set of vertices of g for which keep returns true.
func Restrict[T any](g *graph.Graph[T], keep func(*graph.Vertex[T]) bool) Allowed {
	out := make(Allowed)
	for _, v := range g.Vertices() {
		if keep(v) {
			out[v.Key()] = struct{}{}
		}
	}
	return out
}

// OuterLane returns the outer ring plus every entry and exit vertex.
func OuterLane[T any](g *graph.Graph[T]) Allowed {
	return Restrict(g, func(v *graph.Vertex[T]) bool {
		return !v.IsLane() || v.Lane() == 0
	})
}

// SimplePaths yields every simple path from src to dst that stays inside
// allowed, src and dst included. Each yielded slice is a fresh copy the caller
// may keep. Paths are produced in depth-first discovery order.
//
// Unknown keys, or endpoints outside allowed, yield nothing.
func SimplePaths[T any](g *graph.Graph[T], src, dst int, allowed Allowed) iter.Seq[[]*graph.Vertex[T]] {
	return func(yield func([]*graph.Vertex[T]) bool) {
		w, ok := newWalker(g, src, dst, allowed)
		if !ok {
			return
		}
		w.visit = func(path []*graph.Vertex[T]) bool {
			return yield(slices.Clone(path))
		}
		w.walk(src)
	}
}

// AllSimplePaths collects [SimplePaths] into a slice.
func AllSimplePaths[T any](g *graph.Graph[T], src, dst int, allowed Allowed) [][]*graph.Vertex[T] {
	var out [][]*graph.Vertex[T]
	for p := range SimplePaths(g, src, dst, allowed) {
		out = append(out, p)
	}
	return out
}

// ShortestPath returns the simple path from src to dst with the fewest
// vertices over the whole graph, src and dst included.
func ShortestPath[T any](g *graph.Graph[T], src, dst int) ([]*graph.Vertex[T], error) {
	return shortestWithin(g, src, dst, nil)
}

// OuterLanePath returns the shortest path from src to dst that never leaves
// the outer ring and its entry/exit spurs.
func OuterLanePath[T any](g *graph.Graph[T], src, dst int) ([]*graph.Vertex[T], error) {
	return shortestWithin(g, src, dst, OuterLane(g))
}

// ShortestWithin is [ShortestPath] restricted to allowed.
func ShortestWithin[T any](g *graph.Graph[T], src, dst int, allowed Allowed) ([]*graph.Vertex[T], error) {
	return shortestWithin(g, src, dst, allowed)
}

func shortestWithin[T any](g *graph.Graph[T], src, dst int, allowed Allowed) ([]*graph.Vertex[T], error) {
	if _, ok := g.Vertex(src); !ok {
		return nil, ErrVertexNotFound
	}
	if _, ok := g.Vertex(dst); !ok {
		return nil, ErrVertexNotFound
	}
	w, ok := newWalker(g, src, dst, allowed)
	if !ok {
		return nil, ErrNoPath
	}

	// A breadth-first search backwards from dst gives the exact minimum
	// length and, per vertex, a lower bound on what is left to walk. The
	// depth-first walk then only follows branches that can still finish at
	// that length, and its first hit is the first shortest path in
	// discovery order.
	dist := distancesTo(g, dst, allowed)
	if dist[src] < 0 {
		return nil, ErrNoPath
	}
	w.dist = dist
	w.limit = dist[src] + 1

	var best []*graph.Vertex[T]
	w.visit = func(path []*graph.Vertex[T]) bool {
		best = slices.Clone(path)
		return false
	}
	w.walk(src)

	if best == nil {
		return nil, ErrNoPath
	}
	return best, nil
}

// distancesTo returns, for every vertex, the number of edges on the shortest
// path to dst inside allowed, or -1 when dst cannot be reached.
func distancesTo[T any](g *graph.Graph[T], dst int, allowed Allowed) []int {
	n := g.VertexCount()
	pred := make([][]int, n)
	for u := 0; u < n; u++ {
		if !allowed.Has(u) {
			continue
		}
		for _, v := range g.Successors(u) {
			if allowed.Has(v) {
				pred[v] = append(pred[v], u)
			}
		}
	}

	dist := make([]int, n)
	for i := range dist {
		dist[i] = -1
	}
	dist[dst] = 0
	queue := []int{dst}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, u := range pred[v] {
			if dist[u] < 0 {
				dist[u] = dist[v] + 1
				queue = append(queue, u)
			}
		}
	}
	return dist
}

// walker holds the state of one depth-first enumeration.
type walker[T any] struct {
	g       *graph.Graph[T]
	dst     int
	allowed Allowed

	visited []bool
	path    []*graph.Vertex[T]

	// dist, when set, holds the remaining edges to dst per vertex; branches
	// that cannot reach dst within limit vertices are skipped.
	dist  []int
	limit int

	// visit is called on every complete path; returning false stops the walk.
	visit func([]*graph.Vertex[T]) bool
}

func newWalker[T any](g *graph.Graph[T], src, dst int, allowed Allowed) (*walker[T], bool) {
	if _, ok := g.Vertex(src); !ok {
		return nil, false
	}
	if _, ok := g.Vertex(dst); !ok {
		return nil, false
	}
	if !allowed.Has(src) || !allowed.Has(dst) {
		return nil, false
	}
	return &walker[T]{
		g:       g,
		dst:     dst,
		allowed: allowed,
		visited: make([]bool, g.VertexCount()),
	}, true
}

// walk extends the active path with key. It returns false once the visitor
// asked to stop.
func (w *walker[T]) walk(key int) bool {
	w.visited[key] = true
	w.path = append(w.path, w.g.MustVertex(key))
	defer func() {
		w.path = w.path[:len(w.path)-1]
		w.visited[key] = false
	}()

	if key == w.dst {
		return w.visit(w.path)
	}
	for _, next := range w.g.Successors(key) {
		if w.visited[next] || !w.allowed.Has(next) {
			continue
		}
		if w.dist != nil && (w.dist[next] < 0 || len(w.path)+1+w.dist[next] > w.limit) {
			continue
		}
		if !w.walk(next) {
			return false
		}
	}
	return true
}
