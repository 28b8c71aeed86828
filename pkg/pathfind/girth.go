package pathfind

import "github.com/matzehuels/roundabout/pkg/graph"

// Girth returns the number of edges of the shortest directed cycle whose
// vertices all lie in allowed, or 0 if that subgraph is acyclic.
//
// It runs one breadth-first search per vertex, O(V·(V+E)), which is cheap for
// roundabout-sized graphs and only happens once per build.
func Girth[T any](g *graph.Graph[T], allowed Allowed) int {
	n := g.VertexCount()
	dist := make([]int, n)
	queue := make([]int, 0, n)
	best := 0

	for s := 0; s < n; s++ {
		if !allowed.Has(s) {
			continue
		}
		for i := range dist {
			dist[i] = -1
		}
		dist[s] = 0
		queue = append(queue[:0], s)

	search:
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			if best > 0 && dist[u]+1 >= best {
				break
			}
			for _, next := range g.Successors(u) {
				if !allowed.Has(next) {
					continue
				}
				if next == s {
					best = dist[u] + 1
					break search
				}
				if dist[next] < 0 {
					dist[next] = dist[u] + 1
					queue = append(queue, next)
				}
			}
		}
	}
	return best
}
