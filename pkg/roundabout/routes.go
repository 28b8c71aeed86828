package roundabout

import (
	"context"
	"fmt"

	"github.com/matzehuels/roundabout/pkg/cache"
	"github.com/matzehuels/roundabout/pkg/errors"
	"github.com/matzehuels/roundabout/pkg/graph"
	"github.com/matzehuels/roundabout/pkg/observability"
	"github.com/matzehuels/roundabout/pkg/pathfind"
)

type routeKey struct {
	entry, exit int
	outerOnly   bool
}

func (k routeKey) String() string {
	return fmt.Sprintf("%d>%d/%t", k.entry, k.exit, k.outerOnly)
}

// RouteBetween returns the vertices a vehicle visits from entry to exit,
// entry vertex excluded and exit vertex last. With outerOnly the route never
// leaves the outer lane.
//
// Routes are computed once per (entry, exit, outerOnly) and shared: callers
// must not modify the returned slice. An unknown ordinal or an unreachable
// exit is reported as [errors.ErrCodeRouting].
func (r *Roundabout[T]) RouteBetween(ctx context.Context, entry, exit int, outerOnly bool) ([]*graph.Vertex[T], error) {
	if err := errors.ValidateOrdinal("entry", entry, len(r.entries)); err != nil {
		return nil, err
	}
	if err := errors.ValidateOrdinal("exit", exit, len(r.exits)); err != nil {
		return nil, err
	}

	key := routeKey{entry: entry, exit: exit, outerOnly: outerOnly}
	if path, hit, _ := r.routes.Get(ctx, key); hit {
		observability.Cache().OnCacheHit(ctx, "route")
		return path, nil
	}
	observability.Cache().OnCacheMiss(ctx, "route")

	v, err, _ := r.flight.Do(key.String(), func() (any, error) {
		path, err := r.computeRoute(key)
		if err != nil {
			return nil, err
		}
		// Caching is best effort: a failed store only costs a later search.
		if err := r.routes.Set(ctx, key, path, 0); err == nil {
			observability.Cache().OnCacheSet(ctx, "route", len(path))
		}
		return path, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*graph.Vertex[T]), nil
}

func (r *Roundabout[T]) computeRoute(key routeKey) ([]*graph.Vertex[T], error) {
	src := r.entries[key.entry-1].Key()
	dst := r.exits[key.exit-1].Key()

	find := pathfind.ShortestPath[T]
	if key.outerOnly {
		find = pathfind.OuterLanePath[T]
	}
	path, err := find(r.g, src, dst)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRouting, err, "entry %d to exit %d (outer lane only: %t)", key.entry, key.exit, key.outerOnly)
	}
	return path[1:], nil
}

// DisableRouteCache makes every RouteBetween call search the graph again.
// Call it before the roundabout is shared between goroutines.
func (r *Roundabout[T]) DisableRouteCache() {
	r.routes = cache.NewNullCache[routeKey, []*graph.Vertex[T]]()
}
