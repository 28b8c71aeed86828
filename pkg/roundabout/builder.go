package roundabout

import (
	"context"
	"time"

	"github.com/matzehuels/roundabout/pkg/errors"
	"github.com/matzehuels/roundabout/pkg/graph"
	"github.com/matzehuels/roundabout/pkg/observability"
	"github.com/matzehuels/roundabout/pkg/pathfind"
)

// Build validates cfg and constructs the roundabout graph:
//
//  1. one ring per lane, outermost first, each chained into a directed cycle
//  2. entry and exit spurs on the outer ring
//  3. cross links between every pair of adjacent rings
//
// Validation happens before any vertex exists, so a configuration error never
// leaves a partial graph behind.
func Build[T any](ctx context.Context, cfg Config) (*Roundabout[T], error) {
	start := time.Now()
	observability.Build().OnBuildStart(ctx, cfg.Lanes, cfg.Entries, cfg.Exits)

	r, err := build[T](cfg)
	if err != nil {
		observability.Build().OnBuildComplete(ctx, 0, 0, time.Since(start), err)
		return nil, err
	}
	observability.Build().OnBuildComplete(ctx, r.g.VertexCount(), r.g.EdgeCount(), time.Since(start), nil)
	return r, nil
}

func build[T any](cfg Config) (*Roundabout[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &builder[T]{g: graph.New[T](), cfg: cfg}
	for i := 0; i < cfg.Lanes; i++ {
		if err := b.ring(i); err != nil {
			return nil, err
		}
		if i == 0 {
			if err := b.spurs(); err != nil {
				return nil, err
			}
		}
	}
	for i := 0; i+1 < cfg.Lanes; i++ {
		if err := b.crossLink(b.rings[i], b.rings[i+1]); err != nil {
			return nil, err
		}
	}

	r := newRoundabout(b.g, cfg, b.rings, b.entries, b.exits)
	lanes := pathfind.Restrict(b.g, func(v *graph.Vertex[T]) bool { return v.IsLane() })
	r.girth = pathfind.Girth(b.g, lanes)
	return r, nil
}

type builder[T any] struct {
	g       *graph.Graph[T]
	cfg     Config
	rings   [][]*graph.Vertex[T]
	entries []*graph.Vertex[T]
	exits   []*graph.Vertex[T]
}

// ring adds the vertices of lane i and closes them into a cycle.
func (b *builder[T]) ring(i int) error {
	n := b.cfg.RingSize(i)
	ring := make([]*graph.Vertex[T], n)
	for j := range ring {
		ring[j] = b.g.AddVertex(graph.RoleLane, i)
	}
	for j := range ring {
		if err := b.g.AddEdge(ring[j].Key(), ring[(j+1)%n].Key()); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "lane %d", i)
		}
	}
	b.rings = append(b.rings, ring)
	return nil
}

// spurs attaches entries and exits to the outer ring at evenly spaced
// offsets. An entry and an exit may share a ring vertex.
func (b *builder[T]) spurs() error {
	outer := b.rings[0]
	n := len(outer)

	step := n / b.cfg.Entries
	for i := 0; i < b.cfg.Entries; i++ {
		e := b.g.AddVertex(graph.RoleEntry, 0)
		if err := b.g.AddEdge(e.Key(), outer[i*step].Key()); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "entry %d", i+1)
		}
		b.entries = append(b.entries, e)
	}

	step = n / b.cfg.Exits
	for j := 0; j < b.cfg.Exits; j++ {
		x := b.g.AddVertex(graph.RoleExit, 0)
		if err := b.g.AddEdge(outer[j*step].Key(), x.Key()); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "exit %d", j+1)
		}
		b.exits = append(b.exits, x)
	}
	return nil
}

// crossLink connects two adjacent rings. The outer ring has diff more
// vertices than the inner one; exactly diff outer positions, spread evenly,
// get no link. Every other outer vertex j links down to the next inner
// vertex k, and k links back up to outer j+1, so each inner vertex receives
// exactly one cross link from above.
func (b *builder[T]) crossLink(outer, inner []*graph.Vertex[T]) error {
	no, ni := len(outer), len(inner)
	diff := no - ni
	if diff < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "inner ring has %d vertices, more than the %d of its outer ring", ni, no)
	}

	k := 0
	for j := 0; j < no; j++ {
		if skipCrossLink(j, diff, no) {
			continue
		}
		if err := b.g.AddEdge(outer[j].Key(), inner[k].Key()); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "cross link down")
		}
		if err := b.g.AddEdge(inner[k].Key(), outer[(j+1)%no].Key()); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "cross link up")
		}
		k++
	}
	return nil
}

// skipCrossLink reports whether outer position j is one of the diff
// positions left without a cross link.
func skipCrossLink(j, diff, size int) bool {
	return (j+1)*diff/size != j*diff/size
}
