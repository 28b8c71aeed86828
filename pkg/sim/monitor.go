package sim

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/roundabout/pkg/vehicle"
)

// Frame is a serializable sample of a running simulation.
type Frame struct {
	Seq        uint64         `json:"seq"`
	Taken      time.Time      `json:"taken"`
	Vertices   []VertexView   `json:"vertices"`
	Queues     []int          `json:"queues"`
	Vehicles   []vehicle.Info `json:"vehicles"`
	Stats      Summary        `json:"stats"`
	Violations []string       `json:"violations,omitempty"`
}

// VertexView is the display state of one vertex.
type VertexView struct {
	Key      int    `json:"key"`
	Role     string `json:"role"`
	Lane     int    `json:"lane"`
	Weight   int    `json:"weight"`
	Occupant string `json:"occupant,omitempty"`
}

// Occupied returns the number of occupied vertices.
func (f Frame) Occupied() int {
	n := 0
	for _, v := range f.Vertices {
		if v.Occupant != "" {
			n++
		}
	}
	return n
}

// Publisher receives every frame a monitor takes.
type Publisher interface {
	Publish(ctx context.Context, f Frame) error
}

// Frame samples the roundabout now. Vehicles that have not finished are
// listed; an occupant that is not one of this simulation's vehicles is
// reported as a violation.
func (s *Simulation) Frame() Frame {
	snap := s.r.Snapshot()
	f := Frame{
		Taken:    snap.Taken,
		Vertices: make([]VertexView, len(snap.Vertices)),
		Queues:   snap.Queues,
		Stats:    s.stats.Summary(),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, v := range snap.Vertices {
		view := VertexView{Key: v.Key, Role: v.Role.String(), Lane: v.Lane, Weight: v.Weight}
		if v.Occupant != nil {
			view.Occupant = v.Occupant.ID()
			if known, ok := s.byID[view.Occupant]; !ok || known != v.Occupant {
				f.Violations = append(f.Violations, fmt.Sprintf("vertex %d occupied by unknown vehicle %s", v.Key, view.Occupant))
			}
		}
		f.Vertices[i] = view
	}
	for _, v := range s.vehicles {
		if !v.State().Done() {
			f.Vehicles = append(f.Vehicles, v.Info())
		}
	}
	f.Violations = append(f.Violations, s.audit.Violations()...)
	return f
}

// Monitor samples a simulation on an interval and publishes each frame.
type Monitor struct {
	sim      *Simulation
	interval time.Duration
	pubs     []Publisher
	logger   *log.Logger

	seq atomic.Uint64

	mu       sync.Mutex
	reported int
}

// NewMonitor returns a monitor for s. A zero interval uses the configured
// sample interval.
func NewMonitor(s *Simulation, interval time.Duration, pubs ...Publisher) *Monitor {
	if interval <= 0 {
		interval = s.cfg.Simulation.SampleInterval.Duration
	}
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Monitor{sim: s, interval: interval, pubs: pubs, logger: s.logger}
}

// Sample takes one frame and publishes it. Publisher errors are logged and
// do not stop other publishers.
func (m *Monitor) Sample(ctx context.Context) Frame {
	f := m.sim.Frame()
	f.Seq = m.seq.Add(1)

	m.mu.Lock()
	if audit := m.sim.Violations(); len(audit) > m.reported {
		for _, v := range audit[m.reported:] {
			m.logger.Error("invariant violated", "detail", v)
		}
		m.reported = len(audit)
	}
	m.mu.Unlock()

	for _, p := range m.pubs {
		if err := p.Publish(ctx, f); err != nil {
			m.logger.Warn("publish failed", "seq", f.Seq, "err", err)
		}
	}
	return f
}

// Run samples until ctx is done, then takes one final sample.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.Sample(context.WithoutCancel(ctx))
			return nil
		case <-ticker.C:
			m.Sample(ctx)
		}
	}
}
