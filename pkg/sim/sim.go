// Package sim runs a population of vehicles through one roundabout.
//
// A [Simulation] builds the roundabout from a [Config], starts each spawned
// vehicle in its own goroutine and tracks outcomes. A [Monitor] samples the
// roundabout on an interval and hands [Frame] values to publishers.
//
// Traversal invariants are audited from vehicle hooks: New installs an
// [Auditor] as the process-wide vehicle hooks, chaining whatever hooks were
// registered before, and Close restores them. Run one simulation per process
// when its audit matters.
package sim

import (
	"context"
	stderrors "errors"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/roundabout/pkg/errors"
	"github.com/matzehuels/roundabout/pkg/observability"
	"github.com/matzehuels/roundabout/pkg/vehicle"
)

// Simulation owns one roundabout and every vehicle spawned into it.
type Simulation struct {
	cfg    Config
	logger *log.Logger
	r      *vehicle.Roundabout

	stats     *Stats
	audit     *Auditor
	prevHooks observability.VehicleHooks

	ctx   context.Context
	group *errgroup.Group

	rngMu sync.Mutex
	rng   *rand.Rand

	mu       sync.RWMutex
	vehicles []*vehicle.Vehicle
	byID     map[string]*vehicle.Vehicle
}

// New validates cfg and builds the roundabout. Vehicles started by the
// simulation stop when ctx is cancelled. A nil logger discards output.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	r, err := vehicle.BuildRoundabout(ctx, cfg.Roundabout)
	if err != nil {
		return nil, err
	}
	if cfg.Simulation.Capacity > 0 {
		r.SetCapacity(cfg.Simulation.Capacity)
	}

	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Simulation{
		cfg:       cfg,
		logger:    logger,
		r:         r,
		stats:     &Stats{},
		prevHooks: observability.Vehicle(),
		rng:       rand.New(rand.NewPCG(uint64(seed), uint64(seed))),
		byID:      make(map[string]*vehicle.Vehicle),
	}
	s.audit = NewAuditor(s.prevHooks, s.stats)
	observability.SetVehicleHooks(s.audit)
	s.group, s.ctx = &errgroup.Group{}, ctx

	logger.Debug("roundabout built",
		"lanes", r.LanesNumber(),
		"entries", r.EntriesNumber(),
		"exits", r.ExitsNumber(),
		"vertices", r.Graph().VertexCount(),
		"capacity", r.Capacity())
	return s, nil
}

// Close restores the vehicle hooks that were registered before New.
func (s *Simulation) Close() {
	observability.SetVehicleHooks(s.prevHooks)
}

// Roundabout returns the simulated roundabout.
func (s *Simulation) Roundabout() *vehicle.Roundabout { return s.r }

// Config returns the configuration the simulation was created with.
func (s *Simulation) Config() Config { return s.cfg }

// Stats returns the current outcome counters.
func (s *Simulation) Stats() Summary { return s.stats.Summary() }

// Violations returns every traversal invariant breach audited so far.
func (s *Simulation) Violations() []string { return s.audit.Violations() }

// Spawn validates spec and starts the vehicle.
func (s *Simulation) Spawn(spec vehicle.Spec) (*vehicle.Vehicle, error) {
	if err := s.validateSpawn(spec); err != nil {
		s.stats.reject()
		return nil, err
	}
	v, err := vehicle.New(spec, s.cfg.Simulation.TimeScale)
	if err != nil {
		s.stats.reject()
		return nil, err
	}

	s.mu.Lock()
	s.vehicles = append(s.vehicles, v)
	s.byID[v.ID()] = v
	s.mu.Unlock()
	s.stats.spawn()

	s.logger.Debug("vehicle spawned", "vehicle", v.Label(), "behavior", v.Kind(), "entry", v.Entry(), "exit", v.Exit())
	s.group.Go(func() error { return s.run(v) })
	return v, nil
}

func (s *Simulation) validateSpawn(spec vehicle.Spec) error {
	if err := errors.ValidateOrdinal("entry", spec.Entry, s.r.EntriesNumber()); err != nil {
		return err
	}
	return errors.ValidateOrdinal("exit", spec.Exit, s.r.ExitsNumber())
}

// run drives one vehicle. Only cancellation is reported to the group: a
// vehicle that fails to route is counted and logged without stopping the
// others.
func (s *Simulation) run(v *vehicle.Vehicle) error {
	err := v.Run(s.ctx, s.r)
	switch {
	case err == nil:
		s.logger.Debug("vehicle exited", "vehicle", v.Label(), "exit", v.Exit(), "elapsed", v.Elapsed().Round(time.Millisecond))
		return nil
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return err
	default:
		s.logger.Warn("vehicle failed", "vehicle", v.Label(), "err", err)
		return nil
	}
}

// SpawnRandom starts n vehicles with random behavior, entry and exit drawn
// from the simulation's seeded source.
func (s *Simulation) SpawnRandom(n int) ([]*vehicle.Vehicle, error) {
	kinds := vehicle.Kinds()
	out := make([]*vehicle.Vehicle, 0, n)
	for i := 0; i < n; i++ {
		spec := vehicle.Spec{
			Kind:  kinds[s.intn(len(kinds))],
			Entry: 1 + s.intn(s.r.EntriesNumber()),
			Exit:  1 + s.intn(s.r.ExitsNumber()),
		}
		v, err := s.Spawn(spec)
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// SpawnGroups starts every vehicle group of the configuration.
func (s *Simulation) SpawnGroups() ([]*vehicle.Vehicle, error) {
	var out []*vehicle.Vehicle
	for _, g := range s.cfg.Vehicles {
		for i := 0; i < g.Count; i++ {
			spec := vehicle.Spec{Kind: g.Behavior, Entry: g.Entry, Exit: g.Exit, Color: g.Color}
			if spec.Entry == 0 {
				spec.Entry = 1 + s.intn(s.r.EntriesNumber())
			}
			if spec.Exit == 0 {
				spec.Exit = 1 + s.intn(s.r.ExitsNumber())
			}
			v, err := s.Spawn(spec)
			if err != nil {
				return out, err
			}
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Simulation) intn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.IntN(n)
}

// Vehicles returns every spawned vehicle in spawn order.
func (s *Simulation) Vehicles() []*vehicle.Vehicle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*vehicle.Vehicle(nil), s.vehicles...)
}

// Vehicle looks up a spawned vehicle by ID.
func (s *Simulation) Vehicle(id string) (*vehicle.Vehicle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.byID[id]
	return v, ok
}

// Wait blocks until every vehicle spawned so far has finished. It returns
// the context error if the simulation was cancelled. Vehicles may still be
// spawned after Wait returns.
func (s *Simulation) Wait() error {
	return s.group.Wait()
}
