package sim

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/roundabout/pkg/errors"
	"github.com/matzehuels/roundabout/pkg/vehicle"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Simulation.TimeScale = 0.001
	cfg.Simulation.Seed = 42
	return cfg
}

func newSim(t *testing.T, ctx context.Context, cfg Config) *Simulation {
	t.Helper()
	s, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Roundabout.Radius != 15 || cfg.Roundabout.LaneWidth != 3 || cfg.Roundabout.VertexDensity != 0.25 {
		t.Errorf("unexpected geometry %+v", cfg.Roundabout)
	}
	if cfg.Roundabout.Lanes != 2 || cfg.Roundabout.Entries != 4 || cfg.Roundabout.Exits != 4 {
		t.Errorf("unexpected layout %+v", cfg.Roundabout)
	}
	if cfg.Simulation.TimeScale != 1 {
		t.Errorf("TimeScale = %v, want 1", cfg.Simulation.TimeScale)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	cfg := testConfig()
	cfg.Simulation.Capacity = 5
	cfg.Vehicles = []Group{
		{Behavior: vehicle.HeavyDefault, Entry: 1, Exit: 2, Count: 3},
		{Behavior: vehicle.LightAggressive, Color: "#00ff00", Count: 2},
	}

	path := filepath.Join(t.TempDir(), "sim.toml")
	if err := WriteConfig(path, cfg); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if got.Roundabout != cfg.Roundabout {
		t.Errorf("Roundabout = %+v, want %+v", got.Roundabout, cfg.Roundabout)
	}
	if got.Simulation != cfg.Simulation {
		t.Errorf("Simulation = %+v, want %+v", got.Simulation, cfg.Simulation)
	}
	if len(got.Vehicles) != 2 || got.Vehicles[0] != cfg.Vehicles[0] || got.Vehicles[1] != cfg.Vehicles[1] {
		t.Errorf("Vehicles = %+v, want %+v", got.Vehicles, cfg.Vehicles)
	}
}

func TestParseConfig(t *testing.T) {
	data := `
[roundabout]
radius = 20.0
lanes = 3

[simulation]
time_scale = 0.5
sample_interval = "100ms"

[[vehicles]]
behavior = "light:aggressive"
count = 4
`
	cfg, err := ParseConfig([]byte(data))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Roundabout.Radius != 20 || cfg.Roundabout.Lanes != 3 {
		t.Errorf("Roundabout = %+v", cfg.Roundabout)
	}
	if cfg.Roundabout.LaneWidth != 3 || cfg.Roundabout.Entries != 4 {
		t.Errorf("missing keys should keep defaults, got %+v", cfg.Roundabout)
	}
	if cfg.Simulation.SampleInterval.Duration != 100*time.Millisecond {
		t.Errorf("SampleInterval = %v", cfg.Simulation.SampleInterval)
	}
	if len(cfg.Vehicles) != 1 || cfg.Vehicles[0].Behavior != vehicle.LightAggressive || cfg.Vehicles[0].Count != 4 {
		t.Errorf("Vehicles = %+v", cfg.Vehicles)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "[roundabout\nradius = 1"},
		{"unknown key", "[roundabout]\nradios = 1.0"},
		{"unknown behavior", "[[vehicles]]\nbehavior = \"tank\"\ncount = 1"},
		{"bad duration", "[simulation]\nsample_interval = \"soon\""},
		{"zero time scale", "[simulation]\ntime_scale = 0.0"},
		{"negative count", "[[vehicles]]\nbehavior = \"light:default\"\ncount = -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseConfig([]byte(tt.data)); err == nil {
				t.Error("ParseConfig() = nil, want error")
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if !stderrors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig() = %v, want not exist", err)
	}
}

func TestNewRejectsBadGeometry(t *testing.T) {
	cfg := testConfig()
	cfg.Roundabout.Radius = 3
	_, err := New(context.Background(), cfg, nil)
	if !errors.IsConfiguration(err) {
		t.Errorf("New() = %v, want configuration error", err)
	}
}

func TestSimulationRunsToCompletion(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	s := newSim(t, ctx, testConfig())

	vs, err := s.SpawnRandom(40)
	if err != nil {
		t.Fatalf("SpawnRandom: %v", err)
	}
	if len(vs) != 40 {
		t.Fatalf("spawned %d vehicles, want 40", len(vs))
	}
	if err := s.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	sum := s.Stats()
	if sum.Spawned != 40 || sum.Exited != 40 || sum.Entered != 40 || sum.Failed != 0 || sum.Active != 0 {
		t.Errorf("Stats = %+v", sum)
	}
	if sum.MeanTrip <= 0 || sum.LongestTrip < sum.MeanTrip {
		t.Errorf("trip times mean=%v longest=%v", sum.MeanTrip, sum.LongestTrip)
	}
	if v := s.Violations(); len(v) != 0 {
		t.Errorf("Violations = %v", v)
	}

	f := s.Frame()
	if f.Occupied() != 0 {
		t.Errorf("Occupied() = %d after all vehicles exited", f.Occupied())
	}
	if len(f.Vehicles) != 0 {
		t.Errorf("Frame lists %d unfinished vehicles", len(f.Vehicles))
	}
	for _, v := range s.Vehicles() {
		if v.State() != vehicle.Exited {
			t.Errorf("%s state = %v", v.Label(), v.State())
		}
	}

	// The simulation accepts new vehicles after Wait.
	if _, err := s.Spawn(vehicle.Spec{Kind: vehicle.LightDefault, Entry: 2, Exit: 3}); err != nil {
		t.Fatalf("Spawn after Wait: %v", err)
	}
	if err := s.Wait(); err != nil {
		t.Fatalf("second Wait: %v", err)
	}
}

func TestSpawnGroups(t *testing.T) {
	cfg := testConfig()
	cfg.Vehicles = []Group{
		{Behavior: vehicle.HeavyDefault, Entry: 1, Exit: 3, Count: 2},
		{Behavior: vehicle.LightAggressive, Count: 3},
	}
	s := newSim(t, context.Background(), cfg)

	vs, err := s.SpawnGroups()
	if err != nil {
		t.Fatalf("SpawnGroups: %v", err)
	}
	if len(vs) != 5 {
		t.Fatalf("spawned %d, want 5", len(vs))
	}
	for _, v := range vs[:2] {
		if v.Kind() != vehicle.HeavyDefault || v.Entry() != 1 || v.Exit() != 3 {
			t.Errorf("group 1 vehicle %+v", v.Info())
		}
	}
	for _, v := range vs[2:] {
		if v.Entry() < 1 || v.Entry() > 4 || v.Exit() < 1 || v.Exit() > 4 {
			t.Errorf("random endpoints out of range: %+v", v.Info())
		}
	}
	if err := s.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got, ok := s.Vehicle(vs[0].ID()); !ok || got != vs[0] {
		t.Error("Vehicle() should find spawned vehicles by ID")
	}
}

func TestSpawnRandomIsSeeded(t *testing.T) {
	draw := func() []string {
		// A cancelled context stops every vehicle right away; only the draws matter.
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s := newSim(t, ctx, testConfig())
		vs, err := s.SpawnRandom(12)
		if err != nil {
			t.Fatalf("SpawnRandom: %v", err)
		}
		_ = s.Wait()
		s.Close()

		out := make([]string, len(vs))
		for i, v := range vs {
			out[i] = fmt.Sprintf("%s %d>%d", v.Kind(), v.Entry(), v.Exit())
		}
		return out
	}

	first, second := draw(), draw()
	if strings.Join(first, ",") != strings.Join(second, ",") {
		t.Errorf("same seed drew %v then %v", first, second)
	}
}

func TestSpawnRejectsInvalidRequests(t *testing.T) {
	s := newSim(t, context.Background(), testConfig())

	tests := []struct {
		name string
		spec vehicle.Spec
		code errors.Code
	}{
		{"entry zero", vehicle.Spec{Kind: vehicle.LightDefault, Entry: 0, Exit: 1}, errors.ErrCodeRouting},
		{"exit too high", vehicle.Spec{Kind: vehicle.LightDefault, Entry: 1, Exit: 5}, errors.ErrCodeRouting},
		{"bad label", vehicle.Spec{Kind: vehicle.LightDefault, Entry: 1, Exit: 1, Label: "bad\tlabel"}, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Spawn(tt.spec); errors.GetCode(err) != tt.code {
				t.Errorf("Spawn() = %v, want code %s", err, tt.code)
			}
		})
	}
	if sum := s.Stats(); sum.Rejected != 3 || sum.Spawned != 0 {
		t.Errorf("Stats = %+v", sum)
	}
}

func TestSimulationCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Simulation.Seed = 1
	ctx, cancel := context.WithCancel(context.Background())
	s := newSim(t, ctx, cfg)

	// Real time: nobody gets far before the cancel.
	if _, err := s.SpawnRandom(20); err != nil {
		t.Fatalf("SpawnRandom: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	cancel()

	if err := s.Wait(); !stderrors.Is(err, context.Canceled) {
		t.Fatalf("Wait() = %v, want context.Canceled", err)
	}
	if f := s.Frame(); f.Occupied() != 0 {
		t.Errorf("%d vertices still occupied after cancel", f.Occupied())
	}
	r := s.Roundabout()
	for e := 1; e <= r.EntriesNumber(); e++ {
		if n := r.QueueLen(e); n != 0 {
			t.Errorf("entry %d still has %d queued", e, n)
		}
	}
	if sum := s.Stats(); sum.Failed != 20 {
		t.Errorf("Failed = %d, want 20", sum.Failed)
	}
}

type capture struct {
	mu     sync.Mutex
	frames []Frame
	fail   bool
}

func (c *capture) Publish(_ context.Context, f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	if c.fail {
		return stderrors.New("sink down")
	}
	return nil
}

func (c *capture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func TestMonitorSample(t *testing.T) {
	s := newSim(t, context.Background(), testConfig())
	ok, broken := &capture{}, &capture{fail: true}
	m := NewMonitor(s, 0, broken, ok)

	f1 := m.Sample(context.Background())
	f2 := m.Sample(context.Background())
	if f1.Seq != 1 || f2.Seq != 2 {
		t.Errorf("Seq = %d, %d, want 1, 2", f1.Seq, f2.Seq)
	}
	if ok.count() != 2 || broken.count() != 2 {
		t.Errorf("publishers got %d and %d frames, want 2 each", ok.count(), broken.count())
	}
	if len(f1.Vertices) != s.Roundabout().Graph().VertexCount() {
		t.Errorf("frame has %d vertices", len(f1.Vertices))
	}
	if len(f1.Queues) != 4 {
		t.Errorf("frame has %d queues", len(f1.Queues))
	}
	if m.interval != DefaultSampleInterval {
		t.Errorf("interval = %v, want configured default", m.interval)
	}
}

func TestMonitorReportsUnknownOccupant(t *testing.T) {
	s := newSim(t, context.Background(), testConfig())
	stranger, err := vehicle.New(vehicle.Spec{Kind: vehicle.LightDefault, Entry: 1, Exit: 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	v := s.Roundabout().Ring(0)[2]
	if !v.TryAcquire(stranger) {
		t.Fatal("TryAcquire failed on an empty vertex")
	}
	defer v.Release(stranger)

	f := s.Frame()
	if len(f.Violations) != 1 || !strings.Contains(f.Violations[0], "unknown vehicle") {
		t.Errorf("Violations = %v", f.Violations)
	}
	if f.Vertices[v.Key()].Occupant != stranger.ID() {
		t.Errorf("Occupant = %q", f.Vertices[v.Key()].Occupant)
	}
}

func TestMonitorRun(t *testing.T) {
	s := newSim(t, context.Background(), testConfig())
	c := &capture{}
	m := NewMonitor(s, time.Millisecond, c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for c.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() = %v", err)
	}
	if c.count() < 4 {
		t.Errorf("got %d frames, want at least 3 ticks plus a final sample", c.count())
	}
}

func TestExampleConfigs(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "examples", "*.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Skip("no example configs")
	}
	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			cfg, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig: %v", err)
			}
			if len(cfg.Vehicles) == 0 {
				t.Error("example should spawn vehicles")
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			cfg.Simulation.TimeScale = 0.001
			s := newSim(t, ctx, cfg)
			r := s.Roundabout()

			routed := make(chan struct{})
			go func() {
				defer close(routed)
				for in := 1; in <= r.EntriesNumber(); in++ {
					for out := 1; out <= r.ExitsNumber(); out++ {
						for _, outerOnly := range []bool{false, true} {
							if _, err := r.RouteBetween(ctx, in, out, outerOnly); err != nil {
								t.Errorf("RouteBetween(%d, %d, %t): %v", in, out, outerOnly, err)
							}
						}
					}
				}
			}()
			select {
			case <-routed:
			case <-time.After(10 * time.Second):
				t.Fatal("routing every entry/exit pair took longer than 10s")
			}

			vs, err := s.SpawnGroups()
			if err != nil {
				t.Fatalf("SpawnGroups: %v", err)
			}
			if err := s.Wait(); err != nil {
				t.Fatalf("Wait: %v", err)
			}
			if sum := s.Stats(); sum.Exited != len(vs) || sum.Failed != 0 {
				t.Errorf("Stats = %+v, want %d exited", sum, len(vs))
			}
			if v := s.Violations(); len(v) != 0 {
				t.Errorf("Violations = %v", v)
			}
		})
	}
}

func TestWithdrawnVehicleKeepsEntryOrder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	s := newSim(t, ctx, testConfig())
	r := s.Roundabout()

	// Hold the head of entry 2 so everyone behind it stays queued.
	blocker := &vehicle.Vehicle{}
	if _, err := r.EnqueueAtEntry(blocker, 2); err != nil {
		t.Fatal(err)
	}

	quitter, err := vehicle.New(vehicle.Spec{Kind: vehicle.LightDefault, Entry: 2, Exit: 4}, 0.001)
	if err != nil {
		t.Fatal(err)
	}
	qctx, qcancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- quitter.Run(qctx, r) }()
	waitFor(t, func() bool { return quitter.State() == vehicle.Queued })

	var rest []*vehicle.Vehicle
	for exit := 1; exit <= 4; exit++ {
		v, err := s.Spawn(vehicle.Spec{Kind: vehicle.LightAggressive, Entry: 2, Exit: exit})
		if err != nil {
			t.Fatalf("Spawn: %v", err)
		}
		rest = append(rest, v)
	}
	waitFor(t, func() bool { return r.QueueLen(2) == 2+len(rest) })

	qcancel()
	if err := <-done; !stderrors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}
	if !r.Withdraw(2, blocker) {
		t.Fatal("blocker was not queued")
	}

	if err := s.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	for _, v := range rest {
		if v.State() != vehicle.Exited {
			t.Errorf("%s state = %v", v.Label(), v.State())
		}
	}
	if v := s.Violations(); len(v) != 0 {
		t.Errorf("Violations = %v", v)
	}
}

func TestAuditorEntryOrder(t *testing.T) {
	ctx := context.Background()
	a := NewAuditor(nil, nil)

	a.OnEnter(ctx, "a", 1, 0, 0)
	a.OnEnter(ctx, "c", 1, 2, 1) // ticket 1 withdrew
	a.OnEnter(ctx, "x", 2, 0, 0)
	if v := a.Violations(); len(v) != 0 {
		t.Fatalf("Violations = %v", v)
	}

	a.OnEnter(ctx, "b", 1, 1, 2)
	if v := a.Violations(); len(v) != 1 || !strings.Contains(v[0], "ticket 1 after ticket 2") {
		t.Errorf("Violations = %v", v)
	}

	a.OnEnter(ctx, "d", 1, 5, 7)
	if v := a.Violations(); len(v) != 2 || !strings.Contains(v[1], "as number 7, want 3") {
		t.Errorf("Violations = %v", v)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached within 5s")
		}
		time.Sleep(time.Millisecond)
	}
}
