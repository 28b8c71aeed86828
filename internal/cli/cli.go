// Package cli implements the roundabout command-line interface.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/roundabout/pkg/buildinfo"
	"github.com/matzehuels/roundabout/pkg/observability"
	"github.com/matzehuels/roundabout/pkg/roundabout"
	"github.com/matzehuels/roundabout/pkg/sim"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for display and completion.
	appName = "roundabout"

	// defaultSpawn is how many random vehicles run and watch start when the
	// configuration has no vehicle groups.
	defaultSpawn = 20
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
	LogError = log.ErrorLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Roundabout simulates vehicles sharing a multi-lane roundabout",
		Long:         `Roundabout models a multi-lane roundabout as a graph of single-occupancy segments and runs every vehicle as its own goroutine, with FIFO entry queues and deadlock-free admission.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.installHooks()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.buildCommand())
	root.AddCommand(c.routeCommand())
	root.AddCommand(c.runCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// installHooks routes build, cache and vehicle events to the logger. They
// show up at debug level.
func (c *CLI) installHooks() {
	h := &logHooks{logger: c.Logger}
	observability.SetBuildHooks(h)
	observability.SetCacheHooks(h)
	observability.SetVehicleHooks(h)
}

// =============================================================================
// Configuration Flags
// =============================================================================

// configFlags are the flags shared by every command that builds a
// roundabout. Geometry flags override the config file only when set.
type configFlags struct {
	path string

	radius    float64
	laneWidth float64
	density   float64
	lanes     int
	entries   int
	exits     int

	timeScale float64
	capacity  int
	seed      int64
}

func (f *configFlags) register(cmd *cobra.Command, simulation bool) {
	def := roundabout.DefaultConfig()
	fl := cmd.Flags()
	fl.StringVarP(&f.path, "config", "c", "", "TOML configuration file")
	fl.Float64Var(&f.radius, "radius", def.Radius, "outer radius in meters")
	fl.Float64Var(&f.laneWidth, "lane-width", def.LaneWidth, "lane width in meters")
	fl.Float64Var(&f.density, "density", def.VertexDensity, "vertices per meter of lane")
	fl.IntVar(&f.lanes, "lanes", def.Lanes, "number of lanes")
	fl.IntVar(&f.entries, "entries", def.Entries, "number of entries")
	fl.IntVar(&f.exits, "exits", def.Exits, "number of exits")
	if simulation {
		fl.Float64Var(&f.timeScale, "time-scale", sim.DefaultTimeScale, "multiplier applied to every vehicle delay")
		fl.IntVar(&f.capacity, "capacity", 0, "admission cap (0 derives it from the girth)")
		fl.Int64Var(&f.seed, "seed", 0, "random seed for spawns (0 uses the clock)")
	}
}

// load reads the config file, if any, and applies every flag the user set.
func (f *configFlags) load(cmd *cobra.Command) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if f.path != "" {
		var err error
		if cfg, err = sim.LoadConfig(f.path); err != nil {
			return cfg, err
		}
	}

	fl := cmd.Flags()
	set := func(name string, apply func()) {
		if fl.Changed(name) {
			apply()
		}
	}
	set("radius", func() { cfg.Roundabout.Radius = f.radius })
	set("lane-width", func() { cfg.Roundabout.LaneWidth = f.laneWidth })
	set("density", func() { cfg.Roundabout.VertexDensity = f.density })
	set("lanes", func() { cfg.Roundabout.Lanes = f.lanes })
	set("entries", func() { cfg.Roundabout.Entries = f.entries })
	set("exits", func() { cfg.Roundabout.Exits = f.exits })
	set("time-scale", func() { cfg.Simulation.TimeScale = f.timeScale })
	set("capacity", func() { cfg.Simulation.Capacity = f.capacity })
	set("seed", func() { cfg.Simulation.Seed = f.seed })
	return cfg, nil
}
