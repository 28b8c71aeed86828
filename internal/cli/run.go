package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/roundabout/pkg/sim"
	"github.com/matzehuels/roundabout/pkg/sink"
	"github.com/matzehuels/roundabout/pkg/vehicle"
)

// sinkFlags select where monitor frames go.
type sinkFlags struct {
	frames   string
	redisURL string
	channel  string
	interval time.Duration
}

func (f *sinkFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.frames, "frames", "", "write NDJSON frames to this file (- for stdout)")
	cmd.Flags().StringVar(&f.redisURL, "redis", "", "publish frames to this Redis server (redis://host:port/db)")
	cmd.Flags().StringVar(&f.channel, "channel", sink.DefaultChannel, "Redis channel for frames")
	cmd.Flags().DurationVar(&f.interval, "interval", 0, "sample interval (default from config)")
}

// open returns the configured publishers and a func that closes them.
func (f *sinkFlags) open(ctx context.Context) ([]sim.Publisher, func(), error) {
	var (
		pubs    []sim.Publisher
		closers []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	switch f.frames {
	case "":
	case "-":
		pubs = append(pubs, sink.NewJSONWriter(os.Stdout))
	default:
		file, err := os.Create(f.frames)
		if err != nil {
			return nil, closeAll, fmt.Errorf("create frames file: %w", err)
		}
		closers = append(closers, file.Close)
		pubs = append(pubs, sink.NewJSONWriter(file))
	}

	if f.redisURL != "" {
		pub, err := sink.NewRedisPublisher(ctx, f.redisURL, f.channel)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, pub.Close)
		pubs = append(pubs, pub)
	}
	return pubs, closeAll, nil
}

// spawnVehicles starts the configured vehicle groups, or count random
// vehicles when there are none or count was set explicitly.
func spawnVehicles(s *sim.Simulation, count int, explicit bool) ([]*vehicle.Vehicle, error) {
	if len(s.Config().Vehicles) > 0 && !explicit {
		return s.SpawnGroups()
	}
	return s.SpawnRandom(count)
}

// runCommand creates the run command, which simulates traffic to completion
// and reports the outcome.
func (c *CLI) runCommand() *cobra.Command {
	var (
		flags   configFlags
		sinks   sinkFlags
		count   int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate vehicles until every one has left",
		Long: `Simulate vehicles until every one has left the roundabout.

Vehicles come from the [[vehicles]] groups of the config file, or --count
random ones are spawned. Snapshots can be streamed as NDJSON (--frames) or
published on Redis (--redis). The command fails if any traversal invariant
was violated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			return c.runSimulation(ctx, cfg, &sinks, count, cmd.Flags().Changed("count"))
		},
	}

	flags.register(cmd, true)
	sinks.register(cmd)
	cmd.Flags().IntVarP(&count, "count", "n", defaultSpawn, "number of random vehicles")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "stop the simulation after this long")

	return cmd
}

func (c *CLI) runSimulation(ctx context.Context, cfg sim.Config, sinks *sinkFlags, count int, explicit bool) error {
	s, err := sim.New(ctx, cfg, c.Logger)
	if err != nil {
		return err
	}
	defer s.Close()

	pubs, closeSinks, err := sinks.open(ctx)
	if err != nil {
		return err
	}
	defer closeSinks()

	mon := sim.NewMonitor(s, sinks.interval, pubs...)
	monCtx, stopMonitor := context.WithCancel(ctx)
	monDone := make(chan struct{})
	go func() {
		defer close(monDone)
		_ = mon.Run(monCtx)
	}()

	prog := newProgress(c.Logger)
	spawned, spawnErr := spawnVehicles(s, count, explicit)
	waitErr := s.Wait()
	stopMonitor()
	<-monDone

	if spawnErr != nil {
		return spawnErr
	}
	prog.done(fmt.Sprintf("Ran %d vehicles", len(spawned)))
	printSummary(s.Stats())

	if waitErr != nil {
		printWarning("Simulation stopped early")
		return waitErr
	}
	if v := s.Violations(); len(v) > 0 {
		for _, msg := range v {
			printError("%s", msg)
		}
		return fmt.Errorf("%d invariant violations", len(v))
	}
	printSuccess("All vehicles left without violations")
	return nil
}

func printSummary(sum sim.Summary) {
	printKeyValue("spawned", fmt.Sprint(sum.Spawned))
	printKeyValue("exited", fmt.Sprint(sum.Exited))
	if sum.Failed > 0 {
		printKeyValue("failed", StyleWarning.Render(fmt.Sprint(sum.Failed)))
	}
	if sum.Exited > 0 {
		printKeyValue("mean trip", sum.MeanTrip.Round(time.Millisecond).String())
		printKeyValue("longest", sum.LongestTrip.Round(time.Millisecond).String())
	}
	printStats("contentions", sum.Contention, "rejected", sum.Rejected, "still active", sum.Active)
}
