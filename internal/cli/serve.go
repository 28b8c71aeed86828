package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/roundabout/pkg/server"
	"github.com/matzehuels/roundabout/pkg/sim"
)

// serveCommand creates the serve command, which runs a long-lived
// simulation behind the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		flags configFlags
		sinks sinkFlags
		addr  string
		count int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a live simulation over HTTP",
		Long: `Serve a live simulation over HTTP until interrupted.

Clients spawn vehicles with POST /api/vehicles and follow the roundabout
through /api/snapshot or the /api/frames event stream. Frames can also be
published on Redis with --redis.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			return c.serve(cmd.Context(), cfg, &sinks, addr, count)
		},
	}

	flags.register(cmd, true)
	sinks.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "random vehicles to spawn at startup")

	return cmd
}

func (c *CLI) serve(ctx context.Context, cfg sim.Config, sinks *sinkFlags, addr string, count int) error {
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

	srv := server.New(s, c.Logger)
	mon := sim.NewMonitor(s, sinks.interval, append(pubs, srv.Hub())...)

	if count > 0 || len(cfg.Vehicles) > 0 {
		if _, err := spawnVehicles(s, count, count > 0); err != nil {
			return err
		}
	}

	printSuccess("Serving on %s", StyleValue.Render("http://"+addr))
	printNextStep("Spawn a vehicle", fmt.Sprintf(`curl -d '{"behavior":"light:default","entry":1,"exit":3}' http://%s/api/vehicles`, addr))
	printInfo("Press Ctrl+C to stop")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx, addr) })
	g.Go(func() error { return mon.Run(gctx) })
	err = g.Wait()

	_ = s.Wait()
	printSummary(s.Stats())
	return err
}
