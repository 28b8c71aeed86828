package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/roundabout/pkg/vehicle"
)

// routeCommand creates the route command, which prints the path a vehicle
// would take between an entry and an exit.
func (c *CLI) routeCommand() *cobra.Command {
	var (
		flags   configFlags
		outer   bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "route ENTRY EXIT",
		Short: "Show the route between an entry and an exit",
		Long: `Show the shortest route between an entry and an exit, both numbered
from 1. With --outer the route stays on the outermost lane, the way heavy
vehicles drive.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("entry must be a number, got %q", args[0])
			}
			exit, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("exit must be a number, got %q", args[1])
			}

			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			r, err := vehicle.BuildRoundabout(cmd.Context(), cfg.Roundabout)
			if err != nil {
				return err
			}
			if noCache {
				r.DisableRouteCache()
			}
			path, err := r.RouteBetween(cmd.Context(), entry, exit, outer)
			if err != nil {
				return err
			}

			hops := make([]string, len(path))
			lanes := map[int]bool{}
			for i, v := range path {
				hops[i] = v.String()
				if v.IsLane() {
					lanes[v.Lane()] = true
				}
			}
			printSuccess("Entry %d %s exit %d", entry, iconArrow, exit)
			printDetail("%s", strings.Join(hops, " "+iconArrow+" "))
			printStats("hops", len(path), "lanes", len(lanes))
			return nil
		},
	}

	flags.register(cmd, false)
	cmd.Flags().BoolVar(&outer, "outer", false, "stay on the outer lane")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable route caching")

	return cmd
}
