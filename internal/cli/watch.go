package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/roundabout/pkg/graph"
	"github.com/matzehuels/roundabout/pkg/render"
	"github.com/matzehuels/roundabout/pkg/sim"
)

// Watch styles
var (
	watchFreeStyle  = lipgloss.NewStyle().Foreground(colorDim)
	watchLabelStyle = lipgloss.NewStyle().Foreground(colorGray).Width(8)
	watchHelpStyle  = lipgloss.NewStyle().Foreground(colorDim)
	watchQueueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(render.ColorEntry))
)

const (
	cellFree     = "·"
	cellOccupied = "●"

	// watchTimeScale speeds vehicles up so a default run fits on screen.
	watchTimeScale = 0.2
)

// =============================================================================
// watchModel - Live view of a running simulation
// =============================================================================

type tickMsg time.Time

// watchModel is the bubbletea model for the live simulation view.
type watchModel struct {
	ctx      context.Context
	sim      *sim.Simulation
	mon      *sim.Monitor
	interval time.Duration

	frame  sim.Frame
	colors map[string]lipgloss.Style
	done   bool
}

func newWatchModel(ctx context.Context, s *sim.Simulation, mon *sim.Monitor, interval time.Duration) watchModel {
	m := watchModel{ctx: ctx, sim: s, mon: mon, interval: interval, colors: map[string]lipgloss.Style{}}
	return m.sample()
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m watchModel) sample() watchModel {
	m.frame = m.mon.Sample(m.ctx)
	for _, v := range m.frame.Vehicles {
		if _, ok := m.colors[v.ID]; !ok {
			m.colors[v.ID] = lipgloss.NewStyle().Foreground(lipgloss.Color(v.Color))
		}
	}
	st := m.frame.Stats
	m.done = st.Spawned > 0 && st.Active == 0
	return m
}

func (m watchModel) Init() tea.Cmd {
	return m.tick()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "+", "a":
			if _, err := m.sim.SpawnRandom(1); err == nil {
				m.done = false
			}
		case "0":
			if _, err := m.sim.SpawnRandom(10); err == nil {
				m.done = false
			}
		}
	case tickMsg:
		m = m.sample()
		return m, m.tick()
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Roundabout"))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  frame %d", m.frame.Seq)))
	b.WriteString("\n\n")

	for _, lane := range m.lanes() {
		b.WriteString(watchLabelStyle.Render(fmt.Sprintf("lane %d", lane[0].Lane)))
		for _, v := range lane {
			if v.Occupant == "" {
				b.WriteString(watchFreeStyle.Render(cellFree))
				continue
			}
			style, ok := m.colors[v.Occupant]
			if !ok {
				style = lipgloss.NewStyle().Foreground(lipgloss.Color(render.ColorOccupied))
			}
			b.WriteString(style.Render(cellOccupied))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(watchLabelStyle.Render("queues"))
	for i, n := range m.frame.Queues {
		if i > 0 {
			b.WriteString(StyleDim.Render("  "))
		}
		b.WriteString(watchQueueStyle.Render(fmt.Sprintf("E%d:%d", i+1, n)))
	}
	b.WriteString("\n\n")

	b.WriteString(m.statsTable())
	b.WriteString("\n")

	for _, v := range m.frame.Violations {
		b.WriteString(styleIconError.Render(iconError) + " " + v + "\n")
	}
	if m.done {
		b.WriteString(StyleSuccess.Render(iconSuccess+" all vehicles have left") + "\n")
	}
	b.WriteString(watchHelpStyle.Render("+ spawn one  0 spawn ten  q quit"))
	return b.String()
}

// lanes groups lane vertices by ring, in key order.
func (m watchModel) lanes() [][]sim.VertexView {
	var out [][]sim.VertexView
	for _, v := range m.frame.Vertices {
		if v.Role != graph.RoleLane.String() {
			continue
		}
		for len(out) <= v.Lane {
			out = append(out, nil)
		}
		out[v.Lane] = append(out[v.Lane], v)
	}
	return out
}

func (m watchModel) statsTable() string {
	st := m.frame.Stats
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("spawned", "inside", "waiting", "exited", "failed", "blocked", "mean trip").
		Row(
			fmt.Sprint(st.Spawned),
			fmt.Sprint(m.frame.Occupied()),
			fmt.Sprint(sum(m.frame.Queues)),
			fmt.Sprint(st.Exited),
			fmt.Sprint(st.Failed),
			fmt.Sprint(st.Contention),
			st.MeanTrip.Round(time.Millisecond).String(),
		).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite).Padding(0, 1)
		})
	return t.Render()
}

func sum(xs []int) int {
	n := 0
	for _, x := range xs {
		n += x
	}
	return n
}

// watchCommand creates the watch command, an interactive live view.
func (c *CLI) watchCommand() *cobra.Command {
	var (
		flags    configFlags
		sinks    sinkFlags
		count    int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a simulation live in the terminal",
		Long: `Watch a simulation live in the terminal.

Every lane is drawn as a row of segments; occupied segments take the color
of the vehicle holding them. Press + to spawn a vehicle and q to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			if flags.path == "" && !cmd.Flags().Changed("time-scale") {
				cfg.Simulation.TimeScale = watchTimeScale
			}
			return c.watch(cmd.Context(), cfg, &sinks, count, cmd.Flags().Changed("count"), interval)
		},
	}

	flags.register(cmd, true)
	sinks.register(cmd)
	cmd.Flags().IntVarP(&count, "count", "n", defaultSpawn, "number of random vehicles")
	cmd.Flags().DurationVar(&interval, "refresh", 100*time.Millisecond, "screen refresh interval")

	return cmd
}

func (c *CLI) watch(ctx context.Context, cfg sim.Config, sinks *sinkFlags, count int, explicit bool, interval time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Log lines would tear the screen.
	level := c.Logger.GetLevel()
	c.SetLogLevel(LogError)
	defer c.SetLogLevel(level)

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

	mon := sim.NewMonitor(s, interval, pubs...)
	if _, err := spawnVehicles(s, count, explicit); err != nil {
		return err
	}

	p := tea.NewProgram(newWatchModel(ctx, s, mon, interval), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	cancel()
	_ = s.Wait()
	printSummary(s.Stats())
	return nil
}
