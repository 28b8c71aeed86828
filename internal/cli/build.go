package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/roundabout/pkg/render"
	"github.com/matzehuels/roundabout/pkg/vehicle"
)

// Diagram output formats.
const (
	formatDOT = "dot"
	formatSVG = "svg"
	formatPDF = "pdf"
	formatPNG = "png"
)

// buildCommand creates the build command, which constructs a roundabout,
// prints its geometry and optionally draws it.
func (c *CLI) buildCommand() *cobra.Command {
	var (
		flags     configFlags
		output    string
		geometric bool
		scale     float64
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a roundabout and describe or draw it",
		Long: `Build a roundabout from the configured geometry.

Without --output the command prints ring sizes, the girth and the admission
capacity. With --output it also draws the graph; the format follows the file
extension (.dot, .svg, .pdf or .png). PDF and PNG need rsvg-convert.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			r, err := vehicle.BuildRoundabout(cmd.Context(), cfg.Roundabout)
			if err != nil {
				return err
			}
			if cfg.Simulation.Capacity > 0 {
				r.SetCapacity(cfg.Simulation.Capacity)
			}
			describeRoundabout(r)
			if output == "" {
				printNewline()
				printNextStep("Simulate traffic", appName+" run -n 50")
				return nil
			}
			return c.writeDiagram(cmd.Context(), r, output, render.Options{Geometric: geometric}, scale)
		},
	}

	flags.register(cmd, false)
	cmd.Flags().StringVarP(&output, "output", "o", "", "diagram file (.dot, .svg, .pdf, .png)")
	cmd.Flags().BoolVar(&geometric, "geometric", true, "pin vertices to the ring geometry")
	cmd.Flags().Float64Var(&scale, "scale", 2, "PNG scale factor")

	return cmd
}

func describeRoundabout(r *vehicle.Roundabout) {
	cfg := r.Config()
	fmt.Fprintln(out, StyleTitle.Render("Roundabout"))
	printKeyValue("radius", fmt.Sprintf("%.1f m", cfg.Radius))
	printKeyValue("lane width", fmt.Sprintf("%.1f m", cfg.LaneWidth))
	for i := 0; i < r.LanesNumber(); i++ {
		printKeyValue(fmt.Sprintf("lane %d", i), fmt.Sprintf("%d vertices, %.1f m, %.2f m/segment",
			len(r.Ring(i)), r.LanePerimeter(i), r.SegmentLength(i)))
	}
	printKeyValue("entries", StyleNumber.Render(fmt.Sprint(r.EntriesNumber())))
	printKeyValue("exits", StyleNumber.Render(fmt.Sprint(r.ExitsNumber())))
	printKeyValue("girth", StyleNumber.Render(fmt.Sprint(r.Girth())))
	printKeyValue("capacity", StyleNumber.Render(fmt.Sprint(r.Capacity())))
	printStats("vertices", r.Graph().VertexCount(), "edges", r.Graph().EdgeCount())
}

func diagramFormat(path string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case formatDOT, formatSVG, formatPDF, formatPNG:
		return ext, nil
	case "":
		return "", fmt.Errorf("output %q has no extension; use .dot, .svg, .pdf or .png", path)
	default:
		return "", fmt.Errorf("unsupported diagram format %q", ext)
	}
}

func (c *CLI) writeDiagram(ctx context.Context, r *vehicle.Roundabout, path string, opts render.Options, scale float64) error {
	format, err := diagramFormat(path)
	if err != nil {
		return err
	}

	dot := render.ToDOT(r, opts)
	var data []byte
	if format == formatDOT {
		data = []byte(dot)
	} else {
		prog := newProgress(c.Logger)
		spinner := newSpinner(ctx, "Rendering "+format+"...")
		spinner.Start()
		switch format {
		case formatSVG:
			data, err = render.RenderSVG(ctx, dot)
		case formatPDF:
			data, err = render.RenderPDF(ctx, dot)
		case formatPNG:
			data, err = render.RenderPNG(ctx, dot, scale)
		}
		if err != nil {
			spinner.StopWithError("Rendering failed")
			return fmt.Errorf("render %s: %w", format, err)
		}
		spinner.Stop()
		prog.done("Rendered " + format)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	printSuccess("Diagram written")
	printFile(path)
	return nil
}
