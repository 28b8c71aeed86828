package render

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/roundabout/pkg/graph"
	"github.com/matzehuels/roundabout/pkg/roundabout"
)

// Options configures roundabout diagram rendering.
type Options struct {
	// Geometric pins every vertex to its position on the ring so the
	// diagram looks like the roundabout. When false, Graphviz lays the
	// graph out freely with one cluster per lane.
	Geometric bool

	// Occupancy fills occupied lane vertices.
	Occupancy bool
}

// inchesPerMeter scales ring geometry into Graphviz coordinates.
const inchesPerMeter = 1.0 / 3

// Colors shared by the SVG diagram and the terminal viewer.
const (
	ColorEntry    = "#a6e3a1"
	ColorExit     = "#f38ba8"
	ColorOccupied = "#fab387"
	ColorLane     = "#ffffff"
)

// ToDOT converts a roundabout to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG].
//
// Ring edges are solid, cross links between lanes are dashed, entries are
// drawn as inverted houses and exits as houses.
func ToDOT[T any](r *roundabout.Roundabout[T], opts Options) string {
	g := r.Graph()
	pos := positions(r)

	var buf bytes.Buffer
	buf.WriteString("digraph roundabout {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	if opts.Geometric {
		buf.WriteString("  layout=neato;\n")
	}
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=\"" + ColorLane + "\", fontsize=8, width=0.3, fixedsize=true];\n")
	buf.WriteString("  edge [arrowsize=0.4];\n")
	buf.WriteString("\n")

	writeNode := func(indent string, v *graph.Vertex[T]) {
		attrs := fmtAttrs(r, v, opts.Occupancy)
		if opts.Geometric {
			p := pos[v.Key()]
			attrs = append(attrs, fmt.Sprintf("pos=\"%.3f,%.3f!\"", p[0], p[1]))
		}
		fmt.Fprintf(&buf, "%s%s [%s];\n", indent, nodeID(v.Key()), strings.Join(attrs, ", "))
	}

	for lane := 0; lane < r.LanesNumber(); lane++ {
		if opts.Geometric {
			for _, v := range r.Ring(lane) {
				writeNode("  ", v)
			}
			continue
		}
		fmt.Fprintf(&buf, "  subgraph cluster_lane%d {\n", lane)
		fmt.Fprintf(&buf, "    label=\"lane %d\";\n", lane)
		for _, v := range r.Ring(lane) {
			writeNode("    ", v)
		}
		buf.WriteString("  }\n")
	}
	for _, v := range g.Vertices() {
		if !v.IsLane() {
			writeNode("  ", v)
		}
	}

	buf.WriteString("\n")
	for _, v := range g.Vertices() {
		for _, s := range g.SuccessorVertices(v.Key()) {
			style := ""
			if v.IsLane() && s.IsLane() && v.Lane() != s.Lane() {
				style = " [style=dashed]"
			}
			fmt.Fprintf(&buf, "  %s -> %s%s;\n", nodeID(v.Key()), nodeID(s.Key()), style)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(key int) string {
	return "v" + strconv.Itoa(key)
}

func fmtAttrs[T any](r *roundabout.Roundabout[T], v *graph.Vertex[T], occupancy bool) []string {
	switch {
	case v.IsEntry():
		ord, _ := r.EntryOrdinal(v)
		return []string{fmt.Sprintf("label=\"E%d\"", ord), "shape=invhouse", "fillcolor=\"" + ColorEntry + "\""}
	case v.IsExit():
		ord, _ := r.ExitOrdinal(v)
		return []string{fmt.Sprintf("label=\"X%d\"", ord), "shape=house", "fillcolor=\"" + ColorExit + "\""}
	}
	attrs := []string{fmt.Sprintf("label=\"%d\"", v.Key())}
	if occupancy && v.Occupant() != nil {
		attrs = append(attrs, "fillcolor=\""+ColorOccupied+"\"")
	}
	return attrs
}

// positions places lane vertices on their rings, counter-clockwise from the
// positive x axis, and entries and exits one lane width outside the ring
// vertex they attach to.
func positions[T any](r *roundabout.Roundabout[T]) map[int][2]float64 {
	cfg := r.Config()
	g := r.Graph()
	out := make(map[int][2]float64, g.VertexCount())
	angle := make(map[int]float64)

	for lane := 0; lane < r.LanesNumber(); lane++ {
		ring := r.Ring(lane)
		radius := cfg.RingRadius(lane)
		for j, v := range ring {
			a := 2 * math.Pi * float64(j) / float64(len(ring))
			angle[v.Key()] = a
			out[v.Key()] = polar(radius, a)
		}
	}

	outside := cfg.Radius + cfg.LaneWidth
	spread := math.Pi / float64(4*max(1, len(r.Ring(0))))
	for _, v := range r.Ring(0) {
		for _, s := range g.SuccessorVertices(v.Key()) {
			if s.IsExit() {
				out[s.Key()] = polar(outside, angle[v.Key()]+spread)
			}
		}
	}
	for i := 1; i <= r.EntriesNumber(); i++ {
		e, _ := r.Entry(i)
		for _, s := range g.Successors(e.Key()) {
			out[e.Key()] = polar(outside, angle[s]-spread)
		}
	}
	return out
}

func polar(radius, angle float64) [2]float64 {
	return [2]float64{
		radius * math.Cos(angle) * inchesPerMeter,
		radius * math.Sin(angle) * inchesPerMeter,
	}
}

// RenderSVG renders a DOT graph to SVG using Graphviz. Graphs produced with
// [Options.Geometric] are laid out with neato so pinned positions hold.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	if strings.Contains(dot, "layout=neato;") {
		gv.SetLayout(graphviz.NEATO)
	}

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return ToPDF(ctx, svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return ToPNG(ctx, svg, scale)
}
