package render

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/roundabout/pkg/roundabout"
)

type token struct{ id int }

func build(t *testing.T) *roundabout.Roundabout[token] {
	t.Helper()
	r, err := roundabout.Build[token](context.Background(), roundabout.DefaultConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return r
}

func TestToDOT(t *testing.T) {
	r := build(t)
	dot := ToDOT(r, Options{})

	if !strings.HasPrefix(dot, "digraph roundabout {") {
		t.Errorf("unexpected header: %q", dot[:min(len(dot), 40)])
	}
	if got, want := strings.Count(dot, " -> "), r.Graph().EdgeCount(); got != want {
		t.Errorf("edges = %d, want %d", got, want)
	}
	for _, v := range r.Graph().Vertices() {
		if !strings.Contains(dot, "  "+nodeID(v.Key())+" [") {
			t.Errorf("vertex %d missing from DOT", v.Key())
		}
	}
	for lane := 0; lane < r.LanesNumber(); lane++ {
		if !strings.Contains(dot, "cluster_lane"+string(rune('0'+lane))) {
			t.Errorf("missing cluster for lane %d", lane)
		}
	}
	if strings.Contains(dot, "pos=") {
		t.Error("free layout should not pin positions")
	}
}

func TestToDOTShapes(t *testing.T) {
	r := build(t)
	dot := ToDOT(r, Options{})

	if got := strings.Count(dot, "shape=invhouse"); got != r.EntriesNumber() {
		t.Errorf("entry shapes = %d, want %d", got, r.EntriesNumber())
	}
	if got := strings.Count(dot, "shape=house"); got != r.ExitsNumber() {
		t.Errorf("exit shapes = %d, want %d", got, r.ExitsNumber())
	}
	if !strings.Contains(dot, `label="E1"`) || !strings.Contains(dot, `label="X1"`) {
		t.Error("entries and exits should be labelled by ordinal")
	}
	if r.LanesNumber() > 1 && !strings.Contains(dot, "style=dashed") {
		t.Error("cross links should be dashed")
	}
}

func TestToDOTGeometric(t *testing.T) {
	r := build(t)
	dot := ToDOT(r, Options{Geometric: true})

	if !strings.Contains(dot, "layout=neato;") {
		t.Error("geometric layout should select neato")
	}
	if strings.Contains(dot, "cluster_lane") {
		t.Error("geometric layout should not cluster lanes")
	}
	if got, want := strings.Count(dot, "pos=\""), r.Graph().VertexCount(); got != want {
		t.Errorf("pinned vertices = %d, want %d", got, want)
	}
}

func TestToDOTOccupancy(t *testing.T) {
	r := build(t)
	v := r.Ring(0)[0]
	if !v.TryAcquire(&token{id: 1}) {
		t.Fatal("acquire failed")
	}

	if strings.Contains(ToDOT(r, Options{}), ColorOccupied) {
		t.Error("occupancy drawn without Options.Occupancy")
	}
	if got := strings.Count(ToDOT(r, Options{Occupancy: true}), ColorOccupied); got != 1 {
		t.Errorf("occupied vertices = %d, want 1", got)
	}
}

func TestPositionsOnRings(t *testing.T) {
	r := build(t)
	pos := positions(r)
	cfg := r.Config()

	for lane := 0; lane < r.LanesNumber(); lane++ {
		want := cfg.RingRadius(lane) * inchesPerMeter
		for _, v := range r.Ring(lane) {
			p := pos[v.Key()]
			got := p[0]*p[0] + p[1]*p[1]
			if diff := got - want*want; diff > 1e-6 || diff < -1e-6 {
				t.Fatalf("vertex %d off ring %d: r^2=%f, want %f", v.Key(), lane, got, want*want)
			}
		}
	}
	if len(pos) != r.Graph().VertexCount() {
		t.Errorf("positions = %d, want %d", len(pos), r.Graph().VertexCount())
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 100.00 200.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))

	if !strings.Contains(out, `viewBox="0 0 100.00 200.00"`) {
		t.Errorf("viewBox not normalized: %s", out)
	}
	if !strings.Contains(out, `width="100" height="200"`) {
		t.Errorf("size not normalized: %s", out)
	}

	plain := []byte(`<svg><g/></svg>`)
	if got := normalizeViewBox(plain); string(got) != string(plain) {
		t.Errorf("svg without viewBox changed: %s", got)
	}
}

func TestRenderSVG(t *testing.T) {
	if testing.Short() {
		t.Skip("graphviz rendering is slow")
	}
	r := build(t)
	svg, err := RenderSVG(context.Background(), ToDOT(r, Options{}))
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("output is not SVG")
	}
}
