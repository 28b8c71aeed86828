// Package render draws roundabout graphs.
//
// [ToDOT] turns a built roundabout into Graphviz DOT, either as a free
// layout with one cluster per lane or pinned to the real ring geometry.
// [RenderSVG] runs Graphviz (compiled to WebAssembly, no system install
// needed) to produce SVG:
//
//	dot := render.ToDOT(r, render.Options{Geometric: true})
//	svg, err := render.RenderSVG(ctx, dot)
//
// [ToPDF] and [ToPNG] convert SVG with the external rsvg-convert tool from
// librsvg.
package render
