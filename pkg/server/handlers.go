package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/roundabout/pkg/buildinfo"
	"github.com/matzehuels/roundabout/pkg/render"
	"github.com/matzehuels/roundabout/pkg/roundabout"
	"github.com/matzehuels/roundabout/pkg/vehicle"
)

// maxSpawnBody caps POST /api/vehicles request bodies.
const maxSpawnBody = 1 << 16

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

// LaneInfo describes one ring.
type LaneInfo struct {
	Index     int     `json:"index"`
	Vertices  int     `json:"vertices"`
	Perimeter float64 `json:"perimeter"`
	Segment   float64 `json:"segment"`
}

// RoundaboutInfo describes the built roundabout.
type RoundaboutInfo struct {
	Config   roundabout.Config `json:"config"`
	Lanes    []LaneInfo        `json:"lanes"`
	Entries  int               `json:"entries"`
	Exits    int               `json:"exits"`
	Vertices int               `json:"vertices"`
	Edges    int               `json:"edges"`
	Girth    int               `json:"girth"`
	Capacity int               `json:"capacity"`
}

func describe(r *vehicle.Roundabout) RoundaboutInfo {
	info := RoundaboutInfo{
		Config:   r.Config(),
		Entries:  r.EntriesNumber(),
		Exits:    r.ExitsNumber(),
		Vertices: r.Graph().VertexCount(),
		Edges:    r.Graph().EdgeCount(),
		Girth:    r.Girth(),
		Capacity: r.Capacity(),
	}
	for i := 0; i < r.LanesNumber(); i++ {
		info.Lanes = append(info.Lanes, LaneInfo{
			Index:     i,
			Vertices:  len(r.Ring(i)),
			Perimeter: r.LanePerimeter(i),
			Segment:   r.SegmentLength(i),
		})
	}
	return info
}

func (s *Server) roundabout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, describe(s.sim.Roundabout()))
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.Frame())
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.Stats())
}

// RouteInfo is the answer to a route query. Path lists vertex keys from the
// first lane vertex to the exit.
type RouteInfo struct {
	Entry     int   `json:"entry"`
	Exit      int   `json:"exit"`
	OuterOnly bool  `json:"outer_only"`
	Hops      int   `json:"hops"`
	Path      []int `json:"path"`
}

func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entry, err := intParam(q.Get("entry"), "entry")
	if err != nil {
		writeError(w, err)
		return
	}
	exit, err := intParam(q.Get("exit"), "exit")
	if err != nil {
		writeError(w, err)
		return
	}
	outer, err := boolParam(q.Get("outer"), "outer")
	if err != nil {
		writeError(w, err)
		return
	}

	path, err := s.sim.Roundabout().RouteBetween(r.Context(), entry, exit, outer)
	if err != nil {
		writeError(w, err)
		return
	}
	keys := make([]int, len(path))
	for i, v := range path {
		keys[i] = v.Key()
	}
	writeJSON(w, http.StatusOK, RouteInfo{Entry: entry, Exit: exit, OuterOnly: outer, Hops: len(keys), Path: keys})
}

func (s *Server) diagram(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	geometric, err := boolParam(q.Get("geometric"), "geometric")
	if err != nil {
		writeError(w, err)
		return
	}
	occupancy, err := boolParam(q.Get("occupancy"), "occupancy")
	if err != nil {
		writeError(w, err)
		return
	}

	dot := render.ToDOT(s.sim.Roundabout(), render.Options{Geometric: geometric, Occupancy: occupancy})
	svg, err := render.RenderSVG(r.Context(), dot)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}

func (s *Server) listVehicles(w http.ResponseWriter, r *http.Request) {
	vs := s.sim.Vehicles()
	out := make([]vehicle.Info, len(vs))
	for i, v := range vs {
		out[i] = v.Info()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getVehicle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	v, ok := s.sim.Vehicle(id)
	if !ok {
		writeError(w, notFound("vehicle %s", id))
		return
	}
	writeJSON(w, http.StatusOK, v.Info())
}

func (s *Server) spawnVehicle(w http.ResponseWriter, r *http.Request) {
	var spec vehicle.Spec
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSpawnBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		writeError(w, badRequest("decode vehicle: %v", err))
		return
	}

	v, err := s.sim.Spawn(spec)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/api/vehicles/"+v.ID())
	writeJSON(w, http.StatusCreated, v.Info())
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, badRequest("missing %s", name)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("%s must be an integer, got %q", name, raw)
	}
	return n, nil
}

func boolParam(raw, name string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, badRequest("%s must be a boolean, got %q", name, raw)
	}
	return b, nil
}
