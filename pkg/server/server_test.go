package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/roundabout/pkg/errors"
	"github.com/matzehuels/roundabout/pkg/sim"
	"github.com/matzehuels/roundabout/pkg/vehicle"
)

func newServer(t *testing.T) (*Server, *sim.Simulation) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := sim.DefaultConfig()
	cfg.Simulation.TimeScale = 0.001
	cfg.Simulation.Seed = 7
	s, err := sim.New(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return New(s, nil), s
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	srv, _ := newServer(t)
	rec := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestRoundabout(t *testing.T) {
	srv, s := newServer(t)
	rec := do(t, srv, http.MethodGet, "/api/roundabout", "")
	require.Equal(t, http.StatusOK, rec.Code)

	info := decode[RoundaboutInfo](t, rec)
	r := s.Roundabout()
	assert.Equal(t, r.Graph().VertexCount(), info.Vertices)
	assert.Equal(t, r.Graph().EdgeCount(), info.Edges)
	assert.Equal(t, r.Girth(), info.Girth)
	assert.Equal(t, r.Capacity(), info.Capacity)
	require.Len(t, info.Lanes, r.LanesNumber())
	assert.Equal(t, len(r.Ring(0)), info.Lanes[0].Vertices)
	assert.Equal(t, 4, info.Entries)
	assert.Equal(t, 4, info.Exits)
}

func TestRoutes(t *testing.T) {
	srv, s := newServer(t)
	rec := do(t, srv, http.MethodGet, "/api/routes?entry=1&exit=3&outer=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	route := decode[RouteInfo](t, rec)
	assert.True(t, route.OuterOnly)
	assert.Equal(t, len(route.Path), route.Hops)
	require.NotEmpty(t, route.Path)

	exit, _ := s.Roundabout().Exit(3)
	assert.Equal(t, exit.Key(), route.Path[len(route.Path)-1])
	for _, key := range route.Path[:len(route.Path)-1] {
		v := s.Roundabout().Graph().MustVertex(key)
		assert.Equal(t, 0, v.Lane(), "outer route left lane 0 at vertex %d", key)
	}
}

func TestRouteErrors(t *testing.T) {
	srv, _ := newServer(t)
	tests := []struct {
		name   string
		target string
		status int
		code   errors.Code
	}{
		{"missing entry", "/api/routes?exit=1", http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad exit", "/api/routes?entry=1&exit=x", http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad outer", "/api/routes?entry=1&exit=1&outer=maybe", http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"unknown entry", "/api/routes?entry=9&exit=1", http.StatusUnprocessableEntity, errors.ErrCodeRouting},
		{"unknown exit", "/api/routes?entry=1&exit=0", http.StatusUnprocessableEntity, errors.ErrCodeRouting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, tt.target, "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decode[errorBody](t, rec).Code)
		})
	}
}

func TestSpawnVehicle(t *testing.T) {
	srv, s := newServer(t)
	rec := do(t, srv, http.MethodPost, "/api/vehicles", `{"behavior":"light:aggressive","entry":2,"exit":4,"label":"zippy"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	info := decode[vehicle.Info](t, rec)
	assert.Equal(t, "zippy", info.Label)
	assert.Equal(t, vehicle.LightAggressive, info.Kind)
	assert.Equal(t, "/api/vehicles/"+info.ID, rec.Header().Get("Location"))

	require.NoError(t, s.Wait())

	rec = do(t, srv, http.MethodGet, "/api/vehicles/"+info.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, vehicle.Exited.String(), decode[vehicle.Info](t, rec).State)

	rec = do(t, srv, http.MethodGet, "/api/vehicles", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]vehicle.Info](t, rec), 1)

	rec = do(t, srv, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[sim.Summary](t, rec)
	assert.Equal(t, 1, stats.Spawned)
	assert.Equal(t, 1, stats.Exited)
}

func TestSpawnVehicleErrors(t *testing.T) {
	srv, _ := newServer(t)
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed", `{"behavior":`, http.StatusBadRequest},
		{"unknown field", `{"behavior":"heavy:default","entry":1,"exit":1,"wheels":4}`, http.StatusBadRequest},
		{"unknown behavior", `{"behavior":"bicycle","entry":1,"exit":1}`, http.StatusBadRequest},
		{"bad entry", `{"behavior":"heavy:default","entry":5,"exit":1}`, http.StatusUnprocessableEntity},
		{"bad color", `{"behavior":"heavy:default","entry":1,"exit":1,"color":"nope"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/vehicles", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestVehicleNotFound(t *testing.T) {
	srv, _ := newServer(t)
	rec := do(t, srv, http.MethodGet, "/api/vehicles/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errors.ErrCodeNotFound, decode[errorBody](t, rec).Code)

	rec = do(t, srv, http.MethodGet, "/api/nothing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSnapshot(t *testing.T) {
	srv, s := newServer(t)
	rec := do(t, srv, http.MethodGet, "/api/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)

	f := decode[sim.Frame](t, rec)
	assert.Len(t, f.Vertices, s.Roundabout().Graph().VertexCount())
	assert.Len(t, f.Queues, s.Roundabout().EntriesNumber())
	assert.Zero(t, f.Occupied())
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(errors.ErrCodeInvalidConfig))
	assert.Equal(t, http.StatusConflict, statusFor(errors.ErrCodeProtocol))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.ErrCodeInternal))
	assert.Equal(t, http.StatusInternalServerError, statusFor(""))
}

func TestHub(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	assert.Equal(t, 1, h.Subscribers())

	require.NoError(t, h.Publish(context.Background(), sim.Frame{Seq: 1}))
	f := <-ch
	assert.Equal(t, uint64(1), f.Seq)

	for i := 0; i < subscriberBuffer*2; i++ {
		require.NoError(t, h.Publish(context.Background(), sim.Frame{Seq: uint64(i)}))
	}
	assert.Len(t, ch, subscriberBuffer)

	cancel()
	cancel()
	assert.Zero(t, h.Subscribers())
}

func TestFramesStream(t *testing.T) {
	srv, _ := newServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/frames", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	go func() {
		for i := uint64(1); ctx.Err() == nil; i++ {
			_ = srv.Hub().Publish(ctx, sim.Frame{Seq: i})
			time.Sleep(10 * time.Millisecond)
		}
	}()

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			var f sim.Frame
			require.NoError(t, json.Unmarshal([]byte(data), &f))
			assert.NotZero(t, f.Seq)
			return
		}
	}
	t.Fatalf("stream ended without a frame: %v", sc.Err())
}

func TestServeShutdown(t *testing.T) {
	srv, _ := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}
