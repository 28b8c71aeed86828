// Package server exposes a running simulation over HTTP.
//
// The API is read-mostly: clients inspect the roundabout, sample its
// occupancy, ask for routes and spawn vehicles.
//
//	GET  /healthz
//	GET  /api/roundabout
//	GET  /api/snapshot
//	GET  /api/stats
//	GET  /api/frames  (server-sent events)
//	GET  /api/routes?entry=1&exit=3&outer=true
//	GET  /api/diagram.svg?geometric=true&occupancy=true
//	GET  /api/vehicles
//	GET  /api/vehicles/{id}
//	POST /api/vehicles
//
// Errors are JSON objects carrying the machine-readable code from
// [errors.Code] and a user-facing message.
package server

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/roundabout/pkg/sim"
)

// ShutdownTimeout bounds graceful shutdown once the serve context ends.
const ShutdownTimeout = 5 * time.Second

// Server serves one simulation.
type Server struct {
	sim    *sim.Simulation
	hub    *Hub
	logger *log.Logger
	router chi.Router
}

// New returns a server for s. A nil logger discards request logs.
func New(s *sim.Simulation, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	srv := &Server{sim: s, hub: NewHub(), logger: logger}
	srv.router = srv.routes()
	return srv
}

// Hub returns the frame hub feeding /api/frames. Pass it to
// [sim.NewMonitor] so sampled frames reach streaming clients.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/roundabout", s.roundabout)
		r.Get("/snapshot", s.snapshot)
		r.Get("/stats", s.stats)
		r.Get("/frames", s.frames)
		r.Get("/routes", s.route)
		r.Get("/diagram.svg", s.diagram)
		r.Route("/vehicles", func(r chi.Router) {
			r.Get("/", s.listVehicles)
			r.Post("/", s.spawnVehicle)
			r.Get("/{id}", s.getVehicle)
		})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, notFound("no route for %s %s", r.Method, r.URL.Path))
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hs := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- hs.Serve(ln) }()
	s.logger.Info("serving", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).Round(time.Microsecond),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
