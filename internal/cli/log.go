package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Ran 40 vehicles (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// logHooks writes observability events to a logger at debug level.
type logHooks struct {
	logger *log.Logger
}

func (h *logHooks) OnBuildStart(ctx context.Context, lanes, entries, exits int) {
	h.logger.Debug("building roundabout", "lanes", lanes, "entries", entries, "exits", exits)
}

func (h *logHooks) OnBuildComplete(ctx context.Context, vertices, edges int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("build failed", "err", err)
		return
	}
	h.logger.Debug("roundabout built", "vertices", vertices, "edges", edges, "took", d.Round(time.Microsecond))
}

func (h *logHooks) OnCacheHit(ctx context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *logHooks) OnCacheMiss(ctx context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *logHooks) OnCacheSet(ctx context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "size", size)
}

func (h *logHooks) OnRouted(ctx context.Context, id string, entry, exit, hops int, err error) {
	if err != nil {
		h.logger.Debug("route failed", "vehicle", short(id), "entry", entry, "exit", exit, "err", err)
		return
	}
	h.logger.Debug("routed", "vehicle", short(id), "entry", entry, "exit", exit, "hops", hops)
}

func (h *logHooks) OnQueued(ctx context.Context, id string, entry int, ticket uint64) {
	h.logger.Debug("queued", "vehicle", short(id), "entry", entry, "ticket", ticket)
}

func (h *logHooks) OnEnter(ctx context.Context, id string, entry int, ticket, served uint64) {
	h.logger.Debug("entered", "vehicle", short(id), "entry", entry, "ticket", ticket)
}

func (h *logHooks) OnAcquire(ctx context.Context, id string, vertex int) {}

func (h *logHooks) OnRelease(ctx context.Context, id string, vertex int) {}

func (h *logHooks) OnContention(ctx context.Context, id string, vertex int) {
	h.logger.Debug("blocked", "vehicle", short(id), "vertex", vertex)
}

func (h *logHooks) OnExit(ctx context.Context, id string, exit int, elapsed time.Duration, err error) {
	if err != nil {
		h.logger.Debug("vehicle stopped", "vehicle", short(id), "err", err)
		return
	}
	h.logger.Debug("exited", "vehicle", short(id), "exit", exit, "elapsed", elapsed.Round(time.Millisecond))
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
