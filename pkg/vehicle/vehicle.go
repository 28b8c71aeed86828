package vehicle

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/roundabout/pkg/errors"
	"github.com/matzehuels/roundabout/pkg/graph"
	"github.com/matzehuels/roundabout/pkg/roundabout"
)

// Roundabout is a roundabout whose vertex cells hold vehicles.
type Roundabout = roundabout.Roundabout[Vehicle]

// Vertex is a road segment a vehicle can occupy.
type Vertex = graph.Vertex[Vehicle]

// BuildRoundabout builds a roundabout vehicles can drive through.
func BuildRoundabout(ctx context.Context, cfg roundabout.Config) (*Roundabout, error) {
	return roundabout.Build[Vehicle](ctx, cfg)
}

// State is a vehicle's lifecycle stage.
type State int32

const (
	Pending State = iota
	Routing
	Queued
	Inside
	Exited
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Routing:
		return "routing"
	case Queued:
		return "queued"
	case Inside:
		return "inside"
	case Exited:
		return "exited"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Done reports whether the vehicle has finished its traversal.
func (s State) Done() bool { return s == Exited || s == Failed }

// Spec describes a vehicle to create.
type Spec struct {
	Kind  Kind   `toml:"behavior" json:"behavior"`
	Entry int    `toml:"entry" json:"entry"`
	Exit  int    `toml:"exit" json:"exit"`
	Label string `toml:"label" json:"label,omitempty"`
	// Color is a hex color such as "#ff8800". Empty picks a random one.
	Color string `toml:"color" json:"color,omitempty"`
}

// Vehicle is one actor travelling from an entry to an exit. It is created
// once and runs at most one traversal.
//
// Identity, parameters and route endpoints never change. State and speed are
// updated by the vehicle's own goroutine and may be read from any goroutine.
type Vehicle struct {
	id        uuid.UUID
	label     string
	color     colorful.Color
	kind      Kind
	behavior  Behavior
	entry     int
	exit      int
	timeScale float64

	started  atomic.Bool
	state    atomic.Int32
	speed    atomic.Uint64
	path     atomic.Pointer[[]*Vertex]
	startAt  atomic.Int64
	finishAt atomic.Int64
}

// New validates spec and returns a pending vehicle. A timeScale of zero or
// less means real time; tests use tiny scales to compress every sleep.
func New(spec Spec, timeScale float64) (*Vehicle, error) {
	if spec.Kind < 0 || int(spec.Kind) >= len(kindNames) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown behavior %d", int(spec.Kind))
	}
	if err := errors.ValidateLabel(spec.Label); err != nil {
		return nil, err
	}

	color := colorful.FastHappyColor()
	if spec.Color != "" {
		c, err := colorful.Hex(spec.Color)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "color %q", spec.Color)
		}
		color = c
	}
	if timeScale <= 0 || math.IsNaN(timeScale) || math.IsInf(timeScale, 0) {
		timeScale = 1
	}

	id := uuid.New()
	label := spec.Label
	if label == "" {
		label = spec.Kind.String() + "-" + id.String()[:8]
	}

	return &Vehicle{
		id:        id,
		label:     label,
		color:     color,
		kind:      spec.Kind,
		behavior:  spec.Kind.Behavior(),
		entry:     spec.Entry,
		exit:      spec.Exit,
		timeScale: timeScale,
	}, nil
}

// ID returns the vehicle's unique identifier.
func (v *Vehicle) ID() string { return v.id.String() }

// Label returns the display label.
func (v *Vehicle) Label() string { return v.label }

// Color returns the display color.
func (v *Vehicle) Color() colorful.Color { return v.color }

// Kind returns the behavior preset.
func (v *Vehicle) Kind() Kind { return v.kind }

// Behavior returns the driving parameters.
func (v *Vehicle) Behavior() Behavior { return v.behavior }

// Entry returns the 1-based source entry.
func (v *Vehicle) Entry() int { return v.entry }

// Exit returns the 1-based destination exit.
func (v *Vehicle) Exit() int { return v.exit }

// State returns the current lifecycle stage.
func (v *Vehicle) State() State { return State(v.state.Load()) }

// Speed returns the advisory speed in km/h.
func (v *Vehicle) Speed() float64 { return math.Float64frombits(v.speed.Load()) }

// Path returns the resolved route, entry excluded and exit last, or nil
// before routing finished. The slice is shared and must not be modified.
func (v *Vehicle) Path() []*Vertex {
	if p := v.path.Load(); p != nil {
		return *p
	}
	return nil
}

// Elapsed returns the time since Run started, frozen once the vehicle is done.
func (v *Vehicle) Elapsed() time.Duration {
	start := v.startAt.Load()
	if start == 0 {
		return 0
	}
	if end := v.finishAt.Load(); end != 0 {
		return time.Duration(end - start)
	}
	return time.Duration(time.Now().UnixNano() - start)
}

func (v *Vehicle) setState(s State) { v.state.Store(int32(s)) }

func (v *Vehicle) setSpeed(kmh float64) { v.speed.Store(math.Float64bits(kmh)) }

// Info is a serializable view of a vehicle.
type Info struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Kind    Kind    `json:"behavior"`
	Entry   int     `json:"entry"`
	Exit    int     `json:"exit"`
	State   string  `json:"state"`
	Speed   float64 `json:"speed"`
	Color   string  `json:"color"`
	Elapsed float64 `json:"elapsed_seconds"`
}

// Info returns the current view of v.
func (v *Vehicle) Info() Info {
	return Info{
		ID:      v.ID(),
		Label:   v.label,
		Kind:    v.kind,
		Entry:   v.entry,
		Exit:    v.exit,
		State:   v.State().String(),
		Speed:   v.Speed(),
		Color:   v.color.Hex(),
		Elapsed: v.Elapsed().Seconds(),
	}
}
