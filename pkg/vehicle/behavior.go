package vehicle

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/matzehuels/roundabout/pkg/errors"
)

// Kind selects a behavior preset.
type Kind int

const (
	HeavyDefault Kind = iota
	LightDefault
	LightAggressive
)

var kindNames = [...]string{
	HeavyDefault:    "heavy:default",
	LightDefault:    "light:default",
	LightAggressive: "light:aggressive",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Kinds lists every known kind in declaration order.
func Kinds() []Kind {
	return []Kind{HeavyDefault, LightDefault, LightAggressive}
}

// ParseKind accepts the names printed by [Kind.String], case-insensitively.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds() {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown behavior %q (want one of %s)", s, strings.Join(kindNames[:], ", "))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Behavior holds the driving parameters of a vehicle. Speeds are in km/h and
// Acceleration is the speed change applied per step.
type Behavior struct {
	Acceleration  float64
	MaxSpeed      float64
	QueueBackoff  time.Duration
	TravelBackoff time.Duration
	OuterLaneOnly bool
}

// Behavior returns the preset for k.
func (k Kind) Behavior() Behavior {
	switch k {
	case HeavyDefault:
		return Behavior{Acceleration: 4, MaxSpeed: 30, QueueBackoff: time.Second, TravelBackoff: time.Second, OuterLaneOnly: true}
	case LightAggressive:
		return Behavior{Acceleration: 10, MaxSpeed: 60, QueueBackoff: 100 * time.Millisecond, TravelBackoff: 100 * time.Millisecond}
	default:
		return Behavior{Acceleration: 6, MaxSpeed: 50, QueueBackoff: time.Second, TravelBackoff: time.Second}
	}
}

func (b Behavior) computeRoute(ctx context.Context, r *Roundabout, entry, exit int) ([]*Vertex, error) {
	return r.RouteBetween(ctx, entry, exit, b.OuterLaneOnly)
}

func (b Behavior) accelerate(speed float64) float64 {
	return math.Min(speed+b.Acceleration, b.MaxSpeed)
}

func (b Behavior) decelerate(speed float64) float64 {
	return math.Max(speed-b.Acceleration, 0)
}

func (b Behavior) queueBackoff(scale float64) time.Duration {
	return scaled(b.QueueBackoff, scale)
}

func (b Behavior) travelBackoff(scale float64) time.Duration {
	return scaled(b.TravelBackoff, scale)
}

// minSpeed keeps travel time finite for a vehicle that braked to a stop.
const minSpeed = 1.0

// travelTime is the time needed to cover meters at speed km/h.
func travelTime(meters, speed, scale float64) time.Duration {
	mps := math.Max(speed, minSpeed) / 3.6
	return scaled(time.Duration(meters/mps*float64(time.Second)), scale)
}

func scaled(d time.Duration, scale float64) time.Duration {
	return time.Duration(float64(d) * scale)
}
