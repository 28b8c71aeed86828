package roundabout

import (
	"math"

	"github.com/matzehuels/roundabout/pkg/errors"
)

// Default geometry values.
const (
	DefaultRadius        = 15.0
	DefaultLaneWidth     = 3.0
	DefaultVertexDensity = 0.25
	DefaultLanes         = 2
	DefaultEntries       = 4
	DefaultExits         = 4
)

// Config describes the geometry of a roundabout. Lengths are in meters and
// VertexDensity is vertices per meter of lane perimeter.
type Config struct {
	Radius        float64 `toml:"radius" json:"radius"`
	LaneWidth     float64 `toml:"lane_width" json:"lane_width"`
	VertexDensity float64 `toml:"vertex_density" json:"vertex_density"`
	Lanes         int     `toml:"lanes" json:"lanes"`
	Entries       int     `toml:"entries" json:"entries"`
	Exits         int     `toml:"exits" json:"exits"`
}

// DefaultConfig returns a two-lane roundabout with four entries and four exits.
func DefaultConfig() Config {
	return Config{
		Radius:        DefaultRadius,
		LaneWidth:     DefaultLaneWidth,
		VertexDensity: DefaultVertexDensity,
		Lanes:         DefaultLanes,
		Entries:       DefaultEntries,
		Exits:         DefaultExits,
	}
}

// Validate checks the parameters and the derived ring sizes. Every failure
// carries [errors.ErrCodeInvalidConfig].
func (c Config) Validate() error {
	if err := errors.ValidatePositive("radius", c.Radius); err != nil {
		return err
	}
	if err := errors.ValidatePositive("lane width", c.LaneWidth); err != nil {
		return err
	}
	if err := errors.ValidatePositive("vertex density", c.VertexDensity); err != nil {
		return err
	}
	if err := errors.ValidateAtLeast("lanes", c.Lanes, 1); err != nil {
		return err
	}
	if err := errors.ValidateAtLeast("entries", c.Entries, 1); err != nil {
		return err
	}
	if err := errors.ValidateAtLeast("exits", c.Exits, 1); err != nil {
		return err
	}

	if c.Radius/c.LaneWidth < float64(c.Lanes) {
		return errors.New(errors.ErrCodeInvalidConfig,
			"radius %.2f too small for %d lanes of width %.2f", c.Radius, c.Lanes, c.LaneWidth)
	}
	if n := c.RingSize(0); n < c.Entries+c.Exits {
		return errors.New(errors.ErrCodeInvalidConfig,
			"outer lane has %d vertices, too few for %d entries and %d exits", n, c.Entries, c.Exits)
	}
	for i := 1; i < c.Lanes; i++ {
		if n := c.RingSize(i); n < 1 {
			return errors.New(errors.ErrCodeInvalidConfig,
				"lane %d has no vertices at density %.2f", i, c.VertexDensity)
		}
	}
	return nil
}

// RingRadius returns the radius of the center line of lane i.
func (c Config) RingRadius(i int) float64 {
	return c.Radius - float64(i)*c.LaneWidth - c.LaneWidth/2
}

// Perimeter returns the length of the center line of lane i.
func (c Config) Perimeter(i int) float64 {
	return 2 * math.Pi * c.RingRadius(i)
}

// RingSize returns the number of vertices lane i is split into.
func (c Config) RingSize(i int) int {
	return int(math.Round(c.Perimeter(i) * c.VertexDensity))
}
