package sim

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/roundabout/pkg/errors"
	"github.com/matzehuels/roundabout/pkg/roundabout"
	"github.com/matzehuels/roundabout/pkg/vehicle"
)

// Config is the full description of a simulation run, as read from a TOML
// file:
//
//	[roundabout]
//	radius = 15.0
//	lanes = 2
//
//	[simulation]
//	time_scale = 0.1
//	sample_interval = "250ms"
//
//	[[vehicles]]
//	behavior = "light:aggressive"
//	count = 10
type Config struct {
	Roundabout roundabout.Config `toml:"roundabout" json:"roundabout"`
	Simulation Settings          `toml:"simulation" json:"simulation"`
	Vehicles   []Group           `toml:"vehicles" json:"vehicles,omitempty"`
}

// Settings controls how a simulation runs.
type Settings struct {
	// TimeScale multiplies every sleep. 1 is real time.
	TimeScale float64 `toml:"time_scale" json:"time_scale"`
	// Capacity overrides the admission cap. 0 derives it from the geometry.
	Capacity int `toml:"capacity" json:"capacity"`
	// Seed drives random spawns. 0 seeds from the clock.
	Seed int64 `toml:"seed" json:"seed"`
	// SampleInterval is how often the monitor takes a snapshot.
	SampleInterval Duration `toml:"sample_interval" json:"sample_interval"`
}

// Group spawns Count vehicles of one behavior. An Entry or Exit of 0 is
// drawn at random for each vehicle.
type Group struct {
	Behavior vehicle.Kind `toml:"behavior" json:"behavior"`
	Entry    int          `toml:"entry" json:"entry,omitempty"`
	Exit     int          `toml:"exit" json:"exit,omitempty"`
	Color    string       `toml:"color" json:"color,omitempty"`
	Count    int          `toml:"count" json:"count"`
}

// Duration is a time.Duration written as a Go duration string in config
// files.
type Duration struct {
	time.Duration
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default simulation settings.
const (
	DefaultTimeScale      = 1.0
	DefaultSampleInterval = 250 * time.Millisecond
)

// DefaultConfig returns the default roundabout with real-time vehicles and
// no spawn groups.
func DefaultConfig() Config {
	return Config{
		Roundabout: roundabout.DefaultConfig(),
		Simulation: Settings{
			TimeScale:      DefaultTimeScale,
			SampleInterval: Duration{DefaultSampleInterval},
		},
	}
}

// Validate checks the settings and spawn groups. Roundabout geometry is
// checked when the roundabout is built.
func (c Config) Validate() error {
	if err := errors.ValidatePositive("time scale", c.Simulation.TimeScale); err != nil {
		return err
	}
	if c.Simulation.Capacity < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "capacity must be >= 0, got %d", c.Simulation.Capacity)
	}
	if c.Simulation.SampleInterval.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "sample interval must be >= 0, got %s", c.Simulation.SampleInterval)
	}
	for i, g := range c.Vehicles {
		if g.Count < 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "vehicle group %d: count must be >= 0, got %d", i+1, g.Count)
		}
		if g.Entry < 0 || g.Exit < 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "vehicle group %d: entry and exit must be >= 0", i+1)
		}
	}
	return nil
}

// LoadConfig reads a TOML file on top of [DefaultConfig]: keys missing from
// the file keep their default.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(data)
}

// ParseConfig decodes TOML data on top of [DefaultConfig].
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q", undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WriteConfig writes cfg as TOML to path.
func WriteConfig(path string, cfg Config) error {
	data, err := EncodeConfig(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// EncodeConfig renders cfg as TOML.
func EncodeConfig(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}
