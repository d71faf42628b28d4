// Package config holds the limiter thresholds and sensor tuning.
// Dead-times, window sizes, staleness timeouts, hysteresis and the
// decision cadence are safety parameters chosen per sensor hardware, so
// all of them live here rather than as constants.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ikke-t/mopo/internal/ignition"
	"github.com/ikke-t/mopo/internal/logic"
	"github.com/ikke-t/mopo/internal/pulse"
)

// Config represents the daemon configuration.
type Config struct {
	Limits   Limits         `yaml:"limits"`
	Speed    SpeedSensor    `yaml:"speed_sensor"`
	Ignition IgnitionSensor `yaml:"ignition_sensor"`
	Cut      CutOutput      `yaml:"ignition_cut"`
	Daemon   Daemon         `yaml:"daemon"`
}

// Limits contains the enforcement thresholds. This is the part the
// external configuration UI may replace at runtime.
type Limits struct {
	MaxSpeedKmh        float64 `yaml:"max_speed_kmh"`
	MaxRPM             float64 `yaml:"max_rpm"`
	SpeedHysteresisKmh float64 `yaml:"speed_hysteresis_kmh"`
	RPMHysteresis      float64 `yaml:"rpm_hysteresis"`
}

// Duration wraps time.Duration so YAML values can be written as "25ms".
type Duration time.Duration

// UnmarshalYAML accepts Go duration strings and plain nanosecond ints.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if v, err := time.ParseDuration(value.Value); err == nil {
		*d = Duration(v)
		return nil
	}
	if n, err := strconv.ParseInt(value.Value, 10, 64); err == nil {
		*d = Duration(n)
		return nil
	}
	return fmt.Errorf("invalid duration %q", value.Value)
}

// String renders the duration in time.Duration notation.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Sensor contains tuning common to both pulse channels.
type Sensor struct {
	Pin        int      `yaml:"pin"`
	DeadTime   Duration `yaml:"dead_time"`
	Window     int      `yaml:"window"`
	StaleAfter Duration `yaml:"stale_after"`
}

// SpeedSensor contains hall sensor tuning.
type SpeedSensor struct {
	Sensor `yaml:",inline"`
	// TickDistanceMM is the distance the tyre travels between hall
	// ticks, e.g. a 1790mm wheel with 6 magnets is 298mm per tick.
	TickDistanceMM float64 `yaml:"tick_distance_mm"`
}

// IgnitionSensor contains spark pickup tuning.
type IgnitionSensor struct {
	Sensor `yaml:",inline"`
	// PulsesPerRev is the number of ignition pulses per engine
	// revolution (1 on a two-stroke single).
	PulsesPerRev float64 `yaml:"pulses_per_rev"`
}

// CutOutput contains the actuation pin.
type CutOutput struct {
	Pin int `yaml:"pin"`
}

// Daemon contains loop and telemetry parameters.
type Daemon struct {
	// Tick is the decision cycle cadence; it bounds worst-case
	// reaction latency from threshold crossing to ignition cut.
	Tick      Duration `yaml:"tick"`
	Broker    string   `yaml:"broker"`
	HTTPAddr  string   `yaml:"http_addr"`
	Heartbeat Duration `yaml:"heartbeat"`
}

// Default returns a configuration tuned for a two-stroke moped with
// six hall magnets on a 16" wheel: 298mm per hall tick, one spark per
// revolution, dead-times bounding the sensors at roughly 100 km/h and
// 12000 rpm.
func Default() *Config {
	return &Config{
		Limits: Limits{
			MaxSpeedKmh:        42,
			MaxRPM:             6000,
			SpeedHysteresisKmh: 2,
			RPMHysteresis:      200,
		},
		Speed: SpeedSensor{
			Sensor: Sensor{
				Pin:        pulse.DefaultPinSpeed,
				DeadTime:   Duration(10 * time.Millisecond),
				Window:     10,
				StaleAfter: Duration(2 * time.Second),
			},
			TickDistanceMM: 298,
		},
		Ignition: IgnitionSensor{
			Sensor: Sensor{
				Pin:        pulse.DefaultPinIgnition,
				DeadTime:   Duration(5 * time.Millisecond),
				Window:     20,
				StaleAfter: Duration(time.Second),
			},
			PulsesPerRev: 1,
		},
		Cut: CutOutput{
			Pin: ignition.DefaultPin,
		},
		Daemon: Daemon{
			Tick:      Duration(25 * time.Millisecond),
			Broker:    "tcp://127.0.0.1:1883",
			HTTPAddr:  ":8080",
			Heartbeat: Duration(time.Minute),
		},
	}
}

// Load reads configuration from a YAML file, merged over defaults.
// A missing file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.Limits.Validate(); err != nil {
		return err
	}
	if err := c.Speed.Sensor.validate("speed_sensor"); err != nil {
		return err
	}
	if err := c.Ignition.Sensor.validate("ignition_sensor"); err != nil {
		return err
	}
	if c.Speed.TickDistanceMM <= 0 {
		return fmt.Errorf("speed_sensor: tick_distance_mm must be positive, got %v", c.Speed.TickDistanceMM)
	}
	if c.Ignition.PulsesPerRev <= 0 {
		return fmt.Errorf("ignition_sensor: pulses_per_rev must be positive, got %v", c.Ignition.PulsesPerRev)
	}
	if c.Daemon.Tick <= 0 {
		return fmt.Errorf("daemon: tick must be positive, got %v", c.Daemon.Tick)
	}
	return nil
}

// Validate checks the threshold record. A hysteresis at or above its
// threshold produces a band that can never clear, so it is rejected
// here, at update time.
func (l Limits) Validate() error {
	if l.MaxSpeedKmh <= 0 {
		return fmt.Errorf("limits: max_speed_kmh must be positive, got %v", l.MaxSpeedKmh)
	}
	if l.MaxRPM <= 0 {
		return fmt.Errorf("limits: max_rpm must be positive, got %v", l.MaxRPM)
	}
	if l.SpeedHysteresisKmh < 0 || l.SpeedHysteresisKmh >= l.MaxSpeedKmh {
		return fmt.Errorf("limits: speed_hysteresis_kmh must be in [0, max_speed_kmh), got %v", l.SpeedHysteresisKmh)
	}
	if l.RPMHysteresis < 0 || l.RPMHysteresis >= l.MaxRPM {
		return fmt.Errorf("limits: rpm_hysteresis must be in [0, max_rpm), got %v", l.RPMHysteresis)
	}
	return nil
}

func (s Sensor) validate(section string) error {
	if s.DeadTime <= 0 {
		return fmt.Errorf("%s: dead_time must be positive, got %v", section, s.DeadTime)
	}
	if s.Window < 1 {
		return fmt.Errorf("%s: window must be at least 1, got %d", section, s.Window)
	}
	if s.StaleAfter <= s.DeadTime {
		return fmt.Errorf("%s: stale_after (%v) must exceed dead_time (%v)", section, s.StaleAfter, s.DeadTime)
	}
	return nil
}

// Thresholds converts the record into the engine's value type.
func (l Limits) Thresholds() logic.Limits {
	return logic.Limits{
		MaxSpeedKmh:        l.MaxSpeedKmh,
		MaxRPM:             l.MaxRPM,
		SpeedHysteresisKmh: l.SpeedHysteresisKmh,
		RPMHysteresis:      l.RPMHysteresis,
	}
}

// SpeedTuning builds the estimator tuning for the hall channel.
func (c *Config) SpeedTuning() logic.Tuning {
	return logic.Tuning{
		Window:     c.Speed.Window,
		StaleAfter: time.Duration(c.Speed.StaleAfter),
		UnitsPerHz: logic.SpeedUnitsPerHz(c.Speed.TickDistanceMM),
	}
}

// RPMTuning builds the estimator tuning for the spark channel.
func (c *Config) RPMTuning() logic.Tuning {
	return logic.Tuning{
		Window:     c.Ignition.Window,
		StaleAfter: time.Duration(c.Ignition.StaleAfter),
		UnitsPerHz: logic.RPMUnitsPerHz(c.Ignition.PulsesPerRev),
	}
}
