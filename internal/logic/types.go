// Package logic contains the pure limiter pipeline: pulse debouncing,
// frequency estimation and the ignition cut/allow decision.
// This package has NO external dependencies (no GPIO, MQTT, OS, or
// time.Sleep). Time is always injectable via time.Time parameters.
package logic

import "time"

// Channel identifies a pulse input.
type Channel int

const (
	// ChannelSpeed is the hall sensor on the wheel.
	ChannelSpeed Channel = iota
	// ChannelIgnition is the capacitive pickup on the spark wire.
	ChannelIgnition

	numChannels
)

// String returns the channel name for logs and payloads.
func (c Channel) String() string {
	switch c {
	case ChannelSpeed:
		return "speed"
	case ChannelIgnition:
		return "ignition"
	}
	return "unknown"
}

// Reading is a smoothed rate in physical units (km/h or rpm).
// Valid is false when no edge has been accepted within the channel's
// staleness timeout: a silent sensor means the wheel or engine is not
// turning, never that it is turning infinitely fast.
type Reading struct {
	Value float64
	Valid bool
	// Age is the time since the last accepted edge.
	Age time.Duration
}

// Reason tags why the limiter is active.
type Reason string

const (
	ReasonNone  Reason = ""
	ReasonSpeed Reason = "SPEED_LIMIT"
	ReasonRPM   Reason = "RPM_LIMIT"
)

// State is the limiter decision output, read by the display and
// actuation collaborators.
type State struct {
	Active bool
	Reason Reason
}

// Limits is the threshold snapshot consumed per decision cycle.
// It is a value type; the engine never mutates it.
type Limits struct {
	MaxSpeedKmh        float64
	MaxRPM             float64
	SpeedHysteresisKmh float64
	RPMHysteresis      float64
}

// PulseCounts tracks per-channel edge statistics since startup.
type PulseCounts struct {
	// Accepted edges that passed the dead-time filter.
	Accepted int
	// Rejected edges inside the dead-time (electrical bounce).
	Rejected int
	// Degenerate intervals (zero or negative) excluded by the estimator.
	Degenerate int
}

// SpeedUnitsPerHz converts a hall tick frequency to km/h given the
// distance the tyre travels between ticks.
// km/h = ticks/s * mm/tick * 3600/1e6.
func SpeedUnitsPerHz(tickDistanceMM float64) float64 {
	return tickDistanceMM * 0.0036
}

// RPMUnitsPerHz converts a spark frequency to engine rpm given the
// number of ignition pulses per engine revolution.
func RPMUnitsPerHz(pulsesPerRev float64) float64 {
	return 60 / pulsesPerRev
}
