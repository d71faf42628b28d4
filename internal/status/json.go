package status

import (
	"encoding/json"
	"time"

	"github.com/ikke-t/mopo/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	Limiter       LimiterJSON `json:"limiter"`
	Speed         ReadingJSON `json:"speed"`
	RPM           ReadingJSON `json:"rpm"`
	Limits        LimitsJSON  `json:"limits"`
	Counts        CountsJSON  `json:"counts"`
	OdometerM     float64     `json:"odometer_m"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Config        ConfigJSON  `json:"config"`
}

// LimiterJSON is the JSON representation of the limiter state.
type LimiterJSON struct {
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`
}

// ReadingJSON is the JSON representation of a rate reading.
type ReadingJSON struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
	AgeMs int64   `json:"age_ms"`
}

// LimitsJSON is the JSON representation of the enforced thresholds.
type LimitsJSON struct {
	MaxSpeedKmh        float64 `json:"max_speed_kmh"`
	MaxRPM             float64 `json:"max_rpm"`
	SpeedHysteresisKmh float64 `json:"speed_hysteresis_kmh"`
	RPMHysteresis      float64 `json:"rpm_hysteresis"`
}

// ChannelCountsJSON is the JSON representation of one channel's pulse
// statistics.
type ChannelCountsJSON struct {
	Accepted   int `json:"accepted"`
	Rejected   int `json:"rejected"`
	Degenerate int `json:"degenerate"`
}

// CountsJSON is the JSON representation of all counters.
type CountsJSON struct {
	Speed    ChannelCountsJSON `json:"speed_pulses"`
	RPM      ChannelCountsJSON `json:"rpm_pulses"`
	Cuts     int               `json:"cuts"`
	Releases int               `json:"releases"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs      int64  `json:"tick_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
}

// LimiterStateName renders a limiter state for payloads and logs.
func LimiterStateName(st logic.State) string {
	if st.Active {
		return "LIMITING"
	}
	return "ALLOWING"
}

func buildInner(snap Snapshot) StatusInner {
	return StatusInner{
		Limiter: LimiterJSON{
			State:  LimiterStateName(snap.Limiter),
			Reason: string(snap.Limiter.Reason),
		},
		Speed: readingJSON(snap.Speed),
		RPM:   readingJSON(snap.RPM),
		Limits: LimitsJSON{
			MaxSpeedKmh:        snap.Limits.MaxSpeedKmh,
			MaxRPM:             snap.Limits.MaxRPM,
			SpeedHysteresisKmh: snap.Limits.SpeedHysteresisKmh,
			RPMHysteresis:      snap.Limits.RPMHysteresis,
		},
		Counts: CountsJSON{
			Speed:    channelCountsJSON(snap.SpeedPulses),
			RPM:      channelCountsJSON(snap.RPMPulses),
			Cuts:     snap.Cuts,
			Releases: snap.Releases,
		},
		OdometerM:     snap.OdometerMeters,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			TickMs:      snap.Config.TickMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
}

func readingJSON(r logic.Reading) ReadingJSON {
	return ReadingJSON{
		Value: r.Value,
		Valid: r.Valid,
		AgeMs: r.Age.Milliseconds(),
	}
}

func channelCountsJSON(c logic.PulseCounts) ChannelCountsJSON {
	return ChannelCountsJSON{
		Accepted:   c.Accepted,
		Rejected:   c.Rejected,
		Degenerate: c.Degenerate,
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
