// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/ikke-t/mopo/internal/logic"
)

// Topic is the MQTT topic for limiter transition events.
const Topic = "vehicle/mopo/limiter/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "vehicle/mopo/limiter/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishTransition sends a limiter state change to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishTransition(event Transition) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Transition represents a limiter state change.
type Transition struct {
	Timestamp time.Time
	State     logic.State
	Speed     logic.Reading
	RPM       logic.Reading
}

// SystemEvent represents a system lifecycle event (startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Limiter LimiterPayload `json:"limiter"`
}

// LimiterPayload contains the transition details.
type LimiterPayload struct {
	Timestamp string         `json:"timestamp"`
	State     string         `json:"state"`
	Reason    string         `json:"reason,omitempty"`
	Speed     ReadingPayload `json:"speed"`
	RPM       ReadingPayload `json:"rpm"`
}

// ReadingPayload contains a single rate reading.
type ReadingPayload struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// FormatTransitionPayload creates the JSON payload for a limiter transition.
func FormatTransitionPayload(event Transition) ([]byte, error) {
	state := "ALLOWING"
	if event.State.Active {
		state = "LIMITING"
	}
	payload := Payload{
		Limiter: LimiterPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			State:     state,
			Reason:    string(event.State.Reason),
			Speed:     ReadingPayload{Value: event.Speed.Value, Valid: event.Speed.Valid},
			RPM:       ReadingPayload{Value: event.RPM.Value, Valid: event.RPM.Valid},
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
