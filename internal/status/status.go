// Package status provides a thread-safe status tracker for the limiter
// daemon. It is read by the HTTP handlers and by the display
// collaborator at their own refresh cadence.
package status

import (
	"sync"
	"time"

	"github.com/ikke-t/mopo/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	TickMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
}

// Update carries the per-tick state from the decision cycle.
type Update struct {
	Speed          logic.Reading
	RPM            logic.Reading
	Limiter        logic.State
	SpeedPulses    logic.PulseCounts
	RPMPulses      logic.PulseCounts
	Cuts           int
	Releases       int
	OdometerMeters float64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Update
	Limits        logic.Limits
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets readings, limiter state and counters.
// Called from the decision cycle on every tick.
func (t *Tracker) Update(u Update) {
	t.mu.Lock()
	t.snap.Update = u
	t.mu.Unlock()
}

// SetLimits sets the currently enforced thresholds.
func (t *Tracker) SetLimits(l logic.Limits) {
	t.mu.Lock()
	t.snap.Limits = l
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
