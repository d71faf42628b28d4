package logic

import (
	"sync"
	"time"
)

// Debouncer rejects edges that arrive faster than the sensor can
// physically pulse. Both sensors pick up electrical noise around real
// edges (contact bounce on the hall sensor, capacitive ringing on the
// spark wire); anything inside the per-channel dead-time since the last
// accepted edge is noise.
//
// Accept is safe to call concurrently for different channels; edges on
// one channel must come from a single delivery goroutine, which is how
// the pulse sources deliver them.
type Debouncer struct {
	channels [numChannels]debounceState
}

type debounceState struct {
	mu           sync.Mutex
	deadTime     time.Duration
	lastAccepted time.Time
	seen         bool
	accepted     int
	rejected     int
}

// NewDebouncer creates a debouncer with per-channel dead-times.
// The dead-time is derived from the fastest physically plausible rate
// for the sensor, e.g. 5ms on the spark channel bounds the engine at
// 12000 rpm.
func NewDebouncer(speedDeadTime, ignitionDeadTime time.Duration) *Debouncer {
	d := &Debouncer{}
	d.channels[ChannelSpeed].deadTime = speedDeadTime
	d.channels[ChannelIgnition].deadTime = ignitionDeadTime
	return d
}

// Accept reports whether the edge at t passes the dead-time filter and
// updates the channel's last-accepted timestamp if it does. The first
// edge ever seen on a channel is always accepted.
func (d *Debouncer) Accept(ch Channel, t time.Time) bool {
	s := &d.channels[ch]
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen && t.Sub(s.lastAccepted) < s.deadTime {
		s.rejected++
		return false
	}

	s.lastAccepted = t
	s.seen = true
	s.accepted++
	return true
}

// Counts returns the accepted/rejected tallies for a channel.
// Degenerate is always zero here; the estimator tracks that separately.
func (d *Debouncer) Counts(ch Channel) PulseCounts {
	s := &d.channels[ch]
	s.mu.Lock()
	defer s.mu.Unlock()
	return PulseCounts{Accepted: s.accepted, Rejected: s.rejected}
}
