package logic

import (
	"sync"
	"time"
)

// Tuning holds per-channel estimator parameters. All of these depend on
// the sensor hardware and are configuration, not constants.
type Tuning struct {
	// Window is the number of most recent intervals averaged.
	// A single interval is noisy (uneven magnet spacing, ignition
	// jitter); a larger window is smoother but reacts slower.
	Window int
	// StaleAfter marks the reading invalid when no edge has been
	// accepted for this long.
	StaleAfter time.Duration
	// UnitsPerHz converts pulse frequency to physical units
	// (see SpeedUnitsPerHz and RPMUnitsPerHz).
	UnitsPerHz float64
}

// Estimator converts accepted edge timestamps into smoothed rate
// readings. Each channel owns a fixed-size ring of the most recent
// intervals; Ingest is O(1) and never allocates after construction, so
// it is safe to call from the edge delivery path.
type Estimator struct {
	channels [numChannels]estimatorState
}

type estimatorState struct {
	mu           sync.Mutex
	tuning       Tuning
	intervals    []time.Duration
	head         int
	count        int
	lastAccepted time.Time
	seen         bool
	degenerate   int
}

// NewEstimator creates an estimator with per-channel tuning.
func NewEstimator(speed, ignition Tuning) *Estimator {
	e := &Estimator{}
	e.channels[ChannelSpeed].init(speed)
	e.channels[ChannelIgnition].init(ignition)
	return e
}

func (s *estimatorState) init(t Tuning) {
	if t.Window < 1 {
		t.Window = 1
	}
	s.tuning = t
	s.intervals = make([]time.Duration, t.Window)
}

// Ingest records an accepted edge at t. A zero or negative interval
// (duplicate delivery of the same timestamp) is excluded from the
// window rather than propagated as an infinite rate. A gap longer than
// StaleAfter flushes the window so old intervals from before a stop do
// not drag down the first readings after the vehicle moves again.
func (e *Estimator) Ingest(ch Channel, t time.Time) {
	s := &e.channels[ch]
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seen {
		s.lastAccepted = t
		s.seen = true
		return
	}

	interval := t.Sub(s.lastAccepted)
	if interval <= 0 {
		s.degenerate++
		return
	}

	if interval > s.tuning.StaleAfter {
		s.head = 0
		s.count = 0
	} else {
		s.intervals[s.head] = interval
		s.head = (s.head + 1) % len(s.intervals)
		if s.count < len(s.intervals) {
			s.count++
		}
	}
	s.lastAccepted = t
}

// Reading returns the current smoothed rate for a channel.
// With no intervals buffered, or none accepted within StaleAfter, the
// reading is invalid with value zero.
func (e *Estimator) Reading(ch Channel, now time.Time) Reading {
	s := &e.channels[ch]
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seen {
		return Reading{}
	}

	age := now.Sub(s.lastAccepted)
	if age < 0 {
		age = 0
	}
	if s.count == 0 || age > s.tuning.StaleAfter {
		return Reading{Age: age}
	}

	var sum time.Duration
	for i := 0; i < s.count; i++ {
		sum += s.intervals[i]
	}
	mean := sum / time.Duration(s.count)
	hz := float64(time.Second) / float64(mean)

	return Reading{
		Value: hz * s.tuning.UnitsPerHz,
		Valid: true,
		Age:   age,
	}
}

// DegenerateCount returns how many degenerate intervals were excluded
// on a channel.
func (e *Estimator) DegenerateCount(ch Channel) int {
	s := &e.channels[ch]
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degenerate
}
