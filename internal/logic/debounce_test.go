package logic

import (
	"testing"
	"time"
)

func TestFirstEdgeAlwaysAccepted(t *testing.T) {
	d := NewDebouncer(10*time.Millisecond, 5*time.Millisecond)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if !d.Accept(ChannelSpeed, now) {
		t.Error("first speed edge should be accepted")
	}
	if !d.Accept(ChannelIgnition, now) {
		t.Error("first ignition edge should be accepted")
	}
}

func TestDeadTimeRejection(t *testing.T) {
	d := NewDebouncer(10*time.Millisecond, 5*time.Millisecond)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	d.Accept(ChannelSpeed, now)

	// Bounce inside the dead-time
	if d.Accept(ChannelSpeed, now.Add(3*time.Millisecond)) {
		t.Error("edge 3ms after accepted edge should be rejected (dead-time 10ms)")
	}
	// Exactly at the dead-time boundary is accepted
	if !d.Accept(ChannelSpeed, now.Add(10*time.Millisecond)) {
		t.Error("edge at exactly the dead-time should be accepted")
	}
}

func TestDeadTimeMeasuredFromAcceptedEdge(t *testing.T) {
	d := NewDebouncer(10*time.Millisecond, 5*time.Millisecond)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	d.Accept(ChannelSpeed, now)
	d.Accept(ChannelSpeed, now.Add(4*time.Millisecond)) // rejected bounce

	// 8ms after the rejected bounce but only 12ms after the accepted
	// edge: must be measured against the accepted one and pass.
	if !d.Accept(ChannelSpeed, now.Add(12*time.Millisecond)) {
		t.Error("dead-time must be measured from the last accepted edge, not the last raw edge")
	}
}

func TestDebounceInvariant(t *testing.T) {
	// No two accepted edges may be closer than the dead-time, for any
	// input sequence.
	deadTime := 10 * time.Millisecond
	d := NewDebouncer(deadTime, deadTime)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	offsets := []time.Duration{0, 2, 3, 11, 12, 15, 21, 22, 40, 41, 49, 52}
	var accepted []time.Time
	for _, off := range offsets {
		ts := now.Add(off * time.Millisecond)
		if d.Accept(ChannelSpeed, ts) {
			accepted = append(accepted, ts)
		}
	}

	for i := 1; i < len(accepted); i++ {
		if gap := accepted[i].Sub(accepted[i-1]); gap < deadTime {
			t.Errorf("accepted edges %d and %d only %v apart, want >= %v", i-1, i, gap, deadTime)
		}
	}
}

func TestDuplicateTimestampIdempotent(t *testing.T) {
	d := NewDebouncer(10*time.Millisecond, 5*time.Millisecond)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if !d.Accept(ChannelIgnition, now) {
		t.Fatal("first delivery should be accepted")
	}
	if d.Accept(ChannelIgnition, now) {
		t.Error("duplicate delivery of the same timestamp should be rejected")
	}

	c := d.Counts(ChannelIgnition)
	if c.Accepted != 1 {
		t.Errorf("Accepted: got %d, want 1", c.Accepted)
	}
	if c.Rejected != 1 {
		t.Errorf("Rejected: got %d, want 1", c.Rejected)
	}
}

func TestChannelsIndependent(t *testing.T) {
	d := NewDebouncer(10*time.Millisecond, 5*time.Millisecond)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	d.Accept(ChannelSpeed, now)

	// An ignition edge right after a speed edge is not a bounce.
	if !d.Accept(ChannelIgnition, now.Add(time.Millisecond)) {
		t.Error("channels must debounce independently")
	}
}

func TestCounts(t *testing.T) {
	d := NewDebouncer(10*time.Millisecond, 5*time.Millisecond)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		d.Accept(ChannelSpeed, now.Add(time.Duration(i)*20*time.Millisecond))
	}
	d.Accept(ChannelSpeed, now.Add(81*time.Millisecond)) // 1ms after last
	d.Accept(ChannelSpeed, now.Add(82*time.Millisecond))

	c := d.Counts(ChannelSpeed)
	if c.Accepted != 5 {
		t.Errorf("Accepted: got %d, want 5", c.Accepted)
	}
	if c.Rejected != 2 {
		t.Errorf("Rejected: got %d, want 2", c.Rejected)
	}
	if d.Counts(ChannelIgnition).Accepted != 0 {
		t.Error("ignition channel should be untouched")
	}
}
