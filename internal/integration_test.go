package internal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ikke-t/mopo/internal/ignition"
	"github.com/ikke-t/mopo/internal/logic"
	"github.com/ikke-t/mopo/internal/mqtt"
	"github.com/ikke-t/mopo/internal/pulse"
)

// TestIntegrationFullFlow tests the complete flow from pulse edges to
// the ignition driver and MQTT using fakes: a ride that revs past the
// rpm limit, gets cut, and recovers after backing off.
func TestIntegrationFullFlow(t *testing.T) {
	limits := logic.Limits{
		MaxSpeedKmh:        45,
		MaxRPM:             6000,
		SpeedHysteresisKmh: 3,
		RPMHysteresis:      200,
	}
	deb := logic.NewDebouncer(10*time.Millisecond, 3*time.Millisecond)
	est := logic.NewEstimator(
		logic.Tuning{Window: 5, StaleAfter: 2 * time.Second, UnitsPerHz: logic.SpeedUnitsPerHz(250)},
		logic.Tuning{Window: 8, StaleAfter: 500 * time.Millisecond, UnitsPerHz: logic.RPMUnitsPerHz(1)},
	)
	engine := logic.NewEngine()
	driver := ignition.NewFakeDriver()
	publisher := mqtt.NewFakePublisher()

	source := pulse.NewFakeSource(nil)
	handler := func(e pulse.Edge) {
		if deb.Accept(e.Channel, e.Time) {
			est.Ingest(e.Channel, e.Time)
		}
	}
	if err := source.Start(handler); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// A decision cycle: read, decide, actuate and publish on change.
	decide := func(now time.Time) logic.State {
		t.Helper()
		speed := est.Reading(logic.ChannelSpeed, now)
		rpm := est.Reading(logic.ChannelIgnition, now)
		prev := engine.State()
		st := engine.Decide(speed, rpm, limits)
		if st != prev {
			if err := driver.Set(st.Active); err != nil {
				t.Fatalf("Set: %v", err)
			}
			err := publisher.PublishTransition(mqtt.Transition{
				Timestamp: now, State: st, Speed: speed, RPM: rpm,
			})
			if err != nil {
				t.Fatalf("PublishTransition: %v", err)
			}
		}
		return st
	}

	base := time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)

	// Phase 1: cruising. Spark at 12 ms (5000 rpm), hall at 25 ms
	// (36 km/h). Both under the limits.
	spark := base
	hall := base
	for i := 0; i < 9; i++ {
		source.Emit(pulse.Edge{Channel: logic.ChannelIgnition, Time: spark, Rising: true})
		spark = spark.Add(12 * time.Millisecond)
	}
	for i := 0; i < 6; i++ {
		source.Emit(pulse.Edge{Channel: logic.ChannelSpeed, Time: hall, Rising: false})
		hall = hall.Add(25 * time.Millisecond)
	}

	now := base.Add(150 * time.Millisecond)
	if st := decide(now); st.Active {
		t.Fatalf("cruising should not cut: %+v", st)
	}

	// Phase 2: revving. Spark at 9 ms (about 6667 rpm). Eight fast
	// intervals fill the window.
	for i := 0; i < 9; i++ {
		source.Emit(pulse.Edge{Channel: logic.ChannelIgnition, Time: spark, Rising: true})
		spark = spark.Add(9 * time.Millisecond)
	}
	now = spark.Add(time.Millisecond)
	st := decide(now)
	if !st.Active {
		t.Fatal("over-rev should cut the ignition")
	}
	if st.Reason != logic.ReasonRPM {
		t.Errorf("reason: got %q, want RPM_LIMIT", st.Reason)
	}
	if !driver.Cut() {
		t.Error("driver should have the cut asserted")
	}

	// Phase 3: backing off. Spark returns to 12 ms (5000 rpm), below
	// the 5800 rpm release threshold once the window turns over.
	for i := 0; i < 9; i++ {
		spark = spark.Add(12 * time.Millisecond)
		source.Emit(pulse.Edge{Channel: logic.ChannelIgnition, Time: spark, Rising: true})
	}
	now = spark.Add(time.Millisecond)
	if st := decide(now); st.Active {
		t.Fatalf("backing off should release the cut: %+v", st)
	}
	if driver.Cut() {
		t.Error("driver should have the cut released")
	}

	// Exactly one cut and one release were published.
	if len(publisher.Transitions) != 2 {
		t.Fatalf("transitions: got %d, want 2", len(publisher.Transitions))
	}
	if !publisher.Transitions[0].State.Active || publisher.Transitions[1].State.Active {
		t.Errorf("transition order: got %+v", publisher.Transitions)
	}

	cuts, releases := engine.Counts()
	if cuts != 1 || releases != 1 {
		t.Errorf("counters: got %d cuts, %d releases", cuts, releases)
	}
}

// TestIntegrationBounceRejection verifies that contact bounce on the
// hall line cannot inflate the speed estimate into a spurious cut.
func TestIntegrationBounceRejection(t *testing.T) {
	limits := logic.Limits{
		MaxSpeedKmh:        45,
		MaxRPM:             6000,
		SpeedHysteresisKmh: 3,
		RPMHysteresis:      200,
	}
	deb := logic.NewDebouncer(10*time.Millisecond, 3*time.Millisecond)
	est := logic.NewEstimator(
		logic.Tuning{Window: 5, StaleAfter: 2 * time.Second, UnitsPerHz: logic.SpeedUnitsPerHz(250)},
		logic.Tuning{Window: 8, StaleAfter: 500 * time.Millisecond, UnitsPerHz: logic.RPMUnitsPerHz(1)},
	)
	engine := logic.NewEngine()

	handler := func(e pulse.Edge) {
		if deb.Accept(e.Channel, e.Time) {
			est.Ingest(e.Channel, e.Time)
		}
	}

	// 25 ms hall period (36 km/h) with a 1 ms bounce after every real
	// edge. Without debouncing the 1 ms intervals would read as
	// hundreds of km/h.
	hall := time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		handler(pulse.Edge{Channel: logic.ChannelSpeed, Time: hall, Rising: false})
		handler(pulse.Edge{Channel: logic.ChannelSpeed, Time: hall.Add(time.Millisecond), Rising: false})
		hall = hall.Add(25 * time.Millisecond)
	}

	now := hall.Add(time.Millisecond)
	speed := est.Reading(logic.ChannelSpeed, now)
	if !speed.Valid {
		t.Fatal("reading should be valid")
	}
	if speed.Value < 35 || speed.Value > 37 {
		t.Errorf("speed: got %f, want about 36", speed.Value)
	}

	st := engine.Decide(speed, est.Reading(logic.ChannelIgnition, now), limits)
	if st.Active {
		t.Errorf("bounce must not trigger a cut: %+v", st)
	}

	counts := deb.Counts(logic.ChannelSpeed)
	if counts.Accepted != 6 || counts.Rejected != 6 {
		t.Errorf("counts: got %+v, want 6 accepted, 6 rejected", counts)
	}
}

// TestIntegrationPayload checks the published transition payload end
// to end, the way a dashboard subscriber would read it.
func TestIntegrationPayload(t *testing.T) {
	publisher := mqtt.NewFakePublisher()

	ts := time.Date(2026, 6, 10, 9, 30, 0, 0, time.UTC)
	err := publisher.PublishTransition(mqtt.Transition{
		Timestamp: ts,
		State:     logic.State{Active: true, Reason: logic.ReasonSpeed},
		Speed:     logic.Reading{Value: 47.3, Valid: true, Age: 20 * time.Millisecond},
		RPM:       logic.Reading{Value: 5100, Valid: true, Age: 11 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("PublishTransition: %v", err)
	}

	var payload mqtt.Payload
	if err := json.Unmarshal(publisher.Payloads[0], &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Limiter.State != "LIMITING" {
		t.Errorf("state: got %q, want LIMITING", payload.Limiter.State)
	}
	if payload.Limiter.Reason != "SPEED_LIMIT" {
		t.Errorf("reason: got %q, want SPEED_LIMIT", payload.Limiter.Reason)
	}
	if payload.Limiter.Speed.Value != 47.3 {
		t.Errorf("speed: got %f, want 47.3", payload.Limiter.Speed.Value)
	}
	if payload.Limiter.Timestamp != "2026-06-10T09:30:00Z" {
		t.Errorf("timestamp: got %q", payload.Limiter.Timestamp)
	}
}
