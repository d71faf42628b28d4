package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ikke-t/mopo/internal/logic"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{TickMs: 25, HeartbeatMs: 60000, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.TickMs != 25 {
		t.Errorf("Config.TickMs: got %d, want 25", snap.Config.TickMs)
	}
	if snap.Limiter.Active {
		t.Error("expected inactive limiter initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.Update(Update{
		Speed:          logic.Reading{Value: 38.5, Valid: true, Age: 12 * time.Millisecond},
		RPM:            logic.Reading{Value: 5200, Valid: true},
		Limiter:        logic.State{Active: true, Reason: logic.ReasonSpeed},
		SpeedPulses:    logic.PulseCounts{Accepted: 100, Rejected: 3},
		RPMPulses:      logic.PulseCounts{Accepted: 400, Rejected: 12, Degenerate: 1},
		Cuts:           2,
		Releases:       1,
		OdometerMeters: 1234.5,
	})
	tr.SetLimits(logic.Limits{MaxSpeedKmh: 42, MaxRPM: 6000, SpeedHysteresisKmh: 2, RPMHysteresis: 200})

	snap := tr.Snapshot()
	if snap.Speed.Value != 38.5 {
		t.Errorf("Speed.Value: got %f, want 38.5", snap.Speed.Value)
	}
	if !snap.Limiter.Active || snap.Limiter.Reason != logic.ReasonSpeed {
		t.Errorf("Limiter: got %+v, want active speed limit", snap.Limiter)
	}
	if snap.RPMPulses.Degenerate != 1 {
		t.Errorf("RPMPulses.Degenerate: got %d, want 1", snap.RPMPulses.Degenerate)
	}
	if snap.Limits.MaxSpeedKmh != 42 {
		t.Errorf("Limits.MaxSpeedKmh: got %f, want 42", snap.Limits.MaxSpeedKmh)
	}
	if snap.OdometerMeters != 1234.5 {
		t.Errorf("OdometerMeters: got %f, want 1234.5", snap.OdometerMeters)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				tr.Update(Update{Cuts: j})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				_ = tr.Snapshot()
			}
		}()
	}
	wg.Wait()
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(start, Config{TickMs: 25, HeartbeatMs: 60000, Broker: "tcp://b:1883", HTTPAddr: ":8080"})
	tr.Update(Update{
		Speed:   logic.Reading{Value: 45.2, Valid: true, Age: 8 * time.Millisecond},
		RPM:     logic.Reading{Age: 3 * time.Second},
		Limiter: logic.State{Active: true, Reason: logic.ReasonSpeed},
	})
	tr.SetMQTTConnected(true)

	var sj StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &sj); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if sj.Status.Limiter.State != "LIMITING" {
		t.Errorf("limiter state: got %q, want LIMITING", sj.Status.Limiter.State)
	}
	if sj.Status.Limiter.Reason != string(logic.ReasonSpeed) {
		t.Errorf("limiter reason: got %q, want %q", sj.Status.Limiter.Reason, logic.ReasonSpeed)
	}
	if sj.Status.Speed.Value != 45.2 || !sj.Status.Speed.Valid {
		t.Errorf("speed: got %+v", sj.Status.Speed)
	}
	if sj.Status.RPM.Valid {
		t.Error("rpm should be invalid")
	}
	if sj.Status.RPM.AgeMs != 3000 {
		t.Errorf("rpm age: got %d ms, want 3000", sj.Status.RPM.AgeMs)
	}
	if !sj.Status.MQTT.Connected || sj.Status.MQTT.Broker != "tcp://b:1883" {
		t.Errorf("mqtt: got %+v", sj.Status.MQTT)
	}
	if sj.Status.Event != "" {
		t.Errorf("web JSON should carry no event, got %q", sj.Status.Event)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	var sj StatusJSON
	if err := json.Unmarshal(FormatStatusEvent(tr.Snapshot(), "SHUTDOWN", "SIGTERM"), &sj); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sj.Status.Event != "SHUTDOWN" {
		t.Errorf("event: got %q, want SHUTDOWN", sj.Status.Event)
	}
	if sj.Status.Reason != "SIGTERM" {
		t.Errorf("reason: got %q, want SIGTERM", sj.Status.Reason)
	}
	if sj.Status.Limiter.State != "ALLOWING" {
		t.Errorf("limiter state: got %q, want ALLOWING", sj.Status.Limiter.State)
	}
}
