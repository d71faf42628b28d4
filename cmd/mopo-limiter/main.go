// Command mopo-limiter infers vehicle speed and engine rpm from the
// wheel hall sensor and the spark-wire pickup, and cuts ignition when
// the configured limits are exceeded.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ikke-t/mopo/internal/config"
	"github.com/ikke-t/mopo/internal/ignition"
	"github.com/ikke-t/mopo/internal/logic"
	"github.com/ikke-t/mopo/internal/mqtt"
	"github.com/ikke-t/mopo/internal/pulse"
	"github.com/ikke-t/mopo/internal/status"
	"github.com/ikke-t/mopo/internal/web"
)

func main() {
	configPath := flag.String("config", "/etc/mopo/config.yaml", "YAML configuration file")
	broker := flag.String("broker", "", "MQTT broker address (overrides config)")
	httpAddr := flag.String("http", "", `HTTP status address (overrides config, "off" disables)`)
	tick := flag.Duration("tick", 0, "decision cycle interval (overrides config)")
	heartbeat := flag.Duration("heartbeat", -1, "heartbeat interval (overrides config, 0 disables)")
	maxSpeed := flag.Float64("max-speed", 0, "speed limit in km/h (overrides config)")
	maxRPM := flag.Float64("max-rpm", 0, "engine rpm limit (overrides config)")
	printConfig := flag.Bool("print-config", false, "print effective configuration and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	applyOverrides(cfg, overrides{
		broker:    *broker,
		httpAddr:  *httpAddr,
		tick:      *tick,
		heartbeat: *heartbeat,
		maxSpeed:  *maxSpeed,
		maxRPM:    *maxRPM,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if *printConfig {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
		fmt.Print(string(out))
		return
	}

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// overrides carries flag values that take precedence over the file.
// Zero values mean "keep the config"; heartbeat uses -1 because 0 is a
// meaningful value (disabled).
type overrides struct {
	broker    string
	httpAddr  string
	tick      time.Duration
	heartbeat time.Duration
	maxSpeed  float64
	maxRPM    float64
}

func applyOverrides(cfg *config.Config, o overrides) {
	if o.broker != "" {
		cfg.Daemon.Broker = o.broker
	}
	if o.httpAddr == "off" {
		cfg.Daemon.HTTPAddr = ""
	} else if o.httpAddr != "" {
		cfg.Daemon.HTTPAddr = o.httpAddr
	}
	if o.tick > 0 {
		cfg.Daemon.Tick = config.Duration(o.tick)
	}
	if o.heartbeat >= 0 {
		cfg.Daemon.Heartbeat = config.Duration(o.heartbeat)
	}
	if o.maxSpeed > 0 {
		cfg.Limits.MaxSpeedKmh = o.maxSpeed
	}
	if o.maxRPM > 0 {
		cfg.Limits.MaxRPM = o.maxRPM
	}
}

func run(cfg *config.Config) error {
	source, err := pulse.NewRealSource(cfg.Speed.Pin, cfg.Ignition.Pin)
	if err != nil {
		return fmt.Errorf("init pulse source: %w", err)
	}
	defer source.Close()

	driver, err := ignition.NewRealDriver(cfg.Cut.Pin)
	if err != nil {
		return fmt.Errorf("init ignition driver: %w", err)
	}
	defer driver.Close()

	store, err := config.NewStore(cfg.Limits)
	if err != nil {
		return fmt.Errorf("init limits: %w", err)
	}

	publisher := mqtt.NewRealPublisher(cfg.Daemon.Broker)
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		TickMs:      time.Duration(cfg.Daemon.Tick).Milliseconds(),
		HeartbeatMs: time.Duration(cfg.Daemon.Heartbeat).Milliseconds(),
		Broker:      cfg.Daemon.Broker,
		HTTPAddr:    cfg.Daemon.HTTPAddr,
	})
	tracker.SetLimits(store.Limits().Thresholds())

	d := &daemon{
		deb:            logic.NewDebouncer(time.Duration(cfg.Speed.DeadTime), time.Duration(cfg.Ignition.DeadTime)),
		est:            logic.NewEstimator(cfg.SpeedTuning(), cfg.RPMTuning()),
		engine:         logic.NewEngine(),
		store:          store,
		driver:         driver,
		publisher:      publisher,
		mqttStatus:     publisher,
		tracker:        tracker,
		tickDistanceMM: cfg.Speed.TickDistanceMM,
		heartbeat:      time.Duration(cfg.Daemon.Heartbeat),
	}

	if err := source.Start(d.handleEdge); err != nil {
		return fmt.Errorf("start pulse source: %w", err)
	}

	// The engine must be runnable before the first decision.
	if err := driver.Set(false); err != nil {
		return fmt.Errorf("deassert ignition cut: %w", err)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if cfg.Daemon.HTTPAddr != "" {
		srv := web.New(cfg.Daemon.HTTPAddr, tracker, store)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.Daemon.HTTPAddr)
	}

	log.Printf("started: tick=%v max_speed=%.1fkm/h max_rpm=%.0f broker=%s",
		time.Duration(cfg.Daemon.Tick), cfg.Limits.MaxSpeedKmh, cfg.Limits.MaxRPM, cfg.Daemon.Broker)

	ticker := time.NewTicker(time.Duration(cfg.Daemon.Tick))
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return d.runLoop(time.Now, ticker.C, sigCh)
}

// daemon wires the pulse pipeline to the decision cycle. The edge path
// (handleEdge, called from the source's delivery goroutines) only
// touches the debouncer and estimator; the decision cycle owns the
// engine, driver and tracker exclusively.
type daemon struct {
	deb            *logic.Debouncer
	est            *logic.Estimator
	engine         *logic.Engine
	store          *config.Store
	driver         ignition.Driver
	publisher      mqtt.Publisher
	mqttStatus     mqtt.ConnectionStatus
	tracker        *status.Tracker
	tickDistanceMM float64
	heartbeat      time.Duration

	lastHeartbeat time.Time
}

func (d *daemon) handleEdge(e pulse.Edge) {
	if d.deb.Accept(e.Channel, e.Time) {
		d.est.Ingest(e.Channel, e.Time)
	}
}

func (d *daemon) runLoop(now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	d.lastHeartbeat = now()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}

			// Never leave the cut asserted across an exit.
			if err := d.driver.Set(false); err != nil {
				log.Printf("deassert ignition cut: %v", err)
			}

			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if d.mqttStatus != nil {
				d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
			}
			snap := d.tracker.Snapshot()
			event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			if err := d.publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			speed := d.est.Reading(logic.ChannelSpeed, t)
			rpm := d.est.Reading(logic.ChannelIgnition, t)
			limits := d.store.Limits().Thresholds()

			prev := d.engine.State()
			st := d.engine.Decide(speed, rpm, limits)

			if st != prev {
				log.Printf("limiter %s reason=%s speed=%.1f(%v) rpm=%.0f(%v)",
					status.LimiterStateName(st), st.Reason, speed.Value, speed.Valid, rpm.Value, rpm.Valid)
				if err := d.driver.Set(st.Active); err != nil {
					log.Printf("ignition set error: %v", err)
				}
				transition := mqtt.Transition{Timestamp: t, State: st, Speed: speed, RPM: rpm}
				if err := d.publisher.PublishTransition(transition); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			d.updateTracker(speed, rpm, st)

			if d.heartbeat > 0 && t.Sub(d.lastHeartbeat) >= d.heartbeat {
				d.lastHeartbeat = t
				snap := d.tracker.Snapshot()
				hbEvent := mqtt.SystemEvent{
					Timestamp:  t,
					Event:      "HEARTBEAT",
					RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
				}
				if err := d.publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

func (d *daemon) updateTracker(speed, rpm logic.Reading, st logic.State) {
	speedCounts := d.deb.Counts(logic.ChannelSpeed)
	speedCounts.Degenerate = d.est.DegenerateCount(logic.ChannelSpeed)
	rpmCounts := d.deb.Counts(logic.ChannelIgnition)
	rpmCounts.Degenerate = d.est.DegenerateCount(logic.ChannelIgnition)
	cuts, releases := d.engine.Counts()

	d.tracker.Update(status.Update{
		Speed:          speed,
		RPM:            rpm,
		Limiter:        st,
		SpeedPulses:    speedCounts,
		RPMPulses:      rpmCounts,
		Cuts:           cuts,
		Releases:       releases,
		OdometerMeters: float64(speedCounts.Accepted) * d.tickDistanceMM / 1000,
	})
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}
