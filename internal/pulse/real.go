//go:build linux

package pulse

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/ikke-t/mopo/internal/logic"
)

// RealSource reads edges from actual hardware using Linux GPIO
// character device edge-event requests.
type RealSource struct {
	chip        *gpiocdev.Chip
	speedLine   *gpiocdev.Line
	sparkLine   *gpiocdev.Line
	pinSpeed    int
	pinIgnition int
}

// NewRealSource opens the GPIO chip for the given pins. Edge delivery
// does not begin until Start is called.
func NewRealSource(pinSpeed, pinIgnition int) (*RealSource, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &RealSource{
		chip:        chip,
		pinSpeed:    pinSpeed,
		pinIgnition: pinIgnition,
	}, nil
}

// Start requests both lines with edge-event handlers. The hall sensor
// pulls the line low on each magnet pass (falling edge, pull-up); the
// spark pickup produces a rising edge per ignition pulse.
func (s *RealSource) Start(handler func(Edge)) error {
	speedLine, err := s.chip.RequestLine(s.pinSpeed,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(eventAdapter(logic.ChannelSpeed, handler)))
	if err != nil {
		return fmt.Errorf("request speed pin %d: %w", s.pinSpeed, err)
	}
	s.speedLine = speedLine

	sparkLine, err := s.chip.RequestLine(s.pinIgnition,
		gpiocdev.WithPullDown,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(eventAdapter(logic.ChannelIgnition, handler)))
	if err != nil {
		speedLine.Close()
		s.speedLine = nil
		return fmt.Errorf("request ignition pin %d: %w", s.pinIgnition, err)
	}
	s.sparkLine = sparkLine

	return nil
}

func eventAdapter(ch logic.Channel, handler func(Edge)) func(gpiocdev.LineEvent) {
	return func(evt gpiocdev.LineEvent) {
		handler(Edge{
			Channel: ch,
			Time:    time.Now(),
			Rising:  evt.Type == gpiocdev.LineEventRisingEdge,
		})
	}
}

// Close releases GPIO resources. Pins are reconfigured to input with
// pull-down (matching Pi boot defaults) before closing so external
// sensor modules cannot hold them in unexpected states across a reboot.
func (s *RealSource) Close() error {
	var errs []error

	for _, l := range []struct {
		name string
		line *gpiocdev.Line
	}{
		{"speed", s.speedLine},
		{"ignition", s.sparkLine},
	} {
		if l.line == nil {
			continue
		}
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", l.name, err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", l.name, err))
		}
	}
	if s.chip != nil {
		if err := s.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
