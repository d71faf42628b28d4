//go:build linux

package ignition

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealDriver drives the cut pin on actual hardware using Linux GPIO
// character device.
type RealDriver struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealDriver requests the cut pin as output, deasserted. The engine
// must be allowed to run until the decision cycle says otherwise.
func NewRealDriver(pin int) (*RealDriver, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request cut pin %d: %w", pin, err)
	}

	return &RealDriver{chip: chip, line: line}, nil
}

// Set asserts or deasserts the ignition-cut signal.
func (d *RealDriver) Set(cut bool) error {
	v := 0
	if cut {
		v = 1
	}
	if err := d.line.SetValue(v); err != nil {
		return fmt.Errorf("set cut pin: %w", err)
	}
	return nil
}

// Close deasserts the signal, restores the pin to input with pull-down
// (Pi boot default) and releases GPIO resources. A process exit must
// never leave the ignition cut.
func (d *RealDriver) Close() error {
	var errs []error

	if d.line != nil {
		if err := d.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("deassert cut pin: %w", err))
		}
		if err := d.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure cut pin: %w", err))
		}
		if err := d.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cut pin: %w", err))
		}
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
