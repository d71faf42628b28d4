// Package ignition drives the ignition-cut output with hardware
// abstraction. The core only hands a binary cut/allow decision to the
// driver; the electrical cut mechanism lives behind this interface.
package ignition

// Driver sets the ignition-cut output.
type Driver interface {
	// Set asserts (cut=true) or deasserts the ignition-cut signal.
	Set(cut bool) error

	// Close deasserts the signal and releases GPIO resources.
	Close() error
}

// DefaultPin is the BCM pin wired to the kill-switch transistor.
const DefaultPin = 15
