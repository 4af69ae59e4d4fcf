// Package gpio defines the pin abstraction the rest of the firmware is
// written against. On real hardware the implementations wrap machine.Pin;
// on the host the sim package provides in-memory pins.
package gpio

import "context"

// Mode is a pin's direction.
type Mode int

const (
	Input Mode = iota
	Output
)

// Pull selects the pin's internal resistor.
type Pull int

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Pin is a single on-board GPIO line.
type Pin interface {
	SetMode(Mode)
	SetPull(Pull)
	// Set drives the output level. Only meaningful in Output mode.
	Set(high bool)
	// Get reads the current level. In Output mode this is the driven level.
	Get() bool
}

// EdgePin is a Pin that can suspend the caller until the line changes
// level. Used by the pedal monitor, which waits on edges instead of
// polling.
type EdgePin interface {
	Pin
	// WaitForChange blocks until the pin's level changes or ctx is done.
	WaitForChange(ctx context.Context) error
}
