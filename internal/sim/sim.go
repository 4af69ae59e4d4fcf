// Package sim is a register-level model of the controller's hardware: any
// number of MCP23017 expanders on one I2C bus plus a set of on-board
// pins. It backs the test suite and the host bridge's -sim mode.
package sim

import (
	"fmt"
	"sync"

	"github.com/clefware/pianomatrix/internal/gpio"
	"github.com/clefware/pianomatrix/internal/mcp23017"
)

// PinID names one physical pin in the simulated world. Chip is the I2C
// address of the expander the pin lives on, or 0 for an on-board pin.
type PinID struct {
	Chip uint16
	Pin  uint8
}

// World holds the shared electrical state. All public methods are safe
// for concurrent use.
type World struct {
	mu       sync.Mutex
	chips    map[uint16]*chip
	pins     []*Pin
	driveLow func(PinID) bool
	failNext error
}

// NewWorld creates a world with one expander per address and the given
// number of on-board pins.
func NewWorld(addrs []uint16, onboardPins int) *World {
	w := &World{chips: make(map[uint16]*chip)}
	for _, a := range addrs {
		w.chips[a] = &chip{iodir: 0xFFFF} // power-on state: all inputs
	}
	for i := 0; i < onboardPins; i++ {
		w.pins = append(w.pins, &Pin{w: w, id: PinID{Chip: 0, Pin: uint8(i)}, edge: make(chan struct{}, 1)})
	}
	return w
}

// Bus returns the world's I2C bus.
func (w *World) Bus() *Bus { return &Bus{w: w} }

// OnboardPins returns the on-board pins as the fabric expects them.
func (w *World) OnboardPins() []gpio.Pin {
	out := make([]gpio.Pin, len(w.pins))
	for i, p := range w.pins {
		out[i] = p
	}
	return out
}

// Pin returns on-board pin i.
func (w *World) Pin(i int) *Pin { return w.pins[i] }

// FailNext makes the next bus transaction fail with err.
func (w *World) FailNext(err error) {
	w.mu.Lock()
	w.failNext = err
	w.mu.Unlock()
}

// SetDrive installs the function deciding whether an input net is
// externally pulled low. The harness uses this to model key switches.
func (w *World) SetDrive(fn func(PinID) bool) {
	w.mu.Lock()
	w.driveLow = fn
	w.mu.Unlock()
}

// sinking reports whether a pin is an output currently driving low.
// Caller holds w.mu.
func (w *World) sinking(id PinID) bool {
	if id.Chip == 0 {
		p := w.pins[id.Pin]
		return p.mode == gpio.Output && !p.out
	}
	c, ok := w.chips[id.Chip]
	if !ok {
		return false
	}
	bit := uint16(1) << id.Pin
	return c.iodir&bit == 0 && c.olat&bit == 0
}

// chip models one MCP23017. A set iodir bit means input, matching the
// hardware.
type chip struct {
	iodir uint16
	gppu  uint16
	olat  uint16
}

// readReg computes one register byte. Caller holds w.mu.
func (w *World) readReg(addr uint16, reg uint8) (byte, error) {
	c, ok := w.chips[addr]
	if !ok {
		return 0, fmt.Errorf("sim: no device at 0x%02x", addr)
	}
	switch reg {
	case mcp23017.IODIRA:
		return byte(c.iodir), nil
	case mcp23017.IODIRB:
		return byte(c.iodir >> 8), nil
	case mcp23017.GPPUA:
		return byte(c.gppu), nil
	case mcp23017.GPPUB:
		return byte(c.gppu >> 8), nil
	case mcp23017.OLATA:
		return byte(c.olat), nil
	case mcp23017.OLATB:
		return byte(c.olat >> 8), nil
	case mcp23017.GPIOA:
		return byte(w.gpioLevels(addr, c)), nil
	case mcp23017.GPIOB:
		return byte(w.gpioLevels(addr, c) >> 8), nil
	}
	return 0, nil
}

// writeReg stores one register byte. Caller holds w.mu.
func (w *World) writeReg(addr uint16, reg uint8, val byte) error {
	c, ok := w.chips[addr]
	if !ok {
		return fmt.Errorf("sim: no device at 0x%02x", addr)
	}
	set := func(dst *uint16, shift uint) { *dst = *dst&^(0xFF<<shift) | uint16(val)<<shift }
	switch reg {
	case mcp23017.IODIRA:
		set(&c.iodir, 0)
	case mcp23017.IODIRB:
		set(&c.iodir, 8)
	case mcp23017.GPPUA:
		set(&c.gppu, 0)
	case mcp23017.GPPUB:
		set(&c.gppu, 8)
	// writing GPIO writes the output latch, per the datasheet
	case mcp23017.GPIOA, mcp23017.OLATA:
		set(&c.olat, 0)
	case mcp23017.GPIOB, mcp23017.OLATB:
		set(&c.olat, 8)
	}
	return nil
}

// gpioLevels computes the 16 observed pin levels of one chip. Outputs
// read back their latch; inputs read the pull-up unless the net is
// externally pulled low. Caller holds w.mu.
func (w *World) gpioLevels(addr uint16, c *chip) uint16 {
	var v uint16
	for pin := uint8(0); pin < mcp23017.PinCount; pin++ {
		bit := uint16(1) << pin
		if c.iodir&bit == 0 {
			v |= c.olat & bit
			continue
		}
		if w.driveLow != nil && w.driveLow(PinID{Chip: addr, Pin: pin}) {
			continue
		}
		if c.gppu&bit != 0 {
			v |= bit
		}
	}
	return v
}
