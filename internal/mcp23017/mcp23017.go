// Package mcp23017 provides a driver for the MCP23017 16-bit I2C GPIO
// expander.
//
// Datasheet: https://ww1.microchip.com/downloads/en/devicedoc/20001952c.pdf
package mcp23017

import (
	"fmt"

	"tinygo.org/x/drivers"
)

// PinMode is the direction of a single expander pin.
type PinMode uint8

const (
	Output PinMode = iota
	Input
)

// Device wraps an I2C connection to an MCP23017. Pins are numbered 0-15:
// GPA0-GPA7 are 0-7, GPB0-GPB7 are 8-15. In all 16-bit values port A is
// the low byte.
type Device struct {
	bus     drivers.I2C
	Address uint16
}

// New creates a new MCP23017 connection. The I2C bus must already be
// configured.
//
// This function only creates the Device object, it does not touch the
// device. Call Configure before using it.
func New(bus drivers.I2C, address uint16) Device {
	return Device{bus: bus, Address: address}
}

// readRegs reads len(buf) sequential registers starting at reg.
func (d *Device) readRegs(reg uint8, buf []byte) error {
	return d.bus.Tx(d.Address, []byte{reg}, buf)
}

// writeRegs writes the data bytes to sequential registers starting at
// reg, in one transaction.
func (d *Device) writeRegs(reg uint8, data ...byte) error {
	return d.bus.Tx(d.Address, append([]byte{reg}, data...), nil)
}

// Configure resets both ports to inputs with pull-ups off and verifies
// the chip responds on the bus.
func (d *Device) Configure() error {
	if err := d.writeRegs(IODIRA, 0xFF, 0xFF); err != nil {
		return fmt.Errorf("mcp23017 0x%02x: %w", d.Address, err)
	}
	if err := d.writeRegs(GPPUA, 0x00, 0x00); err != nil {
		return fmt.Errorf("mcp23017 0x%02x: %w", d.Address, err)
	}
	data := []byte{0}
	if err := d.readRegs(IODIRA, data); err != nil {
		return fmt.Errorf("mcp23017 0x%02x: %w", d.Address, err)
	}
	if data[0] != 0xFF {
		return fmt.Errorf("mcp23017 0x%02x: unexpected IODIRA readback 0x%02x", d.Address, data[0])
	}
	return nil
}

// SetPinMode sets the direction of one pin.
func (d *Device) SetPinMode(pin uint8, mode PinMode) error {
	set := mode == Input // IODIR bit set means input
	return d.updateBit(IODIRA, pin, set)
}

// SetPullup enables or disables the 100k pull-up on one pin. The chip has
// no pull-downs.
func (d *Device) SetPullup(pin uint8, enable bool) error {
	return d.updateBit(GPPUA, pin, enable)
}

// WritePins sets the output latches of both ports in one transaction.
func (d *Device) WritePins(value uint16) error {
	if err := d.writeRegs(OLATA, byte(value), byte(value>>8)); err != nil {
		return fmt.Errorf("mcp23017 0x%02x: write pins: %w", d.Address, err)
	}
	return nil
}

// ReadPins reads both ports in one transaction.
func (d *Device) ReadPins() (uint16, error) {
	buf := []byte{0, 0}
	if err := d.readRegs(GPIOA, buf); err != nil {
		return 0, fmt.Errorf("mcp23017 0x%02x: read pins: %w", d.Address, err)
	}
	return uint16(buf[0]) | uint16(buf[1])<<8, nil
}

// updateBit read-modify-writes one bit of a port register pair.
func (d *Device) updateBit(base uint8, pin uint8, set bool) error {
	if pin >= PinCount {
		return fmt.Errorf("mcp23017 0x%02x: no pin %d", d.Address, pin)
	}
	reg := base
	if pin >= 8 {
		reg++
		pin -= 8
	}
	buf := []byte{0}
	if err := d.readRegs(reg, buf); err != nil {
		return fmt.Errorf("mcp23017 0x%02x: read reg 0x%02x: %w", d.Address, reg, err)
	}
	if set {
		buf[0] |= 1 << pin
	} else {
		buf[0] &^= 1 << pin
	}
	if err := d.writeRegs(reg, buf[0]); err != nil {
		return fmt.Errorf("mcp23017 0x%02x: write reg 0x%02x: %w", d.Address, reg, err)
	}
	return nil
}
