//go:build tinygo

package midi

import (
	"context"

	usbmidi "machine/usb/adc/midi"
)

// USBPort writes packets straight to the board's USB-MIDI endpoint.
type USBPort struct {
	port interface{ Write([]byte) (int, error) }
}

func NewUSBPort() *USBPort {
	return &USBPort{port: usbmidi.Port()}
}

// Connect is immediate: the endpoint exists as soon as USB is up, and
// the stack buffers while the host is away.
func (u *USBPort) Connect(ctx context.Context) error {
	return ctx.Err()
}

func (u *USBPort) Write(packet [4]byte) error {
	if _, err := u.port.Write(packet[:]); err != nil {
		return ErrDisconnected
	}
	return nil
}
