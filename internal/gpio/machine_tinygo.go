//go:build tinygo

package gpio

import (
	"context"
	"machine"
)

// MachinePin adapts a machine.Pin to the Pin interface. The machine API
// folds the pull resistor into the pin mode, so the last requested pull
// is reapplied whenever the mode changes.
type MachinePin struct {
	pin  machine.Pin
	mode Mode
	pull Pull
	edge chan struct{}
}

func NewMachinePin(pin machine.Pin) *MachinePin {
	p := &MachinePin{pin: pin, edge: make(chan struct{}, 1)}
	p.pin.SetInterrupt(machine.PinToggle, func(machine.Pin) {
		select {
		case p.edge <- struct{}{}:
		default:
		}
	})
	return p
}

func (p *MachinePin) configure() {
	mode := machine.PinOutput
	if p.mode == Input {
		switch p.pull {
		case PullUp:
			mode = machine.PinInputPullup
		case PullDown:
			mode = machine.PinInputPulldown
		default:
			mode = machine.PinInput
		}
	}
	p.pin.Configure(machine.PinConfig{Mode: mode})
}

func (p *MachinePin) SetMode(m Mode) {
	p.mode = m
	p.configure()
}

func (p *MachinePin) SetPull(pull Pull) {
	p.pull = pull
	p.configure()
}

func (p *MachinePin) Set(high bool) { p.pin.Set(high) }

func (p *MachinePin) Get() bool { return p.pin.Get() }

func (p *MachinePin) WaitForChange(ctx context.Context) error {
	select {
	case <-p.edge:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
