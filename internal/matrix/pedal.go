package matrix

import (
	"context"
	"log/slog"

	"github.com/clefware/pianomatrix/internal/gpio"
	"github.com/clefware/pianomatrix/internal/midi"
)

// PedalConfig describes one pedal switch.
type PedalConfig struct {
	Pin gpio.EdgePin
	Out midi.Channel
	// Controller defaults to the sustain pedal (CC 64).
	Controller uint8
	// OnValue/OffValue are the controller values sent on press and
	// release. Both zero selects the usual 127/0.
	OnValue  uint8
	OffValue uint8
	// NormallyOpen is the common wiring: the line is pulled up and the
	// switch shorts it to ground, so pressed reads low. Set false for a
	// normally-closed pedal.
	NormallyOpen bool
}

// Pedal watches a single switch on a dedicated pin and reports it as a
// MIDI controller. Unlike the matrix there is nothing to strobe: the
// task just suspends until the line changes level.
type Pedal struct {
	pin          gpio.EdgePin
	out          midi.Channel
	controller   uint8
	onValue      uint8
	offValue     uint8
	normallyOpen bool
}

func NewPedal(cfg PedalConfig) *Pedal {
	p := &Pedal{
		pin:          cfg.Pin,
		out:          cfg.Out,
		controller:   cfg.Controller,
		onValue:      cfg.OnValue,
		offValue:     cfg.OffValue,
		normallyOpen: cfg.NormallyOpen,
	}
	if p.controller == 0 {
		p.controller = midi.SustainPedal
	}
	if p.onValue == 0 && p.offValue == 0 {
		p.onValue = 127
	}
	return p
}

// Monitor reports the pedal until ctx is done. Edges carry the debounce:
// there is no timing state here.
func (p *Pedal) Monitor(ctx context.Context) error {
	p.pin.SetMode(gpio.Input)
	p.pin.SetPull(gpio.PullUp)
	slog.Info("pedal monitor started", "controller", p.controller)

	last := p.pressed()
	for {
		if err := p.pin.WaitForChange(ctx); err != nil {
			return err
		}
		cur := p.pressed()
		if cur == last {
			continue
		}
		last = cur
		value := p.offValue
		if cur {
			value = p.onValue
		}
		slog.Debug("pedal", "controller", p.controller, "value", value)
		if err := p.out.Controller(ctx, p.controller, value); err != nil {
			return err
		}
	}
}

func (p *Pedal) pressed() bool {
	level := p.pin.Get()
	if p.normallyOpen {
		// pulled-up line reads low while the switch is closed
		return !level
	}
	return level
}
