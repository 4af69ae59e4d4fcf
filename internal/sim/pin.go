package sim

import (
	"context"

	"github.com/clefware/pianomatrix/internal/gpio"
)

// Pin is a simulated on-board GPIO line.
type Pin struct {
	w    *World
	id   PinID
	mode gpio.Mode
	pull gpio.Pull
	out  bool
	// external level forced onto the net, e.g. a pedal switch
	extSet bool
	ext    bool
	edge   chan struct{}
}

func (p *Pin) SetMode(m gpio.Mode) {
	p.w.mu.Lock()
	p.mode = m
	p.w.mu.Unlock()
}

func (p *Pin) SetPull(pull gpio.Pull) {
	p.w.mu.Lock()
	p.pull = pull
	p.w.mu.Unlock()
}

func (p *Pin) Set(high bool) {
	p.w.mu.Lock()
	p.out = high
	p.w.mu.Unlock()
}

func (p *Pin) Get() bool {
	p.w.mu.Lock()
	defer p.w.mu.Unlock()
	return p.level()
}

// level computes the observed line level. Caller holds w.mu.
func (p *Pin) level() bool {
	if p.mode == gpio.Output {
		return p.out
	}
	if p.extSet {
		return p.ext
	}
	if p.w.driveLow != nil && p.w.driveLow(p.id) {
		return false
	}
	return p.pull == gpio.PullUp
}

// SetExternalLevel forces the line to a level, as an attached switch
// would, and signals waiters if the observed level changed.
func (p *Pin) SetExternalLevel(high bool) {
	p.w.mu.Lock()
	before := p.level()
	p.extSet = true
	p.ext = high
	after := p.level()
	p.w.mu.Unlock()
	if before != after {
		select {
		case p.edge <- struct{}{}:
		default:
		}
	}
}

func (p *Pin) WaitForChange(ctx context.Context) error {
	select {
	case <-p.edge:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
