// Package fabric merges the pins of I2C GPIO expanders and on-board GPIO
// into one flat address space with bulk read and write.
//
// Expander 0 occupies addresses 0-15 (port A low, port B high), expander
// 1 the next sixteen, and so on; the on-board pins follow. When the
// unsafe-pin policy is active (see Config.DisableUnsafePins) GPA7 and
// GPB7 of every expander are forced to outputs and removed from the
// address space, shrinking each expander's range to 14 and shifting
// every address above it down. Which physical pin an address lands on is
// not part of the contract; callers only rely on the mapping being
// stable and one-to-one.
package fabric

import (
	"errors"
	"fmt"
	"sync"

	"tinygo.org/x/drivers"

	"github.com/clefware/pianomatrix/internal/gpio"
	"github.com/clefware/pianomatrix/internal/mcp23017"
)

const (
	pinsPerExpander   = mcp23017.PinCount
	unsafePerExpander = 2 // GPA7 and GPB7 misbehave as inputs
	portA             = 0
	portB             = 8
)

var (
	// ErrInvalidPin means an address at or beyond the usable pin count.
	ErrInvalidPin = errors.New("fabric: invalid pin address")
	// ErrUnsupportedPull means pull-down was requested on an expander
	// pin; the MCP23017 only has pull-ups.
	ErrUnsupportedPull = errors.New("fabric: pull-down not supported on expander pins")
)

// Config describes the hardware behind a Fabric.
type Config struct {
	// Bus is the shared I2C bus all expanders sit on.
	Bus drivers.I2C
	// Addresses lists the expanders' 7-bit bus addresses, in address-space order.
	Addresses []uint16
	// Onboard lists the directly driven pins, addressed after all expander pins.
	Onboard []gpio.Pin
	// DisableUnsafePins excludes GPA7/GPB7 of every expander from the
	// address space and parks them as outputs.
	DisableUnsafePins bool
}

// Fabric is the flat pin address space. Methods are safe for concurrent
// use; the bus is held for one transaction at a time so independent
// scanners interleave at transaction granularity.
type Fabric struct {
	mu        sync.Mutex
	expanders []mcp23017.Device
	onboard   []gpio.Pin

	disableUnsafe  bool
	usablePerExp   int
	usableExtended int
	total          int
}

// New connects to every expander and builds the address space.
func New(cfg Config) (*Fabric, error) {
	f := &Fabric{
		onboard:       cfg.Onboard,
		disableUnsafe: cfg.DisableUnsafePins,
		usablePerExp:  pinsPerExpander,
	}
	for _, addr := range cfg.Addresses {
		dev := mcp23017.New(cfg.Bus, addr)
		if err := dev.Configure(); err != nil {
			return nil, fmt.Errorf("fabric: configure expander: %w", err)
		}
		f.expanders = append(f.expanders, dev)
	}
	if cfg.DisableUnsafePins {
		f.usablePerExp = pinsPerExpander - unsafePerExpander
		for i := range f.expanders {
			for _, pin := range []uint8{portA + 7, portB + 7} {
				if err := f.expanders[i].SetPinMode(pin, mcp23017.Output); err != nil {
					return nil, fmt.Errorf("fabric: park unsafe pin: %w", err)
				}
			}
		}
	}
	f.usableExtended = f.usablePerExp * len(f.expanders)
	f.total = f.usableExtended + len(f.onboard)
	return f, nil
}

// UsablePins is the size of the address space: every valid address is in
// [0, UsablePins).
func (f *Fabric) UsablePins() int { return f.total }

// SetInput configures the pin at addr as an input.
func (f *Fabric) SetInput(addr int) error {
	r, err := f.lookup(addr)
	if err != nil {
		return err
	}
	if r.onboard {
		f.onboard[r.index].SetMode(gpio.Input)
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.expanders[r.ext].SetPinMode(r.local, mcp23017.Input); err != nil {
		return fmt.Errorf("fabric: set input %d: %w", addr, err)
	}
	return nil
}

// SetOutput configures the pin at addr as an output.
func (f *Fabric) SetOutput(addr int) error {
	r, err := f.lookup(addr)
	if err != nil {
		return err
	}
	if r.onboard {
		f.onboard[r.index].SetMode(gpio.Output)
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.expanders[r.ext].SetPinMode(r.local, mcp23017.Output); err != nil {
		return fmt.Errorf("fabric: set output %d: %w", addr, err)
	}
	return nil
}

// SetPull configures the pull resistor of the pin at addr.
func (f *Fabric) SetPull(addr int, pull gpio.Pull) error {
	r, err := f.lookup(addr)
	if err != nil {
		return err
	}
	if r.onboard {
		f.onboard[r.index].SetPull(pull)
		return nil
	}
	if pull == gpio.PullDown {
		return fmt.Errorf("%w: address %d", ErrUnsupportedPull, addr)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.expanders[r.ext].SetPullup(r.local, pull == gpio.PullUp); err != nil {
		return fmt.Errorf("fabric: set pull %d: %w", addr, err)
	}
	return nil
}

// WriteAll sets every output pin from one value, bit i driving address i.
// One bus transaction per expander.
func (f *Fabric) WriteAll(val uint64) error {
	for i := range f.expanders {
		extVal := uint16(val >> (i * f.usablePerExp) & (1<<f.usablePerExp - 1))
		f.mu.Lock()
		err := f.expanders[i].WritePins(f.usableToRaw(extVal))
		f.mu.Unlock()
		if err != nil {
			return fmt.Errorf("fabric: write all: %w", err)
		}
	}
	for i, p := range f.onboard {
		p.Set(val>>(f.usableExtended+i)&1 != 0)
	}
	return nil
}

// ReadAll reads every pin into one value, address i at bit i.
func (f *Fabric) ReadAll() (uint64, error) {
	var ret uint64
	for i := range f.expanders {
		f.mu.Lock()
		raw, err := f.expanders[i].ReadPins()
		f.mu.Unlock()
		if err != nil {
			return 0, fmt.Errorf("fabric: read all: %w", err)
		}
		ret |= uint64(f.rawToUsable(raw)) << (i * f.usablePerExp)
	}
	for i, p := range f.onboard {
		if p.Get() {
			ret |= 1 << (f.usableExtended + i)
		}
	}
	return ret, nil
}
