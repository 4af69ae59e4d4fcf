package mcp23017_test

import (
	"testing"

	"tinygo.org/x/drivers"

	"github.com/clefware/pianomatrix/internal/mcp23017"
	"github.com/clefware/pianomatrix/internal/sim"
)

// The simulated bus must satisfy the same interface the board's
// machine.I2C does, so the driver stays written against drivers.I2C as
// the dependency ships it.
var _ drivers.I2C = (*sim.Bus)(nil)

func newDevice(t *testing.T) (mcp23017.Device, *sim.World) {
	t.Helper()
	w := sim.NewWorld([]uint16{0x20}, 0)
	d := mcp23017.New(w.Bus(), 0x20)
	if err := d.Configure(); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	return d, w
}

func TestConfigureAbsentDevice(t *testing.T) {
	w := sim.NewWorld([]uint16{0x20}, 0)
	d := mcp23017.New(w.Bus(), 0x23)
	if err := d.Configure(); err == nil {
		t.Fatal("Configure: expected error for absent device")
	}
}

func TestOutputLatchRoundTrip(t *testing.T) {
	d, _ := newDevice(t)
	for pin := uint8(0); pin < mcp23017.PinCount; pin++ {
		if err := d.SetPinMode(pin, mcp23017.Output); err != nil {
			t.Fatalf("SetPinMode(%d): %v", pin, err)
		}
	}
	for _, v := range []uint16{0x0000, 0xFFFF, 0x00FF, 0xFF00, 0xA5C3} {
		if err := d.WritePins(v); err != nil {
			t.Fatalf("WritePins(%#04x): %v", v, err)
		}
		got, err := d.ReadPins()
		if err != nil {
			t.Fatalf("ReadPins: %v", err)
		}
		if got != v {
			t.Fatalf("ReadPins = %#04x, want %#04x", got, v)
		}
	}
}

// Pin numbers 8-15 land in the port B registers. Drive only GPB3 low and
// verify it does not disturb port A.
func TestPortBAddressing(t *testing.T) {
	d, _ := newDevice(t)
	for pin := uint8(0); pin < mcp23017.PinCount; pin++ {
		var err error
		if pin == 11 {
			err = d.SetPinMode(pin, mcp23017.Output)
		} else {
			err = d.SetPullup(pin, true)
		}
		if err != nil {
			t.Fatalf("pin %d: %v", pin, err)
		}
	}
	if err := d.WritePins(0); err != nil {
		t.Fatalf("WritePins: %v", err)
	}
	got, err := d.ReadPins()
	if err != nil {
		t.Fatalf("ReadPins: %v", err)
	}
	// every pulled-up input reads high, the low output GPB3 reads low
	if want := uint16(0xFFFF &^ (1 << 11)); got != want {
		t.Fatalf("ReadPins = %#04x, want %#04x", got, want)
	}
}

func TestPullupsReadBack(t *testing.T) {
	d, _ := newDevice(t)
	// after Configure everything is a floating input and reads low
	got, err := d.ReadPins()
	if err != nil {
		t.Fatalf("ReadPins: %v", err)
	}
	if got != 0 {
		t.Fatalf("ReadPins after Configure = %#04x, want 0", got)
	}
	if err := d.SetPullup(5, true); err != nil {
		t.Fatalf("SetPullup: %v", err)
	}
	got, err = d.ReadPins()
	if err != nil {
		t.Fatalf("ReadPins: %v", err)
	}
	if got != 1<<5 {
		t.Fatalf("ReadPins = %#04x, want %#04x", got, 1<<5)
	}
}

func TestInvalidPin(t *testing.T) {
	d, _ := newDevice(t)
	if err := d.SetPinMode(16, mcp23017.Output); err == nil {
		t.Fatal("SetPinMode(16): expected error")
	}
	if err := d.SetPullup(200, true); err == nil {
		t.Fatal("SetPullup(200): expected error")
	}
}
