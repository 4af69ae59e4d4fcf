package fabric

import (
	"errors"
	"testing"

	"github.com/clefware/pianomatrix/internal/gpio"
	"github.com/clefware/pianomatrix/internal/mcp23017"
)

// bare builds a Fabric with no live hardware behind it, for exercising
// the address arithmetic alone.
func bare(expanders, onboard int, disableUnsafe bool) *Fabric {
	f := &Fabric{
		expanders:     make([]mcp23017.Device, expanders),
		onboard:       make([]gpio.Pin, onboard),
		disableUnsafe: disableUnsafe,
		usablePerExp:  pinsPerExpander,
	}
	if disableUnsafe {
		f.usablePerExp = pinsPerExpander - unsafePerExpander
	}
	f.usableExtended = f.usablePerExp * expanders
	f.total = f.usableExtended + onboard
	return f
}

func TestAddrToPinIdentityWithoutPolicy(t *testing.T) {
	f := bare(2, 12, false)
	if f.total != 44 {
		t.Fatalf("total = %d, want 44", f.total)
	}
	for addr := 0; addr < f.total; addr++ {
		if got := f.addrToPin(addr); got != addr {
			t.Fatalf("addrToPin(%d) = %d, want identity", addr, got)
		}
	}
}

func TestAddrToPinSkipsUnsafePins(t *testing.T) {
	f := bare(2, 12, true)
	if f.total != 40 {
		t.Fatalf("total = %d, want 40", f.total)
	}
	seen := map[int]bool{}
	prev := -1
	for addr := 0; addr < f.total; addr++ {
		pin := f.addrToPin(addr)
		if seen[pin] {
			t.Fatalf("addrToPin(%d) = %d already used", addr, pin)
		}
		seen[pin] = true
		if pin <= prev {
			t.Fatalf("addrToPin not increasing at %d: %d after %d", addr, pin, prev)
		}
		prev = pin
		if pin < pinsPerExpander*2 {
			if m := pin % pinsPerExpander; m == portA+7 || m == portB+7 {
				t.Fatalf("addrToPin(%d) = %d lands on an excluded pin", addr, pin)
			}
		}
	}
	// the last expander address reaches the top of chip 1, the
	// first on-board address follows immediately after it
	if got := f.addrToPin(f.usableExtended - 1); got != 30 {
		t.Fatalf("addrToPin(%d) = %d, want 30", f.usableExtended-1, got)
	}
	if got := f.addrToPin(f.usableExtended); got != 32 {
		t.Fatalf("addrToPin(%d) = %d, want 32", f.usableExtended, got)
	}
}

func TestPinToAddrInverse(t *testing.T) {
	for _, disable := range []bool{false, true} {
		f := bare(2, 12, disable)
		for addr := 0; addr < f.total; addr++ {
			pin := f.addrToPin(addr)
			if back := f.pinToAddr(pin); back != addr {
				t.Fatalf("disable=%v: pinToAddr(addrToPin(%d)) = %d", disable, addr, back)
			}
		}
	}
}

func TestPinToAddrExcluded(t *testing.T) {
	f := bare(2, 0, true)
	for _, pin := range []int{7, 15, 23, 31} {
		if got := f.pinToAddr(pin); got != -1 {
			t.Fatalf("pinToAddr(%d) = %d, want -1", pin, got)
		}
	}
}

func TestUsableRawRoundTrip(t *testing.T) {
	f := bare(1, 0, true)
	for v := uint16(0); v < 1<<14; v++ {
		raw := f.usableToRaw(v)
		if raw&(1<<7) != 0 || raw&(1<<15) != 0 {
			t.Fatalf("usableToRaw(%#04x) = %#04x sets an unsafe bit", v, raw)
		}
		if back := f.rawToUsable(raw); back != v {
			t.Fatalf("rawToUsable(usableToRaw(%#04x)) = %#04x", v, back)
		}
	}
}

func TestLookupRejectsOutOfRange(t *testing.T) {
	f := bare(2, 12, true)
	for _, addr := range []int{-1, f.total, f.total + 5} {
		if _, err := f.lookup(addr); !errors.Is(err, ErrInvalidPin) {
			t.Fatalf("lookup(%d): %v, want ErrInvalidPin", addr, err)
		}
	}
}

func TestLocate(t *testing.T) {
	f := bare(2, 12, true)

	loc, err := f.Locate(0)
	if err != nil {
		t.Fatalf("Locate(0): %v", err)
	}
	if loc.Onboard || loc.Expander != 0 || loc.Pin != 0 {
		t.Fatalf("Locate(0) = %+v", loc)
	}

	// address 7 is the first pin after excluded GPA7
	loc, err = f.Locate(7)
	if err != nil {
		t.Fatalf("Locate(7): %v", err)
	}
	if loc.Onboard || loc.Expander != 0 || loc.Pin != 8 {
		t.Fatalf("Locate(7) = %+v", loc)
	}

	// first address on the second expander
	loc, err = f.Locate(14)
	if err != nil {
		t.Fatalf("Locate(14): %v", err)
	}
	if loc.Onboard || loc.Expander != 1 || loc.Pin != 0 {
		t.Fatalf("Locate(14) = %+v", loc)
	}

	// first on-board address
	loc, err = f.Locate(28)
	if err != nil {
		t.Fatalf("Locate(28): %v", err)
	}
	if !loc.Onboard || loc.Index != 0 {
		t.Fatalf("Locate(28) = %+v", loc)
	}
}
