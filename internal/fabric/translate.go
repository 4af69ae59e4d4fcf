package fabric

import "fmt"

// resolved locates a physical pin: either an index into the on-board
// slice or an (expander, local pin) pair.
type resolved struct {
	onboard bool
	index   int
	ext     int
	local   uint8
}

// lookup validates a logical address and resolves it to hardware.
func (f *Fabric) lookup(addr int) (resolved, error) {
	if addr < 0 || addr >= f.total {
		return resolved{}, fmt.Errorf("%w: %d (have %d)", ErrInvalidPin, addr, f.total)
	}
	return f.resolve(f.addrToPin(addr)), nil
}

// addrToPin maps a logical address to a physical pin number, skipping the
// excluded unsafe pins. With the policy off this is the identity.
//
// Physical numbering: expander pins first (16 per chip, port A then port
// B), on-board pins after.
func (f *Fabric) addrToPin(addr int) int {
	if !f.disableUnsafe {
		return addr
	}
	if addr >= f.usableExtended {
		// on-board range: shifted up by every excluded pin below it
		return addr + unsafePerExpander*len(f.expanders)
	}
	div := addr / f.usablePerExp
	m := addr % f.usablePerExp
	offset := 0
	if m >= portA+7 {
		// addresses at or past GPA7 skip over it
		offset = 1
	}
	// GPB7 is the last pin of the chip, the div/mod already skips it
	return div*pinsPerExpander + m + offset
}

// pinToAddr is the inverse of addrToPin. Excluded pins map to -1.
func (f *Fabric) pinToAddr(pin int) int {
	if !f.disableUnsafe {
		return pin
	}
	if pin >= pinsPerExpander*len(f.expanders) {
		return pin - unsafePerExpander*len(f.expanders)
	}
	div := pin / pinsPerExpander
	m := pin % pinsPerExpander
	if m == portA+7 || m == portB+7 {
		return -1
	}
	if m > portA+7 {
		m--
	}
	return div*f.usablePerExp + m
}

// Location describes the physical pin behind a logical address. Wiring
// code (the simulated harness, diagnostics) uses it; the scan path
// resolves addresses internally.
type Location struct {
	Onboard  bool
	Index    int   // on-board pin index, when Onboard
	Expander int   // expander index, otherwise
	Pin      uint8 // expander-local pin 0-15, otherwise
}

// Locate resolves a logical address to its physical pin.
func (f *Fabric) Locate(addr int) (Location, error) {
	r, err := f.lookup(addr)
	if err != nil {
		return Location{}, err
	}
	return Location{Onboard: r.onboard, Index: r.index, Expander: r.ext, Pin: r.local}, nil
}

// resolve splits a physical pin number into its backing hardware.
func (f *Fabric) resolve(pin int) resolved {
	nExtended := pinsPerExpander * len(f.expanders)
	if pin < nExtended {
		return resolved{
			ext:   pin / pinsPerExpander,
			local: uint8(pin % pinsPerExpander),
		}
	}
	return resolved{onboard: true, index: pin - nExtended}
}

// rawToUsable compacts a raw 16-bit expander read into the usable bit
// positions: GPA0-6 land in bits 0-6 and GPB0-6 in bits 7-13.
func (f *Fabric) rawToUsable(val uint16) uint16 {
	if !f.disableUnsafe {
		return val
	}
	return (val & 0x7F) | ((val >> 8 & 0x7F) << 7)
}

// usableToRaw is the inverse of rawToUsable: it spreads a 14-bit usable
// value back over the two ports, leaving the unsafe bits clear.
func (f *Fabric) usableToRaw(val uint16) uint16 {
	if !f.disableUnsafe {
		return val
	}
	return (val & 0x7F) | ((val >> 7 & 0x7F) << 8)
}
