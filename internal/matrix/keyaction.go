// Package matrix scans the key switch matrix and the pedal switches and
// turns their transitions into MIDI events.
package matrix

// ActionKind says how one (column, row) switch cell contributes to note
// generation.
type ActionKind uint8

const (
	// NoAction: the cell is not wired to a key.
	NoAction ActionKind = iota
	// FirstContact is the switch that closes at the start of key
	// travel. It arms the velocity timer and emits nothing by itself.
	FirstContact
	// SecondContact is the switch that closes when the key bottoms
	// out. Velocity comes from the time since the paired FirstContact.
	SecondContact
	// FixedVelocity is a single-switch key that sounds immediately at a
	// preset velocity. Do not mix with velocity-sensing actions for the
	// same note.
	FixedVelocity
)

// KeyAction is one cell of the keymap.
type KeyAction struct {
	Kind     ActionKind
	Note     uint8
	Velocity uint8 // FixedVelocity only
}

// First marks a cell as a key's travel-start switch.
func First(note uint8) KeyAction { return KeyAction{Kind: FirstContact, Note: note} }

// Second marks a cell as a key's bottom-out switch.
func Second(note uint8) KeyAction { return KeyAction{Kind: SecondContact, Note: note} }

// Fixed marks a cell as a single-switch key with a preset velocity.
func Fixed(note, velocity uint8) KeyAction {
	return KeyAction{Kind: FixedVelocity, Note: note, Velocity: velocity}
}
