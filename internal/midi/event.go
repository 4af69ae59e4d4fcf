// Package midi carries note and controller events from the scanning
// tasks to the USB transport through a small bounded queue.
package midi

import "fmt"

const (
	statusNoteOff       = 0x80
	statusNoteOn        = 0x90
	statusControlChange = 0xB0
)

// Controller numbers this firmware emits.
const (
	SustainPedal uint8 = 64
)

// Event is one outbound MIDI message. Only note on/off and control
// change are ever produced. The zero Event is not valid; use the
// constructors.
type Event struct {
	status uint8 // status byte including the channel nibble
	data1  uint8
	data2  uint8
}

// NoteOn builds a Note On event. The channel is masked to 4 bits, data
// bytes to 7.
func NoteOn(channel, note, velocity uint8) Event {
	return Event{status: statusNoteOn | channel&0x0F, data1: note & 0x7F, data2: velocity & 0x7F}
}

// NoteOff builds a Note Off event.
func NoteOff(channel, note, velocity uint8) Event {
	return Event{status: statusNoteOff | channel&0x0F, data1: note & 0x7F, data2: velocity & 0x7F}
}

// ControlChange builds a controller event.
func ControlChange(channel, controller, value uint8) Event {
	return Event{status: statusControlChange | channel&0x0F, data1: controller & 0x7F, data2: value & 0x7F}
}

// Packet serializes the event as a 4-byte USB-MIDI event packet on the
// given virtual cable. For channel voice messages the code index nibble
// equals the status high nibble.
func (e Event) Packet(cable uint8) [4]byte {
	return [4]byte{cable<<4 | e.status>>4, e.status, e.data1, e.data2}
}

// Channel returns the MIDI channel (0-15).
func (e Event) Channel() uint8 { return e.status & 0x0F }

func (e Event) String() string {
	switch e.status & 0xF0 {
	case statusNoteOn:
		return fmt.Sprintf("note on ch=%d note=%d vel=%d", e.Channel(), e.data1, e.data2)
	case statusNoteOff:
		return fmt.Sprintf("note off ch=%d note=%d vel=%d", e.Channel(), e.data1, e.data2)
	case statusControlChange:
		return fmt.Sprintf("control ch=%d cc=%d val=%d", e.Channel(), e.data1, e.data2)
	}
	return fmt.Sprintf("midi %02x %02x %02x", e.status, e.data1, e.data2)
}
