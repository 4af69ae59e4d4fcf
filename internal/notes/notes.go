// Package notes names MIDI note numbers for the 88-key piano range and
// parses the note names used in keymap configuration.
package notes

import (
	"fmt"
	"strconv"
	"strings"
)

// Note numbers A0 through C8, the 88 keys of a full piano. The "S"
// suffix is a sharp: AS0 is A#0.
const (
	A0 uint8 = iota + 21
	AS0
	B0
	C1
	CS1
	D1
	DS1
	E1
	F1
	FS1
	G1
	GS1
	A1
	AS1
	B1
	C2
	CS2
	D2
	DS2
	E2
	F2
	FS2
	G2
	GS2
	A2
	AS2
	B2
	C3
	CS3
	D3
	DS3
	E3
	F3
	FS3
	G3
	GS3
	A3
	AS3
	B3
	C4
	CS4
	D4
	DS4
	E4
	F4
	FS4
	G4
	GS4
	A4
	AS4
	B4
	C5
	CS5
	D5
	DS5
	E5
	F5
	FS5
	G5
	GS5
	A5
	AS5
	B5
	C6
	CS6
	D6
	DS6
	E6
	F6
	FS6
	G6
	GS6
	A6
	AS6
	B6
	C7
	CS7
	D7
	DS7
	E7
	F7
	FS7
	G7
	GS7
	A7
	AS7
	B7
	C8
)

var names = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Name formats a note number, e.g. 60 -> "C4".
func Name(n uint8) string {
	return fmt.Sprintf("%s%d", names[n%12], int(n)/12-1)
}

// Parse reads a note name like "C4", "C#4" or "CS4" (octaves -1 through
// 9) into its MIDI number.
func Parse(s string) (uint8, error) {
	orig := s
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("notes: empty note name")
	}
	idx := strings.IndexByte("CDEFGAB", s[0])
	if idx < 0 {
		return 0, fmt.Errorf("notes: bad note name %q", orig)
	}
	semitone := [7]int{0, 2, 4, 5, 7, 9, 11}[idx]
	s = s[1:]
	if strings.HasPrefix(s, "#") || strings.HasPrefix(s, "S") {
		semitone++
		s = s[1:]
	}
	octave, err := strconv.Atoi(s)
	if err != nil || octave < -1 || octave > 9 {
		return 0, fmt.Errorf("notes: bad octave in %q", orig)
	}
	n := (octave+1)*12 + semitone
	if n < 0 || n > 127 {
		return 0, fmt.Errorf("notes: %q is outside the MIDI range", orig)
	}
	return uint8(n), nil
}
