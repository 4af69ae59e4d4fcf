package matrix

import (
	"fmt"
	"time"
)

// Profile converts the elapsed time between a key's first and second
// contact closing into a MIDI velocity.
type Profile uint8

const (
	// Linear falls off evenly with travel time.
	Linear Profile = iota
	// Heavy falls off slowly: high velocities stay reachable with a
	// heavier touch.
	Heavy
	// Light falls off steeply at short travel times and saturates
	// early.
	Light
)

// ParseProfile reads a profile name from configuration.
func ParseProfile(s string) (Profile, error) {
	switch s {
	case "", "linear":
		return Linear, nil
	case "heavy":
		return Heavy, nil
	case "light":
		return Light, nil
	}
	return Linear, fmt.Errorf("matrix: unknown velocity profile %q", s)
}

func (p Profile) String() string {
	switch p {
	case Heavy:
		return "heavy"
	case Light:
		return "light"
	}
	return "linear"
}

// Velocity maps a key-travel duration to a velocity in [1, 127], faster
// presses louder. The integer arithmetic is deliberately exact: players
// and downstream software are tuned against these curves, so the shapes
// must not drift between releases.
func (p Profile) Velocity(d time.Duration) uint8 {
	us := d.Microseconds()
	if us < 0 {
		us = 0
	}
	var v int64
	switch p {
	case Heavy:
		if us <= 17000 {
			v = (113000 - us) / 1000
		} else {
			v = (127000 - min(us, 190000)/2 - 22000) / 1000
		}
	case Light:
		if us <= 60000 {
			v = min(127, (135000-us*6/5)/1000)
		} else {
			v = 127 - min(us, 240000)/4000 - 60
		}
	default: // Linear
		v = (120900 - us) / 1000
		if v < 5 {
			v = 5
		}
	}
	if v < 1 {
		v = 1
	}
	if v > 127 {
		v = 127
	}
	return uint8(v)
}
