// Package config holds the startup configuration: the matrix wiring, the
// keymap, and the MIDI settings. Everything the scanning core consumes
// is decided here, at startup; nothing reconfigures at runtime.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clefware/pianomatrix/internal/matrix"
	"github.com/clefware/pianomatrix/internal/notes"
)

// PedalConfig configures one pedal input. The pin is an on-board pin
// index: pedals need edge interrupts, which the expanders are not wired
// to deliver.
type PedalConfig struct {
	Pin          int   `json:"pin"`
	Controller   uint8 `json:"controller"`
	OnValue      uint8 `json:"on_value"`
	OffValue     uint8 `json:"off_value"`
	NormallyOpen bool  `json:"normally_open"`
}

// Config is the full startup surface.
//
// Keymap cells are strings, indexed [column][row]:
//
//	"first:C4"      travel-start switch of key C4
//	"second:C4"     bottom-out switch of key C4
//	"fixed:C4:64"   single-switch key, velocity 64
//	""              unused cell
type Config struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	ExpanderAddresses []uint16 `json:"expander_addresses"`
	OnboardPins       int      `json:"onboard_pins"`
	DisableUnsafePins bool     `json:"disable_unsafe_pins"`

	ColumnPins []int      `json:"column_pins"`
	RowPins    []int      `json:"row_pins"`
	Keymap     [][]string `json:"keymap"`

	Channel         uint8  `json:"channel"`
	VelocityProfile string `json:"velocity_profile"`
	ScanPeriodMS    int    `json:"scan_period_ms"`
	QueueSize       int    `json:"queue_size"`

	Pedal *PedalConfig `json:"pedal,omitempty"`

	// MIDIPort selects the host bridge's output port by name
	// (substring match); empty picks the first port. Ignored on the
	// board build, which always writes to its own USB endpoint.
	MIDIPort string `json:"midi_port"`
}

// Default returns the three-key bench configuration: one strobed column,
// three fixed-velocity keys on an expander, sustain pedal on the first
// on-board pin.
func Default() *Config {
	return &Config{
		ID:                uuid.New().String(),
		Name:              "bench",
		ExpanderAddresses: []uint16{0x20, 0x27},
		OnboardPins:       12,
		DisableUnsafePins: true,
		ColumnPins:        []int{0},
		RowPins:           []int{1, 2, 3},
		Keymap: [][]string{
			{"fixed:C4:64", "fixed:D4:64", "fixed:E4:64"},
		},
		Channel:         0,
		VelocityProfile: "linear",
		QueueSize:       3,
		Pedal:           &PedalConfig{Pin: 0, NormallyOpen: true},
	}
}

// configDir returns the platform-appropriate config directory
func configDir() (string, error) {
	configHome, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configHome, "pianomatrix"), nil
}

// Path returns the default config file location.
func Path() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from path, or from the default location when
// path is empty. A missing file yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = Path()
		if err != nil {
			return nil, err
		}
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	return &cfg, nil
}

// Save writes the config to path, or to the default location when path
// is empty.
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = Path()
		if err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// TotalPins computes the size of the pin address space this config
// implies.
func (c *Config) TotalPins() int {
	per := 16
	if c.DisableUnsafePins {
		per = 14
	}
	return per*len(c.ExpanderAddresses) + c.OnboardPins
}

// ScanPeriod converts the configured period, zero meaning the scanner's
// default.
func (c *Config) ScanPeriod() time.Duration {
	return time.Duration(c.ScanPeriodMS) * time.Millisecond
}

// Validate checks everything that would otherwise surface as a fatal
// error mid-scan: a bad keymap is a wiring bug, best caught at startup.
func (c *Config) Validate() error {
	total := c.TotalPins()
	for _, p := range c.ColumnPins {
		if p < 0 || p >= total {
			return fmt.Errorf("config: column pin %d out of range (have %d)", p, total)
		}
	}
	for _, p := range c.RowPins {
		if p < 0 || p >= total {
			return fmt.Errorf("config: row pin %d out of range (have %d)", p, total)
		}
	}
	if c.Channel > 15 {
		return fmt.Errorf("config: MIDI channel %d out of range", c.Channel)
	}
	if _, err := matrix.ParseProfile(c.VelocityProfile); err != nil {
		return err
	}
	if c.Pedal != nil && (c.Pedal.Pin < 0 || c.Pedal.Pin >= c.OnboardPins) {
		return fmt.Errorf("config: pedal pin %d out of range (have %d on-board)", c.Pedal.Pin, c.OnboardPins)
	}
	if _, err := c.ParseKeymap(); err != nil {
		return err
	}
	return nil
}

// ParseKeymap converts the string keymap into scanner actions.
func (c *Config) ParseKeymap() ([][]matrix.KeyAction, error) {
	if len(c.Keymap) != len(c.ColumnPins) {
		return nil, fmt.Errorf("config: keymap has %d columns, want %d", len(c.Keymap), len(c.ColumnPins))
	}
	out := make([][]matrix.KeyAction, len(c.Keymap))
	for ci, col := range c.Keymap {
		if len(col) != len(c.RowPins) {
			return nil, fmt.Errorf("config: keymap column %d has %d rows, want %d", ci, len(col), len(c.RowPins))
		}
		out[ci] = make([]matrix.KeyAction, len(col))
		for ri, cell := range col {
			act, err := parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("config: keymap[%d][%d]: %w", ci, ri, err)
			}
			out[ci][ri] = act
		}
	}
	return out, nil
}

func parseCell(cell string) (matrix.KeyAction, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" || cell == "-" {
		return matrix.KeyAction{}, nil
	}
	parts := strings.Split(cell, ":")
	switch parts[0] {
	case "first", "second":
		if len(parts) != 2 {
			return matrix.KeyAction{}, fmt.Errorf("bad cell %q", cell)
		}
		n, err := notes.Parse(parts[1])
		if err != nil {
			return matrix.KeyAction{}, err
		}
		if parts[0] == "first" {
			return matrix.First(n), nil
		}
		return matrix.Second(n), nil
	case "fixed":
		if len(parts) != 3 {
			return matrix.KeyAction{}, fmt.Errorf("bad cell %q", cell)
		}
		n, err := notes.Parse(parts[1])
		if err != nil {
			return matrix.KeyAction{}, err
		}
		vel, err := strconv.Atoi(parts[2])
		if err != nil || vel < 1 || vel > 127 {
			return matrix.KeyAction{}, fmt.Errorf("bad velocity in %q", cell)
		}
		return matrix.Fixed(n, uint8(vel)), nil
	}
	return matrix.KeyAction{}, fmt.Errorf("bad cell %q", cell)
}
