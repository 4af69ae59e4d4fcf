package matrix

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clefware/pianomatrix/internal/fabric"
	"github.com/clefware/pianomatrix/internal/gpio"
	"github.com/clefware/pianomatrix/internal/midi"
	"github.com/clefware/pianomatrix/internal/notes"
)

// DefaultScanPeriod is the pause between full matrix passes.
const DefaultScanPeriod = 10 * time.Millisecond

// ScannerConfig wires a Scanner to its hardware and keymap.
type ScannerConfig struct {
	Pins *fabric.Fabric
	// ColumnPins are the strobed (grounding) pin addresses, RowPins the
	// pulled-up inputs read back per strobe.
	ColumnPins []int
	RowPins    []int
	// Keymap is indexed [column][row].
	Keymap  [][]KeyAction
	Profile Profile
	Out     midi.Channel
	// Period between scan cycles; DefaultScanPeriod when zero.
	Period time.Duration
}

// Scanner drives the columns, samples the rows and runs the per-note
// state machine. One Scanner owns its matrix exclusively; it is not safe
// for concurrent use.
type Scanner struct {
	pins    *fabric.Fabric
	cols    []int
	rows    []int
	keymap  [][]KeyAction
	profile Profile
	out     midi.Channel
	period  time.Duration

	now func() time.Time

	// Per-note timing, directly indexed by note number. The zero time
	// means "not set". firstTouch is armed by a FirstContact closing;
	// sounding both suppresses duplicate note-ons and times the hold
	// for the release log line.
	firstTouch [128]time.Time
	sounding   [128]time.Time
}

// NewScanner validates the topology and builds a scanner.
func NewScanner(cfg ScannerConfig) (*Scanner, error) {
	if cfg.Pins == nil {
		return nil, fmt.Errorf("matrix: nil pin fabric")
	}
	if len(cfg.Keymap) != len(cfg.ColumnPins) {
		return nil, fmt.Errorf("matrix: keymap has %d columns, want %d", len(cfg.Keymap), len(cfg.ColumnPins))
	}
	for i, col := range cfg.Keymap {
		if len(col) != len(cfg.RowPins) {
			return nil, fmt.Errorf("matrix: keymap column %d has %d rows, want %d", i, len(col), len(cfg.RowPins))
		}
	}
	total := cfg.Pins.UsablePins()
	for _, p := range append(append([]int{}, cfg.ColumnPins...), cfg.RowPins...) {
		if p < 0 || p >= total {
			return nil, fmt.Errorf("%w: %d (have %d)", fabric.ErrInvalidPin, p, total)
		}
	}
	period := cfg.Period
	if period <= 0 {
		period = DefaultScanPeriod
	}
	return &Scanner{
		pins:    cfg.Pins,
		cols:    cfg.ColumnPins,
		rows:    cfg.RowPins,
		keymap:  cfg.Keymap,
		profile: cfg.Profile,
		out:     cfg.Out,
		period:  period,
		now:     time.Now,
	}, nil
}

// Scan runs the matrix until ctx is done or the bus fails. A bus error
// is fatal: a half-read column would corrupt the per-note state, so the
// error propagates for the process to halt on.
func (s *Scanner) Scan(ctx context.Context) error {
	for _, p := range s.cols {
		if err := s.setup(p); err != nil {
			return err
		}
	}
	for _, p := range s.rows {
		if err := s.setup(p); err != nil {
			return err
		}
	}
	slog.Info("matrix scanner started",
		"columns", len(s.cols), "rows", len(s.rows),
		"profile", s.profile.String(), "period", s.period)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	for {
		if err := s.cycle(ctx); err != nil {
			return err
		}
		// yield until the next tick so the pedal and transport tasks
		// are never starved
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// setup puts one matrix pin into its idle state: pulled-up input.
func (s *Scanner) setup(addr int) error {
	if err := s.pins.SetInput(addr); err != nil {
		return err
	}
	return s.pins.SetPull(addr, gpio.PullUp)
}

// cycle strobes every column once, in fixed order, and feeds each cell
// through the state machine. Event order within a cycle is therefore
// deterministic.
func (s *Scanner) cycle(ctx context.Context) error {
	for ci, col := range s.cols {
		if err := s.pins.SetOutput(col); err != nil {
			return fmt.Errorf("matrix: strobe column %d: %w", ci, err)
		}
		input, err := s.pins.ReadAll()
		if err != nil {
			return fmt.Errorf("matrix: read column %d: %w", ci, err)
		}
		if err := s.pins.SetInput(col); err != nil {
			return fmt.Errorf("matrix: release column %d: %w", ci, err)
		}
		// bits that differ from the idle pattern (everything high
		// except the sinking column) are logically active
		idle := (uint64(1)<<s.pins.UsablePins() - 1) ^ (uint64(1) << col)
		active := input ^ idle
		for ri, row := range s.rows {
			if err := s.applyCell(ctx, s.keymap[ci][ri], active&(uint64(1)<<row) != 0); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyCell advances one cell's note state machine.
//
// Release rule for two-switch keys: only the FirstContact cell decides.
// The note goes silent when the travel-start switch opens, regardless of
// the SecondContact state, so a key resting at the bottom of a slow
// release cannot retrigger.
func (s *Scanner) applyCell(ctx context.Context, act KeyAction, active bool) error {
	n := act.Note
	switch act.Kind {
	case FirstContact:
		if active {
			if s.firstTouch[n].IsZero() && s.sounding[n].IsZero() {
				s.firstTouch[n] = s.now()
			}
			return nil
		}
		if !s.sounding[n].IsZero() {
			held := s.now().Sub(s.sounding[n])
			s.firstTouch[n] = time.Time{}
			s.sounding[n] = time.Time{}
			slog.Debug("note released", "note", notes.Name(n), "held", held)
			return s.out.NoteOff(ctx, n, 0)
		}
		// incomplete press or bounce: disarm silently
		s.firstTouch[n] = time.Time{}

	case SecondContact:
		if active && !s.firstTouch[n].IsZero() && s.sounding[n].IsZero() {
			travel := s.now().Sub(s.firstTouch[n])
			vel := s.profile.Velocity(travel)
			s.firstTouch[n] = time.Time{}
			s.sounding[n] = s.now()
			slog.Debug("note struck", "note", notes.Name(n), "travel", travel, "velocity", vel)
			return s.out.NoteOn(ctx, n, vel)
		}

	case FixedVelocity:
		if active && s.sounding[n].IsZero() {
			s.sounding[n] = s.now()
			return s.out.NoteOn(ctx, n, act.Velocity)
		}
		if !active && !s.sounding[n].IsZero() {
			s.sounding[n] = time.Time{}
			return s.out.NoteOff(ctx, n, 0)
		}
	}
	return nil
}
