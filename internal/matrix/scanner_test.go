package matrix

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clefware/pianomatrix/internal/fabric"
	"github.com/clefware/pianomatrix/internal/gpio"
	"github.com/clefware/pianomatrix/internal/midi"
	"github.com/clefware/pianomatrix/internal/notes"
	"github.com/clefware/pianomatrix/internal/sim"
)

// bench is a one-column, three-row matrix on four on-board pins with a
// hand-cranked clock, driven cycle by cycle.
type bench struct {
	t       *testing.T
	scanner *Scanner
	harness *sim.Harness
	world   *sim.World
	queue   *midi.Queue
	clock   time.Time
}

func newBench(t *testing.T, keymap [][]KeyAction, profile Profile) *bench {
	t.Helper()
	w := sim.NewWorld(nil, 4)
	f, err := fabric.New(fabric.Config{Onboard: w.OnboardPins()})
	if err != nil {
		t.Fatalf("fabric.New: %v", err)
	}
	cols, rows := []int{0}, []int{1, 2, 3}
	for _, p := range append(append([]int{}, cols...), rows...) {
		if err := f.SetInput(p); err != nil {
			t.Fatalf("SetInput(%d): %v", p, err)
		}
		if err := f.SetPull(p, gpio.PullUp); err != nil {
			t.Fatalf("SetPull(%d): %v", p, err)
		}
	}
	q := midi.NewQueue(16)
	s, err := NewScanner(ScannerConfig{
		Pins:       f,
		ColumnPins: cols,
		RowPins:    rows,
		Keymap:     keymap,
		Profile:    profile,
		Out:        q.Channel(0),
	})
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}
	b := &bench{
		t:       t,
		scanner: s,
		world:   w,
		queue:   q,
		clock:   time.Unix(1000, 0),
	}
	s.now = func() time.Time { return b.clock }
	b.harness = sim.NewHarness(w,
		[]sim.PinID{{Chip: 0, Pin: 0}},
		[]sim.PinID{{Chip: 0, Pin: 1}, {Chip: 0, Pin: 2}, {Chip: 0, Pin: 3}})
	return b
}

func (b *bench) cycle() {
	b.t.Helper()
	if err := b.scanner.cycle(context.Background()); err != nil {
		b.t.Fatalf("cycle: %v", err)
	}
}

func (b *bench) advance(d time.Duration) { b.clock = b.clock.Add(d) }

func (b *bench) expect(want midi.Event) {
	b.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := b.queue.Receive(ctx)
	if err != nil {
		b.t.Fatalf("expected %v, got none", want)
	}
	if got != want {
		b.t.Fatalf("event = %v, want %v", got, want)
	}
}

func (b *bench) expectNone() {
	b.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if got, err := b.queue.Receive(ctx); err == nil {
		b.t.Fatalf("unexpected event %v", got)
	}
}

func TestScannerFixedVelocityKey(t *testing.T) {
	b := newBench(t, [][]KeyAction{{Fixed(notes.C4, 64), KeyAction{}, KeyAction{}}}, Linear)

	b.cycle()
	b.expectNone()

	b.harness.Press(0, 0)
	b.cycle()
	b.expect(midi.NoteOn(0, notes.C4, 64))

	// holding the key produces nothing further
	for i := 0; i < 5; i++ {
		b.cycle()
	}
	b.expectNone()

	b.harness.Release(0, 0)
	b.cycle()
	b.expect(midi.NoteOff(0, notes.C4, 0))
	b.cycle()
	b.expectNone()
}

func TestScannerTwoSwitchKey(t *testing.T) {
	b := newBench(t, [][]KeyAction{{First(notes.D4), Second(notes.D4), KeyAction{}}}, Linear)

	b.harness.Press(0, 0)
	b.cycle()
	b.expectNone() // first contact alone arms, no sound yet

	b.advance(5 * time.Millisecond)
	b.harness.Press(0, 1)
	b.cycle()
	b.expect(midi.NoteOn(0, notes.D4, Linear.Velocity(5*time.Millisecond)))

	// key resting at the bottom
	b.advance(50 * time.Millisecond)
	for i := 0; i < 5; i++ {
		b.cycle()
	}
	b.expectNone()

	// the second contact opening first changes nothing
	b.harness.Release(0, 1)
	b.cycle()
	b.expectNone()

	// the first contact opening releases the note
	b.harness.Release(0, 0)
	b.cycle()
	b.expect(midi.NoteOff(0, notes.D4, 0))
}

func TestScannerIncompletePress(t *testing.T) {
	b := newBench(t, [][]KeyAction{{First(notes.D4), Second(notes.D4), KeyAction{}}}, Linear)

	// brush the first contact without ever reaching the second
	b.harness.Press(0, 0)
	b.cycle()
	b.advance(3 * time.Millisecond)
	b.harness.Release(0, 0)
	b.cycle()
	b.cycle()
	b.expectNone()

	// a full press afterwards still works
	b.harness.Press(0, 0)
	b.cycle()
	b.advance(5 * time.Millisecond)
	b.harness.Press(0, 1)
	b.cycle()
	b.expect(midi.NoteOn(0, notes.D4, Linear.Velocity(5*time.Millisecond)))
}

func TestScannerSecondContactAloneIsSilent(t *testing.T) {
	b := newBench(t, [][]KeyAction{{First(notes.D4), Second(notes.D4), KeyAction{}}}, Linear)

	// a second contact with no armed first contact must not sound
	b.harness.Press(0, 1)
	for i := 0; i < 3; i++ {
		b.cycle()
	}
	b.expectNone()
}

func TestScannerMultipleRows(t *testing.T) {
	b := newBench(t, [][]KeyAction{{
		Fixed(notes.C4, 64), Fixed(notes.D4, 64), Fixed(notes.E4, 64),
	}}, Linear)

	b.harness.Press(0, 1)
	b.cycle()
	b.expect(midi.NoteOn(0, notes.D4, 64))

	b.harness.Press(0, 2)
	b.cycle()
	b.expect(midi.NoteOn(0, notes.E4, 64))
	b.expectNone()

	b.harness.Release(0, 1)
	b.harness.Release(0, 2)
	b.cycle()
	b.expect(midi.NoteOff(0, notes.D4, 0))
	b.expect(midi.NoteOff(0, notes.E4, 0))
}

// The same matrix wired through an expander, with the unsafe-pin policy
// active, so the strobe and readback cross the remapped address space.
func TestScannerOnExpanderMatrix(t *testing.T) {
	w := sim.NewWorld([]uint16{0x20}, 0)
	f, err := fabric.New(fabric.Config{
		Bus:               w.Bus(),
		Addresses:         []uint16{0x20},
		DisableUnsafePins: true,
	})
	if err != nil {
		t.Fatalf("fabric.New: %v", err)
	}
	cols, rows := []int{0}, []int{6, 7} // rows straddle the excluded GPA7
	toPhys := func(addr int) sim.PinID {
		loc, err := f.Locate(addr)
		if err != nil {
			t.Fatalf("Locate(%d): %v", addr, err)
		}
		return sim.PinID{Chip: 0x20, Pin: loc.Pin}
	}
	h := sim.NewHarness(w,
		[]sim.PinID{toPhys(cols[0])},
		[]sim.PinID{toPhys(rows[0]), toPhys(rows[1])})
	q := midi.NewQueue(16)
	s, err := NewScanner(ScannerConfig{
		Pins:       f,
		ColumnPins: cols,
		RowPins:    rows,
		Keymap:     [][]KeyAction{{Fixed(notes.C4, 64), Fixed(notes.D4, 64)}},
		Profile:    Linear,
		Out:        q.Channel(0),
	})
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}
	for _, p := range []int{0, 6, 7} {
		if err := s.setup(p); err != nil {
			t.Fatalf("setup(%d): %v", p, err)
		}
	}
	b := &bench{t: t, scanner: s, harness: h, world: w, queue: q, clock: time.Unix(1000, 0)}
	s.now = func() time.Time { return b.clock }

	b.cycle()
	b.expectNone()
	b.harness.Press(0, 1)
	b.cycle()
	b.expect(midi.NoteOn(0, notes.D4, 64))
	b.harness.Release(0, 1)
	b.cycle()
	b.expect(midi.NoteOff(0, notes.D4, 0))
}

func TestScannerBusErrorIsFatal(t *testing.T) {
	// matrix on an expander this time, so the strobe crosses the bus
	w := sim.NewWorld([]uint16{0x20}, 0)
	f, err := fabric.New(fabric.Config{
		Bus:       w.Bus(),
		Addresses: []uint16{0x20},
	})
	if err != nil {
		t.Fatalf("fabric.New: %v", err)
	}
	q := midi.NewQueue(16)
	s, err := NewScanner(ScannerConfig{
		Pins:       f,
		ColumnPins: []int{0},
		RowPins:    []int{1},
		Keymap:     [][]KeyAction{{Fixed(notes.C4, 64)}},
		Out:        q.Channel(0),
	})
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}
	busErr := errors.New("bus stuck")
	w.FailNext(busErr)
	if err := s.cycle(context.Background()); !errors.Is(err, busErr) {
		t.Fatalf("cycle: %v, want wrapped bus error", err)
	}
}

func TestNewScannerValidation(t *testing.T) {
	w := sim.NewWorld(nil, 4)
	f, err := fabric.New(fabric.Config{Onboard: w.OnboardPins()})
	if err != nil {
		t.Fatalf("fabric.New: %v", err)
	}
	q := midi.NewQueue(1)

	if _, err := NewScanner(ScannerConfig{}); err == nil {
		t.Error("nil fabric: expected error")
	}
	_, err = NewScanner(ScannerConfig{
		Pins:       f,
		ColumnPins: []int{0},
		RowPins:    []int{1},
		Keymap:     [][]KeyAction{},
		Out:        q.Channel(0),
	})
	if err == nil {
		t.Error("keymap column mismatch: expected error")
	}
	_, err = NewScanner(ScannerConfig{
		Pins:       f,
		ColumnPins: []int{0},
		RowPins:    []int{99},
		Keymap:     [][]KeyAction{{Fixed(notes.C4, 64)}},
		Out:        q.Channel(0),
	})
	if !errors.Is(err, fabric.ErrInvalidPin) {
		t.Errorf("row pin out of range: %v, want ErrInvalidPin", err)
	}
}
