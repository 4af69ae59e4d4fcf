package sim

// Harness wires a switch matrix into a World: each (column, row) switch,
// when pressed, connects its row net to its column net. A row then reads
// low exactly when some pressed switch on it leads to a column that is
// currently sinking current, which is how the scanner's strobe works.
type Harness struct {
	w       *World
	cols    []PinID
	rows    []PinID
	pressed [][]bool
}

// NewHarness installs a matrix of len(cols) x len(rows) switches, all
// released.
func NewHarness(w *World, cols, rows []PinID) *Harness {
	h := &Harness{w: w, cols: cols, rows: rows}
	h.pressed = make([][]bool, len(cols))
	for i := range h.pressed {
		h.pressed[i] = make([]bool, len(rows))
	}
	w.SetDrive(h.driveLow)
	return h
}

func (h *Harness) Press(col, row int) {
	h.w.mu.Lock()
	h.pressed[col][row] = true
	h.w.mu.Unlock()
}

func (h *Harness) Release(col, row int) {
	h.w.mu.Lock()
	h.pressed[col][row] = false
	h.w.mu.Unlock()
}

// driveLow reports whether the net of id is pulled low through a pressed
// switch. Called with w.mu held.
func (h *Harness) driveLow(id PinID) bool {
	for ri, rp := range h.rows {
		if rp != id {
			continue
		}
		for ci, cp := range h.cols {
			if h.pressed[ci][ri] && h.w.sinking(cp) {
				return true
			}
		}
		return false
	}
	return false
}
