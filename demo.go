//go:build !tinygo

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/clefware/pianomatrix/internal/config"
	"github.com/clefware/pianomatrix/internal/matrix"
	"github.com/clefware/pianomatrix/internal/sim"
)

// playKeymap presses every key of the keymap in turn through the
// simulated harness, forever. It exists so a -sim run produces audible
// traffic end to end: strobe, state machine, queue, and the real MIDI
// output port.
func playKeymap(ctx context.Context, h *sim.Harness, cfg *config.Config) {
	keymap, err := cfg.ParseKeymap()
	if err != nil {
		slog.Error("sim player disabled", "error", err)
		return
	}

	type cell struct{ col, row int }
	type key struct {
		first, second, fixed *cell
	}
	keys := map[uint8]*key{}
	var order []uint8
	for ci, col := range keymap {
		for ri, act := range col {
			if act.Kind == matrix.NoAction {
				continue
			}
			k := keys[act.Note]
			if k == nil {
				k = &key{}
				keys[act.Note] = k
				order = append(order, act.Note)
			}
			c := &cell{col: ci, row: ri}
			switch act.Kind {
			case matrix.FirstContact:
				k.first = c
			case matrix.SecondContact:
				k.second = c
			case matrix.FixedVelocity:
				k.fixed = c
			}
		}
	}

	sleep := func(d time.Duration) bool {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(d):
			return true
		}
	}

	slog.Info("sim player started", "keys", len(order))
	for ctx.Err() == nil {
		for _, note := range order {
			k := keys[note]
			switch {
			case k.fixed != nil:
				h.Press(k.fixed.col, k.fixed.row)
				if !sleep(200 * time.Millisecond) {
					return
				}
				h.Release(k.fixed.col, k.fixed.row)
			case k.first != nil && k.second != nil:
				h.Press(k.first.col, k.first.row)
				if !sleep(6 * time.Millisecond) {
					return
				}
				h.Press(k.second.col, k.second.row)
				if !sleep(250 * time.Millisecond) {
					return
				}
				h.Release(k.second.col, k.second.row)
				h.Release(k.first.col, k.first.row)
			default:
				continue
			}
			if !sleep(100 * time.Millisecond) {
				return
			}
		}
	}
}
