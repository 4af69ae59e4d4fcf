//go:build !tinygo

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.bug.st/serial"

	"github.com/clefware/pianomatrix/internal/config"
	"github.com/clefware/pianomatrix/internal/fabric"
	"github.com/clefware/pianomatrix/internal/midi"
	"github.com/clefware/pianomatrix/internal/sim"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file path (default: user config dir)")
		listPorts  = flag.Bool("list-ports", false, "list MIDI output ports and exit")
		portName   = flag.String("port", "", "MIDI output port, substring match (overrides config)")
		simulate   = flag.Bool("sim", false, "run against the simulated matrix and play the keymap")
		debug      = flag.Bool("debug", false, "enable debug logging")
		diagPort   = flag.String("diag", "", "serial port to mirror the log to")
	)
	flag.Parse()
	initLogger(*debug, *diagPort)
	defer midi.Close()

	if *listPorts {
		for _, name := range midi.ListOutPorts() {
			fmt.Println(name)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	if *portName != "" {
		cfg.MIDIPort = *portName
	}
	if !*simulate {
		// this build has no I2C hardware behind it; the real matrix
		// needs the board firmware (tinygo build)
		slog.Error("no hardware backend in this build; use -sim, or flash the board build")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	world := sim.NewWorld(cfg.ExpanderAddresses, cfg.OnboardPins)
	fab, err := fabric.New(fabric.Config{
		Bus:               world.Bus(),
		Addresses:         cfg.ExpanderAddresses,
		Onboard:           world.OnboardPins(),
		DisableUnsafePins: cfg.DisableUnsafePins,
	})
	if err != nil {
		slog.Error("failed to start pin fabric", "error", err)
		os.Exit(1)
	}

	harness, err := buildHarness(world, fab, cfg)
	if err != nil {
		slog.Error("failed to wire simulated matrix", "error", err)
		os.Exit(1)
	}
	go playKeymap(ctx, harness, cfg)

	var pedalPin *sim.Pin
	if cfg.Pedal != nil {
		pedalPin = world.Pin(cfg.Pedal.Pin)
	}

	slog.Info("starting", "name", cfg.Name, "pins", fab.UsablePins(), "port", cfg.MIDIPort)
	if err := run(ctx, cfg, fab, pedalPin, midi.NewOutPort(cfg.MIDIPort)); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// initLogger configures the shared slog logger and makes it the default
// so stray log.* calls route through the same handler. With -diag set,
// output is mirrored to a serial port; diagnostic writes are best-effort
// and never block or fail the core.
func initLogger(debug bool, diagPort string) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	var w io.Writer = os.Stderr
	if diagPort != "" {
		sp, err := serial.Open(diagPort, &serial.Mode{BaudRate: 115200})
		if err != nil {
			fmt.Fprintf(os.Stderr, "diag port %s unavailable: %v\n", diagPort, err)
		} else {
			w = io.MultiWriter(os.Stderr, &droppingWriter{w: sp})
		}
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level, AddSource: debug})
	slog.SetDefault(slog.New(h))
}

// droppingWriter swallows the side channel after its first write error
// instead of poisoning the main log path.
type droppingWriter struct {
	w      io.Writer
	failed bool
}

func (d *droppingWriter) Write(p []byte) (int, error) {
	if d.failed {
		return len(p), nil
	}
	if _, err := d.w.Write(p); err != nil {
		d.failed = true
	}
	return len(p), nil
}

// buildHarness maps the configured matrix pins to their simulated
// physical pins and wires the switch matrix between them.
func buildHarness(world *sim.World, fab *fabric.Fabric, cfg *config.Config) (*sim.Harness, error) {
	toID := func(addr int) (sim.PinID, error) {
		loc, err := fab.Locate(addr)
		if err != nil {
			return sim.PinID{}, err
		}
		if loc.Onboard {
			return sim.PinID{Chip: 0, Pin: uint8(loc.Index)}, nil
		}
		return sim.PinID{Chip: cfg.ExpanderAddresses[loc.Expander], Pin: loc.Pin}, nil
	}
	cols := make([]sim.PinID, len(cfg.ColumnPins))
	for i, p := range cfg.ColumnPins {
		id, err := toID(p)
		if err != nil {
			return nil, err
		}
		cols[i] = id
	}
	rows := make([]sim.PinID, len(cfg.RowPins))
	for i, p := range cfg.RowPins {
		id, err := toID(p)
		if err != nil {
			return nil, err
		}
		rows[i] = id
	}
	return sim.NewHarness(world, cols, rows), nil
}
