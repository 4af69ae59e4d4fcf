//go:build tinygo

package main

import (
	"context"
	"fmt"
	"log/slog"
	"machine"
	"os"
	"time"

	"github.com/clefware/pianomatrix/internal/config"
	"github.com/clefware/pianomatrix/internal/fabric"
	"github.com/clefware/pianomatrix/internal/gpio"
	"github.com/clefware/pianomatrix/internal/midi"
)

// Board wiring for the RP2040 build. The two expanders hang off I2C0 and
// the matrix overflow rows land on the onboard pins below, in fabric
// order.
var onboardPins = []machine.Pin{
	machine.GP15, machine.GP14, machine.GP13, machine.GP12,
	machine.GP11, machine.GP10, machine.GP9, machine.GP18,
	machine.GP19, machine.GP20, machine.GP21, machine.GP22,
}

const pedalPin = machine.GP8

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	// The board has no filesystem, so the compiled-in defaults are the
	// configuration.
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		fatal("config", err)
	}
	if cfg.OnboardPins > len(onboardPins) {
		fatal("config", fmt.Errorf("%d on-board pins configured, %d wired", cfg.OnboardPins, len(onboardPins)))
	}

	if err := machine.I2C0.Configure(machine.I2CConfig{
		SDA:       machine.GP16,
		SCL:       machine.GP17,
		Frequency: 400 * machine.KHz,
	}); err != nil {
		fatal("i2c", err)
	}

	onboard := make([]gpio.Pin, 0, cfg.OnboardPins)
	for _, p := range onboardPins[:cfg.OnboardPins] {
		onboard = append(onboard, gpio.NewMachinePin(p))
	}

	fab, err := fabric.New(fabric.Config{
		Bus:               machine.I2C0,
		Addresses:         cfg.ExpanderAddresses,
		Onboard:           onboard,
		DisableUnsafePins: cfg.DisableUnsafePins,
	})
	if err != nil {
		fatal("fabric", err)
	}

	var pedal gpio.EdgePin
	if cfg.Pedal != nil {
		pedal = gpio.NewMachinePin(pedalPin)
	}

	if err := run(context.Background(), cfg, fab, pedal, midi.NewUSBPort()); err != nil {
		fatal("run", err)
	}
}

// fatal logs the error and parks the core. There is no supervisor to
// restart us, so staying put keeps the message on the diag console.
func fatal(stage string, err error) {
	for {
		slog.Error("fatal", "stage", stage, "err", err)
		time.Sleep(5 * time.Second)
	}
}
