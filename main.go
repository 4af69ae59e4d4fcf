package main

import (
	"context"
	"errors"

	"github.com/clefware/pianomatrix/internal/config"
	"github.com/clefware/pianomatrix/internal/fabric"
	"github.com/clefware/pianomatrix/internal/gpio"
	"github.com/clefware/pianomatrix/internal/matrix"
	"github.com/clefware/pianomatrix/internal/midi"
)

// run wires the scanner, pedal, queue and transport together and blocks
// until a task fails or ctx is done. The first fatal task error tears
// everything down: there is no degraded mode in which half a matrix
// keeps playing.
func run(ctx context.Context, cfg *config.Config, fab *fabric.Fabric, pedalPin gpio.EdgePin, w midi.PacketWriter) error {
	keymap, err := cfg.ParseKeymap()
	if err != nil {
		return err
	}
	profile, err := matrix.ParseProfile(cfg.VelocityProfile)
	if err != nil {
		return err
	}

	queue := midi.NewQueue(cfg.QueueSize)
	scanner, err := matrix.NewScanner(matrix.ScannerConfig{
		Pins:       fab,
		ColumnPins: cfg.ColumnPins,
		RowPins:    cfg.RowPins,
		Keymap:     keymap,
		Profile:    profile,
		Out:        queue.Channel(cfg.Channel),
		Period:     cfg.ScanPeriod(),
	})
	if err != nil {
		return err
	}
	transport := midi.NewTransport(queue, w)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 3)
	go func() { errc <- transport.Run(ctx) }()
	go func() { errc <- scanner.Scan(ctx) }()
	if cfg.Pedal != nil && pedalPin != nil {
		pedal := matrix.NewPedal(matrix.PedalConfig{
			Pin:          pedalPin,
			Out:          queue.Channel(cfg.Channel),
			Controller:   cfg.Pedal.Controller,
			OnValue:      cfg.Pedal.OnValue,
			OffValue:     cfg.Pedal.OffValue,
			NormallyOpen: cfg.Pedal.NormallyOpen,
		})
		go func() { errc <- pedal.Monitor(ctx) }()
	}

	err = <-errc
	cancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
