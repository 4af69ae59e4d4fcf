//go:build !tinygo

package midi

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // register rtmidi driver
)

// rescanInterval is how often Connect re-lists the system's MIDI ports
// while waiting for a matching output to appear.
const rescanInterval = time.Second

// OutPort bridges packets to a system MIDI output port. An empty name
// matches the first available port; otherwise exact match wins over
// substring match. When a send fails the port is dropped and the
// transport's reconnect cycle finds it again on the next Connect.
type OutPort struct {
	name string
	out  drivers.Out
	send func(gomidi.Message) error
}

func NewOutPort(name string) *OutPort {
	return &OutPort{name: name}
}

// ListOutPorts returns the names of the system's MIDI output ports.
func ListOutPorts() []string {
	outs := gomidi.GetOutPorts()
	names := make([]string, 0, len(outs))
	for _, out := range outs {
		names = append(names, out.String())
	}
	return names
}

// Close releases the MIDI driver. Call once at process shutdown.
func Close() {
	gomidi.CloseDriver()
}

func (o *OutPort) Connect(ctx context.Context) error {
	for {
		if port := findOutPort(o.name); port != nil {
			send, err := gomidi.SendTo(port)
			if err == nil {
				o.out = port
				o.send = send
				slog.Info("midi output opened", "port", port.String())
				return nil
			}
			slog.Warn("midi output unavailable", "port", port.String(), "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rescanInterval):
		}
	}
}

func (o *OutPort) Write(packet [4]byte) error {
	if o.send == nil {
		return ErrDisconnected
	}
	// strip the USB framing byte; the OS driver frames for us
	if err := o.send(gomidi.Message(packet[1:4])); err != nil {
		o.send = nil
		o.out = nil
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	return nil
}

func findOutPort(name string) drivers.Out {
	outs := gomidi.GetOutPorts()
	if len(outs) == 0 {
		return nil
	}
	if name == "" {
		return outs[0]
	}
	for _, out := range outs {
		if out.String() == name {
			return out
		}
	}
	for _, out := range outs {
		if strings.Contains(strings.ToLower(out.String()), strings.ToLower(name)) {
			return out
		}
	}
	return nil
}
