package midi

import (
	"context"
	"errors"
	"log/slog"
)

// ErrDisconnected is returned by a PacketWriter when the endpoint went
// away. The transport treats it as the start of a reconnect cycle; any
// other write error is fatal.
var ErrDisconnected = errors.New("midi: endpoint disconnected")

// PacketWriter is the USB-MIDI endpoint the transport serializes into.
type PacketWriter interface {
	// Connect blocks until the endpoint is usable or ctx is done.
	Connect(ctx context.Context) error
	// Write sends one 4-byte USB-MIDI packet.
	Write(packet [4]byte) error
}

// Transport is the queue's sole consumer: it drains events one at a
// time, packs them, and writes them to the endpoint, reconnecting
// transparently when the endpoint drops. Producers never see transport
// connectivity; an event dequeued at the moment of a disconnect is lost,
// which is an accepted property of this boundary.
type Transport struct {
	q     *Queue
	w     PacketWriter
	cable uint8
}

func NewTransport(q *Queue, w PacketWriter) *Transport {
	return &Transport{q: q, w: w}
}

// Run serializes events until ctx is done, restarting the session on
// every disconnect.
func (t *Transport) Run(ctx context.Context) error {
	for {
		if err := t.w.Connect(ctx); err != nil {
			return err
		}
		slog.Info("midi transport connected")
		err := t.session(ctx)
		if errors.Is(err, ErrDisconnected) {
			slog.Info("midi transport disconnected")
			continue
		}
		return err
	}
}

// session drains the queue until the endpoint errors or ctx is done.
func (t *Transport) session(ctx context.Context) error {
	for {
		ev, err := t.q.Receive(ctx)
		if err != nil {
			return err
		}
		pkt := ev.Packet(t.cable)
		slog.Debug("midi packet", "event", ev.String(), "data", pkt[:])
		if err := t.w.Write(pkt); err != nil {
			return err
		}
	}
}
