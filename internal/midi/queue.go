package midi

import "context"

// DefaultQueueSize is small on purpose: MIDI's data rate is tiny next to
// the scan rate, and a full queue applies back-pressure to the scanners
// instead of dropping or reordering events.
const DefaultQueueSize = 3

// Queue is the bounded FIFO between the scanning tasks (producers) and
// the transport (single consumer). FIFO order is strict: an event is
// never reordered once enqueued.
type Queue struct {
	ch chan Event
}

// NewQueue creates a queue. size <= 0 selects DefaultQueueSize.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan Event, size)}
}

// Send enqueues one event, blocking while the queue is full.
func (q *Queue) Send(ctx context.Context, e Event) error {
	select {
	case q.ch <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive dequeues one event, blocking while the queue is empty.
func (q *Queue) Receive(ctx context.Context) (Event, error) {
	select {
	case e := <-q.ch:
		return e, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Channel returns a producer handle bound to one MIDI channel.
func (q *Queue) Channel(channel uint8) Channel {
	return Channel{q: q, channel: channel & 0x0F}
}

// Channel is the interface scanning tasks use to emit MIDI. Handles are
// cheap values; any number of tasks may hold one.
type Channel struct {
	q       *Queue
	channel uint8
}

// NoteOn emits a Note On.
func (c Channel) NoteOn(ctx context.Context, note, velocity uint8) error {
	return c.q.Send(ctx, NoteOn(c.channel, note, velocity))
}

// NoteOff emits a Note Off.
func (c Channel) NoteOff(ctx context.Context, note, velocity uint8) error {
	return c.q.Send(ctx, NoteOff(c.channel, note, velocity))
}

// Controller emits a control change, e.g. the sustain pedal state.
func (c Channel) Controller(ctx context.Context, controller, value uint8) error {
	return c.q.Send(ctx, ControlChange(c.channel, controller, value))
}
