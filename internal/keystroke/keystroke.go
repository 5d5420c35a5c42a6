// Package keystroke reads keyboard events from Linux evdev devices and writes
// synthetic ones through uinput.
//
// A Source is the physical keyboard being watched; a Sink is the virtual
// keyboard keydogger types into. The two are always distinct devices, so
// nothing written to a Sink is ever read back from a Source.
//
// Platform support:
//   - Linux: /dev/input/event* for reading (input group or root) and
//     /dev/uinput for writing.
//   - Other platforms: ErrNotAvailable.
package keystroke

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Source yields keyboard events one at a time.
type Source interface {
	// ReadEvent blocks until the next event arrives. It returns io.EOF once
	// the source is closed and an error wrapping ErrSourceRead on failure.
	ReadEvent(ctx context.Context) (Event, error)

	Close() error
}

// Sink accepts synthetic keyboard events.
type Sink interface {
	WriteEvent(e Event) error
}

var (
	// ErrNotAvailable is returned when evdev/uinput are not usable here.
	ErrNotAvailable = errors.New("keyboard devices not available on this platform")

	// ErrSourceRead is returned when reading from an input device fails.
	ErrSourceRead = errors.New("input source read failed")

	// ErrNoKeyboard is returned when device discovery finds no keyboard.
	ErrNoKeyboard = errors.New("no keyboard device found")
)

// SimulatedSource is a Source fed from code, for tests and dry runs.
type SimulatedSource struct {
	ch        chan Event
	closeOnce sync.Once
}

// NewSimulatedSource creates a source buffering up to n pushed events.
func NewSimulatedSource(n int) *SimulatedSource {
	return &SimulatedSource{ch: make(chan Event, n)}
}

// Push queues events. It blocks when the buffer is full.
func (s *SimulatedSource) Push(events ...Event) {
	for _, e := range events {
		s.ch <- e
	}
}

// Type queues a press and release for every keycode.
func (s *SimulatedSource) Type(codes ...uint16) {
	for _, c := range codes {
		s.Push(KeyEvent(c, KeyPressed), SyncEvent(), KeyEvent(c, KeyReleased), SyncEvent())
	}
}

// ReadEvent returns the next queued event.
func (s *SimulatedSource) ReadEvent(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case e, ok := <-s.ch:
		if !ok {
			return Event{}, io.EOF
		}
		return e, nil
	}
}

// Close ends the stream once queued events have been read.
func (s *SimulatedSource) Close() error {
	s.closeOnce.Do(func() { close(s.ch) })
	return nil
}

// RecordingSink captures written events in memory.
type RecordingSink struct {
	mu     sync.Mutex
	events []Event
	writes int

	// FailAt makes the FailAt-th write (1-based) return Err. Zero disables.
	FailAt int
	Err    error
}

// WriteEvent records e.
func (r *RecordingSink) WriteEvent(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.writes++
	if r.FailAt > 0 && r.writes == r.FailAt {
		err := r.Err
		if err == nil {
			err = fmt.Errorf("simulated write failure at event %d", r.writes)
		}
		return err
	}
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of everything written so far.
func (r *RecordingSink) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset discards recorded events.
func (r *RecordingSink) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	r.writes = 0
}

// VirtualKeyboardOptions configures the uinput device.
type VirtualKeyboardOptions struct {
	Name     string
	Vendor   uint16
	Product  uint16
	Keycodes []uint16
}
