package expand

import (
	"errors"
	"fmt"

	"keydogger/internal/keymap"
	"keydogger/internal/keystroke"
)

// ErrSinkWrite wraps failures of the synthetic keyboard.
var ErrSinkWrite = errors.New("sink write failed")

// Emitter types replacement text into a synthetic keyboard.
type Emitter struct {
	sink keystroke.Sink
}

// NewEmitter returns an emitter writing to sink.
func NewEmitter(sink keystroke.Sink) *Emitter {
	return &Emitter{sink: sink}
}

type stroke struct {
	code  uint16
	shift bool
}

// Emit erases eraseCount characters with Backspace, types text and closes
// the batch with one SYN_REPORT. Characters needing Shift are wrapped in a
// Left Shift press. The whole text is resolved before anything is written,
// so an unknown character produces no output at all.
func (e *Emitter) Emit(eraseCount int, text string) error {
	if eraseCount < 0 {
		return fmt.Errorf("negative erase count %d", eraseCount)
	}

	strokes := make([]stroke, len(text))
	for i := 0; i < len(text); i++ {
		code, shift, err := keymap.Resolve(text[i])
		if err != nil {
			return err
		}
		strokes[i] = stroke{code: code, shift: shift}
	}

	for i := 0; i < eraseCount; i++ {
		if err := e.tap(keymap.KeyBackspace); err != nil {
			return err
		}
	}
	for _, s := range strokes {
		if s.shift {
			if err := e.write(keystroke.KeyEvent(keymap.KeyLeftShift, keystroke.KeyPressed)); err != nil {
				return err
			}
		}
		if err := e.tap(s.code); err != nil {
			return err
		}
		if s.shift {
			if err := e.write(keystroke.KeyEvent(keymap.KeyLeftShift, keystroke.KeyReleased)); err != nil {
				return err
			}
		}
	}
	return e.write(keystroke.SyncEvent())
}

func (e *Emitter) tap(code uint16) error {
	if err := e.write(keystroke.KeyEvent(code, keystroke.KeyPressed)); err != nil {
		return err
	}
	return e.write(keystroke.KeyEvent(code, keystroke.KeyReleased))
}

func (e *Emitter) write(ev keystroke.Event) error {
	if err := e.sink.WriteEvent(ev); err != nil {
		return fmt.Errorf("%w: %w", ErrSinkWrite, err)
	}
	return nil
}
