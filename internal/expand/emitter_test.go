package expand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keydogger/internal/keymap"
	"keydogger/internal/keystroke"
)

func TestEmitZeroErase(t *testing.T) {
	sink := &keystroke.RecordingSink{}
	require.NoError(t, NewEmitter(sink).Emit(0, "ok"))

	s := summarize(t, sink.Events())
	assert.Equal(t, 0, s.erases)
	assert.Equal(t, "ok", s.text)
	assert.Equal(t, 1, s.syncs)
}

func TestEmitEmptyText(t *testing.T) {
	sink := &keystroke.RecordingSink{}
	require.NoError(t, NewEmitter(sink).Emit(3, ""))

	s := summarize(t, sink.Events())
	assert.Equal(t, 3, s.erases)
	assert.Equal(t, 0, s.pairs)
	assert.Equal(t, 1, s.syncs)
}

func TestEmitShiftWrapping(t *testing.T) {
	sink := &keystroke.RecordingSink{}
	require.NoError(t, NewEmitter(sink).Emit(0, "A"))

	want := []keystroke.Event{
		keystroke.KeyEvent(keymap.KeyLeftShift, keystroke.KeyPressed),
		keystroke.KeyEvent(30, keystroke.KeyPressed),
		keystroke.KeyEvent(30, keystroke.KeyReleased),
		keystroke.KeyEvent(keymap.KeyLeftShift, keystroke.KeyReleased),
		keystroke.SyncEvent(),
	}
	assert.Equal(t, want, sink.Events())
}

func TestEmitInvalidCharacterWritesNothing(t *testing.T) {
	sink := &keystroke.RecordingSink{}
	err := NewEmitter(sink).Emit(2, "caf\xc3\xa9")

	assert.ErrorIs(t, err, keymap.ErrInvalidCharacter)
	assert.Empty(t, sink.Events())
}

func TestEmitNegativeErase(t *testing.T) {
	sink := &keystroke.RecordingSink{}
	assert.Error(t, NewEmitter(sink).Emit(-1, "x"))
	assert.Empty(t, sink.Events())
}

func TestEmitSinkFailureStops(t *testing.T) {
	sink := &keystroke.RecordingSink{FailAt: 1}
	err := NewEmitter(sink).Emit(1, "abc")

	assert.ErrorIs(t, err, ErrSinkWrite)
	assert.Empty(t, sink.Events())
}

func TestEmitMixedText(t *testing.T) {
	sink := &keystroke.RecordingSink{}
	text := "Dear Sir/Madam, (see p. 2)"
	require.NoError(t, NewEmitter(sink).Emit(4, text))

	s := summarize(t, sink.Events())
	assert.Equal(t, 4, s.erases)
	assert.Equal(t, len(text), s.pairs)
	assert.Equal(t, text, s.text)
}
