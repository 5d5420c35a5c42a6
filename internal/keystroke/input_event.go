package keystroke

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"time"
)

// Event types from linux/input-event-codes.h.
const (
	EvSyn uint16 = 0x00
	EvKey uint16 = 0x01
	EvMsc uint16 = 0x04
	EvRep uint16 = 0x14
)

// SynReport is the EV_SYN code that closes one input frame.
const SynReport uint16 = 0

// Values carried by EV_KEY events.
const (
	KeyReleased int32 = 0
	KeyPressed  int32 = 1
	KeyRepeated int32 = 2
)

// timevalWord is the size of one input_event timeval field, a C long.
const timevalWord = strconv.IntSize / 8

// EventSize is the size of struct input_event: a timeval of two longs
// followed by type, code and value. 24 bytes on 64-bit Linux, 16 on 32-bit.
const EventSize = 2*timevalWord + 8

// headerOffset is where type, code and value start.
const headerOffset = 2 * timevalWord

// Event mirrors struct input_event.
type Event struct {
	Time  time.Time
	Type  uint16
	Code  uint16
	Value int32
}

// KeyEvent builds an EV_KEY event.
func KeyEvent(code uint16, value int32) Event {
	return Event{Type: EvKey, Code: code, Value: value}
}

// SyncEvent builds the EV_SYN/SYN_REPORT marker.
func SyncEvent() Event {
	return Event{Type: EvSyn, Code: SynReport}
}

// IsKeyPress reports whether e is a key going down. Releases and
// autorepeats are not presses.
func (e Event) IsKeyPress() bool {
	return e.Type == EvKey && e.Value == KeyPressed
}

// IsSync reports whether e is a SYN_REPORT marker.
func (e Event) IsSync() bool {
	return e.Type == EvSyn && e.Code == SynReport
}

func (e Event) String() string {
	switch e.Type {
	case EvSyn:
		return fmt.Sprintf("SYN code=%d", e.Code)
	case EvKey:
		state := "release"
		switch e.Value {
		case KeyPressed:
			state = "press"
		case KeyRepeated:
			state = "repeat"
		}
		return fmt.Sprintf("KEY code=%d %s", e.Code, state)
	default:
		return fmt.Sprintf("type=%d code=%d value=%d", e.Type, e.Code, e.Value)
	}
}

// MarshalEvent encodes e into buf, which must hold EventSize bytes, in the
// host's byte order. A zero Time is written as a zero timeval; the kernel
// stamps uinput events itself.
func MarshalEvent(buf []byte, e Event) {
	_ = buf[EventSize-1]
	var sec, usec int64
	if !e.Time.IsZero() {
		sec = e.Time.Unix()
		usec = int64(e.Time.Nanosecond() / 1000)
	}
	putLong(buf[0:timevalWord], sec)
	putLong(buf[timevalWord:headerOffset], usec)
	h := buf[headerOffset:]
	binary.NativeEndian.PutUint16(h[0:2], e.Type)
	binary.NativeEndian.PutUint16(h[2:4], e.Code)
	binary.NativeEndian.PutUint32(h[4:8], uint32(e.Value))
}

// UnmarshalEvent decodes one input_event record.
func UnmarshalEvent(buf []byte) (Event, error) {
	if len(buf) < EventSize {
		return Event{}, fmt.Errorf("short input event: %d bytes", len(buf))
	}
	sec := long(buf[0:timevalWord])
	usec := long(buf[timevalWord:headerOffset])
	h := buf[headerOffset:]
	return Event{
		Time:  time.Unix(sec, usec*1000),
		Type:  binary.NativeEndian.Uint16(h[0:2]),
		Code:  binary.NativeEndian.Uint16(h[2:4]),
		Value: int32(binary.NativeEndian.Uint32(h[4:8])),
	}, nil
}

func putLong(b []byte, v int64) {
	if timevalWord == 8 {
		binary.NativeEndian.PutUint64(b, uint64(v))
		return
	}
	binary.NativeEndian.PutUint32(b, uint32(v))
}

func long(b []byte) int64 {
	if timevalWord == 8 {
		return int64(binary.NativeEndian.Uint64(b))
	}
	return int64(int32(binary.NativeEndian.Uint32(b)))
}
