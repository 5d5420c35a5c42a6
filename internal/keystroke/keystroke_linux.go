//go:build linux

package keystroke

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

const procInputDevices = "/proc/bus/input/devices"

// FindKeyboards lists the keyboards the kernel currently exposes, skipping
// the device named exclude.
func FindKeyboards(exclude string) ([]KeyboardDevice, error) {
	f, err := os.Open(procInputDevices)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", procInputDevices, err)
	}
	defer f.Close()

	devices, err := ParseDevices(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", procInputDevices, err)
	}
	return SelectKeyboards(devices, exclude), nil
}

// EvdevSource reads input_event records from a /dev/input/event* node.
type EvdevSource struct {
	f    *os.File
	path string
	buf  [EventSize]byte

	closeOnce sync.Once
	closed    atomic.Bool
}

// OpenDevice opens an evdev node for reading. The device is not grabbed:
// keystrokes keep reaching every other reader.
func OpenDevice(path string) (*EvdevSource, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &EvdevSource{f: f, path: path}, nil
}

// Path returns the device node.
func (s *EvdevSource) Path() string {
	return s.path
}

// ReadEvent blocks for the next event. Cancelling ctx closes the device.
func (s *EvdevSource) ReadEvent(ctx context.Context) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	if _, err := io.ReadFull(s.f, s.buf[:]); err != nil {
		if ctx.Err() != nil {
			return Event{}, ctx.Err()
		}
		if s.closed.Load() {
			return Event{}, io.EOF
		}
		return Event{}, fmt.Errorf("%w: %s: %v", ErrSourceRead, s.path, err)
	}
	return UnmarshalEvent(s.buf[:])
}

// Close releases the device. A blocked ReadEvent returns.
func (s *EvdevSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		err = s.f.Close()
	})
	return err
}
