//go:build !linux

package keystroke

import "context"

// FindKeyboards is not available on this platform.
func FindKeyboards(exclude string) ([]KeyboardDevice, error) {
	return nil, ErrNotAvailable
}

// EvdevSource is a placeholder on platforms without evdev.
type EvdevSource struct{}

// OpenDevice is not available on this platform.
func OpenDevice(path string) (*EvdevSource, error) {
	return nil, ErrNotAvailable
}

// Path returns an empty string.
func (s *EvdevSource) Path() string { return "" }

// ReadEvent always fails.
func (s *EvdevSource) ReadEvent(ctx context.Context) (Event, error) {
	return Event{}, ErrNotAvailable
}

// Close is a no-op.
func (s *EvdevSource) Close() error { return nil }

// VirtualKeyboard is a placeholder on platforms without uinput.
type VirtualKeyboard struct{}

// CreateVirtualKeyboard is not available on this platform.
func CreateVirtualKeyboard(opts VirtualKeyboardOptions) (*VirtualKeyboard, error) {
	return nil, ErrNotAvailable
}

// Name returns an empty string.
func (vk *VirtualKeyboard) Name() string { return "" }

// WriteEvent always fails.
func (vk *VirtualKeyboard) WriteEvent(e Event) error { return ErrNotAvailable }

// Close is a no-op.
func (vk *VirtualKeyboard) Close() error { return nil }
