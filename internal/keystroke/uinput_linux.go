//go:build linux

package keystroke

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

const uinputPath = "/dev/uinput"

// ioctl requests from linux/uinput.h.
const (
	uiDevCreate  = 0x5501     // _IO('U', 1)
	uiDevDestroy = 0x5502     // _IO('U', 2)
	uiDevSetup   = 0x405c5503 // _IOW('U', 3, struct uinput_setup)
	uiSetEvBit   = 0x40045564 // _IOW('U', 100, int)
	uiSetKeyBit  = 0x40045565 // _IOW('U', 101, int)

	busUSB = 0x03
)

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

type uinputSetup struct {
	ID           inputID
	Name         [80]byte
	FFEffectsMax uint32
}

// VirtualKeyboard is a uinput device keydogger types into.
type VirtualKeyboard struct {
	mu   sync.Mutex
	f    *os.File
	fd   int
	name string
	buf  [EventSize]byte
}

// CreateVirtualKeyboard registers a uinput keyboard able to emit exactly
// opts.Keycodes.
func CreateVirtualKeyboard(opts VirtualKeyboardOptions) (*VirtualKeyboard, error) {
	if len(opts.Name) == 0 || len(opts.Name) >= 80 {
		return nil, fmt.Errorf("invalid device name %q", opts.Name)
	}

	f, err := os.OpenFile(uinputPath, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uinputPath, err)
	}
	vk := &VirtualKeyboard{f: f, fd: int(f.Fd()), name: opts.Name}

	if err := vk.setup(opts); err != nil {
		f.Close()
		return nil, err
	}
	return vk, nil
}

func (vk *VirtualKeyboard) setup(opts VirtualKeyboardOptions) error {
	if err := unix.IoctlSetInt(vk.fd, uiSetEvBit, int(EvKey)); err != nil {
		return fmt.Errorf("enable key events: %w", err)
	}
	for _, code := range opts.Keycodes {
		if err := unix.IoctlSetInt(vk.fd, uiSetKeyBit, int(code)); err != nil {
			return fmt.Errorf("register key %d: %w", code, err)
		}
	}

	var usetup uinputSetup
	usetup.ID = inputID{Bustype: busUSB, Vendor: opts.Vendor, Product: opts.Product}
	copy(usetup.Name[:], opts.Name)
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(vk.fd), uiDevSetup, uintptr(unsafe.Pointer(&usetup))); errno != 0 {
		return fmt.Errorf("setup virtual device: %w", errno)
	}
	if err := unix.IoctlSetInt(vk.fd, uiDevCreate, 0); err != nil {
		return fmt.Errorf("create virtual device: %w", err)
	}
	return nil
}

// Name returns the device name other readers see.
func (vk *VirtualKeyboard) Name() string {
	return vk.name
}

// WriteEvent writes one input_event record.
func (vk *VirtualKeyboard) WriteEvent(e Event) error {
	vk.mu.Lock()
	defer vk.mu.Unlock()

	MarshalEvent(vk.buf[:], e)
	n, err := vk.f.Write(vk.buf[:])
	if err != nil {
		return fmt.Errorf("write %s: %w", uinputPath, err)
	}
	if n != EventSize {
		return fmt.Errorf("short write to %s: %d bytes", uinputPath, n)
	}
	return nil
}

// Close destroys the virtual device.
func (vk *VirtualKeyboard) Close() error {
	vk.mu.Lock()
	defer vk.mu.Unlock()

	_ = unix.IoctlSetInt(vk.fd, uiDevDestroy, 0)
	return vk.f.Close()
}
