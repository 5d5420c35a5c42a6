package keystroke

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// KeyboardDevice describes one entry of /proc/bus/input/devices.
type KeyboardDevice struct {
	Name      string         `json:"name"`
	VendorID  uint16         `json:"vendor_id"`
	ProductID uint16         `json:"product_id"`
	Phys      string         `json:"phys,omitempty"`
	Handlers  []string       `json:"handlers,omitempty"`
	EventPath string         `json:"event_path,omitempty"`
	Bus       ConnectionType `json:"bus"`

	// Keyboard is set when the device advertises letter keys and autorepeat.
	Keyboard bool `json:"keyboard"`
}

// ConnectionType indicates how the keyboard is connected.
type ConnectionType int

const (
	ConnectionUnknown ConnectionType = iota
	ConnectionUSB
	ConnectionBluetooth
	ConnectionPS2
	ConnectionInternal
	ConnectionVirtual
)

// String returns the connection type as a string.
func (ct ConnectionType) String() string {
	switch ct {
	case ConnectionUSB:
		return "USB"
	case ConnectionBluetooth:
		return "Bluetooth"
	case ConnectionPS2:
		return "PS/2"
	case ConnectionInternal:
		return "Internal"
	case ConnectionVirtual:
		return "Virtual"
	default:
		return "Unknown"
	}
}

// busToConnectionType converts a Linux bus code to ConnectionType.
func busToConnectionType(bus string) ConnectionType {
	switch strings.ToUpper(bus) {
	case "0003": // BUS_USB
		return ConnectionUSB
	case "0005": // BUS_BLUETOOTH
		return ConnectionBluetooth
	case "0011": // BUS_I8042
		return ConnectionPS2
	case "0019", "001F": // BUS_HOST, BUS_RMI
		return ConnectionInternal
	case "0006": // BUS_VIRTUAL
		return ConnectionVirtual
	default:
		return ConnectionUnknown
	}
}

// Probe keys: a device reporting all of these is treated as a keyboard.
var probeKeys = []uint16{16, 30, 44, 57} // q, a, z, space

// ParseDevices parses the /proc/bus/input/devices format.
func ParseDevices(r io.Reader) ([]KeyboardDevice, error) {
	var devices []KeyboardDevice
	var current KeyboardDevice
	var evBits, keyBits []uint64
	started := false

	flush := func() {
		if !started {
			return
		}
		current.Keyboard = hasBit(evBits, uint(EvKey)) &&
			hasBit(evBits, uint(EvRep)) &&
			hasAllKeys(keyBits, probeKeys)
		devices = append(devices, current)
		current = KeyboardDevice{}
		evBits, keyBits = nil, nil
		started = false
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}
		started = true

		switch {
		// I: Bus=0003 Vendor=046d Product=c52b Version=0111
		case strings.HasPrefix(line, "I:"):
			for _, part := range strings.Fields(line[2:]) {
				k, v, ok := strings.Cut(part, "=")
				if !ok {
					continue
				}
				switch k {
				case "Bus":
					current.Bus = busToConnectionType(v)
				case "Vendor":
					if n, err := strconv.ParseUint(v, 16, 16); err == nil {
						current.VendorID = uint16(n)
					}
				case "Product":
					if n, err := strconv.ParseUint(v, 16, 16); err == nil {
						current.ProductID = uint16(n)
					}
				}
			}

		// N: Name="Logitech USB Receiver"
		case strings.HasPrefix(line, "N: Name="):
			current.Name = strings.Trim(strings.TrimPrefix(line, "N: Name="), `"`)

		case strings.HasPrefix(line, "P: Phys="):
			current.Phys = strings.TrimPrefix(line, "P: Phys=")

		// H: Handlers=sysrq kbd event0 leds
		case strings.HasPrefix(line, "H: Handlers="):
			current.Handlers = strings.Fields(strings.TrimPrefix(line, "H: Handlers="))
			for _, h := range current.Handlers {
				if strings.HasPrefix(h, "event") {
					current.EventPath = "/dev/input/" + h
				}
			}

		case strings.HasPrefix(line, "B: EV="):
			evBits = parseBitmap(strings.TrimPrefix(line, "B: EV="))

		case strings.HasPrefix(line, "B: KEY="):
			keyBits = parseBitmap(strings.TrimPrefix(line, "B: KEY="))
		}
	}
	flush()

	return devices, scanner.Err()
}

// parseBitmap decodes a capability bitmap printed as space separated hex
// longs, most significant word first. The result is least significant first.
func parseBitmap(s string) []uint64 {
	fields := strings.Fields(s)
	words := make([]uint64, 0, len(fields))
	for i := len(fields) - 1; i >= 0; i-- {
		n, err := strconv.ParseUint(fields[i], 16, 64)
		if err != nil {
			return nil
		}
		words = append(words, n)
	}
	return words
}

func hasBit(words []uint64, bit uint) bool {
	i := bit / 64
	if int(i) >= len(words) {
		return false
	}
	return words[i]&(1<<(bit%64)) != 0
}

func hasAllKeys(words []uint64, codes []uint16) bool {
	for _, c := range codes {
		if !hasBit(words, uint(c)) {
			return false
		}
	}
	return true
}

// SelectKeyboards returns the keyboards among devices that expose an event
// node, skipping any device named exclude (our own virtual keyboard).
func SelectKeyboards(devices []KeyboardDevice, exclude string) []KeyboardDevice {
	var out []KeyboardDevice
	for _, d := range devices {
		if !d.Keyboard || d.EventPath == "" {
			continue
		}
		if exclude != "" && d.Name == exclude {
			continue
		}
		out = append(out, d)
	}
	return out
}
