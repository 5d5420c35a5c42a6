package keystroke

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDevices = `I: Bus=0019 Vendor=0000 Product=0001 Version=0000
N: Name="Power Button"
P: Phys=PNP0C0C/button/input0
S: Sysfs=/devices/LNXSYSTM:00/LNXSYBUS:00/PNP0C0C:00/input/input0
U: Uniq=
H: Handlers=kbd event0
B: PROP=0
B: EV=3
B: KEY=10000000000000 0

I: Bus=0011 Vendor=0001 Product=0001 Version=ab41
N: Name="AT Translated Set 2 keyboard"
P: Phys=isa0060/serio0/input0
S: Sysfs=/devices/platform/i8042/serio0/input/input3
U: Uniq=
H: Handlers=sysrq kbd event3 leds
B: PROP=0
B: EV=120013
B: KEY=402000000 3803078f800d001 feffffdfffefffff fffffffffffffffe
B: MSC=10
B: LED=7

I: Bus=0003 Vendor=046d Product=c077 Version=0111
N: Name="Logitech USB Optical Mouse"
P: Phys=usb-0000:00:14.0-1/input0
H: Handlers=mouse0 event4
B: PROP=0
B: EV=17
B: KEY=70000 0 0 0 0

I: Bus=0003 Vendor=6176 Product=07cf Version=0000
N: Name="keydogger"
P: Phys=
H: Handlers=sysrq kbd event7 leds
B: PROP=0
B: EV=3
B: KEY=402000000 3803078f800d001 feffffdfffefffff fffffffffffffffe
`

func TestParseDevices(t *testing.T) {
	devices, err := ParseDevices(strings.NewReader(sampleDevices))
	require.NoError(t, err)
	require.Len(t, devices, 4)

	power := devices[0]
	assert.Equal(t, "Power Button", power.Name)
	assert.Equal(t, "/dev/input/event0", power.EventPath)
	assert.False(t, power.Keyboard)

	kbd := devices[1]
	assert.Equal(t, "AT Translated Set 2 keyboard", kbd.Name)
	assert.Equal(t, uint16(0x0001), kbd.VendorID)
	assert.Equal(t, uint16(0x0001), kbd.ProductID)
	assert.Equal(t, ConnectionPS2, kbd.Bus)
	assert.Equal(t, "/dev/input/event3", kbd.EventPath)
	assert.Equal(t, []string{"sysrq", "kbd", "event3", "leds"}, kbd.Handlers)
	assert.True(t, kbd.Keyboard)

	mouse := devices[2]
	assert.Equal(t, ConnectionUSB, mouse.Bus)
	assert.False(t, mouse.Keyboard)

	// No EV_REP bit: virtual keyboards without autorepeat are not picked.
	assert.False(t, devices[3].Keyboard)
}

func TestSelectKeyboards(t *testing.T) {
	devices := []KeyboardDevice{
		{Name: "internal", Keyboard: true, EventPath: "/dev/input/event3"},
		{Name: "keydogger", Keyboard: true, EventPath: "/dev/input/event7"},
		{Name: "no node", Keyboard: true},
		{Name: "mouse", EventPath: "/dev/input/event4"},
	}

	got := SelectKeyboards(devices, "keydogger")
	require.Len(t, got, 1)
	assert.Equal(t, "internal", got[0].Name)
}

func TestParseBitmap(t *testing.T) {
	words := parseBitmap("1 8000000000000001")
	require.Len(t, words, 2)
	assert.True(t, hasBit(words, 0))
	assert.True(t, hasBit(words, 63))
	assert.True(t, hasBit(words, 64))
	assert.False(t, hasBit(words, 1))
	assert.False(t, hasBit(words, 200))

	assert.Nil(t, parseBitmap("zz"))
}

func TestConnectionTypeString(t *testing.T) {
	assert.Equal(t, "USB", ConnectionUSB.String())
	assert.Equal(t, "PS/2", busToConnectionType("0011").String())
	assert.Equal(t, "Unknown", busToConnectionType("ffff").String())
}
