// Package keymap is the fixed table between the characters keydogger can
// match on and the Linux keycodes the input subsystem reports for them.
//
// The table is ordered; an entry's position doubles as the child slot index
// in the expansion trie. Only unshifted keys of a US layout are part of the
// alphabet. Shifted characters can still be typed in expansion text, see
// Shifted and Resolve.
package keymap

import (
	"errors"
	"fmt"
)

// Linux input-event-codes.h values used by keydogger.
const (
	KeyBackspace uint16 = 14
	KeyLeftShift uint16 = 42

	key1          uint16 = 2
	key2          uint16 = 3
	key3          uint16 = 4
	key4          uint16 = 5
	key5          uint16 = 6
	key6          uint16 = 7
	key7          uint16 = 8
	key8          uint16 = 9
	key9          uint16 = 10
	key0          uint16 = 11
	keyMinus      uint16 = 12
	keyEqual      uint16 = 13
	keyQ          uint16 = 16
	keyW          uint16 = 17
	keyE          uint16 = 18
	keyR          uint16 = 19
	keyT          uint16 = 20
	keyY          uint16 = 21
	keyU          uint16 = 22
	keyI          uint16 = 23
	keyO          uint16 = 24
	keyP          uint16 = 25
	keyLeftBrace  uint16 = 26
	keyRightBrace uint16 = 27
	keyA          uint16 = 30
	keyS          uint16 = 31
	keyD          uint16 = 32
	keyF          uint16 = 33
	keyG          uint16 = 34
	keyH          uint16 = 35
	keyJ          uint16 = 36
	keyK          uint16 = 37
	keyL          uint16 = 38
	keySemicolon  uint16 = 39
	keyApostrophe uint16 = 40
	keyGrave      uint16 = 41
	keyBackslash  uint16 = 43
	keyZ          uint16 = 44
	keyX          uint16 = 45
	keyC          uint16 = 46
	keyV          uint16 = 47
	keyB          uint16 = 48
	keyN          uint16 = 49
	keyM          uint16 = 50
	keyComma      uint16 = 51
	keyDot        uint16 = 52
	keySlash      uint16 = 53
	keySpace      uint16 = 57
)

var (
	// ErrInvalidCharacter is returned for characters outside the alphabet.
	ErrInvalidCharacter = errors.New("invalid character")

	// ErrInvalidKeycode is returned for keycodes outside the alphabet.
	ErrInvalidKeycode = errors.New("invalid keycode")
)

// Entry pairs one supported character with its keycode.
type Entry struct {
	Char    byte
	Keycode uint16
}

// alphabet is the ordered table. Do not reorder: positions are trie slots.
var alphabet = [...]Entry{
	{'a', keyA}, {'b', keyB}, {'c', keyC}, {'d', keyD}, {'e', keyE},
	{'f', keyF}, {'g', keyG}, {'h', keyH}, {'i', keyI}, {'j', keyJ},
	{'k', keyK}, {'l', keyL}, {'m', keyM}, {'n', keyN}, {'o', keyO},
	{'p', keyP}, {'q', keyQ}, {'r', keyR}, {'s', keyS}, {'t', keyT},
	{'u', keyU}, {'v', keyV}, {'w', keyW}, {'x', keyX}, {'y', keyY},
	{'z', keyZ},
	{'0', key0}, {'1', key1}, {'2', key2}, {'3', key3}, {'4', key4},
	{'5', key5}, {'6', key6}, {'7', key7}, {'8', key8}, {'9', key9},
	{' ', keySpace},
	{'`', keyGrave}, {'-', keyMinus}, {'=', keyEqual},
	{'[', keyLeftBrace}, {']', keyRightBrace}, {'\\', keyBackslash},
	{';', keySemicolon}, {'\'', keyApostrophe},
	{',', keyComma}, {'.', keyDot}, {'/', keySlash},
}

// Size is the number of characters in the alphabet.
const Size = len(alphabet)

// shifted maps characters typed with Shift held to their base keycode.
var shifted = map[byte]uint16{
	'!': key1, '@': key2, '#': key3, '$': key4, '%': key5,
	'^': key6, '&': key7, '*': key8, '(': key9, ')': key0,
	'_': keyMinus, '+': keyEqual, '{': keyLeftBrace, '}': keyRightBrace,
	'|': keyBackslash, ':': keySemicolon, '"': keyApostrophe,
	'<': keyComma, '>': keyDot, '?': keySlash, '~': keyGrave,
}

// Reverse lookup tables, -1 marks an unmapped slot.
var (
	charPos    [256]int
	keycodePos [256]int
)

func init() {
	for i := range charPos {
		charPos[i] = -1
		keycodePos[i] = -1
	}
	for i, e := range alphabet {
		charPos[e.Char] = i
		keycodePos[e.Keycode] = i
	}
	for c := byte('A'); c <= 'Z'; c++ {
		shifted[c] = alphabet[c-'A'].Keycode
	}
}

// Entries returns a copy of the alphabet in position order.
func Entries() []Entry {
	out := make([]Entry, Size)
	copy(out, alphabet[:])
	return out
}

// PositionOf returns the alphabet position of c.
func PositionOf(c byte) (int, error) {
	if p := charPos[c]; p >= 0 {
		return p, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidCharacter, c)
}

// KeycodeOf returns the keycode that types c.
func KeycodeOf(c byte) (uint16, error) {
	p, err := PositionOf(c)
	if err != nil {
		return 0, err
	}
	return alphabet[p].Keycode, nil
}

// CharacterOf returns the character a supported keycode types.
func CharacterOf(code uint16) (byte, error) {
	if !IsSupportedKeycode(code) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidKeycode, code)
	}
	return alphabet[keycodePos[code]].Char, nil
}

// IsSupportedKeycode reports whether code belongs to the alphabet.
func IsSupportedKeycode(code uint16) bool {
	return int(code) < len(keycodePos) && keycodePos[code] >= 0
}

// Shifted returns the base keycode for a character that needs Shift.
func Shifted(c byte) (uint16, bool) {
	code, ok := shifted[c]
	return code, ok
}

// Resolve returns the keycode for any character keydogger can type and
// whether Shift must be held for it.
func Resolve(c byte) (code uint16, shift bool, err error) {
	if code, err := KeycodeOf(c); err == nil {
		return code, false, nil
	}
	if code, ok := Shifted(c); ok {
		return code, true, nil
	}
	return 0, false, fmt.Errorf("%w: %q", ErrInvalidCharacter, c)
}

// EmitKeycodes lists every keycode a synthetic device has to accept:
// Backspace, Left Shift and the whole alphabet.
func EmitKeycodes() []uint16 {
	codes := make([]uint16, 0, Size+2)
	codes = append(codes, KeyBackspace, KeyLeftShift)
	for _, e := range alphabet {
		codes = append(codes, e.Keycode)
	}
	return codes
}
