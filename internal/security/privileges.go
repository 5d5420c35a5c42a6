// Package security checks that keydogger may read the keyboard and create
// a virtual one before any device is touched.
package security

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"runtime"
)

var (
	// ErrNotRoot is returned when root is required but the process is not
	// running as root or under sudo.
	ErrNotRoot = errors.New("security: root privileges required")

	// ErrNoDeviceAccess is returned when the input device or /dev/uinput
	// cannot be opened with the current credentials.
	ErrNoDeviceAccess = errors.New("security: no access to input devices")
)

// UinputPath is the uinput control node.
const UinputPath = "/dev/uinput"

// PrivilegeState captures what the current process is allowed to do.
type PrivilegeState struct {
	UID      int    `json:"uid"`
	EUID     int    `json:"euid"`
	IsRoot   bool   `json:"is_root"`
	Sudo     bool   `json:"sudo"`
	Username string `json:"username,omitempty"`
	Platform string `json:"platform"`

	// InputPath and InputReadable describe the watched keyboard. InputPath
	// is empty when no device was known at capture time.
	InputPath     string `json:"input_path,omitempty"`
	InputReadable bool   `json:"input_readable"`

	UinputWritable bool `json:"uinput_writable"`

	Warnings []string `json:"warnings,omitempty"`
}

// lookupEnv is swapped in tests.
var lookupEnv = os.Getenv

// CapturePrivilegeState inspects the current process. inputPath may be
// empty when the keyboard has not been chosen yet.
func CapturePrivilegeState(inputPath string) *PrivilegeState {
	return capture(inputPath, UinputPath, euid())
}

func capture(inputPath, uinputPath string, effective int) *PrivilegeState {
	state := &PrivilegeState{
		UID:       os.Getuid(),
		EUID:      effective,
		IsRoot:    effective == 0,
		Platform:  runtime.GOOS,
		InputPath: inputPath,
	}

	// Under sudo the real user is named by SUDO_USER while USER is root.
	state.Sudo = lookupEnv("SUDO_COMMAND") != "" || lookupEnv("SUDO_USER") != ""
	if u, err := user.Current(); err == nil {
		state.Username = u.Username
	} else {
		state.Username = lookupEnv("USER")
	}

	if inputPath != "" {
		state.InputReadable = canRead(inputPath)
	}
	state.UinputWritable = canWrite(uinputPath)

	if state.IsRoot {
		state.Warnings = append(state.Warnings, "running as root; membership in the input group is enough for most setups")
	}
	if inputPath != "" && !state.InputReadable {
		state.Warnings = append(state.Warnings, fmt.Sprintf("%s is not readable", inputPath))
	}
	if !state.UinputWritable {
		state.Warnings = append(state.Warnings, fmt.Sprintf("%s is not writable", uinputPath))
	}
	return state
}

// Elevated reports whether the process runs as root or was started by sudo.
func (s *PrivilegeState) Elevated() bool {
	return s.IsRoot || (s.Sudo && lookupEnv("USER") == "root")
}

// Check returns nil when the daemon may start. With requireRoot the
// process must be elevated; otherwise device access is sufficient.
func (s *PrivilegeState) Check(requireRoot bool) error {
	if requireRoot && !s.Elevated() {
		return fmt.Errorf("%w: run with sudo or set privileges.require_root = false", ErrNotRoot)
	}
	if s.Elevated() {
		return nil
	}
	if s.InputPath != "" && !s.InputReadable {
		return fmt.Errorf("%w: cannot read %s", ErrNoDeviceAccess, s.InputPath)
	}
	if !s.UinputWritable {
		return fmt.Errorf("%w: cannot write %s", ErrNoDeviceAccess, UinputPath)
	}
	return nil
}
