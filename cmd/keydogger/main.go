// Command keydogger expands typed abbreviations system-wide on Linux.
//
// It watches a physical keyboard through evdev and, when the keys typed so
// far spell an abbreviation, erases it and types the expansion through a
// uinput virtual keyboard.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Exit statuses.
const (
	exitOK         = 0
	exitError      = 1
	exitConfig     = 2
	exitPermission = 3
	exitDevice     = 4
	exitSourceRead = 5
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// codedError carries the exit status a failure should produce.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	return exitError
}

func execute(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err != nil {
		fmt.Fprintf(stderr, "keydogger: %v\n", err)
	}
	return exitCode(err)
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
