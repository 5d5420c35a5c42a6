// Package abbrev reads keydogger's abbreviation file and turns it into an
// expansion trie.
//
// The file holds one "abbreviation=expansion" pair per line. The first "="
// splits the line, so expansions may contain "=". Lines starting with "#"
// and blank lines are skipped. Leading whitespace is ignored; everything
// after the "=" is kept verbatim, trailing spaces included.
package abbrev

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"keydogger/internal/expand"
)

// Length limits per side of a line.
const (
	MaxAbbreviation = 99
	MaxExpansion    = 99
)

var (
	// ErrMissingSeparator is returned for a line without "=".
	ErrMissingSeparator = errors.New("missing '=' separator")

	// ErrEmptyField is returned when either side of "=" is empty.
	ErrEmptyField = errors.New("empty abbreviation or expansion")

	// ErrTooLong is returned when a side exceeds its length limit.
	ErrTooLong = errors.New("abbreviation or expansion too long")
)

// Entry is one parsed line.
type Entry struct {
	Line         int
	Abbreviation string
	Expansion    string
}

// LineError ties an error to its line in the source.
type LineError struct {
	Source string
	Line   int
	Err    error
}

func (e *LineError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("%s:%d: %v", e.Source, e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Parse reads entries from r. Malformed lines are reported and skipped;
// the returned error is only set when r itself fails.
func Parse(r io.Reader) ([]Entry, []error, error) {
	var entries []Entry
	var problems []error

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		line = strings.TrimLeft(line, " \t")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		abbrev, expansion, ok := strings.Cut(line, "=")
		switch {
		case !ok:
			problems = append(problems, &LineError{Line: lineNo, Err: ErrMissingSeparator})
		case abbrev == "" || expansion == "":
			problems = append(problems, &LineError{Line: lineNo, Err: ErrEmptyField})
		case len(abbrev) > MaxAbbreviation || len(expansion) > MaxExpansion:
			problems = append(problems, &LineError{Line: lineNo, Err: ErrTooLong})
		default:
			entries = append(entries, Entry{Line: lineNo, Abbreviation: abbrev, Expansion: expansion})
		}
	}
	if err := scanner.Err(); err != nil {
		return entries, problems, fmt.Errorf("read abbreviations: %w", err)
	}
	return entries, problems, nil
}

// LoadFile parses the file at path. Line errors carry the path.
func LoadFile(path string) ([]Entry, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open abbreviations: %w", err)
	}
	defer f.Close()

	entries, problems, err := Parse(f)
	for _, p := range problems {
		var le *LineError
		if errors.As(p, &le) {
			le.Source = path
		}
	}
	return entries, problems, err
}

// Report summarises a Build.
type Report struct {
	Loaded     int
	Rejected   int
	Overridden int
	Errors     []error
}

// Build inserts entries in order into a new trie. Entries the trie refuses
// are logged and skipped; a later entry for the same abbreviation replaces
// the earlier one.
func Build(entries []Entry, logger *slog.Logger) (*expand.Trie, Report) {
	if logger == nil {
		logger = slog.Default()
	}

	trie := expand.NewTrie()
	var report Report
	seen := make(map[string]int, len(entries))

	for _, e := range entries {
		if err := trie.Insert(e.Abbreviation, e.Expansion); err != nil {
			report.Rejected++
			report.Errors = append(report.Errors, &LineError{Line: e.Line, Err: err})
			logger.Warn("abbreviation rejected",
				"line", e.Line,
				"abbreviation", e.Abbreviation,
				"error", err,
			)
			continue
		}
		if prev, ok := seen[e.Abbreviation]; ok {
			report.Overridden++
			logger.Debug("abbreviation overridden",
				"abbreviation", e.Abbreviation,
				"line", e.Line,
				"previous_line", prev,
			)
		}
		seen[e.Abbreviation] = e.Line
	}

	report.Loaded = trie.Len()
	return trie, report
}
