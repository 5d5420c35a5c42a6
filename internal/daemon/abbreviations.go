package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"keydogger/internal/abbrev"
	"keydogger/internal/config"
	"keydogger/internal/expand"
)

// ErrNoAbbreviations is returned when neither the abbreviation file nor the
// inline entries yield anything to expand.
var ErrNoAbbreviations = errors.New("no abbreviations loaded")

// BuildTrie loads the abbreviation file named by cfg, appends the inline
// entries and builds the trie. A missing file is only an error when there
// are no inline entries either.
func BuildTrie(cfg *config.Config, logger *slog.Logger) (*expand.Trie, abbrev.Report, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var entries []abbrev.Entry
	var lineErrs []error

	if cfg.Abbreviations.File != "" {
		fileEntries, errs, err := abbrev.LoadFile(cfg.Abbreviations.File)
		switch {
		case errors.Is(err, fs.ErrNotExist) && len(cfg.Abbreviations.Entries) > 0:
			logger.Warn("abbreviation file missing, using inline entries", "path", cfg.Abbreviations.File)
		case err != nil:
			return nil, abbrev.Report{}, fmt.Errorf("load abbreviations: %w", err)
		}
		entries = append(entries, fileEntries...)
		lineErrs = errs
	}
	entries = append(entries, cfg.InlineEntries()...)

	for _, e := range lineErrs {
		logger.Warn("abbreviation line skipped", "error", e)
	}

	trie, report := abbrev.Build(entries, logger)
	report.Rejected += len(lineErrs)
	report.Errors = append(lineErrs, report.Errors...)

	if trie.Len() == 0 {
		return trie, report, ErrNoAbbreviations
	}
	return trie, report, nil
}
