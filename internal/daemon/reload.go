package daemon

import (
	"errors"
	"fmt"

	"keydogger/internal/abbrev"
	"keydogger/internal/config"
)

// Reload rebuilds the trie from cfg and publishes it. Load failures and
// empty results leave the running trie untouched.
func (d *Daemon) Reload(cfg *config.Config) (abbrev.Report, error) {
	t, report, err := BuildTrie(cfg, d.logger)
	if err != nil && !errors.Is(err, ErrNoAbbreviations) {
		d.logger.Error("reload failed, keeping current abbreviations", "error", err)
		d.notify("Reload failed: " + err.Error())
		return report, err
	}

	if err := d.Replace(t); err != nil {
		d.logger.Warn("reload produced no abbreviations, keeping current ones",
			"file", cfg.Abbreviations.File,
			"rejected", report.Rejected,
		)
		d.notify("Reload ignored: no valid abbreviations")
		return report, err
	}

	d.logger.Info("abbreviations reloaded",
		"loaded", report.Loaded,
		"rejected", report.Rejected,
		"overridden", report.Overridden,
	)
	msg := fmt.Sprintf("Loaded %d abbreviations", report.Loaded)
	if report.Rejected > 0 {
		msg += fmt.Sprintf(", %d rejected", report.Rejected)
	}
	d.notify(msg)
	return report, nil
}

func (d *Daemon) notify(body string) {
	if err := d.opts.Notifier.Notify("keydogger", body); err != nil {
		d.logger.Debug("notification failed", "error", err)
	}
}
