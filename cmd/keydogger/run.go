package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"keydogger/internal/config"
	"keydogger/internal/daemon"
	"keydogger/internal/keymap"
	"keydogger/internal/keystroke"
	"keydogger/internal/notify"
	"keydogger/internal/security"
	"keydogger/internal/store"
)

func newRunCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Watch the keyboard and expand abbreviations",
		Long: `Run the expansion daemon in the foreground until interrupted.

The keyboard is taken from --device or the configuration; when neither
names one, the first detected keyboard is used.

Examples:
  sudo keydogger run
  sudo keydogger run --rc ~/.keydoggerrc --device /dev/input/event3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDaemon(ctx, opts)
		},
	}
}

func runDaemon(ctx context.Context, opts *globalOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()
	log := logger.WithComponent("daemon").Logger

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	trie, report, err := daemon.BuildTrie(cfg, log)
	if err != nil {
		return withCode(exitConfig, err)
	}
	log.Info("abbreviations loaded",
		"file", cfg.Abbreviations.File,
		"loaded", report.Loaded,
		"rejected", report.Rejected,
	)

	device, err := chooseDevice(cfg, log)
	if err != nil {
		return err
	}

	priv := security.CapturePrivilegeState(device)
	for _, w := range priv.Warnings {
		log.Debug("privilege check", "warning", w)
	}
	if err := priv.Check(cfg.Privileges.RequireRoot); err != nil {
		return withCode(exitPermission, err)
	}

	source, err := keystroke.OpenDevice(device)
	if err != nil {
		return withCode(deviceExitCode(err), err)
	}
	defer source.Close()

	sink, err := keystroke.CreateVirtualKeyboard(keystroke.VirtualKeyboardOptions{
		Name:     cfg.Output.Name,
		Vendor:   cfg.Output.Vendor,
		Product:  cfg.Output.Product,
		Keycodes: keymap.EmitKeycodes(),
	})
	if err != nil {
		return withCode(deviceExitCode(err), err)
	}
	defer sink.Close()

	notifier := notify.New(cfg.Notify.Enabled, log)
	defer notifier.Close()

	dopts := daemon.Options{
		Source:   source,
		Sink:     sink,
		Trie:     trie,
		Logger:   log,
		Notifier: notifier,
	}

	if cfg.History.Enabled {
		history, sessionID, err := openHistory(cfg.History, device, log)
		if err != nil {
			log.Warn("expansion history disabled", "path", cfg.History.Path, "error", err)
		} else {
			defer func() {
				if err := history.EndSession(sessionID, time.Now()); err != nil {
					log.Warn("close history session", "error", err)
				}
				history.Close()
			}()
			dopts.History = history
			dopts.SessionID = &sessionID
		}
	}

	d, err := daemon.New(dopts)
	if err != nil {
		return err
	}

	if cfg.Abbreviations.Watch {
		loader, err := watchConfig(ctx, opts, d, log)
		if err != nil {
			log.Warn("hot reload disabled", "error", err)
		} else {
			defer loader.Close()
		}
	}

	log.Info("keydogger running",
		"device", device,
		"output", sink.Name(),
		"abbreviations", trie.Len(),
	)

	err = d.Run(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		stats := d.Stats()
		log.Info("keydogger stopped",
			"expansions", stats.Expansions,
			"failures", stats.Failures,
			"reloads", stats.Reloads,
		)
		return nil
	case errors.Is(err, keystroke.ErrSourceRead):
		return withCode(exitSourceRead, err)
	default:
		return err
	}
}

// chooseDevice returns the configured input device, or the first keyboard
// found that is not our own virtual one.
func chooseDevice(cfg *config.Config, log *slog.Logger) (string, error) {
	if cfg.Input.Device != "" {
		return cfg.Input.Device, nil
	}

	keyboards, err := keystroke.FindKeyboards(cfg.Output.Name)
	if err != nil {
		return "", withCode(exitDevice, err)
	}
	if len(keyboards) == 0 {
		return "", withCode(exitDevice, keystroke.ErrNoKeyboard)
	}

	kb := keyboards[0]
	log.Info("keyboard detected",
		"device", kb.EventPath,
		"name", kb.Name,
		"bus", kb.Bus.String(),
		"candidates", len(keyboards),
	)
	return kb.EventPath, nil
}

func deviceExitCode(err error) int {
	if errors.Is(err, os.ErrPermission) {
		return exitPermission
	}
	return exitDevice
}

// openHistory opens the history database, drops records past the
// retention period and starts a session for device.
func openHistory(hc config.HistoryConfig, device string, log *slog.Logger) (*store.Store, int64, error) {
	history, err := store.Open(hc.Path)
	if err != nil {
		return nil, 0, err
	}
	if n, err := pruneHistory(history, hc.RetentionDays, time.Now()); err != nil {
		log.Warn("prune expansion history", "error", err)
	} else if n > 0 {
		log.Info("expansion history pruned", "removed", n, "retention_days", hc.RetentionDays)
	}

	sessionID, err := history.BeginSession(device, time.Now())
	if err != nil {
		history.Close()
		return nil, 0, err
	}
	return history, sessionID, nil
}

// pruneHistory removes records older than days before now. Zero days keeps
// everything.
func pruneHistory(history *store.Store, days int, now time.Time) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	return history.Prune(now.AddDate(0, 0, -days))
}

// watchConfig reloads abbreviations whenever the configuration or the
// abbreviation file changes.
func watchConfig(ctx context.Context, opts *globalOptions, d *daemon.Daemon, log *slog.Logger) (*config.Loader, error) {
	loader := config.NewLoader(opts.path())
	loader.Override(opts.apply)
	if _, err := loader.Load(); err != nil {
		loader.Close()
		return nil, err
	}

	loader.OnChange(func(cfg *config.Config) {
		// Errors are logged and notified by Reload.
		_, _ = d.Reload(cfg)
	})
	if err := loader.Watch(); err != nil {
		loader.Close()
		return nil, fmt.Errorf("watch configuration: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-loader.Errors():
				log.Warn("configuration reload failed", "error", err)
			}
		}
	}()
	return loader, nil
}
