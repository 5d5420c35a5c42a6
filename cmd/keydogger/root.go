package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"keydogger/internal/config"
	"keydogger/internal/logging"
)

// globalOptions holds flags shared by every command.
type globalOptions struct {
	configPath string
	device     string
	rcPath     string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "keydogger",
		Short: "System-wide text expansion for Linux keyboards",
		Long: `keydogger watches a keyboard and replaces abbreviations with their
expansions as you type, in every application.

Abbreviations are read from a file of "abbreviation=expansion" lines
(./keydoggerrc by default). Reading the keyboard and creating the virtual
keyboard needs root or membership of the input group.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "configuration file (default: $KEYDOGGER_CONFIG or ~/.config/keydogger/config.toml)")
	cmd.PersistentFlags().StringVar(&opts.rcPath, "rc", "", "abbreviation file, overrides the configuration")
	cmd.PersistentFlags().StringVar(&opts.device, "device", "", "input device such as /dev/input/event3, overrides the configuration")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newCheckCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newDevicesCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))
	cmd.AddCommand(newInitConfigCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// path returns the configuration file to use.
func (o *globalOptions) path() string {
	if o.configPath != "" {
		return o.configPath
	}
	return config.ConfigPath()
}

// apply copies flag values over cfg.
func (o *globalOptions) apply(cfg *config.Config) {
	if o.device != "" {
		cfg.Input.Device = o.device
	}
	if o.rcPath != "" {
		cfg.Abbreviations.File = o.rcPath
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
}

// loadConfig loads the configuration with flags applied.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.path())
	if err != nil {
		return nil, withCode(exitConfig, err)
	}
	o.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, withCode(exitConfig, err)
	}
	return cfg, nil
}

// newLogger builds the process logger from the logging section.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, withCode(exitConfig, err)
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, withCode(exitConfig, err)
	}

	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Format = format
	lc.Output = cfg.Logging.Output
	lc.FilePath = cfg.Logging.FilePath
	lc.MaxSize = int64(cfg.Logging.MaxSizeMB)
	lc.MaxBackups = cfg.Logging.MaxBackups
	lc.Compress = cfg.Logging.Compress

	logger, err := logging.New(lc)
	if err != nil {
		return nil, fmt.Errorf("set up logging: %w", err)
	}
	logging.SetDefault(logger)
	return logger, nil
}
