// Package config handles configuration loading, validation, and management for keydogger.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"keydogger/internal/abbrev"
)

// Version is the current configuration schema version.
const Version = 1

// DefaultRCPath is where the abbreviation file is looked up when nothing
// else is configured.
const DefaultRCPath = "./keydoggerrc"

// Config holds the complete daemon configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Input selects the physical keyboard to watch.
	Input InputConfig `toml:"input" json:"input" yaml:"input"`

	// Output describes the virtual keyboard expansions are typed into.
	Output OutputConfig `toml:"output" json:"output" yaml:"output"`

	// Abbreviations configures where abbreviations come from.
	Abbreviations AbbreviationsConfig `toml:"abbreviations" json:"abbreviations" yaml:"abbreviations"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// History configures the optional expansion history database.
	History HistoryConfig `toml:"history" json:"history" yaml:"history"`

	// Notify configures desktop notifications.
	Notify NotifyConfig `toml:"notify" json:"notify" yaml:"notify"`

	// Privileges controls the startup permission check.
	Privileges PrivilegesConfig `toml:"privileges" json:"privileges" yaml:"privileges"`
}

// InputConfig holds input device configuration.
type InputConfig struct {
	// Device is an evdev node such as /dev/input/event3.
	// Empty means the first detected keyboard.
	Device string `toml:"device" json:"device" yaml:"device"`
}

// OutputConfig holds virtual keyboard configuration.
type OutputConfig struct {
	// Name is the device name shown to other programs. Auto-detection
	// never picks a device with this name as input.
	Name    string `toml:"name" json:"name" yaml:"name"`
	Vendor  uint16 `toml:"vendor" json:"vendor" yaml:"vendor"`
	Product uint16 `toml:"product" json:"product" yaml:"product"`
}

// AbbreviationsConfig holds abbreviation sources.
type AbbreviationsConfig struct {
	// File is the abbreviation file, one "abbreviation=expansion" per line.
	File string `toml:"file" json:"file" yaml:"file"`

	// Entries are extra abbreviations applied after File, in key order.
	Entries map[string]string `toml:"entries" json:"entries" yaml:"entries"`

	// Watch reloads abbreviations when the file or config changes.
	Watch bool `toml:"watch" json:"watch" yaml:"watch"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: text or json.
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is where logs go: stderr, stdout, file, or both.
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file path when Output is file or both.
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the maximum log file size before rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`

	// Compress gzips rotated files.
	Compress bool `toml:"compress" json:"compress" yaml:"compress"`
}

// HistoryConfig holds expansion history configuration.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	Path    string `toml:"path" json:"path" yaml:"path"`

	// RetentionDays drops records older than this many days when the
	// daemon starts. Zero keeps everything.
	RetentionDays int `toml:"retention_days" json:"retention_days" yaml:"retention_days"`
}

// NotifyConfig holds desktop notification configuration.
type NotifyConfig struct {
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`
}

// PrivilegesConfig holds the permission check configuration.
type PrivilegesConfig struct {
	// RequireRoot refuses to start unless running as root or under sudo.
	// When false, group membership giving device access is enough.
	RequireRoot bool `toml:"require_root" json:"require_root" yaml:"require_root"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	dir := DataDir()

	return &Config{
		Version: Version,
		Output: OutputConfig{
			Name:    "keydogger",
			Vendor:  0x6176,
			Product: 1999,
		},
		Abbreviations: AbbreviationsConfig{
			File:  DefaultRCPath,
			Watch: true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   filepath.Join(dir, "keydogger.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   true,
		},
		History: HistoryConfig{
			Enabled:       false,
			Path:          filepath.Join(dir, "history.db"),
			RetentionDays: 90,
		},
		Privileges: PrivilegesConfig{
			RequireRoot: true,
		},
	}
}

// DataDir returns the base keydogger state directory.
// KEYDOGGER_DATA_DIR overrides the XDG location.
func DataDir() string {
	if envDir := os.Getenv("KEYDOGGER_DATA_DIR"); envDir != "" {
		return envDir
	}
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		homeDir, _ := os.UserHomeDir()
		stateHome = filepath.Join(homeDir, ".local", "state")
	}
	return filepath.Join(stateHome, "keydogger")
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	if v := os.Getenv("KEYDOGGER_CONFIG"); v != "" {
		return v
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "keydogger.toml"
	}
	return filepath.Join(dir, "keydogger", "config.toml")
}

// Load reads configuration from the specified path.
// If the file doesn't exist, returns default configuration.
// Supports TOML, JSON, and YAML formats based on file extension.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	cfg.resolveRelative(path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveRelative makes a relative abbreviation file configured inside a
// config file relative to that file. The built-in default stays relative
// to the working directory.
func (c *Config) resolveRelative(configPath string) {
	f := c.Abbreviations.File
	if f == "" || f == DefaultRCPath || filepath.IsAbs(f) {
		return
	}
	if _, err := os.Stat(configPath); err != nil {
		return
	}
	c.Abbreviations.File = filepath.Join(filepath.Dir(configPath), f)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// EnsureDirectories creates the directories for log and history files.
func (c *Config) EnsureDirectories() error {
	var dirs []string
	if c.Logging.Output == "file" || c.Logging.Output == "both" {
		dirs = append(dirs, filepath.Dir(c.Logging.FilePath))
	}
	if c.History.Enabled {
		dirs = append(dirs, filepath.Dir(c.History.Path))
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables are prefixed with KEYDOGGER_.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("KEYDOGGER_DEVICE"); v != "" {
		c.Input.Device = v
	}
	if v := os.Getenv("KEYDOGGER_RC"); v != "" {
		c.Abbreviations.File = v
	}
	if v := os.Getenv("KEYDOGGER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("KEYDOGGER_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("KEYDOGGER_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
	if v, ok := envBool("KEYDOGGER_HISTORY"); ok {
		c.History.Enabled = v
	}
	if v := os.Getenv("KEYDOGGER_HISTORY_PATH"); v != "" {
		c.History.Path = v
	}
	if v, ok := envBool("KEYDOGGER_NOTIFY"); ok {
		c.Notify.Enabled = v
	}
}

func envBool(name string) (bool, bool) {
	v := os.Getenv(name)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, false
	}
	return b, true
}

// InlineEntries returns Abbreviations.Entries as ordered entries.
func (c *Config) InlineEntries() []abbrev.Entry {
	keys := make([]string, 0, len(c.Abbreviations.Entries))
	for k := range c.Abbreviations.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]abbrev.Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, abbrev.Entry{Abbreviation: k, Expansion: c.Abbreviations.Entries[k]})
	}
	return entries
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Abbreviations.Entries != nil {
		clone.Abbreviations.Entries = make(map[string]string, len(c.Abbreviations.Entries))
		for k, v := range c.Abbreviations.Entries {
			clone.Abbreviations.Entries[k] = v
		}
	}
	return &clone
}
