package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading, watching, and hot-reloading.
// Besides the configuration file it watches the abbreviation file the
// configuration points at.
type Loader struct {
	path     string
	config   *Config
	mu       sync.RWMutex
	watcher  *fsnotify.Watcher
	watched  map[string]bool
	onChange []func(*Config)
	override func(*Config)
	reloadMu sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	errChan  chan error
	debounce time.Duration
}

// NewLoader creates a new configuration loader.
func NewLoader(path string) *Loader {
	if path == "" {
		path = ConfigPath()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		path:     path,
		watched:  make(map[string]bool),
		errChan:  make(chan error, 1),
		ctx:      ctx,
		cancel:   cancel,
		debounce: 100 * time.Millisecond,
	}
}

// Path returns the configuration file path.
func (l *Loader) Path() string {
	return l.path
}

// Override registers fn to adjust every configuration the loader
// produces, before it is validated again and stored. Command-line flags use
// it so that they survive reloads.
func (l *Loader) Override(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.override = fn
}

func (l *Loader) load() (*Config, error) {
	cfg, err := Load(l.path)
	if err != nil {
		return nil, err
	}

	l.mu.RLock()
	fn := l.override
	l.mu.RUnlock()
	if fn != nil {
		fn(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Load reads and parses the configuration file.
func (l *Loader) Load() (*Config, error) {
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.config = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Config returns the current configuration.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// Watch starts watching the configuration and abbreviation files.
// When either changes, the configuration is reloaded and registered
// callbacks are invoked. Load must have been called first.
func (l *Loader) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	l.watcher = watcher

	if err := l.addWatches(l.Config()); err != nil {
		watcher.Close()
		return err
	}

	go l.watchLoop()

	return nil
}

// addWatches watches the directories holding the config and abbreviation
// files. Editors replace files by rename, so watching the file itself would
// lose track after the first save.
func (l *Loader) addWatches(cfg *Config) error {
	files := []string{l.path}
	if cfg != nil && cfg.Abbreviations.File != "" {
		files = append(files, cfg.Abbreviations.File)
	}

	added := 0
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			continue
		}
		l.mu.Lock()
		l.watched[abs] = true
		l.mu.Unlock()

		dir := filepath.Dir(abs)
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := l.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch directory: %w", err)
		}
		added++
	}
	if added == 0 {
		return fmt.Errorf("watch: none of %v exist", files)
	}
	return nil
}

func (l *Loader) isWatched(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.watched[abs]
}

// watchLoop handles file system events.
func (l *Loader) watchLoop() {
	// Debounce timer to avoid multiple reloads for rapid changes
	var debounceTimer *time.Timer

	for {
		select {
		case <-l.ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}

			if !l.isWatched(event.Name) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(l.debounce, func() {
				l.reload()
			})

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.sendErr(err)
		}
	}
}

func (l *Loader) sendErr(err error) {
	select {
	case l.errChan <- err:
	default:
	}
}

// reload attempts to reload the configuration. Reloads run one at a time,
// so callbacks see configurations in the order they were read.
func (l *Loader) reload() {
	l.reloadMu.Lock()
	defer l.reloadMu.Unlock()

	if l.ctx.Err() != nil {
		return
	}

	newCfg, err := l.load()
	if err != nil {
		l.sendErr(fmt.Errorf("reload config: %w", err))
		return
	}

	l.mu.Lock()
	l.config = newCfg
	callbacks := append([]func(*Config){}, l.onChange...)
	l.mu.Unlock()

	if err := l.addWatches(newCfg); err != nil {
		l.sendErr(err)
	}

	for _, cb := range callbacks {
		cb(newCfg)
	}
}

// OnChange registers a callback to be invoked when the configuration or
// abbreviation file changes.
func (l *Loader) OnChange(cb func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, cb)
}

// Errors returns a channel for receiving errors that occur during watching.
func (l *Loader) Errors() <-chan error {
	return l.errChan
}

// Close stops the watcher and releases resources.
func (l *Loader) Close() error {
	l.cancel()
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}

// loadConfigFromFile reads and parses a config file based on its extension.
// The raw document is checked against the schema before it is decoded.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if no config file exists
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	var doc map[string]any

	switch filepath.Ext(path) {
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
		if err := ValidateDocument(doc); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
		if err := ValidateDocument(doc); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
		if err := ValidateDocument(doc); err != nil {
			return nil, err
		}
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	}

	return cfg, nil
}

// WriteDefault writes a commented default TOML configuration to path.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString("# keydogger configuration\n\n"); err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(DefaultConfig()); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
