package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileRotator is an io.Writer over a log file that moves the file aside
// once it would exceed Config.MaxSize megabytes.
type FileRotator struct {
	config *Config
	mu     sync.Mutex
	file   *os.File
	size   int64
	wg     sync.WaitGroup
}

// NewFileRotator opens (or creates) cfg.FilePath for appending.
func NewFileRotator(cfg *Config) (*FileRotator, error) {
	r := &FileRotator{config: cfg}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if err := r.openFile(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRotator) openFile() error {
	file, err := os.OpenFile(r.config.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	r.file = file
	r.size = info.Size()
	return nil
}

// Write implements io.Writer.
func (r *FileRotator) Write(p []byte) (n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err := r.openFile(); err != nil {
			return 0, err
		}
	}

	maxBytes := r.config.MaxSize * 1024 * 1024
	if maxBytes > 0 && r.size > 0 && r.size+int64(len(p)) > maxBytes {
		if err := r.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log: %w", err)
		}
	}

	n, err = r.file.Write(p)
	r.size += int64(n)
	return n, err
}

// rotate renames the current file to name-<timestamp>.ext and starts a
// fresh one. Must be called with mu held.
func (r *FileRotator) rotate() error {
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("close current log: %w", err)
	}
	r.file = nil

	name, ext := r.nameParts()
	timestamp := time.Now().Format("20060102-150405.000000")
	rotatedPath := filepath.Join(filepath.Dir(r.config.FilePath), fmt.Sprintf("%s-%s%s", name, timestamp, ext))

	if err := os.Rename(r.config.FilePath, rotatedPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rename log file: %w", err)
	}

	if err := r.openFile(); err != nil {
		return err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if r.config.Compress {
			compressFile(rotatedPath)
		}
		r.prune()
	}()
	return nil
}

func (r *FileRotator) nameParts() (name, ext string) {
	base := filepath.Base(r.config.FilePath)
	ext = filepath.Ext(base)
	return strings.TrimSuffix(base, ext), ext
}

func compressFile(path string) {
	input, err := os.Open(path)
	if err != nil {
		return
	}
	defer input.Close()

	output, err := os.Create(path + ".gz")
	if err != nil {
		return
	}
	defer output.Close()

	gz := gzip.NewWriter(output)
	gz.Name = filepath.Base(path)

	if _, err := io.Copy(gz, input); err != nil {
		gz.Close()
		os.Remove(path + ".gz")
		return
	}
	if err := gz.Close(); err != nil {
		os.Remove(path + ".gz")
		return
	}
	os.Remove(path)
}

// prune deletes the oldest rotated files beyond MaxBackups.
func (r *FileRotator) prune() {
	files, err := r.Backups()
	if err != nil || len(files) <= r.config.MaxBackups {
		return
	}
	for _, f := range files[:len(files)-r.config.MaxBackups] {
		os.Remove(f)
	}
}

// Backups lists rotated log files, oldest first.
func (r *FileRotator) Backups() ([]string, error) {
	name, ext := r.nameParts()
	pattern := filepath.Join(filepath.Dir(r.config.FilePath), name+"-*"+ext+"*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	// The timestamp suffix sorts chronologically.
	sort.Strings(matches)
	return matches, nil
}

// Close waits for pending compression and closes the file.
func (r *FileRotator) Close() error {
	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}
