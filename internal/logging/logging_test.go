package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		hasError bool
	}{
		{"debug", LevelDebug, false},
		{"DEBUG", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"ERROR", LevelError, false},
		{"invalid", LevelInfo, true},
		{"", LevelInfo, true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			level, err := ParseLevel(test.input)
			if test.hasError && err == nil {
				t.Error("expected error, got nil")
			}
			if !test.hasError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !test.hasError && level != test.expected {
				t.Errorf("expected %v, got %v", test.expected, level)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("json"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(json) = %v, %v", f, err)
	}
	if f, err := ParseFormat("TEXT"); err != nil || f != FormatText {
		t.Errorf("ParseFormat(TEXT) = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("expected default level Info, got %v", cfg.Level)
	}
	if cfg.Format != FormatText {
		t.Errorf("expected default format Text, got %v", cfg.Format)
	}
	if cfg.Output != "stderr" {
		t.Errorf("expected default output stderr, got %s", cfg.Output)
	}
	if cfg.Component != "keydogger" {
		t.Errorf("expected component keydogger, got %s", cfg.Component)
	}
	if !strings.HasSuffix(cfg.FilePath, filepath.Join("keydogger", "keydogger.log")) {
		t.Errorf("unexpected default log path %s", cfg.FilePath)
	}
}

func TestShouldRedact(t *testing.T) {
	tests := []struct {
		key      string
		expected bool
	}{
		{"expansion", true},
		{"Expansion", true},
		{"typed", true},
		{"emitted_text", true},
		{"password", true},
		{"abbreviation", false},
		{"keycode", false},
		{"device", false},
		{"erase", false},
		{"emitted", false},
	}

	for _, test := range tests {
		t.Run(test.key, func(t *testing.T) {
			if result := shouldRedact(test.key); result != test.expected {
				t.Errorf("shouldRedact(%q) = %v, expected %v", test.key, result, test.expected)
			}
		})
	}
}

func TestJSONFormatRedactsExpansion(t *testing.T) {
	var buf bytes.Buffer

	logger, err := New(&Config{
		Level:     LevelInfo,
		Format:    FormatJSON,
		Component: "test",
		Writer:    &buf,
	})
	if err != nil {
		t.Fatalf("failed to create JSON logger: %v", err)
	}
	defer logger.Close()

	logger.Info("expanded", "abbreviation", "brb", "expansion", "be right back")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v: %s", err, buf.String())
	}
	if entry["component"] != "test" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["abbreviation"] != "brb" {
		t.Errorf("abbreviation = %v", entry["abbreviation"])
	}
	if entry["expansion"] != Redacted {
		t.Errorf("expansion not redacted: %v", entry["expansion"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	logger, err := New(&Config{Level: LevelWarn, Writer: &buf})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message written at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn message missing")
	}
}

func TestLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer

	logger, err := New(&Config{Level: LevelInfo, Writer: &buf, Component: "keydogger"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	logger.WithComponent("daemon").Info("started")
	if !strings.Contains(buf.String(), "component=daemon") {
		t.Errorf("component missing: %s", buf.String())
	}
}

func TestFileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "keydogger.log")

	logger, err := New(&Config{
		Level:      LevelInfo,
		Output:     "file",
		FilePath:   logPath,
		MaxSize:    1,
		MaxBackups: 1,
	})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	logger.Info("to file")
	if err := logger.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file missing message: %s", data)
	}
}

func TestFileRotatorRotation(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	rotator, err := NewFileRotator(&Config{
		FilePath:   logPath,
		MaxSize:    1,
		MaxBackups: 2,
	})
	if err != nil {
		t.Fatalf("failed to create rotator: %v", err)
	}

	chunk := bytes.Repeat([]byte("x"), 400*1024)
	for i := 0; i < 10; i++ {
		if _, err := rotator.Write(chunk); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := rotator.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	backups, err := rotator.Backups()
	if err != nil {
		t.Fatalf("backups: %v", err)
	}
	if len(backups) != 2 {
		t.Errorf("expected 2 backups after pruning, got %d: %v", len(backups), backups)
	}

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() > 1024*1024 {
		t.Errorf("current log exceeds max size: %d", info.Size())
	}
}
