package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keydogger/internal/store"
)

type testEnv struct {
	dir     string
	config  string
	rc      string
	history string
}

func newTestEnv(t *testing.T, rc string) *testEnv {
	t.Helper()
	t.Setenv("KEYDOGGER_CONFIG", "")
	t.Setenv("KEYDOGGER_RC", "")
	t.Setenv("KEYDOGGER_DEVICE", "")

	dir := t.TempDir()
	env := &testEnv{
		dir:     dir,
		config:  filepath.Join(dir, "config.toml"),
		rc:      filepath.Join(dir, "keydoggerrc"),
		history: filepath.Join(dir, "history.db"),
	}
	require.NoError(t, os.WriteFile(env.rc, []byte(rc), 0o644))
	cfg := fmt.Sprintf("[abbreviations]\nfile = %q\nwatch = false\n\n[history]\npath = %q\n", env.rc, env.history)
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0o644))
	return env
}

func (e *testEnv) run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := execute(append(args, "--config", e.config), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitError, exitCode(errors.New("plain")))
	assert.Equal(t, exitConfig, exitCode(withCode(exitConfig, errors.New("bad"))))
	assert.Equal(t, exitSourceRead, exitCode(fmt.Errorf("wrapped: %w", withCode(exitSourceRead, errors.New("read")))))
	assert.NoError(t, withCode(exitDevice, nil))
}

func TestDeviceExitCode(t *testing.T) {
	assert.Equal(t, exitPermission, deviceExitCode(fmt.Errorf("open: %w", os.ErrPermission)))
	assert.Equal(t, exitDevice, deviceExitCode(fmt.Errorf("open: %w", os.ErrNotExist)))
}

func TestVersion(t *testing.T) {
	var stdout bytes.Buffer
	code := execute([]string{"version"}, &stdout, &bytes.Buffer{})
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "keydogger dev\n", stdout.String())
}

func TestCheckValid(t *testing.T) {
	env := newTestEnv(t, "brb=be right back\nty=thank you\n")

	code, out, _ := env.run("check")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "2 loaded, 0 rejected, 0 overridden")
}

func TestCheckRejectedLines(t *testing.T) {
	env := newTestEnv(t, "brb=be right back\nno separator here\nx=caf\xc3\xa9\n")

	code, out, stderr := env.run("check")
	assert.Equal(t, exitConfig, code)
	assert.Contains(t, out, "rejected:")
	assert.Contains(t, out, "1 loaded, 2 rejected")
	assert.Contains(t, stderr, "2 abbreviations rejected")
}

func TestCheckEmptyFile(t *testing.T) {
	env := newTestEnv(t, "# only comments\n")

	code, out, _ := env.run("check")
	assert.Equal(t, exitConfig, code)
	assert.Contains(t, out, "0 loaded")
}

func TestCheckSchemaError(t *testing.T) {
	env := newTestEnv(t, "a=b\n")
	require.NoError(t, os.WriteFile(env.config, []byte("[inptu]\ndevice = \"/dev/input/event0\"\n"), 0o644))

	code, _, stderr := env.run("check")
	assert.Equal(t, exitConfig, code)
	assert.Contains(t, stderr, "schema")
}

func TestRCFlagOverridesConfig(t *testing.T) {
	env := newTestEnv(t, "a=b\n")
	other := filepath.Join(env.dir, "other")
	require.NoError(t, os.WriteFile(other, []byte("x=y\nz=w\nq=r\n"), 0o644))

	code, out, _ := env.run("check", "--rc", other)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "3 loaded")
}

func TestList(t *testing.T) {
	env := newTestEnv(t, "ty=thank you\nbrb=be right back\n")

	code, out, _ := env.run("list")
	require.Equal(t, exitOK, code)

	lines := bytes.Split(bytes.TrimSpace([]byte(out)), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "brb")
	assert.Contains(t, string(lines[0]), "be right back")
	assert.Contains(t, string(lines[1]), "ty")
}

func TestRunMissingAbbreviationFile(t *testing.T) {
	env := newTestEnv(t, "a=b\n")
	require.NoError(t, os.Remove(env.rc))

	code, _, stderr := env.run("run", "--log-level", "error")
	assert.Equal(t, exitConfig, code)
	assert.Contains(t, stderr, "load abbreviations")
}

func TestInitConfig(t *testing.T) {
	env := newTestEnv(t, "a=b\n")
	path := filepath.Join(env.dir, "new", "config.toml")

	var stdout bytes.Buffer
	code := execute([]string{"init-config", "--config", path}, &stdout, &bytes.Buffer{})
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout.String(), path)
	assert.FileExists(t, path)

	code = execute([]string{"init-config", "--config", path}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.Equal(t, exitConfig, code)
}

func TestStatsWithoutHistory(t *testing.T) {
	env := newTestEnv(t, "a=b\n")

	code, _, stderr := env.run("stats")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "no history")
}

func TestStats(t *testing.T) {
	env := newTestEnv(t, "a=b\n")

	s, err := store.Open(env.history)
	require.NoError(t, err)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)
	for _, abbrev := range []string{"brb", "brb", "ty"} {
		_, err := s.RecordExpansion(&store.Expansion{Abbreviation: abbrev, EraseCount: len(abbrev), At: at})
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())

	code, out, _ := env.run("stats", "--top", "1")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "expansions: 3 (0 failed)")
	assert.Contains(t, out, "brb")
	assert.NotContains(t, out, "ty ")
}

func TestStatsRecent(t *testing.T) {
	env := newTestEnv(t, "a=b\n")

	s, err := store.Open(env.history)
	require.NoError(t, err)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)
	session, err := s.BeginSession("/dev/input/event7", at)
	require.NoError(t, err)
	_, err = s.RecordExpansion(&store.Expansion{SessionID: &session, Abbreviation: "brb", EraseCount: 3, EmittedCount: 13, At: at})
	require.NoError(t, err)
	_, err = s.RecordExpansion(&store.Expansion{Abbreviation: "ty", EraseCount: 2, EmittedCount: 9, At: at.Add(time.Minute), Failed: true})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	code, out, _ := env.run("stats", "--recent", "5")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "TIME")
	assert.Contains(t, out, "/dev/input/event7")
	assert.Contains(t, out, "failed")

	code, out, _ = env.run("stats", "--recent", "1", "--json")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, `"Recent"`)
	assert.Contains(t, out, `"ty"`)
	assert.NotContains(t, out, "/dev/input/event7")
}

func TestPruneHistory(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer s.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, age := range []time.Duration{40 * 24 * time.Hour, 10 * 24 * time.Hour, time.Hour} {
		_, err := s.RecordExpansion(&store.Expansion{Abbreviation: "brb", At: now.Add(-age)})
		require.NoError(t, err)
	}

	n, err := pruneHistory(s, 0, now)
	require.NoError(t, err)
	assert.Zero(t, n, "zero retention keeps everything")

	n, err = pruneHistory(s, 30, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	sum, err := s.Stats(5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sum.Total)
}
