package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAndClose(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "subdir", "nested", "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()
}

func TestOpenTwiceKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := s.RecordExpansion(&Expansion{Abbreviation: "brb", EraseCount: 3, EmittedCount: 13}); err != nil {
		t.Fatalf("RecordExpansion failed: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	sum, err := s.Stats(10)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if sum.Total != 1 {
		t.Errorf("expected 1 expansion after reopen, got %d", sum.Total)
	}
}

func TestCloseNilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close on nil db should not error: %v", err)
	}
}

func TestMigrationsRecorded(t *testing.T) {
	s := openTestStore(t)

	v, err := schemaVersion(s.db)
	if err != nil {
		t.Fatalf("schemaVersion failed: %v", err)
	}
	if v != LatestVersion() {
		t.Errorf("expected version %d, got %d", LatestVersion(), v)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t)

	if err := MigrateDB(s.db); err != nil {
		t.Fatalf("second MigrateDB failed: %v", err)
	}
	var applied int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if applied != LatestVersion() {
		t.Errorf("expected %d migration records, got %d", LatestVersion(), applied)
	}
}

func TestSessions(t *testing.T) {
	s := openTestStore(t)
	start := time.Unix(1700000000, 0)

	id, err := s.BeginSession("/dev/input/event3", start)
	if err != nil {
		t.Fatalf("BeginSession failed: %v", err)
	}

	sess, err := s.GetSession(id)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if sess.Device != "/dev/input/event3" || !sess.StartedAt.Equal(start) || sess.EndedAt != nil {
		t.Errorf("unexpected session %+v", sess)
	}

	end := start.Add(time.Hour)
	if err := s.EndSession(id, end); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	sess, _ = s.GetSession(id)
	if sess.EndedAt == nil || !sess.EndedAt.Equal(end) {
		t.Errorf("session end not recorded: %+v", sess)
	}

	if err := s.EndSession(id+100, end); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := s.GetSession(id + 100); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	base := time.Unix(1700000000, 0)

	sessionID, err := s.BeginSession("/dev/input/event0", base)
	if err != nil {
		t.Fatalf("BeginSession failed: %v", err)
	}

	records := []Expansion{
		{SessionID: &sessionID, Abbreviation: "ab", EraseCount: 2, EmittedCount: 7, At: base},
		{SessionID: &sessionID, Abbreviation: "brb", EraseCount: 3, EmittedCount: 13, At: base.Add(time.Second), Failed: true},
		{Abbreviation: "ab", EraseCount: 2, EmittedCount: 7, At: base.Add(2 * time.Second)},
	}
	for i := range records {
		if _, err := s.RecordExpansion(&records[i]); err != nil {
			t.Fatalf("RecordExpansion %d failed: %v", i, err)
		}
	}

	recent, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent, got %d", len(recent))
	}
	if recent[0].Abbreviation != "ab" || recent[0].SessionID != nil {
		t.Errorf("unexpected newest record %+v", recent[0])
	}
	if recent[1].Abbreviation != "brb" || !recent[1].Failed || recent[1].SessionID == nil || *recent[1].SessionID != sessionID {
		t.Errorf("unexpected second record %+v", recent[1])
	}
	if !recent[1].At.Equal(base.Add(time.Second)) {
		t.Errorf("timestamp mismatch: %v", recent[1].At)
	}
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	base := time.Unix(1700000000, 0)

	for i, abbrev := range []string{"ab", "brb", "ab", "ty", "ab", "brb"} {
		e := &Expansion{Abbreviation: abbrev, EraseCount: len(abbrev), EmittedCount: 5, At: base.Add(time.Duration(i) * time.Minute)}
		if i == 5 {
			e.Failed = true
		}
		if _, err := s.RecordExpansion(e); err != nil {
			t.Fatalf("RecordExpansion failed: %v", err)
		}
	}

	sum, err := s.Stats(2)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if sum.Total != 6 || sum.Failed != 1 {
		t.Errorf("unexpected totals %+v", sum)
	}
	if !sum.First.Equal(base) || !sum.Last.Equal(base.Add(5*time.Minute)) {
		t.Errorf("unexpected range %v..%v", sum.First, sum.Last)
	}
	if len(sum.Top) != 2 {
		t.Fatalf("expected top 2, got %d", len(sum.Top))
	}
	if sum.Top[0].Abbreviation != "ab" || sum.Top[0].Count != 3 {
		t.Errorf("unexpected top entry %+v", sum.Top[0])
	}
	if sum.Top[1].Abbreviation != "brb" || sum.Top[1].Count != 2 || sum.Top[1].Failed != 1 {
		t.Errorf("unexpected second entry %+v", sum.Top[1])
	}
}

func TestStatsEmpty(t *testing.T) {
	s := openTestStore(t)

	sum, err := s.Stats(5)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if sum.Total != 0 || len(sum.Top) != 0 || !sum.First.IsZero() {
		t.Errorf("expected empty summary, got %+v", sum)
	}
}

func TestPrune(t *testing.T) {
	s := openTestStore(t)
	base := time.Unix(1700000000, 0)

	for i := 0; i < 4; i++ {
		if _, err := s.RecordExpansion(&Expansion{Abbreviation: "x", At: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("RecordExpansion failed: %v", err)
		}
	}

	n, err := s.Prune(base.Add(2 * time.Hour))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 pruned, got %d", n)
	}
}
