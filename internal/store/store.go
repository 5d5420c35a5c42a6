package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrSessionNotFound is returned when ending an unknown session.
var ErrSessionNotFound = errors.New("session not found")

// Store is the expansion history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at the given path and runs migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := MigrateDB(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// BeginSession records a daemon start reading from device.
func (s *Store) BeginSession(device string, at time.Time) (int64, error) {
	result, err := s.db.Exec(
		"INSERT INTO sessions (device, started_ns) VALUES (?, ?)",
		device, at.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}
	return id, nil
}

// EndSession marks a session finished.
func (s *Store) EndSession(id int64, at time.Time) error {
	result, err := s.db.Exec("UPDATE sessions SET ended_ns = ? WHERE id = ?", at.UnixNano(), id)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// GetSession returns a session by ID.
func (s *Store) GetSession(id int64) (*Session, error) {
	var (
		sess    Session
		started int64
		ended   sql.NullInt64
	)
	err := s.db.QueryRow(
		"SELECT id, device, started_ns, ended_ns FROM sessions WHERE id = ?", id,
	).Scan(&sess.ID, &sess.Device, &started, &ended)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	sess.StartedAt = time.Unix(0, started)
	if ended.Valid {
		t := time.Unix(0, ended.Int64)
		sess.EndedAt = &t
	}
	return &sess, nil
}

// RecordExpansion stores one expansion attempt and returns its ID.
func (s *Store) RecordExpansion(e *Expansion) (int64, error) {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}

	result, err := s.db.Exec(`
		INSERT INTO expansions (session_id, abbreviation, erase_count, emitted_count, at_ns, failed)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Abbreviation, e.EraseCount, e.EmittedCount, at.UnixNano(), e.Failed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert expansion: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}
	return id, nil
}

// Recent returns up to limit expansions, newest first.
func (s *Store) Recent(limit int) ([]Expansion, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, abbreviation, erase_count, emitted_count, at_ns, failed
		FROM expansions ORDER BY at_ns DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query expansions: %w", err)
	}
	defer rows.Close()

	var out []Expansion
	for rows.Next() {
		var (
			e       Expansion
			session sql.NullInt64
			at      int64
		)
		if err := rows.Scan(&e.ID, &session, &e.Abbreviation, &e.EraseCount, &e.EmittedCount, &at, &e.Failed); err != nil {
			return nil, fmt.Errorf("scan expansion: %w", err)
		}
		if session.Valid {
			id := session.Int64
			e.SessionID = &id
		}
		e.At = time.Unix(0, at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats summarises the history. top bounds the per-abbreviation list,
// which is ordered by use count.
func (s *Store) Stats(top int) (*Summary, error) {
	sum := &Summary{}

	var first, last sql.NullInt64
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(failed), 0), MIN(at_ns), MAX(at_ns) FROM expansions`,
	).Scan(&sum.Total, &sum.Failed, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}
	if first.Valid {
		sum.First = time.Unix(0, first.Int64)
	}
	if last.Valid {
		sum.Last = time.Unix(0, last.Int64)
	}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&sum.Sessions); err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT abbreviation, COUNT(*), SUM(failed), MAX(at_ns)
		FROM expansions
		GROUP BY abbreviation
		ORDER BY COUNT(*) DESC, abbreviation ASC
		LIMIT ?`, top)
	if err != nil {
		return nil, fmt.Errorf("query abbreviations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			st   AbbreviationStats
			used int64
		)
		if err := rows.Scan(&st.Abbreviation, &st.Count, &st.Failed, &used); err != nil {
			return nil, fmt.Errorf("scan abbreviation stats: %w", err)
		}
		st.LastUsed = time.Unix(0, used)
		sum.Top = append(sum.Top, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sum, nil
}

// Prune deletes expansions recorded before cutoff.
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec("DELETE FROM expansions WHERE at_ns < ?", cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune expansions: %w", err)
	}
	return result.RowsAffected()
}
