package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database schema migration.
type Migration struct {
	Version     int
	Description string
	Up          string
}

// migrations contains all database migrations in order.
var migrations = []Migration{
	{
		Version:     1,
		Description: "Expansion history",
		Up:          migrationV1Up,
	},
	{
		Version:     2,
		Description: "Daemon sessions",
		Up:          migrationV2Up,
	},
}

const migrationV1Up = `
CREATE TABLE IF NOT EXISTS expansions (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    abbreviation    TEXT NOT NULL,
    erase_count     INTEGER NOT NULL,
    emitted_count   INTEGER NOT NULL,
    at_ns           INTEGER NOT NULL,
    failed          INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_expansions_at ON expansions(at_ns);
CREATE INDEX IF NOT EXISTS idx_expansions_abbreviation ON expansions(abbreviation, at_ns);
`

const migrationV2Up = `
CREATE TABLE IF NOT EXISTS sessions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    device      TEXT NOT NULL,
    started_ns  INTEGER NOT NULL,
    ended_ns    INTEGER
);

ALTER TABLE expansions ADD COLUMN session_id INTEGER;
`

// MigrateDB applies all pending migrations to the database.
func MigrateDB(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			applied_at  INTEGER NOT NULL,
			description TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	currentVersion, err := schemaVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, applied_at, description) VALUES (?, ?, ?)",
			m.Version, time.Now().UnixNano(), m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func schemaVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("get current version: %w", err)
	}
	return v, nil
}

// LatestVersion is the schema version Open migrates to.
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}
