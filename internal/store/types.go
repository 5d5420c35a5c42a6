// Package store provides SQLite-backed expansion history for keydogger.
//
// Only abbreviation names, counts and timings are stored. Expansion text
// never reaches the database.
package store

import "time"

// Expansion is one recorded expansion attempt.
type Expansion struct {
	ID           int64
	SessionID    *int64
	Abbreviation string
	EraseCount   int
	EmittedCount int
	At           time.Time
	Failed       bool
}

// AbbreviationStats aggregates the history of one abbreviation.
type AbbreviationStats struct {
	Abbreviation string
	Count        int64
	Failed       int64
	LastUsed     time.Time
}

// Summary aggregates the whole history.
type Summary struct {
	Total    int64
	Failed   int64
	Sessions int64
	First    time.Time
	Last     time.Time
	Top      []AbbreviationStats
}

// Session is one run of the daemon.
type Session struct {
	ID        int64
	Device    string
	StartedAt time.Time
	EndedAt   *time.Time
}
