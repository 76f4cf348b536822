// Package hashcache persists perceptual hashes in a local SQLite database
// so repeated analysis runs skip the expensive decode+DCT step.
package hashcache

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/ukogan/removebadphotos/internal/logging"
)

var log = logging.WithName("hashcache")

const schema = `
CREATE TABLE IF NOT EXISTS phashes (
	entry_id TEXT PRIMARY KEY,
	hash     INTEGER NOT NULL,
	updated  TEXT NOT NULL DEFAULT (datetime('now'))
);
`

// Store is a SQLite-backed perceptual hash cache keyed by entry id.
// Hashes are stored as signed 64-bit integers and converted on the way
// in and out.
type Store struct {
	db *sql.DB
}

// Open creates or opens the cache database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open hash cache %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not initialize hash cache schema: %w", err)
	}

	log.Debugf("hash cache open at %s", path)
	return &Store{db: db}, nil
}

// Get returns the cached hash for an entry, and whether one was present.
func (s *Store) Get(entryID string) (uint64, bool, error) {
	var stored int64
	err := s.db.QueryRow(`SELECT hash FROM phashes WHERE entry_id = ?`, entryID).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("could not read hash for %s: %w", entryID, err)
	}
	return uint64(stored), true, nil
}

// Put stores or replaces the hash for an entry.
func (s *Store) Put(entryID string, hash uint64) error {
	_, err := s.db.Exec(
		`INSERT INTO phashes (entry_id, hash, updated) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(entry_id) DO UPDATE SET hash = excluded.hash, updated = excluded.updated`,
		entryID, int64(hash),
	)
	if err != nil {
		return fmt.Errorf("could not store hash for %s: %w", entryID, err)
	}
	return nil
}

// Len returns the number of cached hashes.
func (s *Store) Len() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM phashes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("could not count cached hashes: %w", err)
	}
	return n, nil
}

// Clear removes all cached hashes.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM phashes`); err != nil {
		return fmt.Errorf("could not clear hash cache: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
