// Package sqlite implements the local, single-process IndexStore variant
// backed by a SQLite database: modernc.org/sqlite (pure Go, no cgo), a
// single pooled connection, and WAL journaling.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kluzzebass/logspan/internal/indexstore"
	"github.com/kluzzebass/logspan/internal/model"
)

// Store is a SQLite-backed IndexStore.
type Store struct {
	db   *sql.DB
	path string
}

var _ indexstore.Store = (*Store)(nil)

// Open opens (creating if needed) a SQLite index database at path and
// ensures its schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite index %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal_mode: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS idx (
		path TEXT PRIMARY KEY,
		min_time REAL NOT NULL,
		max_time REAL NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create idx table: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// isLockedErr reports whether err is SQLite's transient "database is
// locked" / "database table is locked" busy error.
func isLockedErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

// retryLocked runs fn, transparently retrying with a short backoff while
// it reports a transient "database is locked" error, looping until it
// either succeeds or fails for some other reason.
func retryLocked(fn func() error) error {
	backoff := 5 * time.Millisecond
	for {
		err := fn()
		if err == nil || !isLockedErr(err) {
			return err
		}
		time.Sleep(backoff)
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}
}

// Add inserts a row; inserting an existing path is a caller error.
func (s *Store) Add(path string, minTime, maxTime time.Time) error {
	return retryLocked(func() error {
		_, err := s.db.Exec(
			"INSERT INTO idx (path, min_time, max_time) VALUES (?, ?, ?)",
			path, model.LocalToEpoch(minTime), model.LocalToEpoch(maxTime),
		)
		if err != nil {
			return fmt.Errorf("add %s: %w", path, err)
		}
		return nil
	})
}

// Remove deletes a row by path. No-op if absent.
func (s *Store) Remove(path string) error {
	return retryLocked(func() error {
		if _, err := s.db.Exec("DELETE FROM idx WHERE path = ?", path); err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
		return nil
	})
}

// Indexed reports whether path already has a row.
func (s *Store) Indexed(path string) (bool, error) {
	var exists bool
	err := retryLocked(func() error {
		return s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM idx WHERE path = ?)", path).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("indexed %s: %w", path, err)
	}
	return exists, nil
}

// Query returns rows overlapping [begin, end].
func (s *Store) Query(begin, end *time.Time) ([]indexstore.Row, error) {
	var rows *sql.Rows
	err := retryLocked(func() error {
		var err error
		switch {
		case begin != nil && end != nil:
			rows, err = s.db.Query(
				"SELECT path, min_time, max_time FROM idx WHERE ? <= max_time AND min_time <= ?",
				model.LocalToEpoch(*begin), model.LocalToEpoch(*end),
			)
		case begin != nil:
			rows, err = s.db.Query("SELECT path, min_time, max_time FROM idx WHERE ? <= max_time", model.LocalToEpoch(*begin))
		case end != nil:
			rows, err = s.db.Query("SELECT path, min_time, max_time FROM idx WHERE min_time <= ?", model.LocalToEpoch(*end))
		default:
			rows, err = s.db.Query("SELECT path, min_time, max_time FROM idx")
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	var out []indexstore.Row
	for rows.Next() {
		var path string
		var minEpoch, maxEpoch float64
		if err := rows.Scan(&path, &minEpoch, &maxEpoch); err != nil {
			return nil, fmt.Errorf("scan index row: %w", err)
		}
		out = append(out, indexstore.Row{
			Path:    path,
			MinTime: model.EpochToLocal(minEpoch),
			MaxTime: model.EpochToLocal(maxEpoch),
		})
	}
	return out, rows.Err()
}

// Clean deletes every row whose path no longer exists on the filesystem.
func (s *Store) Clean() error {
	var paths []string
	err := retryLocked(func() error {
		rows, err := s.db.Query("SELECT path FROM idx")
		if err != nil {
			return err
		}
		defer rows.Close()
		paths = paths[:0]
		for rows.Next() {
			var p string
			if err := rows.Scan(&p); err != nil {
				return err
			}
			paths = append(paths, p)
		}
		return rows.Err()
	})
	if err != nil {
		return fmt.Errorf("list index paths: %w", err)
	}

	for _, p := range paths {
		if _, statErr := os.Stat(p); statErr != nil {
			if !errors.Is(statErr, os.ErrNotExist) {
				continue
			}
			if err := s.Remove(p); err != nil {
				return fmt.Errorf("clean %s: %w", p, err)
			}
		}
	}
	return nil
}

// ModTime returns the index file's last-modified time.
func (s *Store) ModTime() (time.Time, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat index file %s: %w", s.path, err)
	}
	return info.ModTime(), nil
}
