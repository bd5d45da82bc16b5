// Package indexstore defines the IndexStore capability set: a persisted
// map from file path to (min_time, max_time), shared by the indexed
// resolver and the index builder.
//
// Two variants implement Store: internal/indexstore/sqlite (local,
// single-process) and internal/indexstore/nfsstore (network-safe, a
// decorator that wraps any Store with an external bounded-lifetime file
// lock). See SPEC_FULL.md §9.1 for why this is composition rather than
// inheritance.
package indexstore

import "time"

// Row is one IndexStore entry: a file path and the true min/max timestamps
// of its data, as reported by the external indexer.
type Row struct {
	Path    string
	MinTime time.Time
	MaxTime time.Time
}

// Store is the persistence interface every IndexStore variant implements.
// Implementations must be safe for concurrent use.
type Store interface {
	// Add inserts a row. Inserting a path that already exists is a caller
	// error.
	Add(path string, minTime, maxTime time.Time) error

	// Remove deletes a row by path. No-op if the path is absent.
	Remove(path string) error

	// Indexed reports whether path already has a row.
	Indexed(path string) (bool, error)

	// Query returns rows overlapping [begin, end]; either bound may be nil
	// for unbounded. A row matches iff (begin == nil || begin <= MaxTime)
	// && (end == nil || MinTime <= end).
	Query(begin, end *time.Time) ([]Row, error)

	// Clean deletes every row whose path no longer exists on the
	// filesystem.
	Clean() error

	// ModTime returns the backing file's last-modified time, used by the
	// indexed resolver's staleness advisory.
	ModTime() (time.Time, error)

	// Close releases resources held by the store.
	Close() error
}
