// Package model holds the shared, immutable configuration types that flow
// between the config loader, the resolvers, and the index builder:
// Descriptor, DataSource, and the FileInterval triple resolvers emit.
package model

import "time"

// IndexType names an IndexStore backend variant.
type IndexType string

const (
	// IndexSQLite is the single-process local backend.
	IndexSQLite IndexType = "sqlite"
	// IndexSQLiteNFS is the network-safe backend: a sqlite store guarded by
	// an external, bounded-lifetime file lock.
	IndexSQLiteNFS IndexType = "sqlite_nfs"
)

// Descriptor is an immutable (paths, filters, extractor, index) bundle.
// Descriptors are created at config load and never mutated afterward.
type Descriptor struct {
	// Name identifies this descriptor within its DataSource (the sub-section
	// key, or the source name itself when the source has no sub-sections).
	Name string

	// Source is the name of the DataSource this descriptor belongs to.
	Source string

	// Paths is an ordered list of directory glob patterns (doublestar syntax).
	Paths []string

	// Include and Exclude are optional filename glob patterns (fnmatch-style).
	Include []string
	Exclude []string

	// FileTimeIsEndTime, if true, means the timestamp extracted from a file's
	// path denotes the end of its data interval rather than the beginning.
	FileTimeIsEndTime bool

	// Extractor names a registered extractor; empty means the default heuristic.
	Extractor string

	// IndexType and IndexPath configure the backing IndexStore. Both are
	// required only for indexed resolution and for IndexBuilder.
	IndexType IndexType
	IndexPath string

	// Indexer is the path to the external indexer program.
	Indexer string

	// ReindexCron, if set, schedules this descriptor for periodic
	// IndexBuilder runs (see internal/scheduler).
	ReindexCron string
}

// Key identifies a descriptor for deduplication purposes: two descriptors
// sharing an IndexPath are treated as one index.
func (d *Descriptor) Key() string {
	if d.IndexPath != "" {
		return d.IndexPath
	}
	return d.Source + "/" + d.Name
}

// DataSource is a named set of descriptors.
type DataSource struct {
	Name        string
	Descriptors []*Descriptor
}

// FileInterval is the (path, begin, end) triple resolvers emit. Both bounds
// are inclusive for overlap tests, begin <= end always holds.
type FileInterval struct {
	Path  string
	Begin time.Time
	End   time.Time
}

// Window is an optional [Begin, End] query interval. A nil bound on either
// side means unbounded in that direction.
type Window struct {
	Begin *time.Time
	End   *time.Time
}

// Overlaps reports whether [begin, end] intersects the window under the
// inclusive overlap predicate used throughout this module:
//
//	(w.End is nil || begin <= *w.End) && (w.Begin is nil || *w.Begin <= end)
func (w Window) Overlaps(begin, end time.Time) bool {
	if w.End != nil && begin.After(*w.End) {
		return false
	}
	if w.Begin != nil && w.Begin.After(end) {
		return false
	}
	return true
}

// EpochToLocal converts epoch seconds (the IndexStore's persisted
// representation) to a local-timezone time.Time.
func EpochToLocal(epochSeconds float64) time.Time {
	sec := int64(epochSeconds)
	nsec := int64((epochSeconds - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).In(time.Local)
}

// LocalToEpoch converts a time.Time to epoch seconds for IndexStore
// persistence. The inverse of EpochToLocal to microsecond tolerance.
func LocalToEpoch(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}
