// Package indexed implements IndexedResolver: answering a query straight
// from a Descriptor's IndexStore, with no filesystem walk or extraction.
package indexed

import (
	"fmt"
	"log/slog"

	"github.com/kluzzebass/logspan/internal/indexstore"
	"github.com/kluzzebass/logspan/internal/logging"
	"github.com/kluzzebass/logspan/internal/model"
	"github.com/kluzzebass/logspan/internal/storeopen"
)

// Resolver is IndexedResolver: it answers queries from a Descriptor's
// IndexStore rather than walking the filesystem.
type Resolver struct {
	logger *slog.Logger
}

// New creates a Resolver. A nil logger discards all output.
func New(logger *slog.Logger) *Resolver {
	return &Resolver{logger: logging.Default(logger).With("component", "indexed")}
}

// Resolve opens desc's IndexStore, queries it for window, and translates
// each row's epoch-valued bounds back to local timestamps. A stale index
// (mtime older than window.End) only produces a logged warning, never an
// error. A missing index_path is an operational error: Resolve never
// creates an index, it only reads one.
func (r *Resolver) Resolve(desc *model.Descriptor, window model.Window) ([]model.FileInterval, error) {
	store, err := storeopen.OpenExisting(desc)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	r.warnIfStale(desc, store, window)

	rows, err := store.Query(window.Begin, window.End)
	if err != nil {
		return nil, fmt.Errorf("query index for %s: %w", desc.Key(), err)
	}

	out := make([]model.FileInterval, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.FileInterval{Path: row.Path, Begin: row.MinTime, End: row.MaxTime})
	}
	return out, nil
}

// warnIfStale logs an advisory warning when the index's on-disk
// modification time predates the query's end bound. Errors reading mtime
// are logged and otherwise ignored: staleness detection is advisory, not
// load-bearing.
func (r *Resolver) warnIfStale(desc *model.Descriptor, store indexstore.Store, window model.Window) {
	if window.End == nil {
		return
	}
	mtime, err := store.ModTime()
	if err != nil {
		r.logger.Debug("could not stat index for staleness check", "descriptor", desc.Key(), "error", err)
		return
	}
	if mtime.Before(*window.End) {
		r.logger.Warn("index may be stale: index mtime predates query end",
			"descriptor", desc.Key(), "index_mtime", mtime, "query_end", *window.End)
	}
}
