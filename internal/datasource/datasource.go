// Package datasource implements DataSource: composing query, indexing,
// and clean operations across a set of descriptors.
package datasource

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kluzzebass/logspan/internal/fuzzy"
	"github.com/kluzzebass/logspan/internal/indexbuild"
	"github.com/kluzzebass/logspan/internal/indexed"
	"github.com/kluzzebass/logspan/internal/logging"
	"github.com/kluzzebass/logspan/internal/model"
	"github.com/kluzzebass/logspan/internal/storeopen"
)

// Source composes query, indexing, and clean operations over a
// model.DataSource's descriptors.
type Source struct {
	data   *model.DataSource
	fuzzy  *fuzzy.Resolver
	index  *indexed.Resolver
	build  *indexbuild.Builder
	logger *slog.Logger
}

// New creates a Source over data. A nil logger discards all output.
func New(data *model.DataSource, logger *slog.Logger) *Source {
	logger = logging.Default(logger).With("component", "datasource", "source", data.Name)
	return &Source{
		data:   data,
		fuzzy:  fuzzy.New(logger),
		index:  indexed.New(logger),
		build:  indexbuild.New(logger),
		logger: logger,
	}
}

// Query dispatches to FuzzyResolver (flattened across every descriptor)
// or IndexedResolver (one call per unique index).
func (s *Source) Query(window model.Window, useIndex bool) ([]model.FileInterval, error) {
	if useIndex {
		return s.queryIndexed(window)
	}
	return s.queryFuzzy(window)
}

func (s *Source) queryFuzzy(window model.Window) ([]model.FileInterval, error) {
	var out []model.FileInterval
	for _, desc := range s.data.Descriptors {
		results, err := s.fuzzy.Resolve(desc, window)
		if err != nil {
			return nil, fmt.Errorf("fuzzy resolve %s: %w", desc.Key(), err)
		}
		out = append(out, results...)
	}
	return out, nil
}

// queryIndexed picks one descriptor per distinct index key so a shared
// index is not queried twice.
func (s *Source) queryIndexed(window model.Window) ([]model.FileInterval, error) {
	var out []model.FileInterval
	for _, desc := range s.uniqueIndexDescriptors() {
		results, err := s.index.Resolve(desc, window)
		if err != nil {
			return nil, fmt.Errorf("indexed resolve %s: %w", desc.Key(), err)
		}
		out = append(out, results...)
	}
	return out, nil
}

// Index runs IndexBuilder per descriptor, without deduplication: two
// descriptors sharing an index are each indexed independently.
func (s *Source) Index(ctx context.Context, window *model.Window, opts indexbuild.Options) error {
	for _, desc := range s.data.Descriptors {
		if err := s.build.Build(ctx, desc, window, opts); err != nil {
			return fmt.Errorf("index %s: %w", desc.Key(), err)
		}
	}
	return nil
}

// Clean runs IndexStore.Clean over the unique-index set. Like
// IndexedResolver, Clean never creates an index: a missing index_path is
// an operational error, not a no-op.
func (s *Source) Clean() error {
	for _, desc := range s.uniqueIndexDescriptors() {
		store, err := storeopen.OpenExisting(desc)
		if err != nil {
			return err
		}
		err = store.Clean()
		closeErr := store.Close()
		if err != nil {
			return fmt.Errorf("clean %s: %w", desc.Key(), err)
		}
		if closeErr != nil {
			return fmt.Errorf("close index for %s: %w", desc.Key(), closeErr)
		}
	}
	return nil
}

// uniqueIndexDescriptors returns one descriptor per distinct Key()
// (index_path, or source/name when unset), in descriptor order.
func (s *Source) uniqueIndexDescriptors() []*model.Descriptor {
	seen := make(map[string]bool)
	var out []*model.Descriptor
	for _, desc := range s.data.Descriptors {
		key := desc.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, desc)
	}
	return out
}
