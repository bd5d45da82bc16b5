// Package storeopen selects and opens the IndexStore variant a Descriptor
// names. It is split out from internal/indexstore to avoid an import
// cycle: indexstore defines the Store interface; sqlite and nfsstore
// implement it; this package is the one place that needs to know about
// both implementations plus the Descriptor config shape.
package storeopen

import (
	"fmt"
	"os"

	"github.com/kluzzebass/logspan/internal/indexstore"
	"github.com/kluzzebass/logspan/internal/indexstore/nfsstore"
	"github.com/kluzzebass/logspan/internal/indexstore/sqlite"
	"github.com/kluzzebass/logspan/internal/model"
)

// ErrMissingIndexConfig is returned when a Descriptor lacks the
// IndexType/IndexPath needed to open a store. This is a configuration
// error.
type ErrMissingIndexConfig struct{ Descriptor string }

func (e *ErrMissingIndexConfig) Error() string {
	return fmt.Sprintf("descriptor %q is missing index_type or index_path", e.Descriptor)
}

// ErrIndexNotFound is returned by OpenExisting when a Descriptor's
// index_path does not exist. Querying or cleaning an index that was never
// built is an operational error, not an empty result.
type ErrIndexNotFound struct {
	Descriptor string
	Path       string
}

func (e *ErrIndexNotFound) Error() string {
	return fmt.Sprintf("descriptor %q: index %q does not exist", e.Descriptor, e.Path)
}

// Open opens the IndexStore variant named by desc.IndexType at
// desc.IndexPath, creating it if it does not already exist. This is the
// variant IndexBuilder uses: building an index is legitimately how one
// first comes into being.
func Open(desc *model.Descriptor) (indexstore.Store, error) {
	if desc.IndexType == "" || desc.IndexPath == "" {
		return nil, &ErrMissingIndexConfig{Descriptor: desc.Source + "/" + desc.Name}
	}

	local, err := sqlite.Open(desc.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("open index for %s: %w", desc.Key(), err)
	}

	return wrap(desc, local)
}

// OpenExisting opens desc's IndexStore the same way Open does, except it
// first requires desc.IndexPath to already exist on disk. IndexedResolver
// and Clean use this: querying or cleaning an index that was never built
// must surface an explicit error to the caller rather than silently
// creating an empty store and reporting zero rows.
func OpenExisting(desc *model.Descriptor) (indexstore.Store, error) {
	if desc.IndexType == "" || desc.IndexPath == "" {
		return nil, &ErrMissingIndexConfig{Descriptor: desc.Source + "/" + desc.Name}
	}

	if _, err := os.Stat(desc.IndexPath); err != nil {
		if os.IsNotExist(err) {
			return nil, &ErrIndexNotFound{Descriptor: desc.Key(), Path: desc.IndexPath}
		}
		return nil, fmt.Errorf("stat index for %s: %w", desc.Key(), err)
	}

	local, err := sqlite.Open(desc.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("open index for %s: %w", desc.Key(), err)
	}

	return wrap(desc, local)
}

// wrap applies the NFS decorator when desc.IndexType calls for it.
func wrap(desc *model.Descriptor, local *sqlite.Store) (indexstore.Store, error) {
	switch desc.IndexType {
	case model.IndexSQLite:
		return local, nil
	case model.IndexSQLiteNFS:
		return nfsstore.Wrap(local, desc.IndexPath+".lock", nfsstore.DefaultLockLifetime), nil
	default:
		local.Close()
		return nil, fmt.Errorf("descriptor %s: unknown index_type %q", desc.Key(), desc.IndexType)
	}
}
