package nfsstore_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/kluzzebass/logspan/internal/indexstore/nfsstore"
	"github.com/kluzzebass/logspan/internal/indexstore/sqlite"
)

func TestNFSStorePassesThrough(t *testing.T) {
	dir := t.TempDir()
	local, err := sqlite.Open(filepath.Join(dir, "idx.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer local.Close()

	s := nfsstore.Wrap(local, filepath.Join(dir, "idx.db.lock"), time.Second)

	now := time.Now()
	if err := s.Add("/a", now, now); err != nil {
		t.Fatalf("add: %v", err)
	}
	ok, err := s.Indexed("/a")
	if err != nil {
		t.Fatalf("indexed: %v", err)
	}
	if !ok {
		t.Fatalf("expected indexed")
	}
}

func TestNFSStoreTimesOutOnContendedLock(t *testing.T) {
	dir := t.TempDir()
	local, err := sqlite.Open(filepath.Join(dir, "idx.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer local.Close()

	lockPath := filepath.Join(dir, "idx.db.lock")

	// Hold the lock externally, simulating a peer mid-operation.
	holder := flock.New(lockPath)
	locked, err := holder.TryLock()
	if err != nil || !locked {
		t.Fatalf("failed to acquire external lock: %v", err)
	}
	defer holder.Unlock()

	s := nfsstore.Wrap(local, lockPath, 100*time.Millisecond)
	now := time.Now()
	if err := s.Add("/a", now, now); err == nil {
		t.Fatalf("expected timeout error while lock is contended")
	}
}
