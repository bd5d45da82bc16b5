package indexed_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kluzzebass/logspan/internal/indexed"
	"github.com/kluzzebass/logspan/internal/indexstore/sqlite"
	"github.com/kluzzebass/logspan/internal/model"
)

func openDescriptor(t *testing.T) *model.Descriptor {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "idx.db")
	s, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer s.Close()

	day := func(n int) time.Time { return time.Date(2014, 1, n, 0, 0, 0, 0, time.Local) }
	if err := s.Add("/a", day(1), day(3)); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := s.Add("/b", day(10), day(12)); err != nil {
		t.Fatalf("add b: %v", err)
	}

	return &model.Descriptor{
		Name:      "test",
		Source:    "test",
		IndexType: model.IndexSQLite,
		IndexPath: path,
	}
}

func TestIndexedResolveQuery(t *testing.T) {
	desc := openDescriptor(t)
	r := indexed.New(nil)

	begin := time.Date(2014, 1, 2, 0, 0, 0, 0, time.Local)
	end := time.Date(2014, 1, 4, 0, 0, 0, 0, time.Local)
	results, err := r.Resolve(desc, model.Window{Begin: &begin, End: &end})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(results) != 1 || results[0].Path != "/a" {
		t.Fatalf("got %+v, want only /a", results)
	}
	if !results[0].Begin.Equal(time.Date(2014, 1, 1, 0, 0, 0, 0, time.Local)) {
		t.Fatalf("got begin %v", results[0].Begin)
	}
}

func TestIndexedResolveEmptyWindowYieldsAll(t *testing.T) {
	desc := openDescriptor(t)
	r := indexed.New(nil)

	results, err := r.Resolve(desc, model.Window{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
}

func TestIndexedResolveMissingIndexConfigIsError(t *testing.T) {
	r := indexed.New(nil)
	desc := &model.Descriptor{Name: "test", Source: "test"}
	if _, err := r.Resolve(desc, model.Window{}); err == nil {
		t.Fatalf("expected error for missing index config")
	}
}

// A never-built index (index_path pointing at a file that does not exist)
// must surface an explicit error, not silently create an empty index and
// return zero rows.
func TestIndexedResolveMissingIndexPathIsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "idx.db")

	r := indexed.New(nil)
	desc := &model.Descriptor{
		Name:      "test",
		Source:    "test",
		IndexType: model.IndexSQLite,
		IndexPath: path,
	}
	if _, err := r.Resolve(desc, model.Window{}); err == nil {
		t.Fatalf("expected error for a never-built index")
	}
	if _, err := os.Stat(path); err == nil {
		t.Fatalf("Resolve must not create the index file, but %s now exists", path)
	}
}

func TestIndexedResolveUnreachableIndexPathIsError(t *testing.T) {
	dir := t.TempDir()
	// Occupy the directory component with a regular file so the store
	// can neither open it as a directory nor create it.
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	r := indexed.New(nil)
	desc := &model.Descriptor{
		Name:      "test",
		Source:    "test",
		IndexType: model.IndexSQLite,
		IndexPath: filepath.Join(blocker, "idx.db"),
	}
	if _, err := r.Resolve(desc, model.Window{}); err == nil {
		t.Fatalf("expected error for unreachable index path")
	}
}
