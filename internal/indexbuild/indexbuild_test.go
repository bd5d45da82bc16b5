package indexbuild_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/kluzzebass/logspan/internal/indexbuild"
	"github.com/kluzzebass/logspan/internal/indexstore/sqlite"
	"github.com/kluzzebass/logspan/internal/model"
)

// writeMockIndexer writes a small shell script that emits a fixed
// "min max" line, standing in for a real external indexer subprocess.
func writeMockIndexer(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "mock-indexer.sh")
	script := "#!/bin/sh\necho \"0 1\"\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write mock indexer: %v", err)
	}
	return path
}

func writeFailingIndexer(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "fail-indexer.sh")
	script := "#!/bin/sh\nexit 1\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write failing indexer: %v", err)
	}
	return path
}

func newDescriptor(dir, indexer string) *model.Descriptor {
	return &model.Descriptor{
		Name:      "test",
		Source:    "test",
		Paths:     []string{filepath.Join(dir, "data", "*")},
		IndexType: model.IndexSQLite,
		IndexPath: filepath.Join(dir, "idx.db"),
		Indexer:   indexer,
	}
}

// Parallel indexing of many files with a bounded worker pool, no
// duplicate commits.
func TestBuildIndexesAllCandidatePaths(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("mock indexer is a POSIX shell script")
	}
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	const n = 100
	for i := 0; i < n; i++ {
		name := filepath.Join(dataDir, fmt.Sprintf("file%03d.log", i))
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}

	indexer := writeMockIndexer(t, dir)
	desc := newDescriptor(dir, indexer)

	b := indexbuild.New(nil)
	if err := b.Build(context.Background(), desc, nil, indexbuild.Options{Workers: 4}); err != nil {
		t.Fatalf("build: %v", err)
	}

	s, err := sqlite.Open(desc.IndexPath)
	if err != nil {
		t.Fatalf("reopen index: %v", err)
	}
	defer s.Close()

	rows, err := s.Query(nil, nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != n {
		t.Fatalf("got %d indexed rows, want %d", len(rows), n)
	}
	seen := make(map[string]bool)
	for _, row := range rows {
		if seen[row.Path] {
			t.Fatalf("duplicate row for %s", row.Path)
		}
		seen[row.Path] = true
	}
}

// Already-indexed paths are skipped, not re-run.
func TestBuildSkipsAlreadyIndexed(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("mock indexer is a POSIX shell script")
	}
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dataDir, "a.log")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	indexer := writeMockIndexer(t, dir)
	desc := newDescriptor(dir, indexer)

	s, err := sqlite.Open(desc.IndexPath)
	if err != nil {
		t.Fatalf("pre-open index: %v", err)
	}
	// Whole seconds survive the float64 epoch round trip exactly.
	now := time.Now().Truncate(time.Second)
	if err := s.Add(path, now, now); err != nil {
		t.Fatalf("pre-seed index: %v", err)
	}
	s.Close()

	b := indexbuild.New(nil)
	if err := b.Build(context.Background(), desc, nil, indexbuild.Options{Workers: 2}); err != nil {
		t.Fatalf("build: %v", err)
	}

	s2, err := sqlite.Open(desc.IndexPath)
	if err != nil {
		t.Fatalf("reopen index: %v", err)
	}
	defer s2.Close()
	rows, err := s2.Query(nil, nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 || !rows[0].MinTime.Equal(now) {
		t.Fatalf("expected pre-seeded row untouched, got %+v", rows)
	}
}

func TestBuildAbortsOnFirstFailureByDefault(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("mock indexer is a POSIX shell script")
	}
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "a.log"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	indexer := writeFailingIndexer(t, dir)
	desc := newDescriptor(dir, indexer)

	b := indexbuild.New(nil)
	err := b.Build(context.Background(), desc, nil, indexbuild.Options{Workers: 1})
	if err == nil {
		t.Fatalf("expected build to fail with a failing indexer")
	}
}

func TestBuildContinueOnErrorIndexesSurvivingPaths(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("mock indexer is a POSIX shell script")
	}
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "a.log"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	indexer := writeFailingIndexer(t, dir)
	desc := newDescriptor(dir, indexer)

	b := indexbuild.New(nil)
	err := b.Build(context.Background(), desc, nil, indexbuild.Options{Workers: 1, ContinueOnError: true})
	if err != nil {
		t.Fatalf("expected ContinueOnError to suppress the failure, got %v", err)
	}
}

// IndexPath is the single-file variant Build's per-path task is built on,
// used by the CLI's watch mode to index files discovered one at a time.
func TestIndexPathCommitsAndSkipsSecondCall(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("mock indexer is a POSIX shell script")
	}
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dataDir, "a.log")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	indexer := writeMockIndexer(t, dir)
	desc := newDescriptor(dir, indexer)

	b := indexbuild.New(nil)
	if err := b.IndexPath(context.Background(), desc, path); err != nil {
		t.Fatalf("IndexPath: %v", err)
	}
	// Second call must be a no-op (path already indexed), not a duplicate
	// insert error.
	if err := b.IndexPath(context.Background(), desc, path); err != nil {
		t.Fatalf("second IndexPath call: %v", err)
	}

	s, err := sqlite.Open(desc.IndexPath)
	if err != nil {
		t.Fatalf("reopen index: %v", err)
	}
	defer s.Close()
	rows, err := s.Query(nil, nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(rows))
	}
}
