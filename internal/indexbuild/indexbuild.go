// Package indexbuild implements IndexBuilder: a bounded worker pool that
// runs a descriptor's external indexer over not-yet-indexed files and
// commits the results to its IndexStore.
//
// The worker pool is golang.org/x/sync/errgroup with SetLimit(n).
package indexbuild

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kluzzebass/logspan/internal/fuzzy"
	"github.com/kluzzebass/logspan/internal/indexstore"
	"github.com/kluzzebass/logspan/internal/logging"
	"github.com/kluzzebass/logspan/internal/model"
	"github.com/kluzzebass/logspan/internal/storeopen"
	"github.com/kluzzebass/logspan/internal/walk"
)

// Options configures a Builder run.
type Options struct {
	// Workers bounds worker-pool concurrency. Zero means runtime.NumCPU().
	Workers int

	// Clean, if true, runs IndexStore.Clean before indexing.
	Clean bool

	// ContinueOnError, if true, runs every task to completion instead of
	// aborting on the first indexer failure; failures are logged as
	// warnings and otherwise swallowed, so Build still returns nil. The
	// default is to abort on the first failure.
	ContinueOnError bool
}

// Builder is IndexBuilder.
type Builder struct {
	walker *walk.Walker
	fuzzy  *fuzzy.Resolver
	logger *slog.Logger
}

// New creates a Builder. A nil logger discards all output.
func New(logger *slog.Logger) *Builder {
	logger = logging.Default(logger).With("component", "indexbuild")
	return &Builder{
		walker: walk.New(logger),
		fuzzy:  fuzzy.New(logger),
		logger: logger,
	}
}

// Build materializes or extends desc's index. If window is non-nil, the
// candidate paths are those FuzzyResolver believes fall within it;
// otherwise every path FileWalker enumerates is a candidate.
func (b *Builder) Build(ctx context.Context, desc *model.Descriptor, window *model.Window, opts Options) error {
	if desc.Indexer == "" {
		return fmt.Errorf("descriptor %s has no indexer configured", desc.Key())
	}

	store, err := storeopen.Open(desc)
	if err != nil {
		return err
	}
	defer store.Close()

	if opts.Clean {
		if err := store.Clean(); err != nil {
			return fmt.Errorf("clean index for %s: %w", desc.Key(), err)
		}
	}

	paths, err := b.candidatePaths(desc, window)
	if err != nil {
		return err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			err := b.indexOne(gctx, desc, store, path)
			if err != nil && opts.ContinueOnError {
				b.logger.Warn("indexer task failed, continuing", "path", path, "error", err)
				return nil
			}
			return err
		})
	}

	return g.Wait()
}

// candidatePaths returns the file paths to consider indexing for desc: a
// windowed fuzzy resolve when a window is given, or every path FileWalker
// enumerates otherwise.
func (b *Builder) candidatePaths(desc *model.Descriptor, window *model.Window) ([]string, error) {
	if window != nil {
		intervals, err := b.fuzzy.Resolve(desc, *window)
		if err != nil {
			return nil, fmt.Errorf("resolve windowed candidates for %s: %w", desc.Key(), err)
		}
		paths := make([]string, len(intervals))
		for i, fi := range intervals {
			paths[i] = fi.Path
		}
		return paths, nil
	}
	paths, err := b.walker.Paths(desc)
	if err != nil {
		return nil, fmt.Errorf("walk candidates for %s: %w", desc.Key(), err)
	}
	return paths, nil
}

// IndexPath opens desc's IndexStore and applies the same
// indexed-check/subprocess/commit steps to a single path as Build applies
// to a whole candidate set. It exists for callers that discover paths one
// at a time outside of a walk or fuzzy resolve — the CLI's watch mode is
// the only current caller.
func (b *Builder) IndexPath(ctx context.Context, desc *model.Descriptor, path string) error {
	store, err := storeopen.Open(desc)
	if err != nil {
		return err
	}
	defer store.Close()
	return b.indexOne(ctx, desc, store, path)
}

// indexOne runs the indexed-check/subprocess/commit task for a single
// path: skip if already indexed, otherwise run the external indexer and
// commit its result.
func (b *Builder) indexOne(ctx context.Context, desc *model.Descriptor, store indexstore.Store, path string) error {
	already, err := store.Indexed(path)
	if err != nil {
		return fmt.Errorf("check indexed %s: %w", path, err)
	}
	if already {
		return nil
	}

	minTime, maxTime, err := b.runIndexer(ctx, desc.Indexer, path)
	if err != nil {
		return fmt.Errorf("index %s: %w", path, err)
	}

	if err := store.Add(path, minTime, maxTime); err != nil {
		return fmt.Errorf("commit %s: %w", path, err)
	}
	return nil
}

// runIndexer launches the external indexer as a subprocess with path as
// its sole argument, requires a clean exit and at least one line of
// stdout, and parses that line as two whitespace-separated epoch-second
// floats.
func (b *Builder) runIndexer(ctx context.Context, indexer, path string) (time.Time, time.Time, error) {
	cmd := exec.CommandContext(ctx, indexer, path)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("open stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start indexer: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	var firstLine string
	if scanner.Scan() {
		firstLine = scanner.Text()
	}
	// Drain any remaining output so the subprocess's pipe doesn't block
	// on a full buffer before Wait.
	for scanner.Scan() {
	}

	waitErr := cmd.Wait()
	if waitErr != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("indexer exited with error: %w", waitErr)
	}
	if firstLine == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("indexer produced no output")
	}

	fields := strings.Fields(firstLine)
	if len(fields) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("expected two fields in indexer output, got %q", firstLine)
	}
	minEpoch, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse min_time: %w", err)
	}
	maxEpoch, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse max_time: %w", err)
	}

	return model.EpochToLocal(minEpoch), model.EpochToLocal(maxEpoch), nil
}
