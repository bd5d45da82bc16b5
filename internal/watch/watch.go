// Package watch implements the CLI's incremental "watch" convenience:
// establish a baseline with FileWalker, then watch a descriptor's static
// glob-prefix directories with fsnotify and report newly created paths
// that still pass its include/exclude filters. It is not a third resolver
// strategy — FuzzyResolver and IndexedResolver are unaffected by it.
//
// Watch roots are picked by taking the static prefix of each glob before
// its first metacharacter, and fsnotify events are drained through an
// events/errors/ctx.Done() select loop.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/kluzzebass/logspan/internal/logging"
	"github.com/kluzzebass/logspan/internal/model"
	"github.com/kluzzebass/logspan/internal/walk"
)

// Watcher reports newly created files matching a descriptor's filters.
type Watcher struct {
	walker *walk.Walker
	logger *slog.Logger
}

// New creates a Watcher. A nil logger discards all output.
func New(logger *slog.Logger) *Watcher {
	return &Watcher{
		walker: walk.New(logger),
		logger: logging.Default(logger).With("component", "watch"),
	}
}

// Baseline returns the paths desc currently enumerates, for callers that
// want to process the existing tree once before watching for new arrivals.
func (w *Watcher) Baseline(desc *model.Descriptor) ([]string, error) {
	return w.walker.Paths(desc)
}

// Watch blocks, sending newly created paths that pass desc's include/exclude
// filters on the returned channel until ctx is cancelled, at which point
// the channel is closed. Errors from the underlying fsnotify watcher are
// logged and otherwise ignored rather than treated as fatal.
func (w *Watcher) Watch(ctx context.Context, desc *model.Descriptor) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	dirs := watchDirsForPatterns(desc.Paths)
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			w.logger.Warn("failed to watch directory", "dir", dir, "error", err)
		}
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Create == 0 {
					continue
				}
				base := filepath.Base(event.Name)
				if !walk.MatchesFilters(base, desc.Include, desc.Exclude) {
					continue
				}
				select {
				case out <- event.Name:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("fsnotify error", "error", err)
			}
		}
	}()

	return out, nil
}

// watchDirsForPatterns extracts the static directory prefix (the part
// before the first glob metacharacter) of each pattern, deduplicated, for
// use as fsnotify watch roots.
func watchDirsForPatterns(patterns []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, pattern := range patterns {
		dir := staticPrefix(pattern)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// staticPrefix returns the longest directory path before the first glob
// metacharacter in pattern, or its containing directory if pattern has
// none.
func staticPrefix(pattern string) string {
	for i, c := range pattern {
		if c == '*' || c == '?' || c == '[' || c == '{' {
			return filepath.Dir(pattern[:i])
		}
	}
	return filepath.Dir(pattern)
}
