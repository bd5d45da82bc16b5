// Package walk implements FileWalker: enumerating the files a Descriptor's
// path-globs select, filtered by its include/exclude filename patterns.
//
// Glob expansion and matching use github.com/bmatcuk/doublestar/v4.
package walk

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kluzzebass/logspan/internal/logging"
	"github.com/kluzzebass/logspan/internal/model"
)

// Walker enumerates files for a Descriptor.
type Walker struct {
	logger *slog.Logger
}

// New creates a Walker. A nil logger discards all output.
func New(logger *slog.Logger) *Walker {
	return &Walker{logger: logging.Default(logger).With("component", "walk")}
}

// Walk enumerates the absolute paths of regular files selected by desc,
// calling yield for each. Roots are processed in the order given in
// desc.Paths; within a root, traversal order is not guaranteed. Walk
// returns early (without error) if yield returns false, letting callers
// abandon the stream.
func (w *Walker) Walk(desc *model.Descriptor, yield func(path string) bool) error {
	for _, pattern := range desc.Paths {
		roots, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return fmt.Errorf("expand glob %q: %w", pattern, err)
		}

		for _, root := range roots {
			abs, err := filepath.Abs(root)
			if err != nil {
				w.logger.Debug("skip unresolvable root", "root", root, "error", err)
				continue
			}

			cont, err := w.walkRoot(abs, desc, yield)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
	}
	return nil
}

// walkRoot recursively walks abs (which may itself be a single file),
// following symlinks including symlinked subdirectories, applying desc's
// include/exclude filters to each regular file encountered. It returns
// false if the caller's yield asked to stop early.
func (w *Walker) walkRoot(abs string, desc *model.Descriptor, yield func(path string) bool) (bool, error) {
	return w.walkDir(abs, desc, make(map[string]bool), yield)
}

// walkDir is walkRoot's recursive body. visited tracks the real (symlink-
// resolved) path of every directory already descended into within this
// root, so a symlink cycle terminates instead of looping forever.
func (w *Walker) walkDir(abs string, desc *model.Descriptor, visited map[string]bool, yield func(path string) bool) (bool, error) {
	info, err := os.Stat(abs)
	if err != nil {
		w.logger.Debug("skip unreadable root", "root", abs, "error", err)
		return true, nil
	}

	if !info.IsDir() {
		return w.visit(abs, desc, yield)
	}

	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		real = abs
	}
	if visited[real] {
		return true, nil
	}
	visited[real] = true

	// filepath.WalkDir Lstats its root argument, so if abs is itself a
	// symlink to a directory, walking abs directly would see a non-dir
	// root and never descend. Walk the resolved path instead; nested
	// symlinked directories are handled below as they're encountered.
	cont := true
	err = filepath.WalkDir(real, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Debug("walk error", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !cont {
			return filepath.SkipAll
		}

		// filepath.WalkDir's entries are Lstat-based, so a symlink to a
		// directory arrives here as a non-dir entry rather than being
		// descended into on its own. Detect it and recurse manually.
		if d.Type()&fs.ModeSymlink != 0 {
			if target, statErr := os.Stat(path); statErr == nil && target.IsDir() {
				keepGoing, walkErr := w.walkDir(path, desc, visited, yield)
				if walkErr != nil {
					return walkErr
				}
				cont = keepGoing
				return nil
			}
		}

		keepGoing, visitErr := w.visit(path, desc, yield)
		if visitErr != nil {
			return visitErr
		}
		cont = keepGoing
		return nil
	})
	return cont, err
}

// visit applies the include/exclude filter to path and, if it passes,
// resolves symlinks and calls yield.
func (w *Walker) visit(path string, desc *model.Descriptor, yield func(path string) bool) (bool, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.Mode().IsRegular() {
		return true, nil
	}

	base := filepath.Base(resolved)
	if !matchesFilters(base, desc.Include, desc.Exclude) {
		return true, nil
	}

	abs, err := filepath.Abs(resolved)
	if err != nil {
		abs = resolved
	}
	return yield(abs), nil
}

// MatchesFilters reports whether base passes the include/exclude filename
// patterns: included if include is empty or some pattern matches, excluded
// if any exclude pattern matches. Exported for internal/watch, which
// applies the same filter to individual fsnotify create events rather
// than a full directory walk.
func MatchesFilters(base string, include, exclude []string) bool {
	return matchesFilters(base, include, exclude)
}

// matchesFilters reports whether base passes the include/exclude filename
// patterns: included if include is empty or some pattern matches, excluded
// if any exclude pattern matches.
func matchesFilters(base string, include, exclude []string) bool {
	if len(include) > 0 {
		matched := false
		for _, pattern := range include {
			if ok, _ := doublestar.Match(pattern, base); ok {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, pattern := range exclude {
		if ok, _ := doublestar.Match(pattern, base); ok {
			return false
		}
	}
	return true
}

// Paths is a convenience wrapper over Walk that collects every path into a
// slice. Callers indexing a large tree should prefer Walk directly so they
// can abandon the stream early.
func (w *Walker) Paths(desc *model.Descriptor) ([]string, error) {
	var paths []string
	err := w.Walk(desc, func(path string) bool {
		paths = append(paths, path)
		return true
	})
	return paths, err
}
