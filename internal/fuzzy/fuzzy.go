// Package fuzzy implements FuzzyResolver: inferring each file's data
// interval from path tokens and its neighbors in the same time series,
// with no content inspection.
package fuzzy

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kluzzebass/logspan/internal/extract"
	"github.com/kluzzebass/logspan/internal/logging"
	"github.com/kluzzebass/logspan/internal/model"
	"github.com/kluzzebass/logspan/internal/pathtoken"
	"github.com/kluzzebass/logspan/internal/walk"
)

// noGapFallback is the interval assigned to a file alone in its partition
// (no neighbor to derive Δmax from).
const noGapFallback = 2 * 24 * time.Hour

// Resolver is FuzzyResolver: it walks a descriptor's files, partitions
// them into time series, and derives per-file intervals from neighbors.
type Resolver struct {
	walker *walk.Walker
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Resolver. A nil logger discards all output.
func New(logger *slog.Logger) *Resolver {
	logger = logging.Default(logger).With("component", "fuzzy")
	return &Resolver{
		walker: walk.New(logger),
		logger: logger,
		now:    time.Now,
	}
}

type candidate struct {
	path string
	ts   time.Time
	size int64
}

// Resolve walks desc's files and emits (path, begin, end) triples whose
// computed interval overlaps window. A nil window emits every file.
func (r *Resolver) Resolve(desc *model.Descriptor, window model.Window) ([]model.FileInterval, error) {
	paths, err := r.walker.Paths(desc)
	if err != nil {
		return nil, fmt.Errorf("walk descriptor %s: %w", desc.Key(), err)
	}

	partitions := make(map[string][]candidate)
	for _, path := range paths {
		ts, ok := extract.Extract(path, desc.Extractor)
		if !ok {
			r.logger.Debug("skip file with no extractable timestamp", "path", path)
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			r.logger.Debug("skip unstatable file", "path", path, "error", err)
			continue
		}
		key := pathtoken.PathKey(path)
		partitions[key] = append(partitions[key], candidate{path: path, ts: ts, size: info.Size()})
	}

	seen := make(map[string]bool) // basename+size dedup key
	var out []model.FileInterval

	// Sort partition keys for deterministic iteration order in tests; no
	// ordering across partitions is otherwise required.
	keys := make([]string, 0, len(partitions))
	for k := range partitions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		group := partitions[key]
		sort.Slice(group, func(i, j int) bool { return group[i].ts.Before(group[j].ts) })

		deltaMax, hasDelta := maxGap(group)

		for i, c := range group {
			begin, end := interval(desc, group, i, deltaMax, hasDelta, r.now())

			if window.End != nil && begin.After(*window.End) {
				// Sorted ascending by timestamp ⇒ file_begin is
				// non-decreasing in i, so no later file in this
				// partition can qualify either.
				break
			}
			if !window.Overlaps(begin, end) {
				continue
			}

			dedupKey := fmt.Sprintf("%s\x00%d", filepath.Base(c.path), c.size)
			if seen[dedupKey] {
				continue
			}
			seen[dedupKey] = true

			out = append(out, model.FileInterval{Path: c.path, Begin: begin, End: end})
		}
	}

	return out, nil
}

// maxGap returns the maximum absolute gap between consecutive timestamps
// in group, and false if group has fewer than 2 elements (Δmax undefined).
func maxGap(group []candidate) (time.Duration, bool) {
	if len(group) < 2 {
		return 0, false
	}
	var max time.Duration
	for i := 1; i < len(group); i++ {
		gap := group[i].ts.Sub(group[i-1].ts)
		if gap > max {
			max = gap
		}
	}
	return max, true
}

var epochZero = time.Unix(0, 0).In(time.Local)

// interval computes (begin, end) for group[i]: for the general case the
// file's own timestamp is its begin and the next file's timestamp (or a
// derived fallback) is its end; when FileTimeIsEndTime is set the roles
// invert.
func interval(desc *model.Descriptor, group []candidate, i int, deltaMax time.Duration, hasDelta bool, now time.Time) (time.Time, time.Time) {
	t := group[i].ts

	if !desc.FileTimeIsEndTime {
		begin := t
		var end time.Time
		switch {
		case i+1 < len(group):
			end = group[i+1].ts
		case hasDelta:
			// Clamped to now, so the last file's inferred end is not in
			// the future; a file whose own timestamp is after now (clock
			// skew, misnamed file) gets end == begin instead.
			candidateEnd := t.Add(deltaMax)
			if candidateEnd.After(now) {
				candidateEnd = now
			}
			if candidateEnd.Before(begin) {
				candidateEnd = begin
			}
			end = candidateEnd
		default:
			end = t.Add(noGapFallback)
		}
		return begin, end
	}

	end := t
	var begin time.Time
	switch {
	case i-1 >= 0:
		begin = group[i-1].ts
	case hasDelta:
		// Clamped to the epoch, but never past the file's own timestamp.
		candidateBegin := t.Add(-deltaMax)
		if candidateBegin.Before(epochZero) {
			candidateBegin = epochZero
		}
		if candidateBegin.After(end) {
			candidateBegin = end
		}
		begin = candidateBegin
	default:
		begin = t.Add(-noGapFallback)
	}
	return begin, end
}
