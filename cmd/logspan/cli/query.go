package cli

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/kluzzebass/logspan/internal/model"

	"github.com/spf13/cobra"
)

// newQueryCmd implements "logspan query":
//
//	query <sources…> [--begin T] [--end T] [--index] [--times] [--bytes]
func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <sources...>",
		Short: "Query which files overlap a time window",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			useIndex, _ := cmd.Flags().GetBool("index")
			showTimes, _ := cmd.Flags().GetBool("times")
			showBytes, _ := cmd.Flags().GetBool("bytes")

			window, err := windowFromFlags(cmd)
			if err != nil {
				return err
			}

			logger := loggerFromCmd(cmd)
			srcs, err := resolveSources(cmd, args, logger)
			if err != nil {
				return err
			}

			var all []model.FileInterval
			for _, src := range srcs {
				results, err := src.Query(window, useIndex)
				if err != nil {
					return err
				}
				all = append(all, results...)
			}

			p := newPrinter(outputFormat(cmd))
			switch {
			case showBytes:
				return printBytes(p, all, window)
			case showTimes:
				return printTimes(p, all)
			default:
				return printPaths(p, all)
			}
		},
	}

	cmd.Flags().String("begin", "", "window start (any format accepted by the default extractor, or @epoch)")
	cmd.Flags().String("end", "", "window end (any format accepted by the default extractor, or @epoch)")
	cmd.Flags().Bool("index", false, "resolve via the persisted index instead of fuzzy inference")
	cmd.Flags().Bool("times", false, "print path, begin_epoch, end_epoch instead of just paths")
	cmd.Flags().Bool("bytes", false, "aggregate file sizes per calendar date instead of listing paths")
	return cmd
}

func printPaths(p *printer, intervals []model.FileInterval) error {
	paths := make([]string, len(intervals))
	for i, fi := range intervals {
		paths[i] = fi.Path
	}
	if p.format == "json" {
		return p.json(paths)
	}
	p.lines(paths)
	return nil
}

func printTimes(p *printer, intervals []model.FileInterval) error {
	if p.format == "json" {
		return p.json(intervals)
	}
	rows := make([][]string, len(intervals))
	for i, fi := range intervals {
		rows[i] = []string{
			fi.Path,
			strconv.FormatFloat(model.LocalToEpoch(fi.Begin), 'f', -1, 64),
			strconv.FormatFloat(model.LocalToEpoch(fi.End), 'f', -1, 64),
		}
	}
	p.table([]string{"PATH", "BEGIN", "END"}, rows)
	return nil
}

// dateKey truncates t to a local calendar date, used as the bucket key for
// --bytes aggregation.
func dateKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// printBytes aggregates file sizes per calendar date (bucketed by each
// file's begin timestamp) and prints one DATE/BYTES row per date through
// the shared table printer (space-aligned columns under a header row, not
// bare tab-separated lines; a JSON object with -o json), filling zero for
// any date within the window that has no matching file.
func printBytes(p *printer, intervals []model.FileInterval, window model.Window) error {
	totals := make(map[time.Time]int64)
	for _, fi := range intervals {
		info, err := os.Stat(fi.Path)
		if err != nil {
			continue
		}
		totals[dateKey(fi.Begin)] += info.Size()
	}

	start, end, ok := dateRange(totals, window)
	if !ok {
		if p.format == "json" {
			return p.json(map[string]int64{})
		}
		return nil
	}

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	if p.format == "json" {
		out := make(map[string]int64, len(dates))
		for _, d := range dates {
			out[d.Format("2006-01-02")] = totals[d]
		}
		return p.json(out)
	}

	rows := make([][]string, len(dates))
	for i, d := range dates {
		rows[i] = []string{d.Format("2006-01-02"), fmt.Sprintf("%d", totals[d])}
	}
	p.table([]string{"DATE", "BYTES"}, rows)
	return nil
}

// dateRange picks the [start, end] calendar-date span to print: the
// window's own bounds when given, otherwise the min/max bucket present in
// totals. Returns ok=false when there is nothing to print (no window and
// no data).
func dateRange(totals map[time.Time]int64, window model.Window) (time.Time, time.Time, bool) {
	if window.Begin != nil && window.End != nil {
		return dateKey(*window.Begin), dateKey(*window.End), true
	}

	var min, max time.Time
	first := true
	for d := range totals {
		if first || d.Before(min) {
			min = d
		}
		if first || d.After(max) {
			max = d
		}
		first = false
	}
	if first {
		return time.Time{}, time.Time{}, false
	}

	start, end := min, max
	if window.Begin != nil {
		start = dateKey(*window.Begin)
	}
	if window.End != nil {
		end = dateKey(*window.End)
	}
	return start, end, true
}
