// Package cli implements the logspan command tree: list, listx, query,
// index, watch, and serve.
//
// Root command wiring lives in root.go and cmd/logspan/main.go only
// executes it; subcommand implementations and output formatting live here. Each New*Cmd
// constructor returns a self-contained *cobra.Command, and every RunE
// reads its own flags rather than threading a shared options struct.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/kluzzebass/logspan/internal/config"
	"github.com/kluzzebass/logspan/internal/datasource"
	"github.com/kluzzebass/logspan/internal/extract"
	"github.com/kluzzebass/logspan/internal/model"

	"github.com/spf13/cobra"
)

// printer handles table or JSON output.
type printer struct {
	format string
	w      io.Writer
}

func newPrinter(format string) *printer {
	return &printer{format: format, w: os.Stdout}
}

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) table(header []string, rows [][]string) {
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	for i, h := range header {
		if i > 0 {
			_, _ = fmt.Fprint(tw, "\t")
		}
		_, _ = fmt.Fprint(tw, h)
	}
	_, _ = fmt.Fprintln(tw)
	for _, row := range rows {
		for i, col := range row {
			if i > 0 {
				_, _ = fmt.Fprint(tw, "\t")
			}
			_, _ = fmt.Fprint(tw, col)
		}
		_, _ = fmt.Fprintln(tw)
	}
	_ = tw.Flush()
}

func (p *printer) lines(vals []string) {
	for _, v := range vals {
		_, _ = fmt.Fprintln(p.w, v)
	}
}

// loggerFromCmd builds a scoped slog.Logger from the root command's
// persistent --verbose flag.
func loggerFromCmd(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the --config flag and loads it into a set of DataSources.
func loadConfig(cmd *cobra.Command) (map[string]*model.DataSource, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	return config.Load(path)
}

// resolveSources loads config and returns one datasource.Source per name
// in names, sorted by name for deterministic output when names is empty
// (meaning "all sources").
func resolveSources(cmd *cobra.Command, names []string, logger *slog.Logger) ([]*datasource.Source, error) {
	sources, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if len(names) == 0 {
		for name := range sources {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	out := make([]*datasource.Source, 0, len(names))
	for _, name := range names {
		ds, ok := sources[name]
		if !ok {
			return nil, fmt.Errorf("unknown source %q", name)
		}
		out = append(out, datasource.New(ds, logger))
	}
	return out, nil
}

// parseTimeFlag parses a --begin/--end style flag value through the
// default time extractor: both ordinary date tokens and the "@epoch"
// shortcut go through extract.Extract, so ambiguous values are
// parser-dependent rather than special-cased here.
func parseTimeFlag(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, ok := extract.Extract(value, "")
	if !ok {
		return nil, fmt.Errorf("could not parse time %q", value)
	}
	return &t, nil
}

// windowFromFlags builds a model.Window from --begin/--end flag values.
func windowFromFlags(cmd *cobra.Command) (model.Window, error) {
	beginStr, _ := cmd.Flags().GetString("begin")
	endStr, _ := cmd.Flags().GetString("end")

	begin, err := parseTimeFlag(beginStr)
	if err != nil {
		return model.Window{}, fmt.Errorf("--begin: %w", err)
	}
	end, err := parseTimeFlag(endStr)
	if err != nil {
		return model.Window{}, fmt.Errorf("--end: %w", err)
	}
	return model.Window{Begin: begin, End: end}, nil
}
