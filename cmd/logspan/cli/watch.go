package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kluzzebass/logspan/internal/indexbuild"
	"github.com/kluzzebass/logspan/internal/model"
	"github.com/kluzzebass/logspan/internal/watch"

	"github.com/spf13/cobra"
)

// newWatchCmd implements "logspan watch <source> [--index]": FileWalker
// establishes a baseline, then fsnotify reports newly created files
// matching the descriptor's filters as they arrive. It is not a third
// resolver strategy; FuzzyResolver and IndexedResolver are unaffected.
func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <source>",
		Short: "Watch a source's directories for newly arriving files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doIndex, _ := cmd.Flags().GetBool("index")

			sources, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ds, ok := sources[args[0]]
			if !ok {
				return fmt.Errorf("unknown source %q", args[0])
			}

			logger := loggerFromCmd(cmd)
			w := watch.New(logger)
			builder := indexbuild.New(logger)

			ctx := cmd.Context()
			p := newPrinter(outputFormat(cmd))

			for _, desc := range ds.Descriptors {
				baseline, err := w.Baseline(desc)
				if err != nil {
					return fmt.Errorf("baseline %s: %w", desc.Key(), err)
				}
				p.lines(baseline)
				if doIndex {
					indexBaseline(ctx, logger, builder, desc, baseline)
				}

				events, err := w.Watch(ctx, desc)
				if err != nil {
					return fmt.Errorf("watch %s: %w", desc.Key(), err)
				}
				go watchLoop(ctx, logger, builder, desc, events, doIndex)
			}

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().Bool("index", false, "index newly discovered files as they arrive")
	return cmd
}

// indexBaseline runs IndexPath over the pre-existing files found before
// watching started, logging (not aborting) on a single file's failure —
// unlike Build's default abort-on-first-failure, watch mode is a
// long-running convenience and one bad file should not stop it watching
// the rest.
func indexBaseline(ctx context.Context, logger *slog.Logger, builder *indexbuild.Builder, desc *model.Descriptor, paths []string) {
	for _, path := range paths {
		if err := builder.IndexPath(ctx, desc, path); err != nil {
			logger.Warn("baseline index failed", "path", path, "error", err)
		}
	}
}

// watchLoop prints and, if doIndex, indexes each newly created path until
// events is closed (ctx cancelled).
func watchLoop(ctx context.Context, logger *slog.Logger, builder *indexbuild.Builder, desc *model.Descriptor, events <-chan string, doIndex bool) {
	for path := range events {
		fmt.Println(path)
		if doIndex {
			if err := builder.IndexPath(ctx, desc, path); err != nil {
				logger.Warn("watch-triggered index failed", "path", path, "error", err)
			}
		}
	}
}
