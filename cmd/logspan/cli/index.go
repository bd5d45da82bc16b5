package cli

import (
	"github.com/kluzzebass/logspan/internal/indexbuild"
	"github.com/kluzzebass/logspan/internal/model"

	"github.com/spf13/cobra"
)

// newIndexCmd implements "logspan index":
//
//	index <sources…> [--begin T] [--end T] [--processes N] [--clean]
func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <sources...>",
		Short: "Build or extend the persisted index for one or more sources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			processes, _ := cmd.Flags().GetInt("processes")
			clean, _ := cmd.Flags().GetBool("clean")
			continueOnError, _ := cmd.Flags().GetBool("continue-on-error")

			window, err := windowFromFlags(cmd)
			if err != nil {
				return err
			}
			var windowArg *model.Window
			if window.Begin != nil || window.End != nil {
				windowArg = &window
			}

			logger := loggerFromCmd(cmd)
			srcs, err := resolveSources(cmd, args, logger)
			if err != nil {
				return err
			}

			opts := indexbuild.Options{
				Workers:         processes,
				Clean:           clean,
				ContinueOnError: continueOnError,
			}

			for _, src := range srcs {
				if err := src.Index(cmd.Context(), windowArg, opts); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().String("begin", "", "only index files the fuzzy method believes fall after this time")
	cmd.Flags().String("end", "", "only index files the fuzzy method believes fall before this time")
	cmd.Flags().Int("processes", 0, "worker pool size (default: host CPU count)")
	cmd.Flags().Bool("clean", false, "run IndexStore.Clean before indexing")
	cmd.Flags().Bool("continue-on-error", false, "keep indexing after a single indexer failure instead of aborting the run")
	return cmd
}
