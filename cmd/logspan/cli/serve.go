package cli

import (
	"fmt"

	"github.com/kluzzebass/logspan/internal/indexbuild"
	"github.com/kluzzebass/logspan/internal/scheduler"

	"github.com/spf13/cobra"
)

// newServeCmd implements "logspan serve", the long-running mode that
// starts the Scheduler: every descriptor across every configured source
// that sets reindex_cron gets a recurring IndexBuilder.Build run. The
// command blocks on the signal-driven context until it's cancelled, then
// shuts the scheduler down cleanly.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reindex scheduler for all sources with a reindex_cron",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			workers, _ := cmd.Flags().GetInt("processes")
			clean, _ := cmd.Flags().GetBool("clean")
			continueOnError, _ := cmd.Flags().GetBool("continue-on-error")

			sources, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			logger := loggerFromCmd(cmd)
			sched, err := scheduler.New(logger)
			if err != nil {
				return fmt.Errorf("create scheduler: %w", err)
			}

			opts := indexbuild.Options{Workers: workers, Clean: clean, ContinueOnError: continueOnError}
			scheduled := 0
			for _, ds := range sources {
				for _, desc := range ds.Descriptors {
					if desc.ReindexCron == "" {
						continue
					}
					if err := sched.AddDescriptor(desc, opts); err != nil {
						return fmt.Errorf("schedule %s: %w", desc.Key(), err)
					}
					scheduled++
				}
			}
			if scheduled == 0 {
				logger.Warn("no descriptors set reindex_cron; scheduler has nothing to do")
			}

			sched.Start()
			logger.Info("serve running", "scheduled_jobs", scheduled)

			<-cmd.Context().Done()
			logger.Info("serve shutting down")
			return sched.Stop()
		},
	}

	cmd.Flags().Int("processes", 1, "concurrent indexer subprocesses per scheduled reindex run")
	cmd.Flags().Bool("clean", false, "remove index rows for missing files before each scheduled reindex")
	cmd.Flags().Bool("continue-on-error", false, "keep indexing remaining files after a single indexer failure")
	return cmd
}
