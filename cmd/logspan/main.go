// Command logspan resolves which files in a configured data source overlap
// a time window, either by inferring intervals from path tokens (fuzzy
// mode) or by consulting a persisted index built by an external per-format
// indexer program.
//
// Each subcommand builds its logger from the --verbose flag (see
// cli.loggerFromCmd) and threads it through every component via
// constructor injection, never through slog.SetDefault.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/kluzzebass/logspan/cmd/logspan/cli"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	root := cli.NewRootCmd(version)
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
