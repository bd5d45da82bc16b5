package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the "logspan" command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "logspan",
		Short: "Resolve which files in a data source overlap a time window",
	}

	root.PersistentFlags().String("config", "", "path to the YAML source configuration file")
	root.PersistentFlags().StringP("output", "o", "table", "output format: table or json")
	root.PersistentFlags().Bool("verbose", false, "enable debug logging")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version)
		},
	}

	root.AddCommand(
		newListCmd(),
		newListXCmd(),
		newQueryCmd(),
		newIndexCmd(),
		newWatchCmd(),
		newServeCmd(),
		versionCmd,
	)

	return root
}
