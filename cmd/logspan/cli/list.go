package cli

import (
	"sort"

	"github.com/kluzzebass/logspan/internal/extract"

	"github.com/spf13/cobra"
)

// newListCmd implements "logspan list": print configured source names,
// sorted.
func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured data source names",
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(sources))
			for name := range sources {
				names = append(names, name)
			}
			sort.Strings(names)
			p := newPrinter(outputFormat(cmd))
			if outputFormat(cmd) == "json" {
				return p.json(names)
			}
			p.lines(names)
			return nil
		},
	}
}

// newListXCmd implements "logspan listx": print known extractor names and
// descriptions.
func newListXCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listx",
		Short: "List known named extractors",
		RunE: func(cmd *cobra.Command, args []string) error {
			descs := extract.Descriptors()
			sort.Slice(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })
			p := newPrinter(outputFormat(cmd))
			if outputFormat(cmd) == "json" {
				return p.json(descs)
			}
			rows := make([][]string, len(descs))
			for i, d := range descs {
				rows[i] = []string{d.Name, d.Description}
			}
			p.table([]string{"NAME", "DESCRIPTION"}, rows)
			return nil
		},
	}
}

func outputFormat(cmd *cobra.Command) string {
	f, _ := cmd.Flags().GetString("output")
	return f
}
