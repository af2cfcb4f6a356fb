package commands

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(countsCmd)
}

var countsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Prints the impression counts of the current window and the excluded items.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCounters()
		if err != nil {
			return err
		}
		if store.Rollover() {
			slog.Info("counts rolled over to a new window", "window", store.CurrentWindowToken())
		}
		snapshot := store.Snapshot()

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.SetTitle(fmt.Sprintf("Window %s", snapshot.WindowKey))
		t.AppendHeader(table.Row{"Item", "Impressions", "Excluded"})

		excluded := map[string]bool{}
		for _, id := range snapshot.Excluded {
			excluded[id] = true
		}
		ids := slices.Sorted(maps.Keys(snapshot.Counts))
		for _, id := range snapshot.Excluded {
			if _, counted := snapshot.Counts[id]; !counted {
				ids = append(ids, id)
			}
		}
		for _, id := range ids {
			mark := ""
			if excluded[id] {
				mark = "yes"
			}
			t.AppendRow(table.Row{id, snapshot.Counts[id], mark})
		}
		t.AppendFooter(table.Row{"Total", len(snapshot.Counts), len(snapshot.Excluded)})
		t.Render()
		return nil
	},
}
