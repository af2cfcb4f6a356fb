package commands

import (
	"fmt"

	"feedwarden/lib/textutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(excludeCmd)
	rootCmd.AddCommand(unexcludeCmd)
	rootCmd.AddCommand(resetCmd)
}

var excludeCmd = &cobra.Command{
	Use:   "exclude <id>...",
	Short: "Marks items as not interesting, they are hidden from now on.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCounters()
		if err != nil {
			return err
		}
		for _, id := range args {
			if err := store.Exclude(id); err != nil {
				return fmt.Errorf("exclude %s: %w", id, err)
			}
		}
		return nil
	},
}

var unexcludeCmd = &cobra.Command{
	Use:   "unexclude <id>...",
	Short: "Reverses exclude.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCounters()
		if err != nil {
			return err
		}
		for _, id := range args {
			if !store.IsExcluded(id) {
				excluded := store.Snapshot().Excluded
				if best, score, ok := textutil.Closest(id, excluded); ok && score > 0.8 {
					cmd.PrintErrf("%s is not excluded, did you mean %s?\n", id, best)
				} else {
					cmd.PrintErrf("%s is not excluded\n", id)
				}
				continue
			}
			if err := store.Unexclude(id); err != nil {
				return fmt.Errorf("unexclude %s: %w", id, err)
			}
		}
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset [id]...",
	Short: "Forgets the impressions of the given items, or of every item when none are given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCounters()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			return store.ResetAll()
		}
		for _, id := range args {
			if err := store.Reset(id); err != nil {
				return fmt.Errorf("reset %s: %w", id, err)
			}
		}
		return nil
	},
}
