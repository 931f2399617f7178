package cli

import (
	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove <store> <unit-id>",
	Short: "Remove one video from a store",
	Long: `Delete every chunk of a video from a store and drop it from the manifest.
The next incremental build indexes the video again if its transcript exists.`,
	Args: cobra.ExactArgs(2),
	RunE: runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	if indexBuilder == nil {
		return errNoIndexBuilder
	}
	storeID, unitID := args[0], args[1]

	removed, err := indexBuilder.RemoveUnit(commandContext(cmd), storeID, unitID)
	if err != nil {
		return err
	}
	cmd.Printf("%s Removed %s from %s (%d chunks)\n", statusMark(true), unitID, storeID, removed)
	return nil
}
