package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/topicseek/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status [store]",
	Short: "Show the state of similarity stores",
	Long: `Show whether a store exists, how many chunks it holds and when it was
last built. Without an argument the global store and every channel are shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().Bool("json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if indexBuilder == nil {
		return errNoIndexBuilder
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	ctx := commandContext(cmd)

	storeIDs := args
	if len(storeIDs) == 0 {
		storeIDs = []string{domain.GlobalStoreID}
		if tenantRegistry != nil {
			tenants, err := tenantRegistry.List(ctx)
			if err != nil {
				return fmt.Errorf("listing tenants: %w", err)
			}
			for _, t := range tenants {
				storeIDs = append(storeIDs, t.ID)
			}
		}
	}

	statuses := make([]*domain.IndexStatus, 0, len(storeIDs))
	for _, id := range storeIDs {
		status, err := indexBuilder.Status(ctx, id)
		if err != nil {
			return fmt.Errorf("status of %s: %w", id, err)
		}
		statuses = append(statuses, status)
	}

	if asJSON {
		return outputJSON(cmd, statuses)
	}
	for i, s := range statuses {
		if i > 0 {
			cmd.Println()
		}
		printStatus(cmd, s)
	}
	return nil
}
