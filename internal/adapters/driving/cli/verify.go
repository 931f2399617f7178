package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/topicseek/internal/core/domain"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [store]",
	Short: "Compare a store's manifest with its contents",
	Long: `Report any disagreement between the manifest and the chunks actually held
by a store. Nothing is repaired; run "topicseek build --full" to fix drift.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().Bool("json", false, "output the report as JSON")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	if indexBuilder == nil {
		return errNoIndexBuilder
	}
	storeID := domain.GlobalStoreID
	if len(args) == 1 {
		storeID = args[0]
	}

	report, err := indexBuilder.Verify(commandContext(cmd), storeID)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return outputJSON(cmd, report)
	}
	printVerifyReport(cmd, report)
	return nil
}
