package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/topicseek/internal/core/domain"
)

var buildCmd = &cobra.Command{
	Use:   "build [store]",
	Short: "Build or update a similarity store",
	Long: `Index transcripts into a similarity store.

The store is "global" (every channel) or a channel id. By default the build
is incremental and only embeds transcripts the store has not seen yet.

Examples:
  topicseek build                 # incremental build of the global store
  topicseek build UC123 --full    # rebuild one channel store from scratch
  topicseek build --all           # incremental build of every enabled channel`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().Bool("full", false, "clear the store and reindex everything")
	buildCmd.Flags().Bool("all", false, "build every enabled channel store")
	buildCmd.Flags().Bool("json", false, "output the build report as JSON")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	if indexBuilder == nil {
		return errNoIndexBuilder
	}
	printWarnings(cmd)

	full, _ := cmd.Flags().GetBool("full")
	all, _ := cmd.Flags().GetBool("all")
	asJSON, _ := cmd.Flags().GetBool("json")

	mode := domain.BuildModeIncremental
	if full {
		mode = domain.BuildModeFull
	}

	ctx := commandContext(cmd)

	if all {
		if len(args) > 0 {
			return fmt.Errorf("%w: --all does not take a store", domain.ErrInvalidInput)
		}
		multi := indexBuilder.BuildAll(ctx, mode)
		if asJSON {
			if err := outputJSON(cmd, multi); err != nil {
				return err
			}
		} else {
			printMultiBuildReport(cmd, multi)
		}
		if multi.Succeeded < multi.Total {
			return fmt.Errorf("%w: %d of %d stores", errBuildFailed, multi.Total-multi.Succeeded, multi.Total)
		}
		return nil
	}

	storeID := domain.GlobalStoreID
	if len(args) == 1 {
		storeID = args[0]
	}

	report := indexBuilder.Build(ctx, domain.BuildRequest{StoreID: storeID, Mode: mode})
	if asJSON {
		if err := outputJSON(cmd, report); err != nil {
			return err
		}
	} else {
		printBuildReport(cmd, report)
	}
	if !report.Success {
		return fmt.Errorf("%w: %s", errBuildFailed, report.Error)
	}
	return nil
}
