package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild stores when transcripts change",
	Long: `Watch the transcripts directory and run an incremental build whenever
new transcripts appear. Each changed channel store is rebuilt first, then
the global store. Stops on Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Bool("initial", false, "run an incremental build of every store before watching")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if indexBuilder == nil {
		return errNoIndexBuilder
	}
	if transcriptWatch == nil {
		return errNoWatcher
	}
	printWarnings(cmd)

	ctx := commandContext(cmd)

	if initial, _ := cmd.Flags().GetBool("initial"); initial {
		printMultiBuildReport(cmd, indexBuilder.BuildAll(ctx, domain.BuildModeIncremental))
		printBuildReport(cmd, indexBuilder.Build(ctx, domain.BuildRequest{
			StoreID: domain.GlobalStoreID,
			Mode:    domain.BuildModeIncremental,
		}))
	}

	changes, err := transcriptWatch.Watch(ctx)
	if err != nil {
		return err
	}
	defer transcriptWatch.Close()

	cmd.Println(mutedStyle.Render("Watching for new transcripts. Press Ctrl+C to stop."))

	for tenants := range changes {
		rebuildChanged(cmd, tenants)
	}
	return nil
}

// rebuildChanged runs incremental builds for the changed tenants and then
// the global store. The flat layout reports the empty tenant, which only
// affects the global store.
func rebuildChanged(cmd *cobra.Command, tenants []string) {
	ctx := commandContext(cmd)
	logger.Debug("transcripts changed in %v", tenants)

	for _, id := range tenants {
		if id == "" {
			continue
		}
		printBuildReport(cmd, indexBuilder.Build(ctx, domain.BuildRequest{
			StoreID: id,
			Mode:    domain.BuildModeIncremental,
		}))
	}
	printBuildReport(cmd, indexBuilder.Build(ctx, domain.BuildRequest{
		StoreID: domain.GlobalStoreID,
		Mode:    domain.BuildModeIncremental,
	}))
}
