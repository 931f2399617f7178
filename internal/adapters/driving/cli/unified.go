package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/topicseek/internal/core/domain"
)

var unifiedCmd = &cobra.Command{
	Use:   "unified [query]",
	Short: "Search every enabled channel at once",
	Long: `Search each enabled channel store and merge the results by relevance.

Channels without a built store are skipped. Use --tenant to restrict the
search to one channel while keeping channel attribution in the output.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUnified,
}

func init() {
	unifiedCmd.Flags().IntP("limit", "n", 0, "maximum number of results (default from config)")
	unifiedCmd.Flags().StringP("tenant", "t", "", "restrict to one channel id")
	unifiedCmd.Flags().Bool("no-summary", false, "skip topic summaries")
	unifiedCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(unifiedCmd)
}

func runUnified(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errNoSearchService
	}
	printWarnings(cmd)

	limit, _ := cmd.Flags().GetInt("limit")
	tenant, _ := cmd.Flags().GetString("tenant")
	noSummary, _ := cmd.Flags().GetBool("no-summary")
	asJSON, _ := cmd.Flags().GetBool("json")

	results, err := searchService.UnifiedSearch(commandContext(cmd), strings.Join(args, " "), domain.SearchOptions{
		Limit:        limit,
		Scope:        domain.UnifiedScope,
		TenantFilter: tenant,
		SkipSummary:  noSummary,
	})
	if err != nil {
		return err
	}

	if asJSON {
		if results == nil {
			results = []domain.SearchResult{}
		}
		return outputJSON(cmd, results)
	}
	printResults(cmd, results)
	return nil
}
