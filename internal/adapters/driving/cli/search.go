package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/topicseek/internal/core/domain"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find where a topic is discussed",
	Long: `Search a similarity store for the moments a topic is discussed.

Each result links to the exact second of the video. Use --scope to search
one channel, or "unified" to merge every enabled channel.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntP("limit", "n", 0, "maximum number of results (default from config)")
	searchCmd.Flags().StringP("scope", "s", domain.GlobalStoreID, `store to search: "global", a channel id, or "unified"`)
	searchCmd.Flags().Bool("no-summary", false, "skip topic summaries")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errNoSearchService
	}
	printWarnings(cmd)

	limit, _ := cmd.Flags().GetInt("limit")
	scope, _ := cmd.Flags().GetString("scope")
	noSummary, _ := cmd.Flags().GetBool("no-summary")
	asJSON, _ := cmd.Flags().GetBool("json")

	query := strings.Join(args, " ")
	results, err := searchService.Search(commandContext(cmd), query, domain.SearchOptions{
		Limit:       limit,
		Scope:       scope,
		SkipSummary: noSummary,
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
