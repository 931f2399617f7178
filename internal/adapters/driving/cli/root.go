// Package cli implements the topicseek command line.
package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/topicseek/internal/adapters/driven/ai"
	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
	"github.com/custodia-labs/topicseek/internal/core/ports/driving"
	"github.com/custodia-labs/topicseek/internal/logger"
)

// version is set at build time.
var version = "dev"

// TranscriptWatcher reports tenants whose transcripts changed.
type TranscriptWatcher interface {
	Watch(ctx context.Context) (<-chan []string, error)
	Close() error
}

// SettingsManager reads and writes configuration.
type SettingsManager interface {
	Get() (domain.Settings, error)
	Set(key string, value any) error
	Path() string
}

// AIChecker pings the configured AI providers.
type AIChecker func(ctx context.Context, settings domain.Settings) []ai.Check

// Services holds everything the commands need. Any field may be nil; a
// command whose dependency is missing fails with a clear error.
type Services struct {
	Index    driving.IndexBuilder
	Search   driving.SearchService
	Tenants  driven.TenantRegistry
	Settings SettingsManager
	Watcher  TranscriptWatcher
	CheckAI  AIChecker

	// Warnings are printed once before commands that need AI services.
	Warnings []string
}

var (
	indexBuilder    driving.IndexBuilder
	searchService   driving.SearchService
	tenantRegistry  driven.TenantRegistry
	settingsService SettingsManager
	transcriptWatch TranscriptWatcher
	checkAI         AIChecker
	startupWarnings []string
)

// SetServices injects the application services.
func SetServices(s Services) {
	indexBuilder = s.Index
	searchService = s.Search
	tenantRegistry = s.Tenants
	settingsService = s.Settings
	transcriptWatch = s.Watcher
	checkAI = s.CheckAI
	startupWarnings = s.Warnings
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "topicseek",
	Short: "Find where topics are discussed in transcribed videos",
	Long: `topicseek indexes timestamped video transcripts into similarity stores and
answers topic queries with deep links to the moment each topic is discussed.

Each channel has its own store, and a global store holds every channel.
Builds are incremental: only transcripts not yet in a store are embedded.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// printWarnings shows AI initialisation warnings once per process.
func printWarnings(cmd *cobra.Command) {
	for _, w := range startupWarnings {
		cmd.PrintErrln(warningStyle.Render("Warning: " + w))
	}
	startupWarnings = nil
}

// commandContext returns the command's context, never nil.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func formatDuration(d time.Duration) string {
	return d.Round(10 * time.Millisecond).String()
}
