package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/topicseek/internal/core/domain"
)

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printResults(cmd *cobra.Command, results []domain.SearchResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println(titleStyle.Render("Results:"))
	cmd.Println()
	for i := range results {
		r := &results[i]
		title := r.Title
		if title == "" {
			title = r.UnitID
		}

		cmd.Printf("  [%d] %s %s\n", i+1, headingStyle.Render(title),
			scoreStyle.Render(fmt.Sprintf("(%.2f)", r.RelevanceScore)))

		source := r.SourceName
		if r.TenantName != "" && r.TenantName != source {
			source = strings.TrimSpace(source + " · " + r.TenantName)
		}
		if source != "" {
			cmd.Printf("      %s\n", mutedStyle.Render(source))
		}
		cmd.Printf("      %s %s\n", r.StartTime, linkStyle.Render(r.TimestampURL))

		summary := r.TopicSummary
		if summary == "" {
			summary = r.ContentPreview
		}
		if summary != "" {
			cmd.Println(indentStyle.Render(summary))
		}
		cmd.Println()
	}
}

func printBuildReport(cmd *cobra.Command, r *domain.BuildReport) {
	cmd.Printf("%s %s build of %s\n", statusMark(r.Success), r.Mode, headingStyle.Render(r.StoreID))
	if !r.Success {
		cmd.Printf("  %s\n", errorStyle.Render("Error: "+r.Error))
	}
	cmd.Printf("  Discovered units: %d\n", r.DiscoveredUnits)
	cmd.Printf("  New units:        %d\n", r.NewUnits)
	cmd.Printf("  Indexed units:    %d\n", r.IndexedUnits)
	cmd.Printf("  Segments:         %d\n", r.TotalSegments)
	cmd.Printf("  New chunks:       %d\n", r.NewChunks)
	if r.FailedChunks > 0 {
		cmd.Printf("  Failed chunks:    %d\n", r.FailedChunks)
	}
	if m := r.Manifest; m != nil {
		cmd.Printf("  Store totals:     %d units, %d chunks\n", m.TotalUnits, m.TotalChunks)
	}
	if d := r.Duration(); d > 0 {
		cmd.Printf("  Took:             %s\n", formatDuration(d))
	}
	for _, f := range r.Failed {
		item := f.UnitID
		if f.ChunkID != "" {
			item += "/" + f.ChunkID
		}
		cmd.Printf("  %s %s [%s] %s\n", warningStyle.Render("!"), item, f.Kind, mutedStyle.Render(f.Reason))
	}
}

func printMultiBuildReport(cmd *cobra.Command, m *domain.MultiBuildReport) {
	if m.Total == 0 {
		cmd.Println("No enabled tenants to build.")
		return
	}
	for _, r := range m.Reports {
		printBuildReport(cmd, r)
		cmd.Println()
	}
	cmd.Printf("%d/%d stores built (%.0f%%)\n", m.Succeeded, m.Total, m.SuccessRate*100)
}

func printStatus(cmd *cobra.Command, s *domain.IndexStatus) {
	cmd.Printf("%s %s\n", statusMark(s.Exists), headingStyle.Render(s.StoreID))
	if !s.Exists {
		cmd.Println(mutedStyle.Render("  not built"))
	}
	if s.Building {
		cmd.Printf("  Building: %s\n", warningStyle.Render(string(s.Phase)))
	}
	if s.Exists {
		cmd.Printf("  Stored chunks:   %d\n", s.StoredChunks)
	}
	if m := s.Manifest; m != nil {
		mode := domain.BuildModeFull
		if m.IncrementalMode {
			mode = domain.BuildModeIncremental
		}
		cmd.Printf("  Processed units: %d\n", len(m.ProcessedUnitIDs))
		cmd.Printf("  Manifest chunks: %d\n", m.TotalChunks)
		cmd.Printf("  Last build:      %s (%s)\n", m.BuiltAt, mode)
		if m.Config != nil {
			cmd.Printf("  Chunking:        size %d, overlap %d, model %s\n",
				m.Config.ChunkSize, m.Config.ChunkOverlap, m.Config.EmbeddingModel)
		}
	}
}

func printVerifyReport(cmd *cobra.Command, v *domain.VerifyReport) {
	cmd.Printf("%s %s\n", statusMark(v.Consistent()), headingStyle.Render(v.StoreID))
	cmd.Printf("  Units:  manifest %d, store %d\n", v.ManifestUnits, v.StoredUnits)
	cmd.Printf("  Chunks: manifest %d, store %d\n", v.ManifestChunks, v.StoredChunks)
	if v.Consistent() {
		cmd.Println(successStyle.Render("  Manifest matches store contents."))
		return
	}
	for _, w := range v.Warnings {
		cmd.Printf("  %s %s\n", warningStyle.Render("!"), w)
	}
}
