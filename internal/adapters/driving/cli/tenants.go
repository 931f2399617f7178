package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/topicseek/internal/core/domain"
)

var tenantsCmd = &cobra.Command{
	Use:     "tenants",
	Aliases: []string{"channels"},
	Short:   "List configured channels",
	RunE:    runTenants,
}

func init() {
	tenantsCmd.Flags().Bool("json", false, "output channels as JSON")
	rootCmd.AddCommand(tenantsCmd)
}

func runTenants(cmd *cobra.Command, _ []string) error {
	tenants := []domain.Tenant{}
	if tenantRegistry != nil {
		list, err := tenantRegistry.List(commandContext(cmd))
		if err != nil {
			return fmt.Errorf("listing tenants: %w", err)
		}
		tenants = append(tenants, list...)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return outputJSON(cmd, tenants)
	}

	if len(tenants) == 0 {
		cmd.Println("No channels configured.")
		return nil
	}
	cmd.Println(titleStyle.Render("Channels:"))
	for _, t := range tenants {
		state := successStyle.Render("enabled")
		if !t.Enabled {
			state = mutedStyle.Render("disabled")
		}
		cmd.Printf("  %s  %s  %s\n", headingStyle.Render(t.ID), t.DisplayName(), state)
	}
	return nil
}
