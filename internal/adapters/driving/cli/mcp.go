package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/topicseek/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Expose topic search to AI assistants over the Model Context Protocol.

Tools: search, unified_search, index_status.
Resources: topicseek://tenants, topicseek://stores/{storeId}/status.

The server speaks JSON-RPC over stdio unless --port is given, in which case
it serves streamable HTTP.

Examples:
  topicseek mcp serve
  topicseek mcp serve --port 8090

Assistant configuration:
  {
    "mcpServers": {
      "topicseek": {
        "command": "/path/to/topicseek",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Search:  searchService,
		Index:   indexBuilder,
		Tenants: tenantRegistry,
	})
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	if port > 0 {
		addr := fmt.Sprintf("127.0.0.1:%d", port)
		// stdout belongs to JSON-RPC in stdio mode only.
		cmd.Printf("MCP server listening on http://%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}
	return server.Run(ctx)
}
