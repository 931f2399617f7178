package cli

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/topicseek/internal/adapters/driving/api"
	"github.com/custodia-labs/topicseek/internal/core/services"
)

// Port range probed when --port is 0.
const (
	defaultPortStart = 8080
	defaultPortEnd   = 8180
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serve search, channel and store endpoints over HTTP.

Endpoints:
  GET  /check/healthy
  GET  /api/v1/search?q=...&limit=...&scope=...
  GET  /api/v1/unified?q=...&tenant=...
  GET  /api/v1/tenants
  GET  /api/v1/stores/{store}/status
  POST /api/v1/stores/{store}/build?mode=incremental|full

With --rebuild-interval every enabled channel store is rebuilt periodically.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "127.0.0.1", "address to bind")
	serveCmd.Flags().IntP("port", "p", 0, "port to listen on (0 = first free port from 8080)")
	serveCmd.Flags().Duration("rebuild-interval", 0, "rebuild channel stores periodically (0 = never)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if searchService == nil {
		return errNoSearchService
	}
	printWarnings(cmd)

	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	interval, _ := cmd.Flags().GetDuration("rebuild-interval")

	if interval > 0 && indexBuilder == nil {
		return fmt.Errorf("--rebuild-interval: %w", errNoIndexBuilder)
	}

	if port == 0 {
		p, err := services.FindAvailablePort(host, defaultPortStart, defaultPortEnd)
		if err != nil {
			return err
		}
		port = p
	}

	server, err := api.NewServer(&api.Ports{
		Search:  searchService,
		Index:   indexBuilder,
		Tenants: tenantRegistry,
	})
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	cmd.Printf("API listening on http://%s\n", addr)

	g, ctx := errgroup.WithContext(commandContext(cmd))
	g.Go(func() error {
		return server.Run(ctx, addr)
	})

	if interval > 0 {
		scheduler := services.NewScheduler(indexBuilder, interval)
		cmd.Printf("Rebuilding channel stores every %s\n", interval.Round(time.Second))
		g.Go(func() error {
			return scheduler.Start(ctx)
		})
	}

	return g.Wait()
}
