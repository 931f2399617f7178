// Package api serves topic search over a JSON HTTP API.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
	"github.com/custodia-labs/topicseek/internal/core/ports/driving"
	"github.com/custodia-labs/topicseek/internal/logger"
)

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("api: search service is required")

const shutdownTimeout = 5 * time.Second

// Ports aggregates what the HTTP API needs from the core.
type Ports struct {
	Search  driving.SearchService
	Index   driving.IndexBuilder
	Tenants driven.TenantRegistry
}

// Server is the fiber application with its routes.
type Server struct {
	app *fiber.App
}

// NewServer builds the application and registers routes.
func NewServer(ports *Ports) (*Server, error) {
	if ports == nil || ports.Search == nil {
		return nil, ErrMissingSearchService
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})

	var (
		checkHandler  = CheckHandler{}
		searchHandler = NewSearchHandler(ports.Search)
		storeHandler  = NewStoreHandler(ports.Index)
		tenantHandler = NewTenantHandler(ports.Tenants)
		check         = app.Group("/check")
		apiv1         = app.Group("/api/v1")
	)

	check.Get("/healthy", checkHandler.HandleHealthy)
	apiv1.Get("/search", searchHandler.HandleSearch)
	apiv1.Get("/unified", searchHandler.HandleUnified)
	apiv1.Get("/tenants", tenantHandler.HandleList)
	apiv1.Get("/stores/:store/status", storeHandler.HandleStatus)
	apiv1.Post("/stores/:store/build", storeHandler.HandleBuild)

	return &Server{app: app}, nil
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr)
	}()
	logger.Info("HTTP API listening on %s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}
