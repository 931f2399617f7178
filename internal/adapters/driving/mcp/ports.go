package mcp

import (
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
	"github.com/custodia-labs/topicseek/internal/core/ports/driving"
)

// Ports aggregates what the MCP server needs from the core.
type Ports struct {
	// Search answers topic queries. Required.
	Search driving.SearchService

	// Index reports store status. Optional; index_status is unavailable without it.
	Index driving.IndexBuilder

	// Tenants lists channels for the tenants resource. Optional.
	Tenants driven.TenantRegistry
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
