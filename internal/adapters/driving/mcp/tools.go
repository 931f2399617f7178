package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/topicseek/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the topic to search for" validate:"max=2000"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, 1 to 20 (default 5)" validate:"gte=0,lte=20"`
	Scope string `json:"scope,omitempty" jsonschema:"store to search: global (default), a channel id, or unified" validate:"max=256"`
}

// UnifiedSearchInput is the input schema for the unified_search tool.
type UnifiedSearchInput struct {
	Query  string `json:"query" jsonschema:"the topic to search for" validate:"max=2000"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of results, 1 to 20 (default 5)" validate:"gte=0,lte=20"`
	Tenant string `json:"tenant,omitempty" jsonschema:"restrict the search to one channel id" validate:"max=256"`
}

// SearchOutput is the output schema for both search tools.
type SearchOutput struct {
	Results []domain.SearchResult `json:"results"`
	Count   int                   `json:"count"`
}

// IndexStatusInput is the input schema for the index_status tool.
type IndexStatusInput struct {
	Store string `json:"store,omitempty" jsonschema:"store id: global (default) or a channel id" validate:"max=256"`
}

// IndexStatusOutput summarises one store.
type IndexStatusOutput struct {
	StoreID        string `json:"store_id"`
	Exists         bool   `json:"exists"`
	Building       bool   `json:"building"`
	Phase          string `json:"phase,omitempty"`
	StoredChunks   int    `json:"stored_chunks"`
	ProcessedUnits int    `json:"processed_units"`
	TotalChunks    int    `json:"total_chunks"`
	BuiltAt        string `json:"built_at,omitempty"`
	Incremental    bool   `json:"incremental"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find the moments in transcribed videos where a topic is discussed",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "unified_search",
		Description: "Search every enabled channel and merge the results by relevance",
	}, s.handleUnifiedSearch)

	if s.ports.Index != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "index_status",
			Description: "Report what a similarity store holds and whether a build is running",
		}, s.handleIndexStatus)
	}
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, SearchOutput{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	opts := domain.SearchOptions{Limit: input.Limit, Scope: input.Scope}
	results, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	return nil, newSearchOutput(results), nil
}

func (s *Server) handleUnifiedSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UnifiedSearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, SearchOutput{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	opts := domain.SearchOptions{Limit: input.Limit, TenantFilter: input.Tenant}
	results, err := s.ports.Search.UnifiedSearch(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	return nil, newSearchOutput(results), nil
}

func (s *Server) handleIndexStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexStatusInput,
) (*mcp.CallToolResult, IndexStatusOutput, error) {
	if s.ports.Index == nil {
		return nil, IndexStatusOutput{}, ErrIndexUnavailable
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, IndexStatusOutput{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	storeID := input.Store
	if storeID == "" {
		storeID = domain.GlobalStoreID
	}

	status, err := s.ports.Index.Status(ctx, storeID)
	if err != nil {
		return nil, IndexStatusOutput{}, err
	}
	return nil, newIndexStatusOutput(status), nil
}

func newSearchOutput(results []domain.SearchResult) SearchOutput {
	if results == nil {
		results = []domain.SearchResult{}
	}
	return SearchOutput{Results: results, Count: len(results)}
}

func newIndexStatusOutput(status *domain.IndexStatus) IndexStatusOutput {
	out := IndexStatusOutput{
		StoreID:      status.StoreID,
		Exists:       status.Exists,
		Building:     status.Building,
		Phase:        string(status.Phase),
		StoredChunks: status.StoredChunks,
	}
	if m := status.Manifest; m != nil {
		out.ProcessedUnits = len(m.ProcessedUnitIDs)
		out.TotalChunks = m.TotalChunks
		out.BuiltAt = m.BuiltAt
		out.Incremental = m.IncrementalMode
	}
	return out
}
