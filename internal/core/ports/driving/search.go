package driving

import (
	"context"

	"github.com/custodia-labs/topicseek/internal/core/domain"
)

// SearchService answers topic queries. It only reads stores and manifests.
type SearchService interface {
	// Search queries the store named by opts.Scope. A Scope of
	// domain.UnifiedScope delegates to UnifiedSearch. An empty result is
	// not an error; a missing or unreadable store is.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// UnifiedSearch queries every enabled tenant store, optionally only
	// opts.TenantFilter, and merges by relevance. Per-tenant failures are
	// logged and skipped.
	UnifiedSearch(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}
