package domain

import "fmt"

// UnifiedScope selects the cross-tenant search.
const UnifiedScope = "unified"

// Search limits.
const (
	DefaultSearchLimit = 5
	MaxSearchLimit     = 20
)

// SearchOptions configures a search request.
type SearchOptions struct {
	// Limit is the maximum number of results (1..20, 0 means default).
	Limit int

	// Scope is GlobalStoreID, a tenant id, or UnifiedScope.
	// Empty means the global store.
	Scope string

	// TenantFilter restricts unified search to one tenant.
	TenantFilter string

	// SkipSummary disables topic summaries (content preview only).
	SkipSummary bool
}

// Normalise applies defaults and rejects out-of-range limits.
func (o SearchOptions) Normalise() (SearchOptions, error) {
	if o.Limit == 0 {
		o.Limit = DefaultSearchLimit
	}
	if o.Limit < 1 || o.Limit > MaxSearchLimit {
		return o, fmt.Errorf("%w: limit %d outside 1..%d", ErrInvalidInput, o.Limit, MaxSearchLimit)
	}
	if o.Scope == "" {
		o.Scope = GlobalStoreID
	}
	return o, nil
}

// IsUnified returns true if the options request a cross-tenant search.
func (o SearchOptions) IsUnified() bool {
	return o.Scope == UnifiedScope
}

// SearchResult is one ranked answer to a topic query.
type SearchResult struct {
	Title          string  `json:"title"`
	TopicSummary   string  `json:"topic_summary"`
	TimestampURL   string  `json:"timestamp_url"`
	RelevanceScore float64 `json:"relevance_score"`
	SourceName     string  `json:"source_name"`
	StartTime      string  `json:"start_time"`
	StartSeconds   float64 `json:"start_seconds"`
	ContentPreview string  `json:"content_preview"`
	UnitID         string  `json:"unit_id"`
	TenantID       string  `json:"tenant_id,omitempty"`
	TenantName     string  `json:"tenant_name,omitempty"`
}
