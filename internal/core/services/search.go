package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
	"github.com/custodia-labs/topicseek/internal/core/ports/driving"
	"github.com/custodia-labs/topicseek/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

const (
	// overFetchFactor is how many neighbours are requested per wanted result.
	overFetchFactor = 2

	previewChars    = 200
	unknownTitle    = "Unknown"
	summaryWorkers  = 4
	relevancePlaces = 1000
)

// rankedHit holds an intermediate result before hydration.
type rankedHit struct {
	chunk     domain.Chunk
	relevance float64
	storeID   string
	tenant    *domain.Tenant
}

// SearchService ranks chunks from similarity stores against a query.
// It never writes to stores or manifests.
type SearchService struct {
	stores     driven.StoreProvider
	embedder   driven.EmbeddingService
	tenants    driven.TenantRegistry
	summarizer *Summarizer
	catalog    *UnitCatalog
	settings   domain.RetrievalSettings
}

// NewSearchService creates a new search service.
// The tenants, summarizer and catalog parameters are optional (can be nil).
func NewSearchService(
	stores driven.StoreProvider,
	embedder driven.EmbeddingService,
	tenants driven.TenantRegistry,
	summarizer *Summarizer,
	catalog *UnitCatalog,
	settings domain.RetrievalSettings,
) *SearchService {
	return &SearchService{
		stores:     stores,
		embedder:   embedder,
		tenants:    tenants,
		summarizer: summarizer,
		catalog:    catalog,
		settings:   settings,
	}
}

// Search queries one store. An empty result is not an error; a missing
// or unreadable store is.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	opts, err := s.normalise(opts)
	if err != nil {
		return nil, err
	}
	if opts.IsUnified() {
		return s.UnifiedSearch(ctx, query, opts)
	}

	logger.Section("Search: " + opts.Scope)
	logger.Debug("Query: %q, limit %d", query, opts.Limit)

	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchResult{}, nil
	}

	vector, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	var tenant *domain.Tenant
	if opts.Scope != domain.GlobalStoreID && s.tenants != nil {
		if t, err := s.tenants.Get(ctx, opts.Scope); err == nil {
			tenant = t
		}
	}

	hits, err := s.searchStore(ctx, opts.Scope, tenant, vector, opts.Limit)
	if err != nil {
		return nil, err
	}

	return s.hydrate(ctx, hits, query, opts), nil
}

// UnifiedSearch queries every enabled tenant store independently and
// merges by relevance. A failing tenant is logged and skipped.
func (s *SearchService) UnifiedSearch(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	opts, err := s.normalise(opts)
	if err != nil {
		return nil, err
	}
	opts.Scope = domain.UnifiedScope

	logger.Section("Unified search")
	logger.Debug("Query: %q, limit %d, tenant filter %q", query, opts.Limit, opts.TenantFilter)

	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchResult{}, nil
	}
	if s.tenants == nil {
		return []domain.SearchResult{}, nil
	}

	tenants, err := s.unifiedTenants(ctx, opts.TenantFilter)
	if err != nil {
		return nil, err
	}
	if len(tenants) == 0 {
		return []domain.SearchResult{}, nil
	}

	vector, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	perTenant := make([][]rankedHit, len(tenants))
	var g errgroup.Group
	for i := range tenants {
		t := &tenants[i]
		g.Go(func() error {
			hits, err := s.searchStore(ctx, t.ID, t, vector, opts.Limit)
			if err != nil {
				logger.Warn("Skipping tenant %s: %v", t.ID, err)
				return nil
			}
			perTenant[i] = hits
			return nil
		})
	}
	_ = g.Wait()

	var merged []rankedHit
	for _, hits := range perTenant {
		merged = append(merged, hits...)
	}
	merged = rank(merged, opts.Limit)

	return s.hydrate(ctx, merged, query, opts), nil
}

func (s *SearchService) normalise(opts domain.SearchOptions) (domain.SearchOptions, error) {
	if opts.Limit == 0 && s.settings.DefaultLimit > 0 {
		opts.Limit = s.settings.DefaultLimit
	}
	return opts.Normalise()
}

// unifiedTenants returns enabled tenants, or just the filtered one.
func (s *SearchService) unifiedTenants(ctx context.Context, filter string) ([]domain.Tenant, error) {
	all, err := s.tenants.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	var out []domain.Tenant
	for _, t := range all {
		if !t.Enabled {
			continue
		}
		if filter != "" && t.ID != filter {
			continue
		}
		out = append(out, t)
	}

	if filter != "" && len(out) == 0 {
		return nil, fmt.Errorf("%w: enabled tenant %s", domain.ErrNotFound, filter)
	}
	return out, nil
}

func (s *SearchService) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vector, nil
}

// searchStore over-fetches from one store, applies the relevance floor
// and returns at most limit hits ranked by relevance.
func (s *SearchService) searchStore(
	ctx context.Context, storeID string, tenant *domain.Tenant, vector []float32, limit int,
) ([]rankedHit, error) {
	store, err := s.stores.Open(ctx, storeID, false)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", storeID, err)
	}
	defer store.Close()

	raw, err := store.Query(ctx, vector, limit*overFetchFactor)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %w", domain.ErrStoreUnavailable, storeID, err)
	}
	logger.Debug("Store %s returned %d candidates", storeID, len(raw))

	hits := make([]rankedHit, 0, len(raw))
	for _, h := range raw {
		relevance := roundRelevance(store.Relevance(h.Distance))
		if relevance < s.settings.RelevanceFloor {
			continue
		}
		hits = append(hits, rankedHit{
			chunk:     h.Chunk,
			relevance: relevance,
			storeID:   storeID,
			tenant:    tenant,
		})
	}

	return rank(hits, limit), nil
}

// roundRelevance rounds to the precision reported to callers. The floor
// and ranking compare the rounded value so a returned score is never
// below the floor.
func roundRelevance(r float64) float64 {
	return math.Round(r*relevancePlaces) / relevancePlaces
}

// rank sorts by relevance, keeping input order for ties, and truncates.
func rank(hits []rankedHit, limit int) []rankedHit {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].relevance > hits[j].relevance
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// hydrate converts ranked hits into results, filling titles, source
// names and summaries.
func (s *SearchService) hydrate(
	ctx context.Context, hits []rankedHit, query string, opts domain.SearchOptions,
) []domain.SearchResult {
	results := make([]domain.SearchResult, len(hits))

	refreshed := make(map[string]bool)
	for i, h := range hits {
		results[i] = s.toResult(ctx, h, refreshed)
	}

	if opts.SkipSummary || !s.settings.Summaries || s.summarizer == nil {
		return results
	}

	var g errgroup.Group
	g.SetLimit(summaryWorkers)
	for i := range hits {
		g.Go(func() error {
			results[i].TopicSummary = s.summarizer.Summarize(ctx, hits[i].chunk.Content, query)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *SearchService) toResult(ctx context.Context, h rankedHit, refreshed map[string]bool) domain.SearchResult {
	c := h.chunk
	result := domain.SearchResult{
		Title:          c.Title,
		TimestampURL:   c.TimestampURL,
		RelevanceScore: h.relevance,
		SourceName:     c.Uploader,
		StartTime:      c.StartTime,
		StartSeconds:   c.StartSeconds,
		ContentPreview: preview(c.Content),
		UnitID:         c.UnitID,
		TenantID:       c.TenantID,
	}

	if h.tenant != nil {
		result.TenantID = h.tenant.ID
		result.TenantName = h.tenant.DisplayName()
	}

	if (result.Title == "" || result.SourceName == "") && s.catalog != nil {
		if !refreshed[h.storeID] {
			if err := s.catalog.Refresh(ctx, h.storeID); err != nil {
				logger.Debug("Refresh unit catalog for %s: %v", h.storeID, err)
			}
			refreshed[h.storeID] = true
		}
		md, err := s.catalog.Lookup(ctx, h.storeID, c.TenantID, c.UnitID)
		if err == nil {
			if result.Title == "" {
				result.Title = md.Title
			}
			if result.SourceName == "" {
				result.SourceName = firstNonEmpty(md.Uploader, md.Channel)
			}
		} else if !errors.Is(err, context.Canceled) {
			logger.Debug("Catalog lookup %s: %v", c.UnitID, err)
		}
	}

	if result.SourceName == "" {
		result.SourceName = result.TenantName
	}
	if result.Title == "" {
		result.Title = unknownTitle
	}
	if result.TimestampURL == "" {
		result.TimestampURL = c.SourceURL
	}

	return result
}

// preview returns the first previewChars characters of content.
func preview(content string) string {
	if utf8.RuneCountInString(content) <= previewChars {
		return content
	}
	return prefixRunes(content, previewChars) + ellipsis
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
