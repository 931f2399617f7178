package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/topicseek/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
)

func testRetrievalSettings() domain.RetrievalSettings {
	return domain.RetrievalSettings{
		RelevanceFloor:   0.5,
		DefaultLimit:     domain.DefaultSearchLimit,
		SummaryMaxLength: domain.DefaultSummaryMaxLength,
		Summaries:        false,
	}
}

func doc(id, unitID string, vector []float32) domain.IndexedDocument {
	return domain.IndexedDocument{
		Chunk: domain.Chunk{
			ID:           id,
			UnitID:       unitID,
			Title:        "Title " + unitID,
			Uploader:     "Uploader " + unitID,
			SourceURL:    "https://www.youtube.com/watch?v=" + unitID,
			TimestampURL: "https://www.youtube.com/watch?v=" + unitID + "&t=30s",
			StartTime:    "00:00:30",
			StartSeconds: 30,
			Content:      "content of " + id,
		},
		Embedding: vector,
	}
}

// newGlobalSearch returns a search service over a memory global store
// holding docs, with the query "topic" embedded as [1,0,0].
func newGlobalSearch(t *testing.T, docs ...domain.IndexedDocument) (*SearchService, *mockEmbedder) {
	t.Helper()
	stores := memory.NewStoreProvider()
	store, err := stores.Open(context.Background(), domain.GlobalStoreID, true)
	require.NoError(t, err)
	require.NoError(t, store.AddDocuments(context.Background(), docs))

	embedder := newMockEmbedder()
	embedder.vectors["topic"] = []float32{1, 0, 0}
	return NewSearchService(stores, embedder, nil, nil, nil, testRetrievalSettings()), embedder
}

func fixedHits(tenantID string, n int) []driven.StoreHit {
	hits := make([]driven.StoreHit, n)
	for i := range n {
		hits[i] = driven.StoreHit{Chunk: domain.Chunk{
			ID:       fmt.Sprintf("%s-%d", tenantID, i),
			UnitID:   fmt.Sprintf("%s-unit-%d", tenantID, i),
			TenantID: tenantID,
			Title:    fmt.Sprintf("%s video %d", tenantID, i),
			Content:  "text",
		}}
	}
	return hits
}

func TestSearch_RanksAndAppliesFloor(t *testing.T) {
	svc, _ := newGlobalSearch(t,
		doc("c-far", "v3", []float32{0, 1, 0}),
		doc("c-mid", "v2", []float32{1, 1, 0}),
		doc("c-best", "v1", []float32{1, 0, 0}),
	)

	results, err := svc.Search(context.Background(), "topic", domain.SearchOptions{})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "v1", results[0].UnitID)
	assert.InDelta(t, 1.0, results[0].RelevanceScore, 1e-9)
	assert.Equal(t, "v2", results[1].UnitID)
	assert.InDelta(t, 0.707, results[1].RelevanceScore, 1e-9)
}

func TestSearch_ResultFields(t *testing.T) {
	svc, _ := newGlobalSearch(t, doc("c1", "v1", []float32{1, 0, 0}))

	results, err := svc.Search(context.Background(), "topic", domain.SearchOptions{Limit: 1})

	require.NoError(t, err)
	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, "Title v1", r.Title)
	assert.Equal(t, "Uploader v1", r.SourceName)
	assert.Equal(t, "https://www.youtube.com/watch?v=v1&t=30s", r.TimestampURL)
	assert.Equal(t, "00:00:30", r.StartTime)
	assert.InDelta(t, 30.0, r.StartSeconds, 1e-9)
	assert.Equal(t, "content of c1", r.ContentPreview)
	assert.Empty(t, r.TopicSummary)
}

func TestSearch_Limit(t *testing.T) {
	var docs []domain.IndexedDocument
	for i := range 10 {
		docs = append(docs, doc(fmt.Sprintf("c%d", i), fmt.Sprintf("v%d", i), []float32{1, 0, 0}))
	}
	svc, _ := newGlobalSearch(t, docs...)

	results, err := svc.Search(context.Background(), "topic", domain.SearchOptions{Limit: 3})

	require.NoError(t, err)
	require.Len(t, results, 3)
	// Equal relevance keeps store order.
	assert.Equal(t, "v0", results[0].UnitID)
	assert.Equal(t, "v2", results[2].UnitID)
}

func TestSearch_InvalidLimit(t *testing.T) {
	svc, embedder := newGlobalSearch(t)

	for _, limit := range []int{-1, 21} {
		_, err := svc.Search(context.Background(), "topic", domain.SearchOptions{Limit: limit})
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "limit %d", limit)
	}
	assert.Zero(t, embedder.Calls())
}

func TestSearch_EmptyQuery(t *testing.T) {
	svc, embedder := newGlobalSearch(t, doc("c1", "v1", []float32{1, 0, 0}))

	results, err := svc.Search(context.Background(), "   ", domain.SearchOptions{})

	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NotNil(t, results)
	assert.Zero(t, embedder.Calls())
}

func TestSearch_EmptyStoreIsNotAnError(t *testing.T) {
	svc, _ := newGlobalSearch(t)

	results, err := svc.Search(context.Background(), "topic", domain.SearchOptions{})

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_MissingStore(t *testing.T) {
	svc := NewSearchService(memory.NewStoreProvider(), newMockEmbedder(), nil, nil, nil, testRetrievalSettings())

	_, err := svc.Search(context.Background(), "topic", domain.SearchOptions{Scope: "chan-x"})

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestSearch_NoEmbedder(t *testing.T) {
	svc := NewSearchService(memory.NewStoreProvider(), nil, nil, nil, nil, testRetrievalSettings())

	_, err := svc.Search(context.Background(), "topic", domain.SearchOptions{})

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestSearch_PreviewTruncated(t *testing.T) {
	d := doc("c1", "v1", []float32{1, 0, 0})
	d.Chunk.Content = strings.Repeat("語", 250)
	svc, _ := newGlobalSearch(t, d)

	results, err := svc.Search(context.Background(), "topic", domain.SearchOptions{})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, strings.Repeat("語", 200)+"...", results[0].ContentPreview)
}

func TestSearch_CatalogFillsMissingMetadata(t *testing.T) {
	d := doc("c1", "v1", []float32{1, 0, 0})
	d.Chunk.Title = ""
	d.Chunk.Uploader = ""
	d.Chunk.TimestampURL = ""

	stores := memory.NewStoreProvider()
	store, err := stores.Open(context.Background(), domain.GlobalStoreID, true)
	require.NoError(t, err)
	require.NoError(t, store.AddDocuments(context.Background(), []domain.IndexedDocument{d}))

	source := memory.NewTranscriptSource(&domain.Unit{ID: "v1", Title: "Catalog title", Channel: "Catalog channel"})
	catalog := NewUnitCatalog(source, memory.NewManifestStore())
	embedder := newMockEmbedder()
	embedder.vectors["topic"] = []float32{1, 0, 0}
	svc := NewSearchService(stores, embedder, nil, nil, catalog, testRetrievalSettings())

	results, err := svc.Search(context.Background(), "topic", domain.SearchOptions{})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Catalog title", results[0].Title)
	assert.Equal(t, "Catalog channel", results[0].SourceName)
	assert.Equal(t, "https://www.youtube.com/watch?v=v1", results[0].TimestampURL)
}

func TestSearch_UnknownTitle(t *testing.T) {
	d := doc("c1", "v1", []float32{1, 0, 0})
	d.Chunk.Title = ""
	svc, _ := newGlobalSearch(t, d)

	results, err := svc.Search(context.Background(), "topic", domain.SearchOptions{})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Unknown", results[0].Title)
}

func TestSearch_Summaries(t *testing.T) {
	stores := memory.NewStoreProvider()
	store, err := stores.Open(context.Background(), domain.GlobalStoreID, true)
	require.NoError(t, err)
	require.NoError(t, store.AddDocuments(context.Background(), []domain.IndexedDocument{
		doc("c1", "v1", []float32{1, 0, 0}),
	}))

	settings := testRetrievalSettings()
	settings.Summaries = true
	llm := &mockLLM{response: "Covers goroutine scheduling."}
	embedder := newMockEmbedder()
	embedder.vectors["topic"] = []float32{1, 0, 0}
	svc := NewSearchService(stores, embedder, nil, NewSummarizer(llm, 150, 0.1), nil, settings)

	results, err := svc.Search(context.Background(), "topic", domain.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Covers goroutine scheduling.", results[0].TopicSummary)

	results, err = svc.Search(context.Background(), "topic", domain.SearchOptions{SkipSummary: true})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].TopicSummary)
}

// --- Unified search ---

func newUnifiedSearch(stores map[string]*fixedStore, tenants ...domain.Tenant) (*SearchService, *mockEmbedder) {
	embedder := newMockEmbedder()
	registry := memory.NewTenantRegistry(tenants...)
	provider := &fixedProvider{stores: stores}
	return NewSearchService(provider, embedder, registry, nil, nil, testRetrievalSettings()), embedder
}

func TestUnifiedSearch_SmallTenantIsNotDrowned(t *testing.T) {
	// A large tenant with many moderately relevant chunks next to a small
	// tenant with one highly relevant chunk.
	svc, _ := newUnifiedSearch(map[string]*fixedStore{
		"big":   {Store: memory.NewStore(), hits: fixedHits("big", 20), relevance: 0.8},
		"small": {Store: memory.NewStore(), hits: fixedHits("small", 1), relevance: 0.95},
	},
		domain.Tenant{ID: "big", Name: "Big Channel", Enabled: true},
		domain.Tenant{ID: "small", Name: "Small Channel", Enabled: true},
	)

	results, err := svc.UnifiedSearch(context.Background(), "topic", domain.SearchOptions{Limit: 3})

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "small", results[0].TenantID)
	assert.Equal(t, "Small Channel", results[0].TenantName)
	assert.Equal(t, "big", results[1].TenantID)
	assert.Equal(t, "Big Channel", results[1].SourceName)
}

func TestUnifiedSearch_FloorAppliesPerTenant(t *testing.T) {
	svc, _ := newUnifiedSearch(map[string]*fixedStore{
		"a": {Store: memory.NewStore(), hits: fixedHits("a", 2), relevance: 0.9},
		"b": {Store: memory.NewStore(), hits: fixedHits("b", 2), relevance: 0.3},
	},
		domain.Tenant{ID: "a", Enabled: true},
		domain.Tenant{ID: "b", Enabled: true},
	)

	results, err := svc.UnifiedSearch(context.Background(), "topic", domain.SearchOptions{Limit: 10})

	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "a", r.TenantID)
	}
}

func TestSearch_FloorComparesReportedScore(t *testing.T) {
	tests := []struct {
		name      string
		relevance float64
		wantScore float64
		wantHit   bool
	}{
		{"rounds below floor", 0.7004, 0, false},
		{"rounds above floor", 0.7006, 0.701, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newUnifiedSearch(map[string]*fixedStore{
				domain.GlobalStoreID: {Store: memory.NewStore(), hits: fixedHits("", 1), relevance: tt.relevance},
			})
			svc.settings.RelevanceFloor = 0.7004

			results, err := svc.Search(context.Background(), "topic", domain.SearchOptions{})

			require.NoError(t, err)
			if !tt.wantHit {
				assert.Empty(t, results)
				return
			}
			require.Len(t, results, 1)
			assert.Equal(t, tt.wantScore, results[0].RelevanceScore)
			assert.GreaterOrEqual(t, results[0].RelevanceScore, svc.settings.RelevanceFloor)
		})
	}
}

func TestUnifiedSearch_SkipsFailingTenants(t *testing.T) {
	svc, _ := newUnifiedSearch(map[string]*fixedStore{
		"a":      {Store: memory.NewStore(), hits: fixedHits("a", 1), relevance: 0.9},
		"broken": {Store: memory.NewStore(), queryErr: assert.AnError},
	},
		domain.Tenant{ID: "a", Enabled: true},
		domain.Tenant{ID: "broken", Enabled: true},
		domain.Tenant{ID: "never-built", Enabled: true},
	)

	results, err := svc.UnifiedSearch(context.Background(), "topic", domain.SearchOptions{})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].TenantID)
}

func TestUnifiedSearch_IgnoresDisabledTenants(t *testing.T) {
	svc, _ := newUnifiedSearch(map[string]*fixedStore{
		"a":   {Store: memory.NewStore(), hits: fixedHits("a", 1), relevance: 0.7},
		"off": {Store: memory.NewStore(), hits: fixedHits("off", 1), relevance: 0.99},
	},
		domain.Tenant{ID: "a", Enabled: true},
		domain.Tenant{ID: "off", Enabled: false},
	)

	results, err := svc.UnifiedSearch(context.Background(), "topic", domain.SearchOptions{})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].TenantID)
}

func TestUnifiedSearch_TenantFilter(t *testing.T) {
	stores := map[string]*fixedStore{
		"a": {Store: memory.NewStore(), hits: fixedHits("a", 2), relevance: 0.9},
		"b": {Store: memory.NewStore(), hits: fixedHits("b", 2), relevance: 0.8},
	}
	svc, _ := newUnifiedSearch(stores,
		domain.Tenant{ID: "a", Enabled: true},
		domain.Tenant{ID: "b", Enabled: true},
	)

	results, err := svc.UnifiedSearch(context.Background(), "topic", domain.SearchOptions{TenantFilter: "b"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "b", r.TenantID)
	}

	_, err = svc.UnifiedSearch(context.Background(), "topic", domain.SearchOptions{TenantFilter: "zzz"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUnifiedSearch_NoTenants(t *testing.T) {
	svc, embedder := newUnifiedSearch(map[string]*fixedStore{})

	results, err := svc.UnifiedSearch(context.Background(), "topic", domain.SearchOptions{})

	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, embedder.Calls())
}

func TestSearch_UnifiedScopeDelegates(t *testing.T) {
	svc, _ := newUnifiedSearch(map[string]*fixedStore{
		"a": {Store: memory.NewStore(), hits: fixedHits("a", 1), relevance: 0.9},
	}, domain.Tenant{ID: "a", Enabled: true})

	results, err := svc.Search(context.Background(), "topic", domain.SearchOptions{Scope: domain.UnifiedScope})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].TenantID)
}

func TestRank_StableTies(t *testing.T) {
	hits := []rankedHit{
		{chunk: domain.Chunk{ID: "first"}, relevance: 0.8},
		{chunk: domain.Chunk{ID: "top"}, relevance: 0.9},
		{chunk: domain.Chunk{ID: "second"}, relevance: 0.8},
	}

	ranked := rank(hits, 2)

	require.Len(t, ranked, 2)
	assert.Equal(t, "top", ranked[0].chunk.ID)
	assert.Equal(t, "first", ranked[1].chunk.ID)
}
