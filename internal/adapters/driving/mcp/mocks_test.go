package mcp

import (
	"context"

	"github.com/custodia-labs/topicseek/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results []domain.SearchResult
	err     error

	lastQuery string
	lastOpts  domain.SearchOptions
	unified   bool
}

func (m *mockSearchService) Search(
	_ context.Context,
	query string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.lastQuery, m.lastOpts = query, opts
	return m.results, m.err
}

func (m *mockSearchService) UnifiedSearch(
	_ context.Context,
	query string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.lastQuery, m.lastOpts, m.unified = query, opts, true
	return m.results, m.err
}

// mockIndexBuilder is a mock implementation of driving.IndexBuilder.
type mockIndexBuilder struct {
	status  *domain.IndexStatus
	err     error
	storeID string
}

func (m *mockIndexBuilder) Build(_ context.Context, req domain.BuildRequest) *domain.BuildReport {
	return &domain.BuildReport{StoreID: req.StoreID, Mode: req.Mode, Success: true}
}

func (m *mockIndexBuilder) BuildAll(_ context.Context, _ domain.BuildMode) *domain.MultiBuildReport {
	return &domain.MultiBuildReport{}
}

func (m *mockIndexBuilder) Verify(_ context.Context, storeID string) (*domain.VerifyReport, error) {
	return &domain.VerifyReport{StoreID: storeID}, m.err
}

func (m *mockIndexBuilder) RemoveUnit(_ context.Context, _, _ string) (int, error) {
	return 0, m.err
}

func (m *mockIndexBuilder) Status(_ context.Context, storeID string) (*domain.IndexStatus, error) {
	m.storeID = storeID
	if m.err != nil {
		return nil, m.err
	}
	return m.status, nil
}
