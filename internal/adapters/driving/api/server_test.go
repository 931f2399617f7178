package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/topicseek/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/topicseek/internal/core/domain"
)

type mockSearchService struct {
	results []domain.SearchResult
	err     error
	query   string
	opts    domain.SearchOptions
	unified bool
}

func (m *mockSearchService) Search(_ context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.query, m.opts = query, opts
	return m.results, m.err
}

func (m *mockSearchService) UnifiedSearch(_ context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.query, m.opts, m.unified = query, opts, true
	return m.results, m.err
}

type mockIndexBuilder struct {
	status    *domain.IndexStatus
	statusErr error
	report    *domain.BuildReport
	req       domain.BuildRequest
}

func (m *mockIndexBuilder) Build(_ context.Context, req domain.BuildRequest) *domain.BuildReport {
	m.req = req
	return m.report
}

func (m *mockIndexBuilder) BuildAll(context.Context, domain.BuildMode) *domain.MultiBuildReport {
	return &domain.MultiBuildReport{}
}

func (m *mockIndexBuilder) Verify(_ context.Context, storeID string) (*domain.VerifyReport, error) {
	return &domain.VerifyReport{StoreID: storeID}, nil
}

func (m *mockIndexBuilder) RemoveUnit(context.Context, string, string) (int, error) {
	return 0, nil
}

func (m *mockIndexBuilder) Status(_ context.Context, storeID string) (*domain.IndexStatus, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	s := *m.status
	s.StoreID = storeID
	return &s, nil
}

func newTestServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	s, err := NewServer(ports)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, target string) (int, []byte) {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest(method, target, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestNewServer_RequiresSearch(t *testing.T) {
	_, err := NewServer(&Ports{})
	assert.ErrorIs(t, err, ErrMissingSearchService)

	_, err = NewServer(nil)
	assert.ErrorIs(t, err, ErrMissingSearchService)
}

func TestHealthy(t *testing.T) {
	s := newTestServer(t, &Ports{Search: &mockSearchService{}})

	code, body := do(t, s, http.MethodGet, "/check/healthy")

	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"result":"ok"}`, string(body))
}

func TestSearch(t *testing.T) {
	search := &mockSearchService{results: []domain.SearchResult{{
		Title:          "Go Concurrency",
		TimestampURL:   "https://www.youtube.com/watch?v=abc&t=65s",
		RelevanceScore: 0.9,
		UnitID:         "abc",
	}}}
	s := newTestServer(t, &Ports{Search: search})

	code, body := do(t, s, http.MethodGet, "/api/v1/search?q=channels&limit=3&scope=UC1&no_summary=true")

	require.Equal(t, http.StatusOK, code)
	var resp SearchResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "channels", resp.Query)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "abc", resp.Results[0].UnitID)
	assert.Equal(t, domain.SearchOptions{Limit: 3, Scope: "UC1", SkipSummary: true}, search.opts)
}

func TestSearch_EmptyResults(t *testing.T) {
	s := newTestServer(t, &Ports{Search: &mockSearchService{}})

	code, body := do(t, s, http.MethodGet, "/api/v1/search?q=nothing")

	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"query":"nothing","count":0,"results":[]}`, string(body))
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		err      error
		wantCode int
	}{
		{"limit too high", "/api/v1/search?q=x&limit=21", nil, http.StatusUnprocessableEntity},
		{"limit not a number", "/api/v1/search?q=x&limit=abc", nil, http.StatusBadRequest},
		{"invalid input", "/api/v1/search?q=x", fmt.Errorf("opts: %w", domain.ErrInvalidInput), http.StatusBadRequest},
		{"store missing", "/api/v1/search?q=x&scope=UC9", domain.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{"tenant not found", "/api/v1/unified?q=x&tenant=UC9", domain.ErrNotFound, http.StatusNotFound},
		{"unexpected", "/api/v1/search?q=x", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &Ports{Search: &mockSearchService{err: tt.err}})

			code, body := do(t, s, http.MethodGet, tt.target)

			assert.Equal(t, tt.wantCode, code)
			assert.NotEmpty(t, body)
		})
	}
}

func TestSearch_ValidationBody(t *testing.T) {
	s := newTestServer(t, &Ports{Search: &mockSearchService{}})

	_, body := do(t, s, http.MethodGet, "/api/v1/unified?q=x&limit=50")

	var resp ValidationError
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)
	assert.Contains(t, resp.Errors, "Limit")
}

func TestUnified(t *testing.T) {
	search := &mockSearchService{}
	s := newTestServer(t, &Ports{Search: search})

	code, _ := do(t, s, http.MethodGet, "/api/v1/unified?q=channels&tenant=UC2")

	assert.Equal(t, http.StatusOK, code)
	assert.True(t, search.unified)
	assert.Equal(t, "UC2", search.opts.TenantFilter)
}

func TestTenants(t *testing.T) {
	t.Run("lists registry", func(t *testing.T) {
		registry := memory.NewTenantRegistry(domain.Tenant{ID: "UC1", Name: "First", Enabled: true})
		s := newTestServer(t, &Ports{Search: &mockSearchService{}, Tenants: registry})

		code, body := do(t, s, http.MethodGet, "/api/v1/tenants")

		require.Equal(t, http.StatusOK, code)
		var tenants []domain.Tenant
		require.NoError(t, json.Unmarshal(body, &tenants))
		require.Len(t, tenants, 1)
		assert.Equal(t, "First", tenants[0].Name)
	})

	t.Run("no registry", func(t *testing.T) {
		s := newTestServer(t, &Ports{Search: &mockSearchService{}})

		code, body := do(t, s, http.MethodGet, "/api/v1/tenants")

		assert.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, `[]`, string(body))
	})
}

func TestStoreStatus(t *testing.T) {
	t.Run("returns status", func(t *testing.T) {
		index := &mockIndexBuilder{status: &domain.IndexStatus{Exists: true, StoredChunks: 7}}
		s := newTestServer(t, &Ports{Search: &mockSearchService{}, Index: index})

		code, body := do(t, s, http.MethodGet, "/api/v1/stores/UC1/status")

		require.Equal(t, http.StatusOK, code)
		var status domain.IndexStatus
		require.NoError(t, json.Unmarshal(body, &status))
		assert.Equal(t, "UC1", status.StoreID)
		assert.Equal(t, 7, status.StoredChunks)
	})

	t.Run("index not configured", func(t *testing.T) {
		s := newTestServer(t, &Ports{Search: &mockSearchService{}})

		code, _ := do(t, s, http.MethodGet, "/api/v1/stores/UC1/status")

		assert.Equal(t, http.StatusNotImplemented, code)
	})

	t.Run("status error", func(t *testing.T) {
		index := &mockIndexBuilder{statusErr: errors.New("disk gone")}
		s := newTestServer(t, &Ports{Search: &mockSearchService{}, Index: index})

		code, _ := do(t, s, http.MethodGet, "/api/v1/stores/UC1/status")

		assert.Equal(t, http.StatusInternalServerError, code)
	})
}

func TestStoreBuild(t *testing.T) {
	t.Run("defaults to incremental", func(t *testing.T) {
		index := &mockIndexBuilder{report: &domain.BuildReport{StoreID: "UC1", Success: true, NewChunks: 4}}
		s := newTestServer(t, &Ports{Search: &mockSearchService{}, Index: index})

		code, body := do(t, s, http.MethodPost, "/api/v1/stores/UC1/build")

		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, domain.BuildRequest{StoreID: "UC1", Mode: domain.BuildModeIncremental}, index.req)
		var report domain.BuildReport
		require.NoError(t, json.Unmarshal(body, &report))
		assert.Equal(t, 4, report.NewChunks)
	})

	t.Run("full mode", func(t *testing.T) {
		index := &mockIndexBuilder{report: &domain.BuildReport{Success: true}}
		s := newTestServer(t, &Ports{Search: &mockSearchService{}, Index: index})

		code, _ := do(t, s, http.MethodPost, "/api/v1/stores/global/build?mode=full")

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, domain.BuildModeFull, index.req.Mode)
	})

	t.Run("invalid mode", func(t *testing.T) {
		index := &mockIndexBuilder{}
		s := newTestServer(t, &Ports{Search: &mockSearchService{}, Index: index})

		code, _ := do(t, s, http.MethodPost, "/api/v1/stores/UC1/build?mode=partial")

		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Empty(t, index.req.StoreID)
	})

	t.Run("failed build", func(t *testing.T) {
		index := &mockIndexBuilder{report: &domain.BuildReport{Success: false, Error: "no candidate units"}}
		s := newTestServer(t, &Ports{Search: &mockSearchService{}, Index: index})

		code, body := do(t, s, http.MethodPost, "/api/v1/stores/UC1/build")

		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Contains(t, string(body), "no candidate units")
	})
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(fmt.Errorf("x: %w", domain.ErrBuildInProgress)))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(domain.ErrEmbeddingUnavailable))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("x")))
}
