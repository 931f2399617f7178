package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/topicseek/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/services"
)

type mockIndexBuilder struct {
	mu        sync.Mutex
	requests  []domain.BuildRequest
	allModes  []domain.BuildMode
	report    *domain.BuildReport
	multi     *domain.MultiBuildReport
	verify    *domain.VerifyReport
	verifyErr error
	removed   int
	removeErr error
	statusIDs []string
}

func (m *mockIndexBuilder) Build(_ context.Context, req domain.BuildRequest) *domain.BuildReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.report != nil {
		r := *m.report
		r.StoreID, r.Mode = req.StoreID, req.Mode
		return &r
	}
	return &domain.BuildReport{StoreID: req.StoreID, Mode: req.Mode, Success: true}
}

func (m *mockIndexBuilder) BuildAll(_ context.Context, mode domain.BuildMode) *domain.MultiBuildReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allModes = append(m.allModes, mode)
	if m.multi != nil {
		return m.multi
	}
	return &domain.MultiBuildReport{}
}

func (m *mockIndexBuilder) Verify(_ context.Context, storeID string) (*domain.VerifyReport, error) {
	if m.verifyErr != nil {
		return nil, m.verifyErr
	}
	v := *m.verify
	v.StoreID = storeID
	return &v, nil
}

func (m *mockIndexBuilder) RemoveUnit(context.Context, string, string) (int, error) {
	return m.removed, m.removeErr
}

func (m *mockIndexBuilder) Status(_ context.Context, storeID string) (*domain.IndexStatus, error) {
	m.statusIDs = append(m.statusIDs, storeID)
	return &domain.IndexStatus{StoreID: storeID, Exists: storeID == domain.GlobalStoreID, StoredChunks: 3}, nil
}

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

type mockWatcher struct {
	batches [][]string
	closed  bool
}

func (w *mockWatcher) Watch(context.Context) (<-chan []string, error) {
	ch := make(chan []string, len(w.batches))
	for _, b := range w.batches {
		ch <- b
	}
	close(ch)
	return ch, nil
}

func (w *mockWatcher) Close() error {
	w.closed = true
	return nil
}

type testServices struct {
	index    *mockIndexBuilder
	search   *mockSearchService
	settings *services.SettingsService
	config   *memory.ConfigStore
}

// setupTestServices installs mocks and restores the previous services and
// flag values when the test ends.
func setupTestServices(t *testing.T, tenants ...domain.Tenant) *testServices {
	t.Helper()

	prev := Services{
		Index:    indexBuilder,
		Search:   searchService,
		Tenants:  tenantRegistry,
		Settings: settingsService,
		Watcher:  transcriptWatch,
		CheckAI:  checkAI,
		Warnings: startupWarnings,
	}

	config := memory.NewConfigStore()
	ts := &testServices{
		index:    &mockIndexBuilder{},
		search:   &mockSearchService{},
		settings: services.NewSettingsService(config),
		config:   config,
	}
	SetServices(Services{
		Index:    ts.index,
		Search:   ts.search,
		Tenants:  memory.NewTenantRegistry(tenants...),
		Settings: ts.settings,
	})

	t.Cleanup(func() {
		SetServices(prev)
		resetFlags(rootCmd)
	})
	return ts
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}
