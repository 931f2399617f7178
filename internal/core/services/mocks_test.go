package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/topicseek/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
)

// --- Mock implementations ---

var errTransient = errors.New("connection reset")

// mockEmbedder implements driven.EmbeddingService for testing.
type mockEmbedder struct {
	mu sync.Mutex

	// vectors overrides the default vector for exact texts.
	vectors map[string][]float32

	// maxTexts rejects larger requests with ErrTokenLimitExceeded (0 = no limit).
	maxTexts int

	// oversized rejects any request containing this text.
	oversized string

	// transientFails fails the first n requests with a transient error.
	transientFails int

	// broken fails every request containing this text with a transient error.
	broken string

	// block makes EmbedBatch wait for ctx cancellation.
	block bool

	embedErr   error
	calls      int
	batchSizes []int
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{vectors: make(map[string][]float32)}
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	vectors, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	m.batchSizes = append(m.batchSizes, len(texts))
	call := m.calls
	m.mu.Unlock()

	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if call <= m.transientFails {
		return nil, errTransient
	}
	if m.maxTexts > 0 && len(texts) > m.maxTexts {
		return nil, fmt.Errorf("%d inputs: %w", len(texts), domain.ErrTokenLimitExceeded)
	}
	for _, t := range texts {
		if m.oversized != "" && t == m.oversized {
			return nil, fmt.Errorf("input too long: %w", domain.ErrTokenLimitExceeded)
		}
		if m.broken != "" && t == m.broken {
			return nil, errTransient
		}
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vectorFor(t)
	}
	return out, nil
}

func (m *mockEmbedder) vectorFor(text string) []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.vectors[text]; ok {
		return v
	}
	return []float32{1, float32(len(text)%5) + 1, 0}
}

func (m *mockEmbedder) Dimensions() int              { return 3 }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

func (m *mockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockEmbedder) BatchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.batchSizes...)
}

// mockLLM implements driven.LLMService for testing.
type mockLLM struct {
	response string
	err      error
	prompts  []string
	mu       sync.Mutex

	// failFirst makes the first calls return failErr.
	failFirst int
	failErr   error
}

func (m *mockLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.failFirst > 0 {
		m.failFirst--
		return "", m.failErr
	}
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// fixedStore is a similarity store returning preset hits. Every hit is
// reported at the same relevance regardless of its distance.
type fixedStore struct {
	*memory.Store
	hits      []driven.StoreHit
	relevance float64
	queryErr  error
}

func (s *fixedStore) Query(_ context.Context, _ []float32, k int) ([]driven.StoreHit, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if k > len(s.hits) {
		return s.hits, nil
	}
	return s.hits[:k], nil
}

func (s *fixedStore) Relevance(float64) float64 { return s.relevance }

// fixedProvider serves fixedStores by id.
type fixedProvider struct {
	stores map[string]*fixedStore
}

func (p *fixedProvider) Open(_ context.Context, storeID string, _ bool) (driven.SimilarityStore, error) {
	s, ok := p.stores[storeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrStoreUnavailable, storeID)
	}
	return s, nil
}

func (p *fixedProvider) Exists(_ context.Context, storeID string) (bool, error) {
	_, ok := p.stores[storeID]
	return ok, nil
}

// failingStore wraps a memory store and refuses writes of chunks whose
// content contains reject.
type failingStore struct {
	*memory.Store
	reject string
}

func (s *failingStore) AddDocuments(ctx context.Context, docs []domain.IndexedDocument) error {
	for _, d := range docs {
		if strings.Contains(d.Chunk.Content, s.reject) {
			return errors.New("disk full")
		}
	}
	return s.Store.AddDocuments(ctx, docs)
}

// countingEstimator charges a fixed cost per chunk.
type countingEstimator struct{ perChunk int }

func (e countingEstimator) Estimate(string) int { return e.perChunk }

// --- Fixtures ---

// makeChunks returns n chunks of unitID with distinct content.
func makeChunks(unitID string, n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range n {
		chunks[i] = domain.Chunk{
			ID:       fmt.Sprintf("%s-%d", unitID, i),
			UnitID:   unitID,
			Position: i,
			Content:  fmt.Sprintf("%s chunk %d", unitID, i),
		}
	}
	return chunks
}

// makeUnit returns a unit with n ten-second segments of text.
func makeUnit(id, tenantID string, n int) *domain.Unit {
	u := &domain.Unit{
		ID:        id,
		TenantID:  tenantID,
		Title:     "Title " + id,
		Uploader:  "Uploader " + id,
		SourceURL: "https://www.youtube.com/watch?v=" + id,
	}
	for i := range n {
		start := float64(i * 10)
		u.Segments = append(u.Segments, domain.TranscriptSegment{
			StartTime:    fmt.Sprintf("00:00:%02d", i*10%60),
			EndTime:      fmt.Sprintf("00:00:%02d", (i*10+10)%60),
			StartSeconds: start,
			EndSeconds:   start + 10,
			Text:         fmt.Sprintf("%s segment %d says something", id, i),
		})
	}
	return u
}
