package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
)

// Ensure Store and StoreProvider implement the interfaces.
var (
	_ driven.SimilarityStore = (*Store)(nil)
	_ driven.StoreProvider   = (*StoreProvider)(nil)
)

// Store is an in-memory similarity store using brute-force cosine distance.
type Store struct {
	mu    sync.RWMutex
	docs  map[string]domain.IndexedDocument
	order []string
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{docs: make(map[string]domain.IndexedDocument)}
}

// AddDocuments upserts docs under a single lock.
func (s *Store) AddDocuments(_ context.Context, docs []domain.IndexedDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		if _, ok := s.docs[doc.Chunk.ID]; !ok {
			s.order = append(s.order, doc.Chunk.ID)
		}
		doc.Embedding = slices.Clone(doc.Embedding)
		s.docs[doc.Chunk.ID] = doc
	}
	return nil
}

// Query returns the k nearest chunks; ties keep insertion order.
func (s *Store) Query(_ context.Context, vector []float32, k int) ([]driven.StoreHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]driven.StoreHit, 0, len(s.order))
	for _, id := range s.order {
		doc := s.docs[id]
		hits = append(hits, driven.StoreHit{
			Chunk:    doc.Chunk,
			Distance: domain.CosineDistance(vector, doc.Embedding),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if k >= 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// DeleteUnit removes every chunk of unitID.
func (s *Store) DeleteUnit(_ context.Context, unitID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	kept := s.order[:0]
	for _, id := range s.order {
		if s.docs[id].Chunk.UnitID == unitID {
			delete(s.docs, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed, nil
}

// UnitIDs returns the distinct unit ids in sorted order.
func (s *Store) UnitIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := make(map[string]struct{})
	for _, doc := range s.docs {
		set[doc.Chunk.UnitID] = struct{}{}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

// Clear removes every chunk.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]domain.IndexedDocument)
	s.order = nil
	return nil
}

// Relevance converts cosine distance into [0,1].
func (s *Store) Relevance(distance float64) float64 {
	return domain.CosineRelevance(distance)
}

// Close is a no-op; the store lives as long as its provider.
func (s *Store) Close() error {
	return nil
}

// StoreProvider hands out in-memory stores by id.
type StoreProvider struct {
	mu     sync.Mutex
	stores map[string]*Store
}

// NewStoreProvider creates an empty provider.
func NewStoreProvider() *StoreProvider {
	return &StoreProvider{stores: make(map[string]*Store)}
}

// Open returns the store for storeID.
func (p *StoreProvider) Open(_ context.Context, storeID string, create bool) (driven.SimilarityStore, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	store, ok := p.stores[storeID]
	if !ok {
		if !create {
			return nil, domain.ErrStoreUnavailable
		}
		store = NewStore()
		p.stores[storeID] = store
	}
	return store, nil
}

// Exists reports whether storeID has been opened with create.
func (p *StoreProvider) Exists(_ context.Context, storeID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.stores[storeID]
	return ok, nil
}

// Store returns the concrete store for storeID, or nil.
func (p *StoreProvider) Store(storeID string) *Store {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stores[storeID]
}
