package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
)

// Ensure ManifestStore implements the interface.
var _ driven.ManifestStore = (*ManifestStore)(nil)

// ManifestStore keeps manifests in memory. Values are cloned on the way
// in and out.
type ManifestStore struct {
	mu        sync.RWMutex
	manifests map[string]*domain.IndexManifest
	saves     map[string]int
}

// NewManifestStore creates an empty manifest store.
func NewManifestStore() *ManifestStore {
	return &ManifestStore{
		manifests: make(map[string]*domain.IndexManifest),
		saves:     make(map[string]int),
	}
}

// Load returns a copy of the manifest, or domain.ErrNotFound.
func (s *ManifestStore) Load(_ context.Context, storeID string) (*domain.IndexManifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.manifests[storeID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.Clone(), nil
}

// Save stores a copy of manifest.
func (s *ManifestStore) Save(_ context.Context, storeID string, manifest *domain.IndexManifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifests[storeID] = manifest.Clone()
	s.saves[storeID]++
	return nil
}

// Saves returns how many times storeID's manifest was saved.
func (s *ManifestStore) Saves(storeID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves[storeID]
}
