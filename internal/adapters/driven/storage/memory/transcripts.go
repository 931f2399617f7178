package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
)

// Ensure TranscriptSource and TenantRegistry implement the interfaces.
var (
	_ driven.TranscriptSource = (*TranscriptSource)(nil)
	_ driven.TenantRegistry   = (*TenantRegistry)(nil)
)

// TranscriptSource serves units held in memory.
type TranscriptSource struct {
	mu       sync.RWMutex
	units    map[string]*domain.Unit
	failures map[string]error
	loads    int
}

// NewTranscriptSource creates a source holding units.
func NewTranscriptSource(units ...*domain.Unit) *TranscriptSource {
	s := &TranscriptSource{
		units:    make(map[string]*domain.Unit),
		failures: make(map[string]error),
	}
	for _, u := range units {
		s.Add(u)
	}
	return s
}

// Add registers or replaces a unit.
func (s *TranscriptSource) Add(unit *domain.Unit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units[unit.ID] = unit
}

// FailLoad makes Load of unitID return err while still discovering it.
func (s *TranscriptSource) FailLoad(unitID, tenantID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.units[unitID]; !ok {
		s.units[unitID] = &domain.Unit{ID: unitID, TenantID: tenantID}
	}
	s.failures[unitID] = err
}

// Discover lists units sorted by id, filtered by tenant when given.
func (s *TranscriptSource) Discover(_ context.Context, tenantID string) ([]domain.UnitRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := make([]domain.UnitRef, 0, len(s.units))
	for _, u := range s.units {
		if tenantID != "" && u.TenantID != tenantID {
			continue
		}
		refs = append(refs, domain.UnitRef{ID: u.ID, TenantID: u.TenantID, Locator: u.ID})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}

// Load returns a copy of the unit.
func (s *TranscriptSource) Load(_ context.Context, ref domain.UnitRef) (*domain.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++

	if err := s.failures[ref.ID]; err != nil {
		return nil, err
	}
	u, ok := s.units[ref.ID]
	if !ok {
		return nil, fmt.Errorf("%w: unit %s", domain.ErrNotFound, ref.ID)
	}
	c := *u
	return &c, nil
}

// Loads returns how many times Load was called.
func (s *TranscriptSource) Loads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loads
}

// TenantRegistry is a fixed list of tenants.
type TenantRegistry struct {
	tenants []domain.Tenant
}

// NewTenantRegistry creates a registry holding tenants.
func NewTenantRegistry(tenants ...domain.Tenant) *TenantRegistry {
	return &TenantRegistry{tenants: tenants}
}

// List returns every tenant.
func (r *TenantRegistry) List(_ context.Context) ([]domain.Tenant, error) {
	return append([]domain.Tenant(nil), r.tenants...), nil
}

// Get returns one tenant or domain.ErrNotFound.
func (r *TenantRegistry) Get(_ context.Context, id string) (*domain.Tenant, error) {
	for i := range r.tenants {
		if r.tenants[i].ID == id {
			t := r.tenants[i]
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: tenant %s", domain.ErrNotFound, id)
}
