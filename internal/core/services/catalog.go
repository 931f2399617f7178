package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
)

// UnitCatalog is a read-through cache of unit metadata per store.
// A store's entries are dropped whenever its manifest's built_at changes.
type UnitCatalog struct {
	source    driven.TranscriptSource
	manifests driven.ManifestStore

	mu      sync.Mutex
	entries map[string]map[string]domain.UnitMetadata
	builtAt map[string]string
}

// NewUnitCatalog creates a catalog backed by source.
func NewUnitCatalog(source driven.TranscriptSource, manifests driven.ManifestStore) *UnitCatalog {
	return &UnitCatalog{
		source:    source,
		manifests: manifests,
		entries:   make(map[string]map[string]domain.UnitMetadata),
		builtAt:   make(map[string]string),
	}
}

// Refresh invalidates the store's entries if its manifest changed since
// the last refresh.
func (c *UnitCatalog) Refresh(ctx context.Context, storeID string) error {
	var builtAt string
	manifest, err := c.manifests.Load(ctx, storeID)
	switch {
	case err == nil:
		builtAt = manifest.BuiltAt
	case !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("load manifest: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.builtAt[storeID]; !ok || prev != builtAt {
		delete(c.entries, storeID)
		c.builtAt[storeID] = builtAt
	}
	return nil
}

// Lookup returns metadata for a unit, loading it on a miss.
func (c *UnitCatalog) Lookup(ctx context.Context, storeID, tenantID, unitID string) (domain.UnitMetadata, error) {
	c.mu.Lock()
	md, ok := c.entries[storeID][unitID]
	c.mu.Unlock()
	if ok {
		return md, nil
	}

	unit, err := c.source.Load(ctx, domain.UnitRef{ID: unitID, TenantID: tenantID})
	if err != nil {
		return domain.UnitMetadata{}, fmt.Errorf("load unit %s: %w", unitID, err)
	}
	md = unit.Metadata()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[storeID] == nil {
		c.entries[storeID] = make(map[string]domain.UnitMetadata)
	}
	c.entries[storeID][unitID] = md
	return md, nil
}

// Len returns the number of cached entries for a store.
func (c *UnitCatalog) Len(storeID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries[storeID])
}
