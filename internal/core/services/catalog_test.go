package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/topicseek/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/topicseek/internal/core/domain"
)

func TestUnitCatalog_LookupCaches(t *testing.T) {
	source := memory.NewTranscriptSource(&domain.Unit{ID: "v1", Title: "First", Uploader: "someone"})
	catalog := NewUnitCatalog(source, memory.NewManifestStore())

	md, err := catalog.Lookup(context.Background(), domain.GlobalStoreID, "", "v1")
	require.NoError(t, err)
	assert.Equal(t, "First", md.Title)
	assert.Equal(t, "someone", md.Uploader)

	_, err = catalog.Lookup(context.Background(), domain.GlobalStoreID, "", "v1")
	require.NoError(t, err)
	assert.Equal(t, 1, source.Loads())
	assert.Equal(t, 1, catalog.Len(domain.GlobalStoreID))
}

func TestUnitCatalog_LookupMissing(t *testing.T) {
	catalog := NewUnitCatalog(memory.NewTranscriptSource(), memory.NewManifestStore())

	_, err := catalog.Lookup(context.Background(), domain.GlobalStoreID, "", "nope")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, catalog.Len(domain.GlobalStoreID))
}

func TestUnitCatalog_RefreshInvalidatesOnRebuild(t *testing.T) {
	ctx := context.Background()
	source := memory.NewTranscriptSource(&domain.Unit{ID: "v1", Title: "First"})
	manifests := memory.NewManifestStore()
	catalog := NewUnitCatalog(source, manifests)

	m := domain.NewManifest("")
	m.BuiltAt = "2026-01-01T00:00:00Z"
	require.NoError(t, manifests.Save(ctx, domain.GlobalStoreID, m))

	require.NoError(t, catalog.Refresh(ctx, domain.GlobalStoreID))
	_, err := catalog.Lookup(ctx, domain.GlobalStoreID, "", "v1")
	require.NoError(t, err)

	// Same build: entries survive.
	require.NoError(t, catalog.Refresh(ctx, domain.GlobalStoreID))
	assert.Equal(t, 1, catalog.Len(domain.GlobalStoreID))

	// New build: entries are dropped.
	m.BuiltAt = "2026-01-02T00:00:00Z"
	require.NoError(t, manifests.Save(ctx, domain.GlobalStoreID, m))
	require.NoError(t, catalog.Refresh(ctx, domain.GlobalStoreID))
	assert.Zero(t, catalog.Len(domain.GlobalStoreID))
}

func TestUnitCatalog_StoresAreIndependent(t *testing.T) {
	ctx := context.Background()
	source := memory.NewTranscriptSource(
		&domain.Unit{ID: "a1", TenantID: "chan-a", Title: "A"},
		&domain.Unit{ID: "b1", TenantID: "chan-b", Title: "B"},
	)
	catalog := NewUnitCatalog(source, memory.NewManifestStore())

	_, err := catalog.Lookup(ctx, "chan-a", "chan-a", "a1")
	require.NoError(t, err)

	assert.Equal(t, 1, catalog.Len("chan-a"))
	assert.Zero(t, catalog.Len("chan-b"))
}
