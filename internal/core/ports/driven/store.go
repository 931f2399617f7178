package driven

import (
	"context"

	"github.com/custodia-labs/topicseek/internal/core/domain"
)

// SimilarityStore is a persistent, embedding-addressed chunk store for one
// store id. Writes happen only through the index builder.
type SimilarityStore interface {
	// AddDocuments commits docs atomically: a concurrent Query observes
	// either none or all of them.
	AddDocuments(ctx context.Context, docs []domain.IndexedDocument) error

	// Query returns up to k nearest chunks to vector, closest first.
	Query(ctx context.Context, vector []float32, k int) ([]StoreHit, error)

	// DeleteUnit removes every chunk of unitID and returns how many were removed.
	DeleteUnit(ctx context.Context, unitID string) (int, error)

	// UnitIDs enumerates the distinct unit ids present in the store.
	// Used once to reconstruct legacy manifests and by verification.
	UnitIDs(ctx context.Context) ([]string, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Clear removes every chunk. Only full rebuilds call it.
	Clear(ctx context.Context) error

	// Relevance converts a distance reported by Query into [0,1],
	// higher meaning more relevant, using the store's own metric.
	Relevance(distance float64) float64

	// Close releases resources.
	Close() error
}

// StoreHit is one nearest-neighbour match.
type StoreHit struct {
	Chunk    domain.Chunk
	Distance float64
}

// StoreProvider resolves store ids to similarity stores.
type StoreProvider interface {
	// Open returns the store for storeID, creating it when create is true.
	// Returns domain.ErrStoreUnavailable when the store does not exist and
	// create is false.
	Open(ctx context.Context, storeID string, create bool) (SimilarityStore, error)

	// Exists reports whether a store has been created for storeID.
	Exists(ctx context.Context, storeID string) (bool, error)
}
