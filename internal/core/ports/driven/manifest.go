package driven

import (
	"context"

	"github.com/custodia-labs/topicseek/internal/core/domain"
)

// ManifestStore persists one IndexManifest per store id.
type ManifestStore interface {
	// Load returns the manifest for storeID, or domain.ErrNotFound.
	// A manifest written before processed_video_ids existed is returned
	// with Legacy set.
	Load(ctx context.Context, storeID string) (*domain.IndexManifest, error)

	// Save replaces the manifest atomically: readers observe either the
	// previous or the new record, never a partial write.
	Save(ctx context.Context, storeID string, manifest *domain.IndexManifest) error
}
