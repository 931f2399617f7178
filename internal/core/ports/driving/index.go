package driving

import (
	"context"

	"github.com/custodia-labs/topicseek/internal/core/domain"
)

// IndexBuilder owns every write to similarity stores and manifests.
type IndexBuilder interface {
	// Build runs DISCOVER, DIFF, CHUNK, EMBED, COMMIT and PERSIST_MANIFEST
	// for one store. It always returns a report; build-level failures set
	// Success to false and Error to the cause.
	Build(ctx context.Context, req domain.BuildRequest) *domain.BuildReport

	// BuildAll builds every enabled tenant store independently.
	BuildAll(ctx context.Context, mode domain.BuildMode) *domain.MultiBuildReport

	// Verify compares a store's manifest against its contents.
	Verify(ctx context.Context, storeID string) (*domain.VerifyReport, error)

	// RemoveUnit deletes one unit's chunks and drops it from the manifest.
	RemoveUnit(ctx context.Context, storeID, unitID string) (int, error)

	// Status describes a store and any build running against it.
	Status(ctx context.Context, storeID string) (*domain.IndexStatus, error)
}
