package driven

import (
	"context"

	"github.com/custodia-labs/topicseek/internal/core/domain"
)

// TranscriptSource is the upstream transcript collaborator.
type TranscriptSource interface {
	// Discover lists candidate units. An empty tenantID lists every
	// tenant's units; otherwise only that tenant's.
	Discover(ctx context.Context, tenantID string) ([]domain.UnitRef, error)

	// Load reads one unit with its ordered segments.
	Load(ctx context.Context, ref domain.UnitRef) (*domain.Unit, error)
}
