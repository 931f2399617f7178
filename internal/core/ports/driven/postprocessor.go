package driven

import (
	"context"

	"github.com/custodia-labs/topicseek/internal/core/domain"
)

// SegmentProcessor turns a unit's segments into chunks or refines chunks.
// Processors are chained in a pipeline (chunking, identity assignment).
type SegmentProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a unit and returns chunks.
	// If the processor creates chunks (e.g., chunker), it receives nil and returns new chunks.
	// If the processor refines chunks, it receives and returns chunks.
	Process(ctx context.Context, unit *domain.Unit, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// SegmentPipeline chains multiple SegmentProcessors.
type SegmentPipeline interface {
	// Process runs the unit through all processors in order.
	Process(ctx context.Context, unit *domain.Unit) ([]domain.Chunk, error)
}
