// Package identity assigns deterministic identifiers to chunks.
package identity

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.SegmentProcessor = (*Processor)(nil)

// namespace scopes chunk identifiers to this application.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://topicseek.dev/chunk"))

// Processor stamps each chunk with an ID derived from its unit, tenant,
// position and start time. Rebuilding the same unit with the same
// settings yields the same IDs, so re-adding a chunk overwrites it.
type Processor struct{}

// New creates an identity processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "identity"
}

// Process assigns IDs and positions. Chunks must already exist.
func (p *Processor) Process(_ context.Context, unit *domain.Unit, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if unit == nil {
		return nil, fmt.Errorf("%w: unit is nil", domain.ErrInvalidInput)
	}

	for i := range chunks {
		chunks[i].Position = i
		chunks[i].ID = ChunkID(unit.TenantID, unit.ID, i, chunks[i].StartSeconds)
	}

	return chunks, nil
}

// ChunkID returns the deterministic identifier for a chunk.
func ChunkID(tenantID, unitID string, position int, startSeconds float64) string {
	name := tenantID + "/" + unitID + "/" + strconv.Itoa(position) + "/" +
		strconv.FormatFloat(startSeconds, 'f', 3, 64)
	return uuid.NewSHA1(namespace, []byte(name)).String()
}
