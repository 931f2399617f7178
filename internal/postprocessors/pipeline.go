// Package postprocessors turns transcript units into indexable chunks.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
	"github.com/custodia-labs/topicseek/internal/logger"
)

var _ driven.SegmentPipeline = (*Pipeline)(nil)

// Pipeline runs a unit through an ordered chain of segment processors.
// The first processor creates chunks from segments; later ones refine them.
type Pipeline struct {
	processors []driven.SegmentProcessor
}

// NewPipeline creates a pipeline running processors in the given order.
func NewPipeline(processors ...driven.SegmentProcessor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Process chunks unit. A processor error aborts the chain and carries
// the processor name; sentinel errors such as domain.ErrEmptyUnit stay
// visible to errors.Is.
func (p *Pipeline) Process(ctx context.Context, unit *domain.Unit) ([]domain.Chunk, error) {
	if unit == nil {
		return nil, fmt.Errorf("%w: unit is nil", domain.ErrInvalidInput)
	}
	if len(p.processors) == 0 {
		return nil, fmt.Errorf("%w: pipeline has no processors", domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	for _, proc := range p.processors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		if chunks, err = proc.Process(ctx, unit, chunks); err != nil {
			return nil, fmt.Errorf("processor %s: %w", proc.Name(), err)
		}
	}

	logger.Debug("Unit %s: %d segments, %d chunks", unit.ID, len(unit.Segments), len(chunks))
	return chunks, nil
}

// Add appends a processor to the end of the chain.
func (p *Pipeline) Add(processor driven.SegmentProcessor) {
	p.processors = append(p.processors, processor)
}

// Names returns the processor names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}
