// Package chunker groups transcript segments into overlapping text chunks.
package chunker

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.SegmentProcessor = (*Processor)(nil)

// DefaultChunkSize is the default target chunk length in characters.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of characters carried into the next chunk.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// DefaultAnchorSegments is how many trailing segments the next chunk
// keeps when overlap is carried forward.
const DefaultAnchorSegments = domain.DefaultOverlapAnchorSegments

// segmentSeparator joins segment texts inside a chunk.
const segmentSeparator = " "

// Processor groups a unit's segments into chunks.
// Lengths are measured in characters (runes), not bytes.
type Processor struct {
	chunkSize      int
	overlap        int
	anchorSegments int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the target chunk length in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the number of trailing characters carried into the next chunk.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithAnchorSegments sets how many trailing segments anchor the next
// chunk's start time when overlap is carried forward.
func WithAnchorSegments(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.anchorSegments = n
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:      DefaultChunkSize,
		overlap:        DefaultChunkOverlap,
		anchorSegments: DefaultAnchorSegments,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap stays below chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured target chunk length.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the configured overlap length.
func (p *Processor) Overlap() int { return p.overlap }

// Process groups the unit's non-empty segments into chunks.
// Input chunks are ignored; this processor creates chunks from segments.
//
// A chunk closes when its text reaches the target size, when it is
// within overlap of the target and more segments remain, or when the
// segments are exhausted. When more segments remain, the last overlap
// characters seed the next chunk and its start time is anchored to one
// of the closing chunk's trailing segments.
func (p *Processor) Process(ctx context.Context, unit *domain.Unit, _ []domain.Chunk) ([]domain.Chunk, error) {
	if unit == nil {
		return nil, fmt.Errorf("%w: unit is nil", domain.ErrInvalidInput)
	}

	segments := nonEmpty(unit.Segments)
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyUnit, unit.ID)
	}

	var (
		chunks  []domain.Chunk
		buf     strings.Builder
		members []int
	)

	for i := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if buf.Len() > 0 {
			buf.WriteString(segmentSeparator)
		}
		buf.WriteString(segments[i].Text)
		members = append(members, i)

		length := utf8.RuneCountInString(buf.String())
		hasNext := i+1 < len(segments)

		if length < p.chunkSize && hasNext && length < p.chunkSize-p.overlap {
			continue
		}

		first := segments[members[0]]
		last := segments[i]
		chunks = append(chunks, domain.Chunk{
			UnitID:       unit.ID,
			TenantID:     unit.TenantID,
			Position:     len(chunks),
			Title:        unit.Title,
			Uploader:     unit.Uploader,
			SourceURL:    unit.SourceURL,
			TimestampURL: domain.TimestampURL(unit.SourceURL, first.StartSeconds),
			StartTime:    first.StartTime,
			EndTime:      last.EndTime,
			StartSeconds: first.StartSeconds,
			EndSeconds:   last.EndSeconds,
			SegmentCount: len(members),
			Content:      buf.String(),
		})

		if !hasNext || p.overlap == 0 {
			buf.Reset()
			members = members[:0]
			continue
		}

		tail := lastRunes(buf.String(), p.overlap)
		buf.Reset()
		buf.WriteString(tail)

		anchor := len(members) - p.anchorSegments
		if anchor < 0 {
			anchor = 0
		}
		members = append(members[:0], members[anchor:]...)
	}

	return chunks, nil
}

// nonEmpty drops segments whose text is blank and trims the rest.
func nonEmpty(segments []domain.TranscriptSegment) []domain.TranscriptSegment {
	out := make([]domain.TranscriptSegment, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		seg.Text = text
		out = append(out, seg)
	}
	return out
}

// lastRunes returns the final n characters of s.
func lastRunes(s string, n int) string {
	count := utf8.RuneCountInString(s)
	if count <= n {
		return s
	}
	skip := count - n
	for i := range s {
		if skip == 0 {
			return s[i:]
		}
		skip--
	}
	return ""
}
