package postprocessors

import (
	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
	"github.com/custodia-labs/topicseek/internal/postprocessors/chunker"
	"github.com/custodia-labs/topicseek/internal/postprocessors/identity"
)

// DefaultChain is the processor order used for indexing.
var DefaultChain = []string{"chunker", "identity"}

// RegisterDefaults registers all built-in processors with the registry.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("identity", func(map[string]any) (driven.SegmentProcessor, error) {
		return identity.New(), nil
	})
}

// NewDefaultPipeline builds the standard chunk-then-identify pipeline
// from index settings.
func NewDefaultPipeline(settings domain.IndexSettings) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)
	return r.BuildPipeline(ConfigFromSettings(settings), DefaultChain...)
}

// ConfigFromSettings converts index settings into processor config.
func ConfigFromSettings(settings domain.IndexSettings) map[string]any {
	return map[string]any{
		"chunk_size":      settings.ChunkSize,
		"overlap":         settings.ChunkOverlap,
		"anchor_segments": settings.OverlapAnchorSegments,
	}
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): target characters per chunk (default: 1000)
//   - overlap (int): characters carried into the next chunk (default: 200)
//   - anchor_segments (int): trailing segments anchoring the next chunk (default: 3)
func buildChunker(cfg map[string]any) (driven.SegmentProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if size := getIntFromConfig(cfg, "chunk_size", 0); size > 0 {
			opts = append(opts, chunker.WithChunkSize(size))
		}
		if overlap := getIntFromConfig(cfg, "overlap", -1); overlap >= 0 {
			opts = append(opts, chunker.WithOverlap(overlap))
		}
		if anchors := getIntFromConfig(cfg, "anchor_segments", 0); anchors > 0 {
			opts = append(opts, chunker.WithAnchorSegments(anchors))
		}
	}

	return chunker.New(opts...), nil
}

// getIntFromConfig extracts an int from a generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string, fallback int) int {
	val, ok := cfg[key]
	if !ok {
		return fallback
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}
