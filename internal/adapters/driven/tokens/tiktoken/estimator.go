// Package tiktoken counts embedding tokens with the OpenAI BPE encodings.
package tiktoken

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
	"github.com/custodia-labs/topicseek/internal/logger"
)

// Verify interface compliance.
var _ driven.TokenEstimator = (*Estimator)(nil)

// FallbackEncoding is used when the model has no registered encoding.
const FallbackEncoding = "cl100k_base"

// Estimator counts tokens exactly when an encoding could be loaded and
// falls back to domain.EstimateTokens otherwise. Loading an encoding may
// need network access the first time, so failure is not fatal.
type Estimator struct {
	mu  sync.Mutex
	enc *tiktoken.Tiktoken
}

// New loads the encoding for model.
func New(model string) *Estimator {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		logger.Debug("no tiktoken encoding for %q: %v", model, err)
		enc, err = tiktoken.GetEncoding(FallbackEncoding)
	}
	if err != nil {
		logger.Warn("tiktoken unavailable, estimating tokens from word counts: %v", err)
		return &Estimator{}
	}
	return &Estimator{enc: enc}
}

// Exact reports whether counts come from a real encoding.
func (e *Estimator) Exact() bool {
	return e.enc != nil
}

// Estimate implements driven.TokenEstimator.
func (e *Estimator) Estimate(text string) int {
	if e.enc == nil {
		return domain.EstimateTokens(text)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.enc.Encode(text, nil, nil))
}
