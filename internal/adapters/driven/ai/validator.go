package ai

import (
	"context"
	"fmt"

	"github.com/custodia-labs/topicseek/internal/core/domain"
)

// Check is the outcome of validating one provider.
type Check struct {
	Name       string
	Configured bool
	Model      string
	Err        error
}

// ConfigValidator pings configured AI providers.
type ConfigValidator struct {
	ctx context.Context
}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator(ctx context.Context) *ConfigValidator {
	return &ConfigValidator{ctx: ctx}
}

// ValidateEmbedding creates the embedding service and pings it.
func (v *ConfigValidator) ValidateEmbedding(settings *domain.EmbeddingSettings) Check {
	check := Check{Name: "embedding"}
	if settings == nil || !settings.IsConfigured() {
		check.Err = fmt.Errorf("%w: not configured", domain.ErrEmbeddingUnavailable)
		return check
	}
	check.Configured = true

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		check.Err = err
		return check
	}
	defer func() { _ = svc.Close() }()
	check.Model = svc.ModelName()

	ctx, cancel := context.WithTimeout(v.ctx, pingTimeout)
	defer cancel()
	check.Err = svc.Ping(ctx)
	return check
}

// ValidateLLM creates the LLM service and pings it. An unconfigured LLM
// is not an error; summaries fall back to key sentences.
func (v *ConfigValidator) ValidateLLM(settings *domain.LLMSettings) Check {
	check := Check{Name: "llm"}
	if settings == nil || !settings.IsConfigured() {
		return check
	}
	check.Configured = true

	svc, err := CreateLLMService(settings)
	if err != nil {
		check.Err = err
		return check
	}
	defer func() { _ = svc.Close() }()
	check.Model = svc.ModelName()

	ctx, cancel := context.WithTimeout(v.ctx, pingTimeout)
	defer cancel()
	check.Err = svc.Ping(ctx)
	return check
}

// ValidateAll checks both providers.
func (v *ConfigValidator) ValidateAll(settings domain.Settings) []Check {
	return []Check{
		v.ValidateEmbedding(&settings.Embedding),
		v.ValidateLLM(&settings.LLM),
	}
}
