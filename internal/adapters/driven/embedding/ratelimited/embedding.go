// Package ratelimited wraps an embedding service with a token-bucket limiter.
package ratelimited

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultCooldown is how long calls pause after the provider throttles.
const DefaultCooldown = 10 * time.Second

// Config holds limiter settings.
type Config struct {
	// RequestsPerSecond is the sustained request rate. Zero or less disables limiting.
	RequestsPerSecond float64

	// Burst is the bucket size. Defaults to max(1, ceil(RequestsPerSecond)).
	Burst int

	// Cooldown pauses every caller after a domain.ErrRateLimited response.
	Cooldown time.Duration
}

// EmbeddingService delays calls to the wrapped service so they stay under
// the configured rate, and backs off after the provider throttles.
type EmbeddingService struct {
	next     driven.EmbeddingService
	limiter  *rate.Limiter
	cooldown time.Duration

	mu      sync.Mutex
	retryAt time.Time
}

// Wrap returns next unchanged when cfg disables limiting.
func Wrap(next driven.EmbeddingService, cfg Config) driven.EmbeddingService {
	if next == nil || cfg.RequestsPerSecond <= 0 {
		return next
	}
	return New(next, cfg)
}

// New creates a rate-limited embedding service.
func New(next driven.EmbeddingService, cfg Config) *EmbeddingService {
	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		if burst <= 0 {
			burst = max(1, int(math.Ceil(cfg.RequestsPerSecond)))
		}
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	return &EmbeddingService{
		next:     next,
		limiter:  rate.NewLimiter(limit, burst),
		cooldown: cfg.Cooldown,
	}
}

// Embed waits for a token and embeds one text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	v, err := s.next.Embed(ctx, text)
	s.observe(err)
	return v, err
}

// EmbedBatch waits for a token and embeds texts in one request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	v, err := s.next.EmbedBatch(ctx, texts)
	s.observe(err)
	return v, err
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int { return s.next.Dimensions() }

// ModelName returns the wrapped service's model.
func (s *EmbeddingService) ModelName() string { return s.next.ModelName() }

// Ping is not rate limited.
func (s *EmbeddingService) Ping(ctx context.Context) error { return s.next.Ping(ctx) }

// Close closes the wrapped service.
func (s *EmbeddingService) Close() error { return s.next.Close() }

func (s *EmbeddingService) wait(ctx context.Context) error {
	s.mu.Lock()
	retryAt := s.retryAt
	s.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return s.limiter.Wait(ctx)
}

func (s *EmbeddingService) observe(err error) {
	if !errors.Is(err, domain.ErrRateLimited) {
		return
	}
	s.mu.Lock()
	s.retryAt = time.Now().Add(s.cooldown)
	s.mu.Unlock()
}
