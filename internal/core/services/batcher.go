package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
	"github.com/custodia-labs/topicseek/internal/logger"
)

// HeuristicEstimator estimates token cost with domain.EstimateTokens.
type HeuristicEstimator struct{}

// Estimate implements driven.TokenEstimator.
func (HeuristicEstimator) Estimate(text string) int {
	return domain.EstimateTokens(text)
}

// ChunkFailure is a chunk the batcher could not embed or commit.
type ChunkFailure struct {
	Chunk domain.Chunk
	Kind  domain.FailureKind
	Err   error
}

// BatchOutcome is the result of one EmbedAndStore run.
// Succeeded keeps the input order of the chunks.
type BatchOutcome struct {
	Succeeded []domain.Chunk
	Failed    []ChunkFailure
}

// CommitFunc is called after each atomic store commit with the
// committed chunks. Calls are serialised.
type CommitFunc func(committed []domain.Chunk)

// EmbeddingBatcher embeds chunks in size-bounded batches and commits
// each batch to a similarity store atomically.
//
// Batches partition the chunk list contiguously. A batch whose estimated
// token cost exceeds the ceiling is halved before submission; a batch the
// provider rejects with domain.ErrTokenLimitExceeded is halved and each
// half retried. Splitting uses an explicit worklist bounded by
// maxSplitDepth. Other errors are retried with exponential backoff.
type EmbeddingBatcher struct {
	embedder  driven.EmbeddingService
	estimator driven.TokenEstimator

	batchSize     int
	maxWorkers    int
	tokenCeiling  int
	maxRetries    int
	maxSplitDepth int
	baseDelay     time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// BatcherOption configures an EmbeddingBatcher.
type BatcherOption func(*EmbeddingBatcher)

// WithBatchSize sets the number of chunks per top-level batch.
func WithBatchSize(n int) BatcherOption {
	return func(b *EmbeddingBatcher) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithMaxWorkers sets the maximum number of batches embedded concurrently.
func WithMaxWorkers(n int) BatcherOption {
	return func(b *EmbeddingBatcher) {
		if n > 0 {
			b.maxWorkers = n
		}
	}
}

// WithTokenCeiling sets the per-request token budget checked before submission.
func WithTokenCeiling(n int) BatcherOption {
	return func(b *EmbeddingBatcher) {
		if n > 0 {
			b.tokenCeiling = n
		}
	}
}

// WithMaxRetries sets the total number of attempts for a batch hitting
// transient errors.
func WithMaxRetries(n int) BatcherOption {
	return func(b *EmbeddingBatcher) {
		if n > 0 {
			b.maxRetries = n
		}
	}
}

// WithMaxSplitDepth bounds how many times a batch may be halved.
func WithMaxSplitDepth(n int) BatcherOption {
	return func(b *EmbeddingBatcher) {
		if n > 0 {
			b.maxSplitDepth = n
		}
	}
}

// WithRetryBaseDelay sets the first backoff delay; it doubles per attempt.
func WithRetryBaseDelay(d time.Duration) BatcherOption {
	return func(b *EmbeddingBatcher) {
		if d >= 0 {
			b.baseDelay = d
		}
	}
}

// WithTokenEstimator replaces the heuristic token estimator.
func WithTokenEstimator(e driven.TokenEstimator) BatcherOption {
	return func(b *EmbeddingBatcher) {
		if e != nil {
			b.estimator = e
		}
	}
}

// BatcherOptionsFromSettings converts index settings into batcher options.
func BatcherOptionsFromSettings(s domain.IndexSettings) []BatcherOption {
	return []BatcherOption{
		WithBatchSize(s.BatchSize),
		WithMaxWorkers(s.MaxWorkers),
		WithTokenCeiling(s.TokenCeiling),
		WithMaxRetries(s.MaxRetries),
		WithMaxSplitDepth(s.MaxSplitDepth),
		WithRetryBaseDelay(s.RetryBaseDelay),
	}
}

// NewEmbeddingBatcher creates a batcher around embedder.
func NewEmbeddingBatcher(embedder driven.EmbeddingService, opts ...BatcherOption) *EmbeddingBatcher {
	b := &EmbeddingBatcher{
		embedder:      embedder,
		estimator:     HeuristicEstimator{},
		batchSize:     domain.DefaultBatchSize,
		maxWorkers:    domain.DefaultMaxWorkers,
		tokenCeiling:  domain.DefaultTokenCeiling,
		maxRetries:    domain.DefaultMaxRetries,
		maxSplitDepth: domain.DefaultMaxSplitDepth,
		baseDelay:     domain.DefaultRetryBaseDelay,
		sleep:         sleepContext,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// ModelName returns the embedding model name, empty if no embedder is set.
func (b *EmbeddingBatcher) ModelName() string {
	if b.embedder == nil {
		return ""
	}
	return b.embedder.ModelName()
}

// EmbedAndStore embeds chunks and commits them to store.
// The returned error is non-nil only when the run was cancelled or
// could not start; per-chunk failures are reported in failed.
func (b *EmbeddingBatcher) EmbedAndStore(
	ctx context.Context,
	chunks []domain.Chunk,
	store driven.SimilarityStore,
) (succeeded, failed []domain.Chunk, err error) {
	outcome, err := b.Run(ctx, chunks, store, nil)
	for _, f := range outcome.Failed {
		failed = append(failed, f.Chunk)
	}
	return outcome.Succeeded, failed, err
}

// Run embeds chunks and commits them batch by batch, calling onCommit
// after every successful commit. The outcome is always non-nil.
func (b *EmbeddingBatcher) Run(
	ctx context.Context,
	chunks []domain.Chunk,
	store driven.SimilarityStore,
	onCommit CommitFunc,
) (*BatchOutcome, error) {
	outcome := &BatchOutcome{}
	if len(chunks) == 0 {
		return outcome, nil
	}
	if b.embedder == nil {
		return outcome, domain.ErrEmbeddingUnavailable
	}
	if store == nil {
		return outcome, fmt.Errorf("%w: no store", domain.ErrStoreUnavailable)
	}

	batches := partition(chunks, b.batchSize)
	results := make([]*BatchOutcome, len(batches))

	var commitMu sync.Mutex
	commit := func(committed []domain.Chunk) {
		if onCommit == nil {
			return
		}
		commitMu.Lock()
		defer commitMu.Unlock()
		onCommit(committed)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(b.batchSize, b.maxWorkers))

	for i, batch := range batches {
		g.Go(func() error {
			res, err := b.processBatch(gctx, batch, store, commit)
			results[i] = res
			return err
		})
	}

	err := g.Wait()

	for _, res := range results {
		if res == nil {
			continue
		}
		outcome.Succeeded = append(outcome.Succeeded, res.Succeeded...)
		outcome.Failed = append(outcome.Failed, res.Failed...)
	}

	return outcome, err
}

// splitWork is a pending sub-batch on the worklist.
type splitWork struct {
	chunks []domain.Chunk
	depth  int
}

// processBatch drains one top-level batch through the split worklist.
// It returns an error only on cancellation.
func (b *EmbeddingBatcher) processBatch(
	ctx context.Context,
	batch []domain.Chunk,
	store driven.SimilarityStore,
	commit CommitFunc,
) (*BatchOutcome, error) {
	res := &BatchOutcome{}
	stack := []splitWork{{chunks: batch}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		w := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if len(w.chunks) > 1 && w.depth < b.maxSplitDepth && b.estimate(w.chunks) > b.tokenCeiling {
			logger.Debug("Batch of %d chunks over token ceiling, splitting", len(w.chunks))
			stack = pushHalves(stack, w)
			continue
		}

		vectors, err := b.embedWithRetry(ctx, w.chunks)
		switch {
		case err == nil:
			docs := make([]domain.IndexedDocument, len(w.chunks))
			for i, c := range w.chunks {
				docs[i] = domain.IndexedDocument{Chunk: c, Embedding: vectors[i]}
			}
			if err := store.AddDocuments(ctx, docs); err != nil {
				res.fail(w.chunks, domain.FailureStore, fmt.Errorf("commit batch: %w", err))
				continue
			}
			res.Succeeded = append(res.Succeeded, w.chunks...)
			commit(w.chunks)

		case errors.Is(err, domain.ErrTokenLimitExceeded):
			if len(w.chunks) == 1 || w.depth >= b.maxSplitDepth {
				res.fail(w.chunks, domain.FailureCapacity, err)
				continue
			}
			logger.Debug("Provider rejected %d chunks for size, splitting", len(w.chunks))
			stack = pushHalves(stack, w)

		case ctx.Err() != nil:
			return res, ctx.Err()

		default:
			res.fail(w.chunks, domain.FailureTransient, err)
		}
	}

	return res, nil
}

// embedWithRetry submits one request, retrying non-capacity errors with
// exponential backoff. Capacity errors return immediately.
func (b *EmbeddingBatcher) embedWithRetry(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	var lastErr error
	for attempt := 0; attempt < b.maxRetries; attempt++ {
		if attempt > 0 {
			delay := b.baseDelay * time.Duration(1<<(attempt-1))
			logger.Debug("Embedding retry %d/%d in %s: %v", attempt+1, b.maxRetries, delay, lastErr)
			if err := b.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		vectors, err := b.embedder.EmbedBatch(ctx, texts)
		if err == nil {
			if len(vectors) != len(texts) {
				lastErr = fmt.Errorf("embed batch: got %d vectors for %d texts", len(vectors), len(texts))
				continue
			}
			return vectors, nil
		}
		if errors.Is(err, domain.ErrTokenLimitExceeded) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("embed batch after %d attempts: %w", b.maxRetries, lastErr)
}

func (b *EmbeddingBatcher) estimate(chunks []domain.Chunk) int {
	total := 0
	for _, c := range chunks {
		total += b.estimator.Estimate(c.Content)
	}
	return total
}

func (o *BatchOutcome) fail(chunks []domain.Chunk, kind domain.FailureKind, err error) {
	for _, c := range chunks {
		o.Failed = append(o.Failed, ChunkFailure{Chunk: c, Kind: kind, Err: err})
	}
}

// pushHalves pushes the two halves of w so the first half is processed first.
func pushHalves(stack []splitWork, w splitWork) []splitWork {
	mid := len(w.chunks) / 2
	return append(stack,
		splitWork{chunks: w.chunks[mid:], depth: w.depth + 1},
		splitWork{chunks: w.chunks[:mid], depth: w.depth + 1},
	)
}

// partition splits chunks into contiguous batches of at most size.
func partition(chunks []domain.Chunk, size int) [][]domain.Chunk {
	batches := make([][]domain.Chunk, 0, (len(chunks)+size-1)/size)
	for start := 0; start < len(chunks); start += size {
		end := min(start+size, len(chunks))
		batches = append(batches, chunks[start:end])
	}
	return batches
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
