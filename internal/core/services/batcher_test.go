package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/topicseek/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/topicseek/internal/core/domain"
)

func chunkIDs(chunks []domain.Chunk) []string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return ids
}

func TestNewEmbeddingBatcher_Defaults(t *testing.T) {
	b := NewEmbeddingBatcher(newMockEmbedder())

	assert.Equal(t, domain.DefaultBatchSize, b.batchSize)
	assert.Equal(t, domain.DefaultMaxWorkers, b.maxWorkers)
	assert.Equal(t, domain.DefaultTokenCeiling, b.tokenCeiling)
	assert.Equal(t, domain.DefaultMaxRetries, b.maxRetries)
	assert.Equal(t, domain.DefaultMaxSplitDepth, b.maxSplitDepth)
	assert.Equal(t, "mock-embed", b.ModelName())
}

func TestNewEmbeddingBatcher_IgnoresInvalidOptions(t *testing.T) {
	b := NewEmbeddingBatcher(nil, WithBatchSize(0), WithMaxWorkers(-1), WithTokenCeiling(0))

	assert.Equal(t, domain.DefaultBatchSize, b.batchSize)
	assert.Equal(t, domain.DefaultMaxWorkers, b.maxWorkers)
	assert.Equal(t, domain.DefaultTokenCeiling, b.tokenCeiling)
	assert.Empty(t, b.ModelName())
}

func TestEmbedAndStore_AllSucceed(t *testing.T) {
	embedder := newMockEmbedder()
	store := memory.NewStore()
	chunks := makeChunks("v1", 7)

	b := NewEmbeddingBatcher(embedder, WithBatchSize(3), WithMaxWorkers(2))
	succeeded, failed, err := b.EmbedAndStore(context.Background(), chunks, store)

	require.NoError(t, err)
	assert.Empty(t, failed)
	assert.Equal(t, chunkIDs(chunks), chunkIDs(succeeded))
	assert.Equal(t, 3, embedder.Calls())

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestEmbedAndStore_Empty(t *testing.T) {
	embedder := newMockEmbedder()
	b := NewEmbeddingBatcher(embedder)

	succeeded, failed, err := b.EmbedAndStore(context.Background(), nil, memory.NewStore())

	require.NoError(t, err)
	assert.Empty(t, succeeded)
	assert.Empty(t, failed)
	assert.Zero(t, embedder.Calls())
}

func TestRun_NoEmbedder(t *testing.T) {
	b := NewEmbeddingBatcher(nil)

	outcome, err := b.Run(context.Background(), makeChunks("v1", 1), memory.NewStore(), nil)

	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	require.NotNil(t, outcome)
	assert.Empty(t, outcome.Succeeded)
}

func TestRun_NoStore(t *testing.T) {
	b := NewEmbeddingBatcher(newMockEmbedder())

	_, err := b.Run(context.Background(), makeChunks("v1", 1), nil, nil)

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestRun_CommitCallbackPerBatch(t *testing.T) {
	b := NewEmbeddingBatcher(newMockEmbedder(), WithBatchSize(2), WithMaxWorkers(1))

	var commits [][]string
	outcome, err := b.Run(context.Background(), makeChunks("v1", 5), memory.NewStore(),
		func(committed []domain.Chunk) {
			commits = append(commits, chunkIDs(committed))
		})

	require.NoError(t, err)
	assert.Len(t, outcome.Succeeded, 5)
	assert.Equal(t, [][]string{
		{"v1-0", "v1-1"},
		{"v1-2", "v1-3"},
		{"v1-4"},
	}, commits)
}

func TestRun_SplitsOnTokenLimit(t *testing.T) {
	embedder := newMockEmbedder()
	embedder.maxTexts = 2
	chunks := makeChunks("v1", 8)

	b := NewEmbeddingBatcher(embedder, WithBatchSize(8), WithMaxWorkers(1))
	outcome, err := b.Run(context.Background(), chunks, memory.NewStore(), nil)

	require.NoError(t, err)
	assert.Empty(t, outcome.Failed)
	assert.Equal(t, chunkIDs(chunks), chunkIDs(outcome.Succeeded))
	// 8 rejected, 4 rejected, 2+2 accepted, 4 rejected, 2+2 accepted
	assert.Equal(t, []int{8, 4, 2, 2, 4, 2, 2}, embedder.BatchSizes())
}

func TestRun_OversizedSingleChunkFails(t *testing.T) {
	embedder := newMockEmbedder()
	chunks := makeChunks("v1", 4)
	embedder.oversized = chunks[2].Content

	b := NewEmbeddingBatcher(embedder, WithBatchSize(4), WithMaxWorkers(1))
	outcome, err := b.Run(context.Background(), chunks, memory.NewStore(), nil)

	require.NoError(t, err)
	require.Len(t, outcome.Failed, 1)
	assert.Equal(t, "v1-2", outcome.Failed[0].Chunk.ID)
	assert.Equal(t, domain.FailureCapacity, outcome.Failed[0].Kind)
	assert.ErrorIs(t, outcome.Failed[0].Err, domain.ErrTokenLimitExceeded)
	assert.Equal(t, []string{"v1-0", "v1-1", "v1-3"}, chunkIDs(outcome.Succeeded))
}

func TestRun_SplitDepthBounded(t *testing.T) {
	embedder := newMockEmbedder()
	embedder.maxTexts = 1

	b := NewEmbeddingBatcher(embedder, WithBatchSize(4), WithMaxWorkers(1), WithMaxSplitDepth(1))
	outcome, err := b.Run(context.Background(), makeChunks("v1", 4), memory.NewStore(), nil)

	require.NoError(t, err)
	assert.Empty(t, outcome.Succeeded)
	require.Len(t, outcome.Failed, 4)
	for _, f := range outcome.Failed {
		assert.Equal(t, domain.FailureCapacity, f.Kind)
	}
	assert.Equal(t, []int{4, 2, 2}, embedder.BatchSizes())
}

func TestRun_PreemptiveSplitOverCeiling(t *testing.T) {
	embedder := newMockEmbedder()

	b := NewEmbeddingBatcher(embedder,
		WithBatchSize(8),
		WithMaxWorkers(1),
		WithTokenCeiling(20),
		WithTokenEstimator(countingEstimator{perChunk: 10}),
	)
	outcome, err := b.Run(context.Background(), makeChunks("v1", 8), memory.NewStore(), nil)

	require.NoError(t, err)
	assert.Len(t, outcome.Succeeded, 8)
	for _, n := range embedder.BatchSizes() {
		assert.LessOrEqual(t, n, 2)
	}
	assert.Equal(t, 4, embedder.Calls())
}

func TestRun_RetriesTransientErrors(t *testing.T) {
	embedder := newMockEmbedder()
	embedder.transientFails = 2

	b := NewEmbeddingBatcher(embedder, WithMaxRetries(3), WithRetryBaseDelay(0))
	outcome, err := b.Run(context.Background(), makeChunks("v1", 3), memory.NewStore(), nil)

	require.NoError(t, err)
	assert.Len(t, outcome.Succeeded, 3)
	assert.Equal(t, 3, embedder.Calls())
}

func TestRun_TransientExhausted(t *testing.T) {
	embedder := newMockEmbedder()
	chunks := makeChunks("v1", 4)
	embedder.broken = chunks[3].Content

	b := NewEmbeddingBatcher(embedder, WithBatchSize(2), WithMaxWorkers(1),
		WithMaxRetries(2), WithRetryBaseDelay(0))
	outcome, err := b.Run(context.Background(), chunks, memory.NewStore(), nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"v1-0", "v1-1"}, chunkIDs(outcome.Succeeded))
	require.Len(t, outcome.Failed, 2)
	for _, f := range outcome.Failed {
		assert.Equal(t, domain.FailureTransient, f.Kind)
		assert.ErrorIs(t, f.Err, errTransient)
	}
	// one call for the good batch, two attempts for the broken one
	assert.Equal(t, 3, embedder.Calls())
}

func TestRun_StoreFailure(t *testing.T) {
	chunks := makeChunks("v1", 4)
	store := &failingStore{Store: memory.NewStore(), reject: chunks[0].Content}

	b := NewEmbeddingBatcher(newMockEmbedder(), WithBatchSize(2), WithMaxWorkers(1))
	outcome, err := b.Run(context.Background(), chunks, store, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"v1-2", "v1-3"}, chunkIDs(outcome.Succeeded))
	require.Len(t, outcome.Failed, 2)
	assert.Equal(t, domain.FailureStore, outcome.Failed[0].Kind)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRun_Cancelled(t *testing.T) {
	embedder := newMockEmbedder()
	embedder.block = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewEmbeddingBatcher(embedder)
	outcome, err := b.Run(ctx, makeChunks("v1", 3), memory.NewStore(), nil)

	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, outcome)
	assert.Empty(t, outcome.Succeeded)
}

func TestPartition(t *testing.T) {
	batches := partition(makeChunks("v1", 5), 2)

	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 2)
	assert.Len(t, batches[2], 1)
	assert.Equal(t, "v1-4", batches[2][0].ID)
}

func TestBatcherOptionsFromSettings(t *testing.T) {
	settings := domain.DefaultSettings().Index
	settings.BatchSize = 7
	settings.MaxSplitDepth = 2

	b := NewEmbeddingBatcher(nil, BatcherOptionsFromSettings(settings)...)

	assert.Equal(t, 7, b.batchSize)
	assert.Equal(t, 2, b.maxSplitDepth)
}
