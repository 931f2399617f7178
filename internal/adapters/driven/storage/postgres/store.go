// Package postgres provides a similarity store on PostgreSQL with pgvector.
//
// All stores share two tables; rows are partitioned by store id. Distances
// come from pgvector's cosine operator (<=>).
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
)

// Ensure Store and Provider implement the interfaces.
var (
	_ driven.SimilarityStore = (*Store)(nil)
	_ driven.StoreProvider   = (*Provider)(nil)
)

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS topicseek_stores (
    id         TEXT PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS topicseek_chunks (
    store_id  TEXT NOT NULL REFERENCES topicseek_stores(id) ON DELETE CASCADE,
    id        TEXT NOT NULL,
    seq       BIGSERIAL,
    unit_id   TEXT NOT NULL,
    tenant_id TEXT NOT NULL DEFAULT '',
    position  INTEGER NOT NULL DEFAULT 0,
    content   TEXT NOT NULL,
    metadata  JSONB NOT NULL DEFAULT '{}',
    embedding vector NOT NULL,
    PRIMARY KEY (store_id, id)
);

CREATE INDEX IF NOT EXISTS idx_topicseek_chunks_unit ON topicseek_chunks(store_id, unit_id);
`

// Provider hands out stores backed by one connection pool.
type Provider struct {
	pool *pgxpool.Pool
}

// NewProvider connects to dsn and ensures the schema exists.
func NewProvider(ctx context.Context, dsn string) (*Provider, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn is empty", domain.ErrInvalidInput)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", domain.ErrStoreUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %w", domain.ErrStoreUnavailable, err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Provider{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Provider) Close() {
	p.pool.Close()
}

// Open returns a view of storeID. Closing the view does not close the pool.
func (p *Provider) Open(ctx context.Context, storeID string, create bool) (driven.SimilarityStore, error) {
	if storeID == "" {
		return nil, fmt.Errorf("%w: empty store id", domain.ErrInvalidInput)
	}

	if create {
		if _, err := p.pool.Exec(ctx,
			"INSERT INTO topicseek_stores (id) VALUES ($1) ON CONFLICT (id) DO NOTHING", storeID); err != nil {
			return nil, fmt.Errorf("%w: creating store %s: %w", domain.ErrStoreUnavailable, storeID, err)
		}
	} else {
		exists, err := p.Exists(ctx, storeID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", domain.ErrStoreUnavailable, storeID)
		}
	}

	return &Store{pool: p.pool, storeID: storeID}, nil
}

// Exists reports whether storeID has been created.
func (p *Provider) Exists(ctx context.Context, storeID string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM topicseek_stores WHERE id = $1)", storeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking store %s: %w", storeID, err)
	}
	return exists, nil
}

// Drop deletes storeID and every chunk in it.
func (p *Provider) Drop(ctx context.Context, storeID string) error {
	if _, err := p.pool.Exec(ctx, "DELETE FROM topicseek_stores WHERE id = $1", storeID); err != nil {
		return fmt.Errorf("dropping store %s: %w", storeID, err)
	}
	return nil
}

// Store is one store id's partition of topicseek_chunks.
type Store struct {
	pool    *pgxpool.Pool
	storeID string
}

// AddDocuments upserts docs in one transaction.
func (s *Store) AddDocuments(ctx context.Context, docs []domain.IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, doc := range docs {
		chunk := doc.Chunk
		metadata, err := json.Marshal(chunk.Metadata())
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", chunk.ID, err)
		}
		batch.Queue(`
			INSERT INTO topicseek_chunks (store_id, id, unit_id, tenant_id, position, content, metadata, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (store_id, id) DO UPDATE SET
				unit_id = EXCLUDED.unit_id,
				tenant_id = EXCLUDED.tenant_id,
				position = EXCLUDED.position,
				content = EXCLUDED.content,
				metadata = EXCLUDED.metadata,
				embedding = EXCLUDED.embedding`,
			s.storeID, chunk.ID, chunk.UnitID, chunk.TenantID, chunk.Position,
			chunk.Content, string(metadata), pgvector.NewVector(doc.Embedding),
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting chunks: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

// Query returns the k nearest chunks; ties keep insertion order.
func (s *Store) Query(ctx context.Context, vector []float32, k int) ([]driven.StoreHit, error) {
	if k <= 0 {
		return []driven.StoreHit{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, content, metadata, embedding <=> $2 AS distance
		FROM topicseek_chunks
		WHERE store_id = $1
		ORDER BY distance, seq
		LIMIT $3`,
		s.storeID, pgvector.NewVector(vector), k,
	)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	hits := []driven.StoreHit{}
	for rows.Next() {
		var (
			id, content string
			metadata    []byte
			distance    float64
		)
		if err := rows.Scan(&id, &content, &metadata, &distance); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		var md map[string]any
		if err := json.Unmarshal(metadata, &md); err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", id, err)
		}
		hits = append(hits, driven.StoreHit{
			Chunk:    domain.ChunkFromMetadata(id, content, md),
			Distance: distance,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return hits, nil
}

// DeleteUnit removes every chunk of unitID.
func (s *Store) DeleteUnit(ctx context.Context, unitID string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM topicseek_chunks WHERE store_id = $1 AND unit_id = $2", s.storeID, unitID)
	if err != nil {
		return 0, fmt.Errorf("deleting unit %s: %w", unitID, err)
	}
	return int(tag.RowsAffected()), nil
}

// UnitIDs returns the distinct unit ids in sorted order.
func (s *Store) UnitIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT DISTINCT unit_id FROM topicseek_chunks WHERE store_id = $1 ORDER BY unit_id", s.storeID)
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning unit ids: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM topicseek_chunks WHERE store_id = $1", s.storeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Clear removes every chunk of the store.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM topicseek_chunks WHERE store_id = $1", s.storeID); err != nil {
		return fmt.Errorf("clearing store: %w", err)
	}
	return nil
}

// Relevance converts pgvector cosine distance into [0,1].
func (s *Store) Relevance(distance float64) float64 {
	return domain.CosineRelevance(distance)
}

// Close is a no-op; the provider owns the pool.
func (s *Store) Close() error {
	return nil
}
