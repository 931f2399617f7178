package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/topicseek/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
)

// DatabaseFileName is the database name inside each store directory.
const DatabaseFileName = "index.db"

// Ensure Store and Provider implement the interfaces.
var (
	_ driven.SimilarityStore = (*Store)(nil)
	_ driven.StoreProvider   = (*Provider)(nil)
)

// Provider opens one SQLite database per store id under a root directory.
type Provider struct {
	root string

	// mu serialises creation so concurrent first opens migrate once.
	mu sync.Mutex
}

// NewProvider creates a provider rooted at dir.
func NewProvider(dir string) (*Provider, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: vectorstore directory is empty", domain.ErrInvalidInput)
	}
	return &Provider{root: dir}, nil
}

// Path returns the database path for storeID.
func (p *Provider) Path(storeID string) string {
	return filepath.Join(p.root, storeID, DatabaseFileName)
}

// Open opens the store for storeID. The caller owns the returned store
// and must Close it.
func (p *Provider) Open(_ context.Context, storeID string, create bool) (driven.SimilarityStore, error) {
	if err := validateStoreID(storeID); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	path := p.Path(storeID)
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		if !create {
			return nil, fmt.Errorf("%w: %s", domain.ErrStoreUnavailable, storeID)
		}
	}

	store, err := OpenStore(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return store, nil
}

// Exists reports whether storeID has a database.
func (p *Provider) Exists(_ context.Context, storeID string) (bool, error) {
	if err := validateStoreID(storeID); err != nil {
		return false, err
	}
	_, err := os.Stat(p.Path(storeID))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat store %s: %w", storeID, err)
	}
	return true, nil
}

func validateStoreID(storeID string) error {
	if storeID == "" || storeID == "." || storeID == ".." ||
		strings.ContainsAny(storeID, `/\`) {
		return fmt.Errorf("%w: store id %q", domain.ErrInvalidInput, storeID)
	}
	return nil
}

// Store is a SQLite similarity store backed by a single database file.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore opens or creates the database at path and applies migrations.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	// WAL gives readers a stable snapshot while a batch commits.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs all pending up migrations in version order.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// AddDocuments upserts docs in one transaction.
func (s *Store) AddDocuments(ctx context.Context, docs []domain.IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, unit_id, tenant_id, position, content, metadata, embedding, dimensions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			unit_id = excluded.unit_id,
			tenant_id = excluded.tenant_id,
			position = excluded.position,
			content = excluded.content,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			dimensions = excluded.dimensions
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		chunk := doc.Chunk
		metadata, err := json.Marshal(chunk.Metadata())
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", chunk.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			chunk.ID,
			chunk.UnitID,
			chunk.TenantID,
			chunk.Position,
			chunk.Content,
			string(metadata),
			float32SliceToBytes(doc.Embedding),
			len(doc.Embedding),
		); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

// Query scans every chunk and returns the k closest by cosine distance.
// Ties keep insertion order.
func (s *Store) Query(ctx context.Context, vector []float32, k int) ([]driven.StoreHit, error) {
	if k <= 0 {
		return []driven.StoreHit{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, metadata, embedding FROM chunks ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var hits []driven.StoreHit
	for rows.Next() {
		var (
			id, content, metadata string
			blob                  []byte
		)
		if err := rows.Scan(&id, &content, &metadata, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		var md map[string]any
		if err := json.Unmarshal([]byte(metadata), &md); err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", id, err)
		}
		hits = append(hits, driven.StoreHit{
			Chunk:    domain.ChunkFromMetadata(id, content, md),
			Distance: domain.CosineDistance(vector, bytesToFloat32Slice(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// DeleteUnit removes every chunk of unitID.
func (s *Store) DeleteUnit(ctx context.Context, unitID string) (int, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE unit_id = ?", unitID)
	if err != nil {
		return 0, fmt.Errorf("deleting unit %s: %w", unitID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted rows: %w", err)
	}
	return int(n), nil
}

// UnitIDs returns the distinct unit ids in sorted order.
func (s *Store) UnitIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT unit_id FROM chunks ORDER BY unit_id")
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning unit id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating units: %w", err)
	}
	return ids, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Clear removes every chunk.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clearing store: %w", err)
	}
	return nil
}

// Relevance converts cosine distance into [0,1].
func (s *Store) Relevance(distance float64) float64 {
	return domain.CosineRelevance(distance)
}

// float32SliceToBytes converts a []float32 to a little-endian byte slice.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
