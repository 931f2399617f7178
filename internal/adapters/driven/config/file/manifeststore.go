package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
)

// ManifestFileName is the manifest's name inside each store directory.
const ManifestFileName = "build_info.json"

// keyProcessedUnits marks a manifest written with per-unit tracking.
const keyProcessedUnits = "processed_video_ids"

// Ensure ManifestStore implements the interface.
var _ driven.ManifestStore = (*ManifestStore)(nil)

// ManifestStore keeps one build_info.json per store under a root directory:
// <root>/<store_id>/build_info.json.
type ManifestStore struct {
	root string
}

// NewManifestStore creates a manifest store rooted at dir.
func NewManifestStore(dir string) *ManifestStore {
	return &ManifestStore{root: dir}
}

// Path returns the manifest path for storeID.
func (s *ManifestStore) Path(storeID string) string {
	return filepath.Join(s.root, storeID, ManifestFileName)
}

// Load reads and decodes the manifest for storeID.
func (s *ManifestStore) Load(_ context.Context, storeID string) (*domain.IndexManifest, error) {
	if err := validateStoreID(storeID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(storeID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: manifest for %s", domain.ErrNotFound, storeID)
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", storeID, err)
	}

	var m domain.IndexManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", storeID, err)
	}
	if _, ok := raw[keyProcessedUnits]; !ok {
		m.Legacy = true
	}
	if m.ProcessedUnitIDs == nil {
		m.ProcessedUnitIDs = []string{}
	}
	return &m, nil
}

// Save writes the manifest to a temporary file and renames it into place.
func (s *ManifestStore) Save(_ context.Context, storeID string, manifest *domain.IndexManifest) error {
	if err := validateStoreID(storeID); err != nil {
		return err
	}
	if manifest == nil {
		return fmt.Errorf("%w: nil manifest", domain.ErrInvalidInput)
	}

	dir := filepath.Join(s.root, storeID)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	out := manifest.Clone()
	if out.ProcessedUnitIDs == nil {
		out.ProcessedUnitIDs = []string{}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ManifestFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close manifest: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(storeID)); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}

// validateStoreID rejects ids that would escape the root directory.
func validateStoreID(storeID string) error {
	if storeID == "" || storeID == "." || storeID == ".." ||
		strings.ContainsAny(storeID, `/\`) {
		return fmt.Errorf("%w: store id %q", domain.ErrInvalidInput, storeID)
	}
	return nil
}
