package domain

import (
	"slices"
	"time"
)

// GlobalStoreID names the store holding the union of all tenants.
const GlobalStoreID = "global"

// BuildMode selects between a full rebuild and a delta merge.
type BuildMode string

// Available build modes.
const (
	// BuildModeFull clears the store and indexes every discovered unit.
	BuildModeFull BuildMode = "full"

	// BuildModeIncremental indexes only units missing from the manifest.
	BuildModeIncremental BuildMode = "incremental"
)

// IsValid returns true if the build mode is recognised.
func (m BuildMode) IsValid() bool {
	return m == BuildModeFull || m == BuildModeIncremental
}

// String returns the string representation.
func (m BuildMode) String() string {
	return string(m)
}

// ManifestConfig records the chunking and embedding settings of the last build.
type ManifestConfig struct {
	ChunkSize      int    `json:"chunk_size"`
	ChunkOverlap   int    `json:"chunk_overlap"`
	EmbeddingModel string `json:"embedding_model"`
}

// IndexManifest is the durable record of which units a store holds.
// ProcessedUnitIDs is the single source of truth for "already indexed".
type IndexManifest struct {
	BuiltAt          string          `json:"built_at"`
	TotalUnits       int             `json:"total_videos"`
	TotalSegments    int             `json:"total_segments"`
	TotalChunks      int             `json:"total_chunks"`
	NewUnitsCount    int             `json:"new_videos_count"`
	IncrementalMode  bool            `json:"incremental_mode"`
	TenantID         *string         `json:"channel_id"`
	ProcessedUnitIDs []string        `json:"processed_video_ids"`
	Config           *ManifestConfig `json:"config,omitempty"`

	// Legacy is set when the persisted record predates processed_video_ids.
	Legacy bool `json:"-"`
}

// NewManifest returns an empty manifest scoped to tenantID.
// An empty tenantID denotes the global store.
func NewManifest(tenantID string) *IndexManifest {
	m := &IndexManifest{ProcessedUnitIDs: []string{}}
	if tenantID != "" {
		m.TenantID = &tenantID
	}
	return m
}

// Contains reports whether unitID is already indexed.
func (m *IndexManifest) Contains(unitID string) bool {
	_, ok := m.processedSet()[unitID]
	return ok
}

// processedSet returns ProcessedUnitIDs as a set.
func (m *IndexManifest) processedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(m.ProcessedUnitIDs))
	for _, id := range m.ProcessedUnitIDs {
		set[id] = struct{}{}
	}
	return set
}

// Pending filters refs down to those not yet indexed, preserving order.
func (m *IndexManifest) Pending(refs []UnitRef) []UnitRef {
	set := m.processedSet()
	pending := make([]UnitRef, 0, len(refs))
	for _, ref := range refs {
		if _, ok := set[ref.ID]; !ok {
			pending = append(pending, ref)
		}
	}
	return pending
}

// Merge unions ids into ProcessedUnitIDs. The list stays sorted and
// free of duplicates, and it never shrinks.
func (m *IndexManifest) Merge(ids ...string) {
	set := m.processedSet()
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	m.ProcessedUnitIDs = sortedKeys(set)
}

// Reset replaces ProcessedUnitIDs with exactly ids.
func (m *IndexManifest) Reset(ids ...string) {
	m.ProcessedUnitIDs = m.ProcessedUnitIDs[:0]
	m.Merge(ids...)
}

// Remove drops unitID from ProcessedUnitIDs. Only explicit unit removal uses it.
func (m *IndexManifest) Remove(unitID string) bool {
	idx := slices.Index(m.ProcessedUnitIDs, unitID)
	if idx < 0 {
		return false
	}
	m.ProcessedUnitIDs = slices.Delete(m.ProcessedUnitIDs, idx, idx+1)
	m.TotalUnits = len(m.ProcessedUnitIDs)
	return true
}

// Stamp sets BuiltAt to now in ISO-8601.
func (m *IndexManifest) Stamp(now time.Time) {
	m.BuiltAt = now.Format(time.RFC3339)
}

// Clone returns a deep copy.
func (m *IndexManifest) Clone() *IndexManifest {
	c := *m
	c.ProcessedUnitIDs = slices.Clone(m.ProcessedUnitIDs)
	if m.TenantID != nil {
		id := *m.TenantID
		c.TenantID = &id
	}
	if m.Config != nil {
		cfg := *m.Config
		c.Config = &cfg
	}
	return &c
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
