package domain

import "time"

// FailureKind classifies why an item was excluded from a build.
type FailureKind string

// Failure kinds.
const (
	// FailureInput is a missing, unreadable or malformed unit.
	FailureInput FailureKind = "input"

	// FailureEmpty is a unit whose segments carry no text.
	FailureEmpty FailureKind = "empty"

	// FailureCapacity is a single chunk that still overflows the token ceiling.
	FailureCapacity FailureKind = "capacity"

	// FailureTransient is a batch that kept failing after all retries.
	FailureTransient FailureKind = "transient"

	// FailureStore is a batch the similarity store refused to commit.
	FailureStore FailureKind = "store"
)

// FailedItem is one unit or chunk excluded from the manifest update.
type FailedItem struct {
	UnitID  string      `json:"unit_id"`
	ChunkID string      `json:"chunk_id,omitempty"`
	Kind    FailureKind `json:"kind"`
	Reason  string      `json:"reason"`
}

// BuildPhase is a state of the index build state machine.
type BuildPhase string

// Build phases in execution order.
const (
	PhaseDiscover        BuildPhase = "discover"
	PhaseDiff            BuildPhase = "diff"
	PhaseChunk           BuildPhase = "chunk"
	PhaseEmbed           BuildPhase = "embed"
	PhaseCommit          BuildPhase = "commit"
	PhasePersistManifest BuildPhase = "persist_manifest"
	PhaseDone            BuildPhase = "done"
	PhaseFailed          BuildPhase = "failed"
)

// BuildRequest selects the store and mode for one build.
type BuildRequest struct {
	// StoreID is GlobalStoreID or a tenant id.
	StoreID string
	Mode    BuildMode
}

// TenantID returns the tenant the store is scoped to, empty for global.
func (r BuildRequest) TenantID() string {
	if r.StoreID == GlobalStoreID {
		return ""
	}
	return r.StoreID
}

// BuildReport is the structured outcome of one build. It is returned for
// every build, including build-level failures.
type BuildReport struct {
	StoreID string     `json:"store_id"`
	Mode    BuildMode  `json:"mode"`
	Success bool       `json:"success"`
	Error   string     `json:"error,omitempty"`
	Phase   BuildPhase `json:"phase"`

	DiscoveredUnits int `json:"discovered_units"`
	NewUnits        int `json:"new_units"`
	IndexedUnits    int `json:"indexed_units"`
	TotalSegments   int `json:"total_segments"`
	NewChunks       int `json:"new_chunks"`
	FailedChunks    int `json:"failed_chunks"`

	Failed   []FailedItem   `json:"failed,omitempty"`
	Manifest *IndexManifest `json:"manifest,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// AddFailure records a failed item.
func (r *BuildReport) AddFailure(unitID, chunkID string, kind FailureKind, reason string) {
	r.Failed = append(r.Failed, FailedItem{
		UnitID:  unitID,
		ChunkID: chunkID,
		Kind:    kind,
		Reason:  reason,
	})
}

// FailedUnitIDs returns the distinct unit ids among failed items.
func (r *BuildReport) FailedUnitIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(r.Failed))
	for _, f := range r.Failed {
		ids[f.UnitID] = struct{}{}
	}
	return ids
}

// Duration returns the wall time of the build.
func (r *BuildReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// MultiBuildReport aggregates per-tenant builds.
type MultiBuildReport struct {
	Reports     []*BuildReport `json:"reports"`
	Total       int            `json:"total"`
	Succeeded   int            `json:"succeeded"`
	SuccessRate float64        `json:"success_rate"`
}

// Add appends a report and updates the aggregate counters.
func (m *MultiBuildReport) Add(r *BuildReport) {
	m.Reports = append(m.Reports, r)
	m.Total++
	if r.Success {
		m.Succeeded++
	}
	m.SuccessRate = float64(m.Succeeded) / float64(m.Total)
}

// VerifyReport lists disagreements between a manifest and its store.
// Verification only reports; it never corrects.
type VerifyReport struct {
	StoreID        string   `json:"store_id"`
	ManifestUnits  int      `json:"manifest_units"`
	StoredUnits    int      `json:"stored_units"`
	ManifestChunks int      `json:"manifest_chunks"`
	StoredChunks   int      `json:"stored_chunks"`
	MissingInStore []string `json:"missing_in_store,omitempty"`
	Untracked      []string `json:"untracked_in_store,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// Consistent returns true when no warnings were raised.
func (v *VerifyReport) Consistent() bool {
	return len(v.Warnings) == 0
}

// IndexStatus describes a store for status reporting.
type IndexStatus struct {
	StoreID      string         `json:"store_id"`
	Exists       bool           `json:"exists"`
	Building     bool           `json:"building"`
	Phase        BuildPhase     `json:"phase,omitempty"`
	StoredChunks int            `json:"stored_chunks"`
	Manifest     *IndexManifest `json:"manifest,omitempty"`
}
