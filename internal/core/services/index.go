package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
	"github.com/custodia-labs/topicseek/internal/core/ports/driving"
	"github.com/custodia-labs/topicseek/internal/logger"
)

// Ensure IndexBuilder implements the interface.
var _ driving.IndexBuilder = (*IndexBuilder)(nil)

// IndexBuilder owns every write to similarity stores and their manifests.
// Builds of the same store are serialised; builds of different stores
// run independently.
type IndexBuilder struct {
	source    driven.TranscriptSource
	tenants   driven.TenantRegistry
	stores    driven.StoreProvider
	manifests driven.ManifestStore
	pipeline  driven.SegmentPipeline
	batcher   *EmbeddingBatcher
	settings  domain.IndexSettings

	now func() time.Time

	// Per-store locks
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	// Status tracking
	mu           sync.RWMutex
	activeBuilds map[string]domain.BuildPhase
}

// NewIndexBuilder creates an index builder.
// The tenant registry is optional; without it BuildAll has nothing to do.
func NewIndexBuilder(
	source driven.TranscriptSource,
	tenants driven.TenantRegistry,
	stores driven.StoreProvider,
	manifests driven.ManifestStore,
	pipeline driven.SegmentPipeline,
	batcher *EmbeddingBatcher,
	settings domain.IndexSettings,
) *IndexBuilder {
	return &IndexBuilder{
		source:       source,
		tenants:      tenants,
		stores:       stores,
		manifests:    manifests,
		pipeline:     pipeline,
		batcher:      batcher,
		settings:     settings,
		now:          time.Now,
		locks:        make(map[string]*sync.Mutex),
		activeBuilds: make(map[string]domain.BuildPhase),
	}
}

// buildRun carries the mutable state of one build.
type buildRun struct {
	req      domain.BuildRequest
	report   *domain.BuildReport
	store    driven.SimilarityStore
	manifest *domain.IndexManifest

	// baseChunks is the stored chunk count when EMBED started.
	baseChunks int

	// Per-unit bookkeeping for the units being indexed.
	expected  map[string]int
	committed map[string]int
	segments  map[string]int
	merged    map[string]struct{}
}

// Build indexes one store. It always returns a report.
//
//nolint:gocyclo // State machine with necessary sequential phases
func (b *IndexBuilder) Build(ctx context.Context, req domain.BuildRequest) *domain.BuildReport {
	if req.StoreID == "" {
		req.StoreID = domain.GlobalStoreID
	}
	if req.Mode == "" {
		req.Mode = domain.BuildModeIncremental
	}

	report := &domain.BuildReport{
		StoreID:   req.StoreID,
		Mode:      req.Mode,
		Phase:     domain.PhaseDiscover,
		StartedAt: b.now(),
	}

	if !req.Mode.IsValid() {
		return b.fail(report, fmt.Errorf("%w: build mode %q", domain.ErrInvalidInput, req.Mode))
	}

	lock := b.storeLock(req.StoreID)
	if !lock.TryLock() {
		return b.fail(report, fmt.Errorf("%w: store %s", domain.ErrBuildInProgress, req.StoreID))
	}
	defer lock.Unlock()
	defer b.clearStatus(req.StoreID)

	logger.Section(fmt.Sprintf("Build: %s (%s)", req.StoreID, req.Mode))

	// 1. DISCOVER
	b.setPhase(report, domain.PhaseDiscover)
	refs, err := b.source.Discover(ctx, req.TenantID())
	if err != nil {
		return b.fail(report, fmt.Errorf("discover units: %w", err))
	}
	refs = dedupeRefs(report, refs)
	report.DiscoveredUnits = len(refs)
	logger.Info("Discovered %d units", len(refs))
	if len(refs) == 0 {
		return b.fail(report, fmt.Errorf("%w for store %s", domain.ErrNoCandidates, req.StoreID))
	}

	// 2. DIFF
	b.setPhase(report, domain.PhaseDiff)
	manifest, err := b.loadManifest(ctx, req)
	if err != nil {
		return b.fail(report, err)
	}

	pending := refs
	if req.Mode == domain.BuildModeIncremental {
		pending = manifest.Pending(refs)
		if len(pending) == 0 {
			logger.Info("No new units for %s", req.StoreID)
			report.Manifest = manifest
			return b.finish(report)
		}
	}
	report.NewUnits = len(pending)
	logger.Info("%d units to index", len(pending))

	store, err := b.stores.Open(ctx, req.StoreID, true)
	if err != nil {
		return b.fail(report, fmt.Errorf("open store: %w", err))
	}
	defer store.Close()

	run := &buildRun{
		req:       req,
		report:    report,
		store:     store,
		manifest:  manifest,
		expected:  make(map[string]int),
		committed: make(map[string]int),
		segments:  make(map[string]int),
		merged:    make(map[string]struct{}),
	}

	if req.Mode == domain.BuildModeFull {
		if err := store.Clear(ctx); err != nil {
			return b.fail(report, fmt.Errorf("clear store: %w", err))
		}
		run.manifest = domain.NewManifest(req.TenantID())
		run.manifest.Config = b.manifestConfig()
		if err := b.persist(ctx, run); err != nil {
			return b.fail(report, err)
		}
	}

	// 3. CHUNK
	b.setPhase(report, domain.PhaseChunk)
	chunks, err := b.chunkUnits(ctx, run, pending)
	if err != nil {
		return b.fail(report, err)
	}
	if len(chunks) == 0 {
		// Every pending unit was unreadable or empty. The store is
		// unchanged and the failures are in the report.
		logger.Warn("No chunks produced for %s; %d units skipped", req.StoreID, len(report.Failed))
		report.Manifest = run.manifest.Clone()
		return b.finish(report)
	}

	if req.Mode == domain.BuildModeIncremental {
		// Drop chunks left behind by an interrupted earlier run.
		for unitID := range run.expected {
			if _, err := store.DeleteUnit(ctx, unitID); err != nil {
				return b.fail(report, fmt.Errorf("clear partial unit %s: %w", unitID, err))
			}
		}
	}

	if run.baseChunks, err = store.Count(ctx); err != nil {
		return b.fail(report, fmt.Errorf("count chunks: %w", err))
	}

	// 4-5. EMBED and COMMIT, persisting the manifest as units complete
	b.setPhase(report, domain.PhaseEmbed)
	outcome, embedErr := b.batcher.Run(ctx, chunks, store, func(committed []domain.Chunk) {
		b.onCommit(ctx, run, committed)
	})
	report.FailedChunks = len(outcome.Failed)

	b.setPhase(report, domain.PhaseCommit)
	for _, f := range outcome.Failed {
		report.AddFailure(f.Chunk.UnitID, f.Chunk.ID, f.Kind, f.Err.Error())
	}
	b.discardPartialUnits(ctx, run)

	// 6. PERSIST_MANIFEST
	b.setPhase(report, domain.PhasePersistManifest)
	persistCtx := ctx
	if embedErr != nil {
		// Keep what was committed before cancellation.
		persistCtx = context.WithoutCancel(ctx)
	}
	if err := b.finalise(persistCtx, run); err != nil {
		return b.fail(report, err)
	}
	report.Manifest = run.manifest.Clone()

	if embedErr != nil {
		return b.fail(report, fmt.Errorf("embed: %w", embedErr))
	}
	if report.IndexedUnits == 0 {
		return b.fail(report, errors.New("no units indexed: every batch failed"))
	}

	logger.Info("Indexed %d/%d units, %d chunks (%d failed)",
		report.IndexedUnits, report.NewUnits, report.NewChunks, report.FailedChunks)
	return b.finish(report)
}

// BuildAll builds every enabled tenant store independently.
func (b *IndexBuilder) BuildAll(ctx context.Context, mode domain.BuildMode) *domain.MultiBuildReport {
	result := &domain.MultiBuildReport{}
	if b.tenants == nil {
		return result
	}

	tenants, err := b.tenants.List(ctx)
	if err != nil {
		logger.Error("list tenants: %v", err)
		return result
	}

	var enabled []domain.Tenant
	for _, t := range tenants {
		if t.Enabled {
			enabled = append(enabled, t)
		}
	}

	reports := make([]*domain.BuildReport, len(enabled))
	var g errgroup.Group
	g.SetLimit(max(1, b.settings.MaxWorkers))
	for i, t := range enabled {
		g.Go(func() error {
			reports[i] = b.Build(ctx, domain.BuildRequest{StoreID: t.ID, Mode: mode})
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range reports {
		result.Add(r)
	}
	logger.Info("Built %d/%d tenant stores", result.Succeeded, result.Total)
	return result
}

// Verify compares a store's manifest against its contents. It reports
// disagreements and never corrects them.
func (b *IndexBuilder) Verify(ctx context.Context, storeID string) (*domain.VerifyReport, error) {
	report := &domain.VerifyReport{StoreID: storeID}

	store, err := b.stores.Open(ctx, storeID, false)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	stored, err := store.UnitIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stored units: %w", err)
	}
	report.StoredUnits = len(stored)

	if report.StoredChunks, err = store.Count(ctx); err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}

	manifest, err := b.manifests.Load(ctx, storeID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		report.Warnings = append(report.Warnings, "manifest missing")
		report.Untracked = stored
		return report, nil
	case err != nil:
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	if manifest.Legacy {
		report.Warnings = append(report.Warnings, "manifest predates processed_video_ids")
	}
	report.ManifestUnits = len(manifest.ProcessedUnitIDs)
	report.ManifestChunks = manifest.TotalChunks

	storedSet := make(map[string]struct{}, len(stored))
	for _, id := range stored {
		storedSet[id] = struct{}{}
	}
	for _, id := range manifest.ProcessedUnitIDs {
		if _, ok := storedSet[id]; !ok {
			report.MissingInStore = append(report.MissingInStore, id)
		}
	}
	for _, id := range stored {
		if !manifest.Contains(id) {
			report.Untracked = append(report.Untracked, id)
		}
	}

	if len(report.MissingInStore) > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d processed units have no stored chunks", len(report.MissingInStore)))
	}
	if len(report.Untracked) > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d stored units are not in the manifest", len(report.Untracked)))
	}
	if report.ManifestChunks != report.StoredChunks {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("manifest records %d chunks, store holds %d", report.ManifestChunks, report.StoredChunks))
	}

	return report, nil
}

// RemoveUnit deletes every chunk of unitID from the store and drops it
// from the manifest. It returns the number of chunks removed.
func (b *IndexBuilder) RemoveUnit(ctx context.Context, storeID, unitID string) (int, error) {
	if unitID == "" {
		return 0, fmt.Errorf("%w: unit id is empty", domain.ErrInvalidInput)
	}

	lock := b.storeLock(storeID)
	if !lock.TryLock() {
		return 0, fmt.Errorf("%w: store %s", domain.ErrBuildInProgress, storeID)
	}
	defer lock.Unlock()

	store, err := b.stores.Open(ctx, storeID, false)
	if err != nil {
		return 0, fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	removed, err := store.DeleteUnit(ctx, unitID)
	if err != nil {
		return 0, fmt.Errorf("delete unit: %w", err)
	}

	manifest, err := b.manifests.Load(ctx, storeID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return removed, fmt.Errorf("load manifest: %w", err)
	}

	tracked := false
	if manifest != nil {
		tracked = manifest.Remove(unitID)
	}
	if !tracked && removed == 0 {
		return 0, fmt.Errorf("%w: unit %s in store %s", domain.ErrNotFound, unitID, storeID)
	}

	if manifest != nil {
		if manifest.TotalChunks, err = store.Count(ctx); err != nil {
			return removed, fmt.Errorf("count chunks: %w", err)
		}
		manifest.Stamp(b.now())
		if err := b.manifests.Save(ctx, storeID, manifest); err != nil {
			return removed, fmt.Errorf("save manifest: %w", err)
		}
	}

	logger.Info("Removed %d chunks of %s from %s", removed, unitID, storeID)
	return removed, nil
}

// Status describes a store and any build running against it.
func (b *IndexBuilder) Status(ctx context.Context, storeID string) (*domain.IndexStatus, error) {
	status := &domain.IndexStatus{StoreID: storeID}

	b.mu.RLock()
	if phase, ok := b.activeBuilds[storeID]; ok {
		status.Building = true
		status.Phase = phase
	}
	b.mu.RUnlock()

	exists, err := b.stores.Exists(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("check store: %w", err)
	}
	status.Exists = exists

	if exists {
		store, err := b.stores.Open(ctx, storeID, false)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		defer store.Close()
		if status.StoredChunks, err = store.Count(ctx); err != nil {
			return nil, fmt.Errorf("count chunks: %w", err)
		}
	}

	manifest, err := b.manifests.Load(ctx, storeID)
	switch {
	case err == nil:
		status.Manifest = manifest
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	return status, nil
}

// loadManifest reads the store's manifest. A missing manifest yields an
// empty one; a legacy manifest is reconstructed from the store once.
func (b *IndexBuilder) loadManifest(ctx context.Context, req domain.BuildRequest) (*domain.IndexManifest, error) {
	manifest, err := b.manifests.Load(ctx, req.StoreID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.NewManifest(req.TenantID()), nil
	case err != nil:
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	if manifest.Legacy {
		if err := b.reconstructManifest(ctx, req.StoreID, manifest); err != nil {
			return nil, err
		}
	}
	return manifest, nil
}

// reconstructManifest fills ProcessedUnitIDs from the unit ids found in
// the store and saves the result. It runs once per legacy manifest.
func (b *IndexBuilder) reconstructManifest(ctx context.Context, storeID string, manifest *domain.IndexManifest) error {
	logger.Warn("Manifest for %s predates processed_video_ids, reconstructing from store", storeID)

	exists, err := b.stores.Exists(ctx, storeID)
	if err != nil {
		return fmt.Errorf("check store: %w", err)
	}

	var ids []string
	if exists {
		store, err := b.stores.Open(ctx, storeID, false)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		ids, err = store.UnitIDs(ctx)
		store.Close()
		if err != nil {
			return fmt.Errorf("list stored units: %w", err)
		}
	}

	manifest.Reset(ids...)
	manifest.TotalUnits = len(manifest.ProcessedUnitIDs)
	manifest.Legacy = false

	if err := b.manifests.Save(ctx, storeID, manifest); err != nil {
		return fmt.Errorf("save reconstructed manifest: %w", err)
	}
	logger.Info("Reconstructed %d processed units for %s", len(ids), storeID)
	return nil
}

// dedupeRefs keeps the first ref of each unit id. Later refs, such as a
// flat legacy file next to a channel copy, are reported as input
// failures and never chunked.
func dedupeRefs(report *domain.BuildReport, refs []domain.UnitRef) []domain.UnitRef {
	seen := make(map[string]domain.UnitRef, len(refs))
	unique := make([]domain.UnitRef, 0, len(refs))
	for _, ref := range refs {
		if first, dup := seen[ref.ID]; dup {
			logger.Warn("Duplicate unit %s in %q, keeping %q", ref.ID, ref.TenantID, first.TenantID)
			report.AddFailure(ref.ID, "", domain.FailureInput,
				fmt.Sprintf("duplicate unit id (also under tenant %q)", first.TenantID))
			continue
		}
		seen[ref.ID] = ref
		unique = append(unique, ref)
	}
	return unique
}

// chunkUnits loads and chunks each pending unit. Unit-level problems are
// recorded as failed items and never abort the build.
func (b *IndexBuilder) chunkUnits(ctx context.Context, run *buildRun, pending []domain.UnitRef) ([]domain.Chunk, error) {
	var all []domain.Chunk

	for _, ref := range pending {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		unit, err := b.source.Load(ctx, ref)
		if err == nil {
			err = unit.Validate()
		}
		if err != nil {
			logger.Warn("Skipping unit %s: %v", ref.ID, err)
			run.report.AddFailure(ref.ID, "", domain.FailureInput, err.Error())
			continue
		}

		chunks, err := b.pipeline.Process(ctx, unit)
		if err != nil {
			kind := domain.FailureInput
			if errors.Is(err, domain.ErrEmptyUnit) {
				kind = domain.FailureEmpty
			}
			logger.Warn("Skipping unit %s: %v", unit.ID, err)
			run.report.AddFailure(unit.ID, "", kind, err.Error())
			continue
		}

		logger.Debug("Unit %s: %d segments, %d chunks", unit.ID, len(unit.Segments), len(chunks))
		run.expected[unit.ID] = len(chunks)
		run.segments[unit.ID] = len(unit.Segments)
		all = append(all, chunks...)
	}

	return all, nil
}

// onCommit merges units whose chunks are all committed and persists the
// manifest. Called serially by the batcher.
func (b *IndexBuilder) onCommit(ctx context.Context, run *buildRun, committed []domain.Chunk) {
	var completed []string
	for _, c := range committed {
		run.committed[c.UnitID]++
		if run.committed[c.UnitID] == run.expected[c.UnitID] {
			completed = append(completed, c.UnitID)
		}
	}
	if len(completed) == 0 {
		return
	}

	b.mergeUnits(run, completed)
	if err := b.persist(ctx, run); err != nil {
		logger.Warn("Persist manifest after batch: %v", err)
	}
}

// mergeUnits adds fully committed units to the manifest.
func (b *IndexBuilder) mergeUnits(run *buildRun, unitIDs []string) {
	for _, id := range unitIDs {
		if _, done := run.merged[id]; done {
			continue
		}
		run.merged[id] = struct{}{}
		run.manifest.TotalSegments += run.segments[id]
	}
	run.manifest.Merge(unitIDs...)
	run.manifest.TotalUnits = len(run.manifest.ProcessedUnitIDs)
	run.manifest.NewUnitsCount = len(run.merged)

	newChunks := 0
	for id := range run.committed {
		newChunks += run.committed[id]
	}
	run.manifest.TotalChunks = run.baseChunks + newChunks
}

// discardPartialUnits deletes chunks of units that were only partly
// committed, so the store holds chunks only for manifest units.
func (b *IndexBuilder) discardPartialUnits(ctx context.Context, run *buildRun) {
	for unitID, n := range run.committed {
		if _, merged := run.merged[unitID]; merged || n == run.expected[unitID] {
			continue
		}
		if _, err := run.store.DeleteUnit(context.WithoutCancel(ctx), unitID); err != nil {
			logger.Warn("Discard partial unit %s: %v", unitID, err)
			continue
		}
		logger.Debug("Discarded %d partial chunks of %s", n, unitID)
		run.committed[unitID] = 0
	}
}

// finalise recomputes counts from the store and persists the manifest.
func (b *IndexBuilder) finalise(ctx context.Context, run *buildRun) error {
	indexed := make([]string, 0, len(run.merged))
	for id := range run.merged {
		indexed = append(indexed, id)
	}
	slices.Sort(indexed)
	run.report.IndexedUnits = len(indexed)
	for _, id := range indexed {
		run.report.NewChunks += run.committed[id]
	}

	b.mergeUnits(run, indexed)

	total, err := run.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count chunks: %w", err)
	}
	run.manifest.TotalChunks = total

	for id := range run.segments {
		run.report.TotalSegments += run.segments[id]
	}

	return b.persist(ctx, run)
}

// persist stamps and saves the run's manifest.
func (b *IndexBuilder) persist(ctx context.Context, run *buildRun) error {
	run.manifest.IncrementalMode = run.req.Mode == domain.BuildModeIncremental
	run.manifest.Config = b.manifestConfig()
	run.manifest.Stamp(b.now())
	if err := b.manifests.Save(ctx, run.req.StoreID, run.manifest); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}
	return nil
}

func (b *IndexBuilder) manifestConfig() *domain.ManifestConfig {
	return &domain.ManifestConfig{
		ChunkSize:      b.settings.ChunkSize,
		ChunkOverlap:   b.settings.ChunkOverlap,
		EmbeddingModel: b.batcher.ModelName(),
	}
}

func (b *IndexBuilder) storeLock(storeID string) *sync.Mutex {
	b.locksMu.Lock()
	defer b.locksMu.Unlock()
	lock, ok := b.locks[storeID]
	if !ok {
		lock = &sync.Mutex{}
		b.locks[storeID] = lock
	}
	return lock
}

func (b *IndexBuilder) setPhase(report *domain.BuildReport, phase domain.BuildPhase) {
	report.Phase = phase
	b.mu.Lock()
	b.activeBuilds[report.StoreID] = phase
	b.mu.Unlock()
}

func (b *IndexBuilder) clearStatus(storeID string) {
	b.mu.Lock()
	delete(b.activeBuilds, storeID)
	b.mu.Unlock()
}

func (b *IndexBuilder) fail(report *domain.BuildReport, err error) *domain.BuildReport {
	logger.Error("Build %s failed in %s: %v", report.StoreID, report.Phase, err)
	report.Success = false
	report.Error = err.Error()
	report.Phase = domain.PhaseFailed
	report.FinishedAt = b.now()
	return report
}

func (b *IndexBuilder) finish(report *domain.BuildReport) *domain.BuildReport {
	report.Success = true
	report.Phase = domain.PhaseDone
	report.FinishedAt = b.now()
	return report
}
