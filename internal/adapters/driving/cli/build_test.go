package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/topicseek/internal/core/domain"
)

func TestBuildCmd_Defaults(t *testing.T) {
	ts := setupTestServices(t)

	out, _, err := execute(t, "build")

	require.NoError(t, err)
	require.Len(t, ts.index.requests, 1)
	assert.Equal(t, domain.BuildRequest{StoreID: domain.GlobalStoreID, Mode: domain.BuildModeIncremental}, ts.index.requests[0])
	assert.Contains(t, out, "incremental build of global")
}

func TestBuildCmd_FullTenant(t *testing.T) {
	ts := setupTestServices(t)

	_, _, err := execute(t, "build", "UC1", "--full")

	require.NoError(t, err)
	require.Len(t, ts.index.requests, 1)
	assert.Equal(t, domain.BuildRequest{StoreID: "UC1", Mode: domain.BuildModeFull}, ts.index.requests[0])
}

func TestBuildCmd_Failure(t *testing.T) {
	ts := setupTestServices(t)
	ts.index.report = &domain.BuildReport{Success: false, Error: "no candidate units"}

	out, _, err := execute(t, "build", "UC1")

	require.ErrorIs(t, err, errBuildFailed)
	assert.Contains(t, err.Error(), "no candidate units")
	assert.Contains(t, out, "no candidate units")
}

func TestBuildCmd_JSON(t *testing.T) {
	ts := setupTestServices(t)
	ts.index.report = &domain.BuildReport{Success: true, NewChunks: 12}

	out, _, err := execute(t, "build", "--json")

	require.NoError(t, err)
	var report domain.BuildReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 12, report.NewChunks)
	assert.Equal(t, domain.GlobalStoreID, report.StoreID)
}

func TestBuildCmd_All(t *testing.T) {
	t.Run("all succeed", func(t *testing.T) {
		ts := setupTestServices(t)
		multi := &domain.MultiBuildReport{}
		multi.Add(&domain.BuildReport{StoreID: "UC1", Success: true})
		ts.index.multi = multi

		out, _, err := execute(t, "build", "--all", "--full")

		require.NoError(t, err)
		assert.Equal(t, []domain.BuildMode{domain.BuildModeFull}, ts.index.allModes)
		assert.Contains(t, out, "1/1 stores built")
	})

	t.Run("partial failure", func(t *testing.T) {
		ts := setupTestServices(t)
		multi := &domain.MultiBuildReport{}
		multi.Add(&domain.BuildReport{StoreID: "UC1", Success: true})
		multi.Add(&domain.BuildReport{StoreID: "UC2", Error: "boom"})
		ts.index.multi = multi

		_, _, err := execute(t, "build", "--all")

		require.ErrorIs(t, err, errBuildFailed)
		assert.Contains(t, err.Error(), "1 of 2")
	})

	t.Run("rejects store argument", func(t *testing.T) {
		ts := setupTestServices(t)

		_, _, err := execute(t, "build", "UC1", "--all")

		require.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Empty(t, ts.index.allModes)
	})

	t.Run("no tenants", func(t *testing.T) {
		setupTestServices(t)

		out, _, err := execute(t, "build", "--all")

		require.NoError(t, err)
		assert.Contains(t, out, "No enabled tenants")
	})
}

func TestBuildCmd_NotConfigured(t *testing.T) {
	setupTestServices(t)
	SetServices(Services{})

	_, _, err := execute(t, "build")

	assert.ErrorIs(t, err, errNoIndexBuilder)
}

func TestBuildCmd_PrintsWarningsOnce(t *testing.T) {
	setupTestServices(t)
	startupWarnings = []string{"LLM not configured"}

	_, errOut, err := execute(t, "build")
	require.NoError(t, err)
	assert.Contains(t, errOut, "LLM not configured")

	_, errOut, err = execute(t, "build")
	require.NoError(t, err)
	assert.NotContains(t, errOut, "LLM not configured")
}

func TestVerifyCmd(t *testing.T) {
	t.Run("consistent", func(t *testing.T) {
		ts := setupTestServices(t)
		ts.index.verify = &domain.VerifyReport{ManifestUnits: 2, StoredUnits: 2}

		out, _, err := execute(t, "verify", "UC1")

		require.NoError(t, err)
		assert.Contains(t, out, "UC1")
		assert.Contains(t, out, "Manifest matches store contents.")
	})

	t.Run("drift", func(t *testing.T) {
		ts := setupTestServices(t)
		ts.index.verify = &domain.VerifyReport{Warnings: []string{"2 units missing from store"}}

		out, _, err := execute(t, "verify")

		require.NoError(t, err)
		assert.Contains(t, out, "global")
		assert.Contains(t, out, "2 units missing from store")
	})

	t.Run("json", func(t *testing.T) {
		ts := setupTestServices(t)
		ts.index.verify = &domain.VerifyReport{StoredChunks: 9}

		out, _, err := execute(t, "verify", "--json")

		require.NoError(t, err)
		var report domain.VerifyReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, 9, report.StoredChunks)
	})

	t.Run("error", func(t *testing.T) {
		ts := setupTestServices(t)
		ts.index.verifyErr = domain.ErrStoreUnavailable

		_, _, err := execute(t, "verify")

		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	})
}

func TestRemoveCmd(t *testing.T) {
	t.Run("removes", func(t *testing.T) {
		ts := setupTestServices(t)
		ts.index.removed = 4

		out, _, err := execute(t, "remove", "UC1", "vid1")

		require.NoError(t, err)
		assert.Contains(t, out, "Removed vid1 from UC1 (4 chunks)")
	})

	t.Run("not found", func(t *testing.T) {
		ts := setupTestServices(t)
		ts.index.removeErr = domain.ErrNotFound

		_, _, err := execute(t, "remove", "UC1", "vid1")

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("requires two args", func(t *testing.T) {
		setupTestServices(t)

		_, _, err := execute(t, "remove", "UC1")

		assert.Error(t, err)
	})
}

func TestStatusCmd(t *testing.T) {
	t.Run("global and tenants", func(t *testing.T) {
		ts := setupTestServices(t, domain.Tenant{ID: "UC1"}, domain.Tenant{ID: "UC2"})

		out, _, err := execute(t, "status")

		require.NoError(t, err)
		assert.Equal(t, []string{domain.GlobalStoreID, "UC1", "UC2"}, ts.index.statusIDs)
		assert.Contains(t, out, "not built")
		assert.Contains(t, out, "Stored chunks:   3")
	})

	t.Run("one store as json", func(t *testing.T) {
		ts := setupTestServices(t, domain.Tenant{ID: "UC1"})

		out, _, err := execute(t, "status", "UC1", "--json")

		require.NoError(t, err)
		assert.Equal(t, []string{"UC1"}, ts.index.statusIDs)
		var statuses []domain.IndexStatus
		require.NoError(t, json.Unmarshal([]byte(out), &statuses))
		require.Len(t, statuses, 1)
		assert.Equal(t, "UC1", statuses[0].StoreID)
	})
}
