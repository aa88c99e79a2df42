package badger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/daybook/internal/common"
	"github.com/ternarybob/daybook/internal/interfaces"
	"github.com/ternarybob/daybook/internal/models"
)

func testBatchStore(t *testing.T) interfaces.BatchStorage {
	t.Helper()

	cfg := &common.BadgerConfig{
		Path:           t.TempDir(),
		ResetOnStartup: false,
	}

	db, err := NewBadgerDB(common.GetLogger(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewBatchStorage(db, common.GetLogger())
}

func TestSaveAndGetBatch(t *testing.T) {
	store := testBatchStore(t)

	batch := models.NewBatchRun("2026-01-03", []string{"NVDA", "D05.SI"}, "schedule")
	require.NoError(t, store.SaveBatch(batch))

	got, err := store.GetBatch(batch.ID)
	require.NoError(t, err)
	assert.Equal(t, batch.ID, got.ID)
	assert.Equal(t, common.BusinessDate("2026-01-03"), got.BusinessDate)
	assert.Equal(t, models.BatchStatusPending, got.Status)
	assert.Equal(t, []string{"NVDA", "D05.SI"}, got.Tickers)
}

func TestSaveBatchRequiresID(t *testing.T) {
	store := testBatchStore(t)

	err := store.SaveBatch(&models.BatchRun{})
	assert.Error(t, err)
}

func TestGetBatchMissing(t *testing.T) {
	store := testBatchStore(t)

	_, err := store.GetBatch("batch_missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSaveBatchOverwritesExisting(t *testing.T) {
	store := testBatchStore(t)

	batch := models.NewBatchRun("2026-01-03", []string{"NVDA"}, "schedule")
	require.NoError(t, store.SaveBatch(batch))

	batch.Status = models.BatchStatusRunning
	batch.WorkerResults["NVDA"] = models.SucceededResult("NVDA", false, time.Second)
	require.NoError(t, store.SaveBatch(batch))

	got, err := store.GetBatch(batch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusRunning, got.Status)
	require.Contains(t, got.WorkerResults, "NVDA")
	assert.Equal(t, models.WorkerSucceeded, got.WorkerResults["NVDA"].Outcome)
}

func TestListRecentNewestFirst(t *testing.T) {
	store := testBatchStore(t)

	older := models.NewBatchRun("2026-01-02", []string{"NVDA"}, "schedule")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.SaveBatch(older))

	newer := models.NewBatchRun("2026-01-03", []string{"NVDA"}, "schedule")
	require.NoError(t, store.SaveBatch(newer))

	batches, err := store.ListRecent(10)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, newer.ID, batches[0].ID)
	assert.Equal(t, older.ID, batches[1].ID)

	limited, err := store.ListRecent(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, newer.ID, limited[0].ID)
}

func TestFailOrphanedRuns(t *testing.T) {
	store := testBatchStore(t)

	running := models.NewBatchRun("2026-01-03", []string{"NVDA"}, "schedule")
	running.Status = models.BatchStatusRunning
	require.NoError(t, store.SaveBatch(running))

	pending := models.NewBatchRun("2026-01-03", []string{"D05.SI"}, "manual")
	require.NoError(t, store.SaveBatch(pending))

	done := models.NewBatchRun("2026-01-02", []string{"NVDA"}, "schedule")
	done.Status = models.BatchStatusCompleted
	require.NoError(t, store.SaveBatch(done))

	count, err := store.FailOrphanedRuns()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	for _, id := range []string{running.ID, pending.ID} {
		got, err := store.GetBatch(id)
		require.NoError(t, err)
		assert.Equal(t, models.BatchStatusFailed, got.Status)
		assert.False(t, got.FinishedAt.IsZero())
	}

	untouched, err := store.GetBatch(done.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusCompleted, untouched.Status)
}
