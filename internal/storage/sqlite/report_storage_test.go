package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/daybook/internal/common"
	"github.com/ternarybob/daybook/internal/interfaces"
	"github.com/ternarybob/daybook/internal/models"
)

func testStore(t *testing.T) (interfaces.ReportStorage, *SQLiteDB) {
	t.Helper()

	cfg := &common.SQLiteConfig{
		Path:          filepath.Join(t.TempDir(), "reports.db"),
		CacheSizeMB:   16,
		BusyTimeoutMS: 5000,
		WALMode:       false,
	}

	db, err := NewSQLiteDB(common.GetLogger(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewReportStorage(db, common.GetLogger()), db
}

func testRow(symbol string, date common.BusinessDate, close float64) *models.ReportRow {
	return &models.ReportRow{
		Symbol:       symbol,
		BusinessDate: date,
		Payload: models.ReportPayload{
			CompanyName:   "Test Corp",
			Close:         close,
			PreviousClose: close - 1,
			ChangePercent: 1.0,
			Volume:        1000,
			Summary:       "# Daily Report",
		},
		ComputedAt: time.Now().UTC(),
	}
}

func TestUpsertInsertsAndReportsAffectedRows(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()

	outcome, err := store.Upsert(ctx, testRow("NVDA", "2026-01-03", 100))
	require.NoError(t, err)
	assert.True(t, outcome.Applied())
	assert.Equal(t, int64(1), outcome.RowsAffected)
}

func TestUpsertTwiceKeepsOneRowSecondWriteWins(t *testing.T) {
	store, db := testStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, testRow("NVDA", "2026-01-03", 100))
	require.NoError(t, err)

	outcome, err := store.Upsert(ctx, testRow("NVDA", "2026-01-03", 105))
	require.NoError(t, err)
	assert.True(t, outcome.Applied())

	var count int
	require.NoError(t, db.db.QueryRow("SELECT COUNT(*) FROM report_rows").Scan(&count))
	assert.Equal(t, 1, count)

	row, err := store.Get(ctx, "NVDA", "2026-01-03")
	require.NoError(t, err)
	assert.Equal(t, 105.0, row.Payload.Close)
}

func TestUpsertPreservesPDFKeyWhenIncomingIsEmpty(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()

	first := testRow("NVDA", "2026-01-03", 100)
	first.PDFStorageKey = "reports/NVDA/2026-01-03.pdf"
	_, err := store.Upsert(ctx, first)
	require.NoError(t, err)

	// Re-run without a key must not drop the existing artifact reference
	_, err = store.Upsert(ctx, testRow("NVDA", "2026-01-03", 106))
	require.NoError(t, err)

	row, err := store.Get(ctx, "NVDA", "2026-01-03")
	require.NoError(t, err)
	assert.Equal(t, "reports/NVDA/2026-01-03.pdf", row.PDFStorageKey)
	assert.Equal(t, 106.0, row.Payload.Close)
}

func TestAttachPDFKey(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, testRow("NVDA", "2026-01-03", 100))
	require.NoError(t, err)

	outcome, err := store.AttachPDFKey(ctx, "NVDA", "2026-01-03", "reports/NVDA/2026-01-03.pdf")
	require.NoError(t, err)
	assert.True(t, outcome.Applied())

	row, err := store.Get(ctx, "NVDA", "2026-01-03")
	require.NoError(t, err)
	assert.Equal(t, "reports/NVDA/2026-01-03.pdf", row.PDFStorageKey)
}

func TestAttachPDFKeyOnMissingRowAffectsNothing(t *testing.T) {
	store, _ := testStore(t)

	outcome, err := store.AttachPDFKey(context.Background(), "GHOST", "2026-01-03", "reports/GHOST/2026-01-03.pdf")
	require.NoError(t, err)
	assert.False(t, outcome.Applied())
}

func TestGetMissingRowReturnsNotFound(t *testing.T) {
	store, _ := testStore(t)

	_, err := store.Get(context.Background(), "GHOST", "2026-01-03")
	assert.ErrorIs(t, err, models.ErrReportNotFound)
}

func TestRowsForSameSymbolDifferentDatesCoexist(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, testRow("NVDA", "2026-01-02", 99))
	require.NoError(t, err)
	_, err = store.Upsert(ctx, testRow("NVDA", "2026-01-03", 100))
	require.NoError(t, err)

	older, err := store.Get(ctx, "NVDA", "2026-01-02")
	require.NoError(t, err)
	assert.Equal(t, 99.0, older.Payload.Close)

	newer, err := store.Get(ctx, "NVDA", "2026-01-03")
	require.NoError(t, err)
	assert.Equal(t, 100.0, newer.Payload.Close)
}

func TestUpsertRejectsMissingKey(t *testing.T) {
	store, _ := testStore(t)

	_, err := store.Upsert(context.Background(), &models.ReportRow{Symbol: "NVDA"})
	assert.Error(t, err)

	_, err = store.Upsert(context.Background(), &models.ReportRow{BusinessDate: "2026-01-03"})
	assert.Error(t, err)
}

func TestValidateSchemaPasses(t *testing.T) {
	store, _ := testStore(t)
	assert.NoError(t, store.ValidateSchema(context.Background()))
}

func TestValidateSchemaFailsOnMissingColumn(t *testing.T) {
	store, db := testStore(t)
	ctx := context.Background()

	// Simulate a table created by an older version without the artifact column
	_, err := db.db.Exec("DROP TABLE report_rows")
	require.NoError(t, err)
	_, err = db.db.Exec(`
		CREATE TABLE report_rows (
			symbol        TEXT NOT NULL,
			business_date TEXT NOT NULL,
			payload       TEXT NOT NULL,
			computed_at   INTEGER NOT NULL,
			created_at    INTEGER NOT NULL,
			updated_at    INTEGER NOT NULL,
			PRIMARY KEY (symbol, business_date)
		)
	`)
	require.NoError(t, err)

	err = store.ValidateSchema(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdf_storage_key")
}

func TestValidateSchemaFailsOnMissingTable(t *testing.T) {
	store, db := testStore(t)

	_, err := db.db.Exec("DROP TABLE report_rows")
	require.NoError(t, err)

	assert.Error(t, store.ValidateSchema(context.Background()))
}
