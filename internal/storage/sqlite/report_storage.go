package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/daybook/internal/common"
	"github.com/ternarybob/daybook/internal/interfaces"
	"github.com/ternarybob/daybook/internal/models"
)

// reportColumns are the columns the writer depends on. ValidateSchema checks
// the live table against this list at startup.
var reportColumns = []string{
	"symbol",
	"business_date",
	"payload",
	"pdf_storage_key",
	"computed_at",
	"created_at",
	"updated_at",
}

// ReportStorage implements interfaces.ReportStorage
type ReportStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewReportStorage creates a new report storage instance
func NewReportStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.ReportStorage {
	return &ReportStorage{
		db:     db,
		logger: logger,
	}
}

// Upsert writes or replaces the row for (symbol, business_date) and surfaces
// the affected-row count. The caller treats zero rows affected as a failure;
// this layer only reports it. An empty pdf_storage_key on the incoming row
// never clobbers a key already attached to the existing row.
func (r *ReportStorage) Upsert(ctx context.Context, row *models.ReportRow) (models.WriteOutcome, error) {
	if row.Symbol == "" || row.BusinessDate.IsZero() {
		return models.WriteOutcome{}, fmt.Errorf("report row missing key: symbol=%q business_date=%q", row.Symbol, row.BusinessDate)
	}

	payloadJSON, err := json.Marshal(row.Payload)
	if err != nil {
		return models.WriteOutcome{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := time.Now().UTC().Unix()
	query := `
		INSERT INTO report_rows (
			symbol, business_date, payload, pdf_storage_key,
			computed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, business_date) DO UPDATE SET
			payload = excluded.payload,
			pdf_storage_key = CASE
				WHEN excluded.pdf_storage_key != '' THEN excluded.pdf_storage_key
				ELSE report_rows.pdf_storage_key
			END,
			computed_at = excluded.computed_at,
			updated_at = excluded.updated_at
	`

	result, err := r.db.db.ExecContext(ctx, query,
		row.Symbol,
		row.BusinessDate.String(),
		string(payloadJSON),
		row.PDFStorageKey,
		row.ComputedAt.Unix(),
		now,
		now,
	)
	if err != nil {
		return models.WriteOutcome{}, fmt.Errorf("failed to upsert report row: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return models.WriteOutcome{}, fmt.Errorf("failed to read rows affected: %w", err)
	}

	r.logger.Debug().
		Str("symbol", row.Symbol).
		Str("business_date", row.BusinessDate.String()).
		Int64("rows_affected", affected).
		Msg("Report row upserted")

	return models.WriteOutcome{RowsAffected: affected}, nil
}

// AttachPDFKey records the artifact key on an existing row. A zero affected
// count here means the row vanished between the payload write and the PDF
// attach; the caller decides how loudly to treat that.
func (r *ReportStorage) AttachPDFKey(ctx context.Context, symbol string, date common.BusinessDate, key string) (models.WriteOutcome, error) {
	query := `
		UPDATE report_rows
		SET pdf_storage_key = ?, updated_at = ?
		WHERE symbol = ? AND business_date = ?
	`

	result, err := r.db.db.ExecContext(ctx, query, key, time.Now().UTC().Unix(), symbol, date.String())
	if err != nil {
		return models.WriteOutcome{}, fmt.Errorf("failed to attach pdf key: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return models.WriteOutcome{}, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return models.WriteOutcome{RowsAffected: affected}, nil
}

// Get returns the row for (symbol, business_date), or models.ErrReportNotFound.
func (r *ReportStorage) Get(ctx context.Context, symbol string, date common.BusinessDate) (*models.ReportRow, error) {
	query := `
		SELECT symbol, business_date, payload, pdf_storage_key, computed_at
		FROM report_rows
		WHERE symbol = ? AND business_date = ?
	`

	var (
		row         models.ReportRow
		dateStr     string
		payloadJSON string
		computedAt  int64
	)

	err := r.db.db.QueryRowContext(ctx, query, symbol, date.String()).Scan(
		&row.Symbol,
		&dateStr,
		&payloadJSON,
		&row.PDFStorageKey,
		&computedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query report row: %w", err)
	}

	if err := json.Unmarshal([]byte(payloadJSON), &row.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload for %s/%s: %w", symbol, dateStr, err)
	}

	row.BusinessDate = common.BusinessDate(dateStr)
	row.ComputedAt = time.Unix(computedAt, 0).UTC()
	return &row, nil
}

// ValidateSchema verifies the live report_rows table carries every column the
// writer depends on. Runs once at startup; a missing column (a known failure
// mode after partial migrations) aborts the process instead of letting writes
// silently no-op later.
func (r *ReportStorage) ValidateSchema(ctx context.Context) error {
	rows, err := r.db.db.QueryContext(ctx, "PRAGMA table_info(report_rows)")
	if err != nil {
		return fmt.Errorf("failed to inspect report_rows schema: %w", err)
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return fmt.Errorf("failed to scan table info: %w", err)
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read table info: %w", err)
	}

	if len(present) == 0 {
		return errors.New("report_rows table does not exist")
	}

	var missing []string
	for _, col := range reportColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("report_rows schema is missing columns %v; refusing to start", missing)
	}

	r.logger.Info().Int("columns", len(present)).Msg("Report store schema validated")
	return nil
}

// Close closes the underlying database
func (r *ReportStorage) Close() error {
	return r.db.Close()
}
