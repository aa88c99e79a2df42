package sqlite

import "fmt"

// report_rows holds one computed report per (symbol, business_date). The
// payload column is JSON; business_date is the canonical YYYY-MM-DD string
// so the key survives timezone-free.
const schemaReportRows = `
CREATE TABLE IF NOT EXISTS report_rows (
	symbol          TEXT NOT NULL,
	business_date   TEXT NOT NULL,
	payload         TEXT NOT NULL,
	pdf_storage_key TEXT NOT NULL DEFAULT '',
	computed_at     INTEGER NOT NULL,
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL,
	PRIMARY KEY (symbol, business_date)
);

CREATE INDEX IF NOT EXISTS idx_report_rows_business_date
	ON report_rows(business_date);
`

// migrate creates the schema if it does not exist
func (s *SQLiteDB) migrate() error {
	if _, err := s.db.Exec(schemaReportRows); err != nil {
		return fmt.Errorf("failed to create report_rows table: %w", err)
	}
	return nil
}
