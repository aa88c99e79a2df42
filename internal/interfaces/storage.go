// Package interfaces declares the service contracts wired together in app
// startup. Implementations live in their own packages; consumers depend on
// these interfaces only.
package interfaces

import (
	"context"

	"github.com/ternarybob/daybook/internal/common"
	"github.com/ternarybob/daybook/internal/models"
)

// ReportStorage is the durable store of computed reports, keyed by
// (symbol, business_date).
type ReportStorage interface {
	// Upsert writes or replaces the row for the report's key and returns how
	// many rows the write affected. Zero rows affected without an error means
	// the write no-oped; callers must treat that as a failure.
	Upsert(ctx context.Context, row *models.ReportRow) (models.WriteOutcome, error)

	// AttachPDFKey records the artifact storage key on an existing row
	// without touching its payload.
	AttachPDFKey(ctx context.Context, symbol string, date common.BusinessDate, key string) (models.WriteOutcome, error)

	// Get returns the row for the key, or models.ErrReportNotFound.
	Get(ctx context.Context, symbol string, date common.BusinessDate) (*models.ReportRow, error)

	// ValidateSchema verifies the live table shape matches what the writer
	// expects. Called once at startup so drift fails loudly, not silently.
	ValidateSchema(ctx context.Context) error

	Close() error
}

// BatchStorage persists batch run records for history and restart recovery.
type BatchStorage interface {
	SaveBatch(batch *models.BatchRun) error
	GetBatch(id string) (*models.BatchRun, error)

	// ListRecent returns up to limit batches, newest first.
	ListRecent(limit int) ([]*models.BatchRun, error)

	// FailOrphanedRuns marks runs still pending or running as failed.
	// Called at startup; such runs can only be leftovers from a crash.
	FailOrphanedRuns() (int, error)

	Close() error
}

// ArtifactStorage stores rendered report artifacts (PDFs) under opaque keys.
type ArtifactStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}
