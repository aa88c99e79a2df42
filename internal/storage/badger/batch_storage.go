package badger

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/daybook/internal/interfaces"
	"github.com/ternarybob/daybook/internal/models"
)

// BatchStorage implements interfaces.BatchStorage over badgerhold.
type BatchStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewBatchStorage creates a new batch storage instance
func NewBatchStorage(db *BadgerDB, logger arbor.ILogger) interfaces.BatchStorage {
	return &BatchStorage{
		db:     db,
		logger: logger,
	}
}

// SaveBatch inserts or replaces a batch run record.
func (b *BatchStorage) SaveBatch(batch *models.BatchRun) error {
	if batch.ID == "" {
		return errors.New("batch has no ID")
	}
	if err := b.db.store.Upsert(batch.ID, batch); err != nil {
		return fmt.Errorf("failed to save batch %s: %w", batch.ID, err)
	}
	return nil
}

// GetBatch returns the batch run with the given ID.
func (b *BatchStorage) GetBatch(id string) (*models.BatchRun, error) {
	var batch models.BatchRun
	if err := b.db.store.Get(id, &batch); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("batch %s not found", id)
		}
		return nil, fmt.Errorf("failed to get batch %s: %w", id, err)
	}
	return &batch, nil
}

// ListRecent returns up to limit batch runs, newest first.
func (b *BatchStorage) ListRecent(limit int) ([]*models.BatchRun, error) {
	var batches []*models.BatchRun
	if err := b.db.store.Find(&batches, nil); err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}

	sort.Slice(batches, func(i, j int) bool {
		return batches[i].CreatedAt.After(batches[j].CreatedAt)
	})

	if limit > 0 && len(batches) > limit {
		batches = batches[:limit]
	}
	return batches, nil
}

// FailOrphanedRuns marks batches still pending or running as failed. Called
// once at startup; non-terminal batches can only be leftovers from a crash.
func (b *BatchStorage) FailOrphanedRuns() (int, error) {
	var orphans []*models.BatchRun
	query := badgerhold.Where("Status").In(
		models.BatchStatusPending,
		models.BatchStatusRunning,
	)
	if err := b.db.store.Find(&orphans, query); err != nil {
		return 0, fmt.Errorf("failed to find orphaned batches: %w", err)
	}

	for _, batch := range orphans {
		batch.Status = models.BatchStatusFailed
		batch.FinishedAt = time.Now().UTC()
		if err := b.db.store.Upsert(batch.ID, batch); err != nil {
			return 0, fmt.Errorf("failed to fail orphaned batch %s: %w", batch.ID, err)
		}
		b.logger.Warn().
			Str("batch_id", batch.ID).
			Str("business_date", batch.BusinessDate.String()).
			Msg("Marked orphaned batch as failed")
	}

	return len(orphans), nil
}

// Close closes the underlying store
func (b *BatchStorage) Close() error {
	return b.db.Close()
}
