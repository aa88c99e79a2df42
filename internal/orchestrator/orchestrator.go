// Package orchestrator fans a batch run out across report workers and
// aggregates their results.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/daybook/internal/common"
	"github.com/ternarybob/daybook/internal/interfaces"
	"github.com/ternarybob/daybook/internal/models"
)

// Orchestrator runs every ticker of a batch through the worker concurrently
// and collects per-symbol results. Worker failures stay isolated: each one
// lands in its result slot and the batch keeps going.
type Orchestrator struct {
	worker        interfaces.ReportWorker
	batches       interfaces.BatchStorage
	logger        arbor.ILogger
	batchTimeout  time.Duration
	workerTimeout time.Duration
}

// Compile-time assertion
var _ interfaces.BatchOrchestrator = (*Orchestrator)(nil)

// New creates a batch orchestrator.
func New(worker interfaces.ReportWorker, batches interfaces.BatchStorage, logger arbor.ILogger, batchTimeout, workerTimeout time.Duration) *Orchestrator {
	if batchTimeout <= 0 {
		batchTimeout = 30 * time.Minute
	}
	if workerTimeout <= 0 {
		workerTimeout = 5 * time.Minute
	}
	return &Orchestrator{
		worker:        worker,
		batches:       batches,
		logger:        logger,
		batchTimeout:  batchTimeout,
		workerTimeout: workerTimeout,
	}
}

// Run executes the batch to a terminal status. Every worker receives the
// batch's business date unchanged. Results are persisted as they arrive;
// symbols still outstanding when the batch timeout fires are recorded as
// failed without waiting for their goroutines.
func (o *Orchestrator) Run(ctx context.Context, batch *models.BatchRun) (*models.BatchRun, error) {
	if len(batch.Tickers) == 0 {
		return nil, fmt.Errorf("batch %s has no tickers", batch.ID)
	}
	if batch.BusinessDate.IsZero() {
		return nil, fmt.Errorf("batch %s has no business date", batch.ID)
	}

	batch.Status = models.BatchStatusRunning
	batch.StartedAt = time.Now().UTC()
	if batch.WorkerResults == nil {
		batch.WorkerResults = make(map[string]models.WorkerResult, len(batch.Tickers))
	}
	if err := o.batches.SaveBatch(batch); err != nil {
		return nil, fmt.Errorf("failed to persist batch start: %w", err)
	}

	o.logger.Info().
		Str("batch_id", batch.ID).
		Str("business_date", batch.BusinessDate.String()).
		Int("tickers", len(batch.Tickers)).
		Msg("Batch started")

	ctx, cancel := context.WithTimeout(ctx, o.batchTimeout)
	defer cancel()

	results := make(chan models.WorkerResult, len(batch.Tickers))
	for _, symbol := range batch.Tickers {
		go o.runWorker(ctx, symbol, batch.BusinessDate, results)
	}

	pending := len(batch.Tickers)
collect:
	for pending > 0 {
		select {
		case result := <-results:
			o.record(batch, result)
			pending--
		case <-ctx.Done():
			break collect
		}
	}

	// Anything still outstanding after the deadline is failed in place.
	for _, symbol := range batch.Tickers {
		if _, done := batch.WorkerResults[symbol]; !done {
			o.record(batch, models.FailedResult(symbol, "timed out waiting for worker", o.batchTimeout))
		}
	}

	batch.Finalize()
	if err := o.batches.SaveBatch(batch); err != nil {
		return nil, fmt.Errorf("failed to persist batch result: %w", err)
	}

	succeeded, failed := batch.Counts()
	o.logger.Info().
		Str("batch_id", batch.ID).
		Str("status", string(batch.Status)).
		Int("succeeded", succeeded).
		Int("failed", failed).
		Msg("Batch finished")

	return batch, nil
}

// runWorker executes one worker under its own timeout and converts panics
// into failed results so a bad symbol cannot take down the batch.
func (o *Orchestrator) runWorker(ctx context.Context, symbol string, date common.BusinessDate, results chan<- models.WorkerResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().
				Str("symbol", symbol).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Worker panicked")
			results <- models.FailedResult(symbol, fmt.Sprintf("worker panicked: %v", r), time.Since(start))
		}
	}()

	workerCtx, cancel := context.WithTimeout(ctx, o.workerTimeout)
	defer cancel()

	results <- o.worker.Run(workerCtx, symbol, date)
}

// record writes a result into its slot exactly once and persists progress.
// A duplicate result for a symbol is a bug upstream; keep the first and warn.
func (o *Orchestrator) record(batch *models.BatchRun, result models.WorkerResult) {
	if prev, exists := batch.WorkerResults[result.Symbol]; exists {
		o.logger.Warn().
			Str("batch_id", batch.ID).
			Str("symbol", result.Symbol).
			Str("kept", string(prev.Outcome)).
			Str("dropped", string(result.Outcome)).
			Msg("Duplicate worker result ignored")
		return
	}
	batch.WorkerResults[result.Symbol] = result

	if result.Outcome == models.WorkerFailed {
		o.logger.Warn().
			Str("batch_id", batch.ID).
			Str("symbol", result.Symbol).
			Str("reason", result.Reason).
			Msg("Worker failed")
	}

	if err := o.batches.SaveBatch(batch); err != nil {
		o.logger.Warn().
			Str("batch_id", batch.ID).
			Err(err).
			Msg("Failed to persist batch progress")
	}
}
