package models

import (
	"time"

	"github.com/ternarybob/daybook/internal/common"
)

// BatchStatus is the lifecycle state of a precompute batch run.
type BatchStatus string

const (
	BatchStatusPending         BatchStatus = "pending"
	BatchStatusRunning         BatchStatus = "running"
	BatchStatusCompleted       BatchStatus = "completed"
	BatchStatusPartiallyFailed BatchStatus = "partially_failed"
	BatchStatusFailed          BatchStatus = "failed"
)

// WorkerOutcome is the terminal state of one worker run within a batch.
type WorkerOutcome string

const (
	WorkerSucceeded WorkerOutcome = "succeeded"
	WorkerFailed    WorkerOutcome = "failed"
)

// WorkerResult is the per-symbol outcome of a batch. A failed result carries
// a human-readable reason; a succeeded result may still flag PDFDegraded when
// the report row was written but its PDF artifact could not be produced.
type WorkerResult struct {
	Symbol      string        `json:"symbol"`
	Outcome     WorkerOutcome `json:"outcome"`
	Reason      string        `json:"reason,omitempty"`
	PDFDegraded bool          `json:"pdf_degraded,omitempty"`
	Duration    time.Duration `json:"duration"`
	CompletedAt time.Time     `json:"completed_at"`
}

// SucceededResult builds a successful worker result.
func SucceededResult(symbol string, pdfDegraded bool, duration time.Duration) WorkerResult {
	return WorkerResult{
		Symbol:      symbol,
		Outcome:     WorkerSucceeded,
		PDFDegraded: pdfDegraded,
		Duration:    duration,
		CompletedAt: time.Now().UTC(),
	}
}

// FailedResult builds a failed worker result with a reason.
func FailedResult(symbol, reason string, duration time.Duration) WorkerResult {
	return WorkerResult{
		Symbol:      symbol,
		Outcome:     WorkerFailed,
		Reason:      reason,
		Duration:    duration,
		CompletedAt: time.Now().UTC(),
	}
}

// BatchRun is one execution of the precompute pipeline over a set of tickers.
// All workers in the run share the same BusinessDate, fixed when the run is
// created. Persisted in the batch store for history and restart recovery.
type BatchRun struct {
	ID            string                  `json:"id" badgerhold:"key"`
	BusinessDate  common.BusinessDate     `json:"business_date"`
	Tickers       []string                `json:"tickers"`
	Status        BatchStatus             `json:"status" badgerhold:"index"`
	WorkerResults map[string]WorkerResult `json:"worker_results"`
	TriggerSource string                  `json:"trigger_source"`
	CreatedAt     time.Time               `json:"created_at" badgerhold:"index"`
	StartedAt     time.Time               `json:"started_at,omitempty"`
	FinishedAt    time.Time               `json:"finished_at,omitempty"`
}

// NewBatchRun builds a pending batch over the given tickers.
func NewBatchRun(businessDate common.BusinessDate, tickers []string, triggerSource string) *BatchRun {
	return &BatchRun{
		ID:            common.NewBatchID(),
		BusinessDate:  businessDate,
		Tickers:       tickers,
		Status:        BatchStatusPending,
		WorkerResults: make(map[string]WorkerResult, len(tickers)),
		TriggerSource: triggerSource,
		CreatedAt:     time.Now().UTC(),
	}
}

// Counts returns how many worker results succeeded and failed so far.
func (b *BatchRun) Counts() (succeeded, failed int) {
	for _, r := range b.WorkerResults {
		if r.Outcome == WorkerSucceeded {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// Finalize sets the terminal status from the collected worker results and
// stamps FinishedAt. A batch where every worker succeeded is completed; a mix
// is partially_failed; all failures (or no results at all) is failed.
func (b *BatchRun) Finalize() {
	succeeded, failed := b.Counts()
	switch {
	case failed == 0 && succeeded > 0:
		b.Status = BatchStatusCompleted
	case succeeded > 0:
		b.Status = BatchStatusPartiallyFailed
	default:
		b.Status = BatchStatusFailed
	}
	b.FinishedAt = time.Now().UTC()
}

// IsTerminal reports whether the batch has reached a final status.
func (b *BatchRun) IsTerminal() bool {
	switch b.Status {
	case BatchStatusCompleted, BatchStatusPartiallyFailed, BatchStatusFailed:
		return true
	}
	return false
}
