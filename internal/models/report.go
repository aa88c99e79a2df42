package models

import (
	"errors"
	"time"

	"github.com/ternarybob/daybook/internal/common"
)

// ErrReportNotFound is returned by the report store when no row exists for a
// (symbol, business_date) key. Callers distinguish this from storage failures
// with errors.Is.
var ErrReportNotFound = errors.New("report not found")

// Headline is one news item attached to a report.
type Headline struct {
	Title       string    `json:"title"`
	Source      string    `json:"source,omitempty"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// ReportPayload is the structured content of one daily report. It is stored
// as JSON so the serving layer is not coupled to this field set.
type ReportPayload struct {
	CompanyName   string     `json:"company_name"`
	Exchange      string     `json:"exchange"`
	Close         float64    `json:"close"`
	PreviousClose float64    `json:"previous_close"`
	ChangePercent float64    `json:"change_percent"`
	Volume        int64      `json:"volume"`
	High          float64    `json:"high"` // Window high over the fetched history
	Low           float64    `json:"low"`  // Window low over the fetched history
	Headlines     []Headline `json:"headlines,omitempty"`
	Summary       string     `json:"summary"` // Markdown summary, source for the PDF artifact
}

// ReportRow is one computed report for one (symbol, business_date) pair.
// Symbol is always the canonical spelling; BusinessDate is supplied by the
// batch that owns the row and never derived from a worker-local clock.
type ReportRow struct {
	Symbol        string              `json:"symbol"`
	BusinessDate  common.BusinessDate `json:"business_date"`
	Payload       ReportPayload       `json:"payload"`
	PDFStorageKey string              `json:"pdf_storage_key,omitempty"`
	ComputedAt    time.Time           `json:"computed_at"`
}

// WriteOutcome reports what a store write actually did. RowsAffected of zero
// on an upsert means the write silently no-oped and must be treated as a
// failure by the caller, even though no error was raised.
type WriteOutcome struct {
	RowsAffected int64
}

// Applied reports whether the write changed at least one row.
func (w WriteOutcome) Applied() bool {
	return w.RowsAffected > 0
}
