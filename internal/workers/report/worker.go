// Package report implements the per-ticker report worker.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/daybook/internal/artifacts"
	"github.com/ternarybob/daybook/internal/common"
	"github.com/ternarybob/daybook/internal/interfaces"
	"github.com/ternarybob/daybook/internal/marketdata"
	"github.com/ternarybob/daybook/internal/models"
)

// newsLookbackDays bounds how far back the news fetch reaches.
const newsLookbackDays = 7

// Worker computes and persists the report for a single symbol. Each Run is
// an isolated failure domain: an error for one symbol never propagates past
// its WorkerResult.
type Worker struct {
	resolver    interfaces.TickerResolver
	market      interfaces.MarketDataService
	reports     interfaces.ReportStorage
	pdf         interfaces.PDFService
	artifacts   interfaces.ArtifactStorage
	logger      arbor.ILogger
	loc         *time.Location
	historyDays int
	pdfEnabled  bool
}

// Compile-time assertion
var _ interfaces.ReportWorker = (*Worker)(nil)

// NewWorker creates a report worker.
func NewWorker(
	resolver interfaces.TickerResolver,
	market interfaces.MarketDataService,
	reports interfaces.ReportStorage,
	pdfService interfaces.PDFService,
	artifactStore interfaces.ArtifactStorage,
	logger arbor.ILogger,
	loc *time.Location,
	historyDays int,
	pdfEnabled bool,
) *Worker {
	if historyDays <= 0 {
		historyDays = 30
	}
	return &Worker{
		resolver:    resolver,
		market:      market,
		reports:     reports,
		pdf:         pdfService,
		artifacts:   artifactStore,
		logger:      logger,
		loc:         loc,
		historyDays: historyDays,
		pdfEnabled:  pdfEnabled,
	}
}

// Run computes the report for one symbol on the given business date. The
// date is taken as-is from the caller; the worker never derives it from its
// own clock. The report row is the primary output: once it is written, PDF
// rendering or upload failures degrade the result instead of failing it.
func (w *Worker) Run(ctx context.Context, symbol string, date common.BusinessDate) models.WorkerResult {
	start := time.Now()

	res := w.resolver.Resolve(symbol)
	if !res.Found() {
		reason := fmt.Sprintf("unknown ticker %q", symbol)
		if res.Ambiguous() {
			reason = fmt.Sprintf("ambiguous ticker %q (%d candidates)", symbol, len(res.Candidates))
		}
		return models.FailedResult(symbol, reason, time.Since(start))
	}
	identity := *res.Identity
	canonical := identity.Canonical()

	bars, err := w.fetchBars(ctx, canonical, date)
	if err != nil {
		return models.FailedResult(symbol, err.Error(), time.Since(start))
	}

	news := w.fetchNews(ctx, canonical, date)

	payload, err := BuildPayload(identity, date, bars, news)
	if err != nil {
		return models.FailedResult(symbol, err.Error(), time.Since(start))
	}

	row := &models.ReportRow{
		Symbol:       canonical,
		BusinessDate: date,
		Payload:      payload,
		ComputedAt:   time.Now().UTC(),
	}

	outcome, err := w.reports.Upsert(ctx, row)
	if err != nil {
		return models.FailedResult(symbol, fmt.Sprintf("report upsert failed: %v", err), time.Since(start))
	}
	if !outcome.Applied() {
		// No error but nothing written: the row the batch depends on does
		// not exist, so this run cannot count as a success.
		return models.FailedResult(symbol, "report upsert affected zero rows", time.Since(start))
	}

	pdfDegraded := false
	if w.pdfEnabled {
		pdfDegraded = !w.attachPDF(ctx, canonical, date, payload)
	}

	w.logger.Info().
		Str("symbol", canonical).
		Str("business_date", date.String()).
		Bool("pdf_degraded", pdfDegraded).
		Msg("Report computed")

	return models.SucceededResult(symbol, pdfDegraded, time.Since(start))
}

// fetchBars loads the price window ending on the business date.
func (w *Worker) fetchBars(ctx context.Context, symbol string, date common.BusinessDate) ([]marketdata.EODBar, error) {
	to, err := date.Time(w.loc)
	if err != nil {
		return nil, fmt.Errorf("invalid business date: %w", err)
	}
	from := to.AddDate(0, 0, -w.historyDays)

	bars, err := w.market.GetEOD(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("price fetch failed: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no price bars for %s up to %s", symbol, date.String())
	}
	return bars, nil
}

// fetchNews loads recent headlines. News is supplementary: a failure here
// degrades the report to price-only rather than failing the worker.
func (w *Worker) fetchNews(ctx context.Context, symbol string, date common.BusinessDate) []marketdata.NewsItem {
	to, err := date.Time(w.loc)
	if err != nil {
		return nil
	}
	from := to.AddDate(0, 0, -newsLookbackDays)

	news, err := w.market.GetNews(ctx, symbol, from, maxHeadlines)
	if err != nil {
		w.logger.Warn().
			Str("symbol", symbol).
			Err(err).
			Msg("News fetch failed, continuing without headlines")
		return nil
	}
	return news
}

// attachPDF renders, uploads, and records the PDF artifact for a written
// report row. Returns false when any step fails; the row itself stays valid.
func (w *Worker) attachPDF(ctx context.Context, symbol string, date common.BusinessDate, payload models.ReportPayload) bool {
	title := fmt.Sprintf("%s %s", symbol, date.String())

	data, err := w.pdf.ConvertMarkdownToPDF(payload.Summary, title)
	if err != nil {
		w.logger.Warn().Str("symbol", symbol).Err(err).Msg("PDF render failed, report degraded")
		return false
	}

	key := artifacts.PDFKey(symbol, date)
	if err := w.artifacts.Put(ctx, key, data, artifacts.PDFContentType); err != nil {
		w.logger.Warn().Str("symbol", symbol).Err(err).Msg("PDF upload failed, report degraded")
		return false
	}

	outcome, err := w.reports.AttachPDFKey(ctx, symbol, date, key)
	if err != nil || !outcome.Applied() {
		w.logger.Warn().Str("symbol", symbol).Err(err).Msg("PDF key attach failed, report degraded")
		return false
	}

	return true
}
