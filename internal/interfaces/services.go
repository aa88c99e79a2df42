package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/daybook/internal/common"
	"github.com/ternarybob/daybook/internal/marketdata"
	"github.com/ternarybob/daybook/internal/models"
)

// TickerResolver maps symbol spellings to ticker identities.
type TickerResolver interface {
	// Resolve looks up an input in any symbol representation. A miss is a
	// normal result carried in the Resolution, not an error.
	Resolve(input string) models.Resolution

	// ToYahoo and ToDR translate between symbol conventions. They return
	// false when the input does not resolve or the target spelling is empty.
	ToYahoo(input string) (string, bool)
	ToDR(input string) (string, bool)

	// Universe returns every identity in the resolver's universe.
	Universe() []models.TickerIdentity
}

// MarketDataService fetches price history and news for a symbol.
type MarketDataService interface {
	GetEOD(ctx context.Context, symbol string, from, to time.Time) ([]marketdata.EODBar, error)
	GetNews(ctx context.Context, symbol string, from time.Time, limit int) ([]marketdata.NewsItem, error)
}

// PDFService renders markdown into a PDF document.
type PDFService interface {
	ConvertMarkdownToPDF(markdown, title string) ([]byte, error)
}

// ReportWorker computes and persists the report for one symbol. The business
// date is always supplied by the caller; workers never consult a local clock
// to derive it.
type ReportWorker interface {
	Run(ctx context.Context, symbol string, date common.BusinessDate) models.WorkerResult
}

// BatchOrchestrator fans a batch out across workers and finalizes it.
type BatchOrchestrator interface {
	Run(ctx context.Context, batch *models.BatchRun) (*models.BatchRun, error)
}

// SchedulerService manages registered cron jobs.
type SchedulerService interface {
	Start() error
	Stop()
	RegisterJob(name, schedule string, handler func()) error
	TriggerJob(name string) error
}
