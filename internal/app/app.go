// Package app wires the service together: storage, resolver, market data,
// workers, orchestrator, controller, and scheduler.
package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/daybook/internal/artifacts"
	"github.com/ternarybob/daybook/internal/common"
	"github.com/ternarybob/daybook/internal/controller"
	"github.com/ternarybob/daybook/internal/interfaces"
	"github.com/ternarybob/daybook/internal/marketdata"
	"github.com/ternarybob/daybook/internal/orchestrator"
	"github.com/ternarybob/daybook/internal/resolver"
	"github.com/ternarybob/daybook/internal/scheduler"
	"github.com/ternarybob/daybook/internal/services/pdf"
	badgerstore "github.com/ternarybob/daybook/internal/storage/badger"
	"github.com/ternarybob/daybook/internal/storage/sqlite"
	"github.com/ternarybob/daybook/internal/workers/report"
)

// precomputeJobName is the scheduler entry for the daily run.
const precomputeJobName = "daily-precompute"

// App holds the wired service graph.
type App struct {
	Config     *common.Config
	Logger     arbor.ILogger
	Reports    interfaces.ReportStorage
	Batches    interfaces.BatchStorage
	Controller *controller.Controller
	Scheduler  *scheduler.Service

	sqliteDB *sqlite.SQLiteDB
	badgerDB *badgerstore.BadgerDB
}

// New builds the application. Everything that can be validated at startup is
// validated here; a misconfigured or schema-drifted deployment refuses to
// come up instead of failing on the first scheduled run.
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	sqliteDB, err := sqlite.NewSQLiteDB(logger, &cfg.Storage.SQLite)
	if err != nil {
		return nil, fmt.Errorf("report store: %w", err)
	}
	reports := sqlite.NewReportStorage(sqliteDB, logger)
	if err := reports.ValidateSchema(ctx); err != nil {
		sqliteDB.Close()
		return nil, fmt.Errorf("report store: %w", err)
	}

	badgerDB, err := badgerstore.NewBadgerDB(logger, &cfg.Storage.Badger)
	if err != nil {
		sqliteDB.Close()
		return nil, fmt.Errorf("batch store: %w", err)
	}
	batches := badgerstore.NewBatchStorage(badgerDB, logger)

	if orphans, err := batches.FailOrphanedRuns(); err != nil {
		logger.Warn().Err(err).Msg("Failed to clean up orphaned batches")
	} else if orphans > 0 {
		logger.Info().Int("count", orphans).Msg("Orphaned batches from previous run marked failed")
	}

	if recent, err := batches.ListRecent(1); err == nil && len(recent) > 0 {
		logger.Info().
			Str("batch_id", recent[0].ID).
			Str("business_date", recent[0].BusinessDate.String()).
			Str("status", string(recent[0].Status)).
			Msg("Most recent batch run")
	}

	tickerResolver, err := resolver.NewFromFile(cfg.Resolver.UniverseFile)
	if err != nil {
		badgerDB.Close()
		sqliteDB.Close()
		return nil, fmt.Errorf("ticker universe: %w", err)
	}

	client := marketdata.NewClient(cfg.MarketData.APIKey,
		marketdata.WithBaseURL(cfg.MarketData.BaseURL),
		marketdata.WithRateLimit(cfg.MarketData.RateLimit),
		marketdata.WithTimeout(cfg.MarketData.Timeout.Std()),
		marketdata.WithLogger(logger),
	)
	market := marketdata.NewService(client, logger, cfg.MarketData.MaxRetries, cfg.MarketData.RetryBackoff.Std())

	artifactStore, err := newArtifactStorage(ctx, cfg, logger)
	if err != nil {
		badgerDB.Close()
		sqliteDB.Close()
		return nil, fmt.Errorf("artifact store: %w", err)
	}

	worker := report.NewWorker(
		tickerResolver,
		market,
		reports,
		pdf.NewService(logger),
		artifactStore,
		logger,
		loc,
		cfg.Precompute.HistoryDays,
		cfg.Precompute.PDFEnabled,
	)

	orch := orchestrator.New(worker, batches, logger, cfg.Precompute.BatchTimeout.Std(), cfg.Precompute.WorkerTimeout.Std())

	ctrl, err := controller.New(orch, tickerResolver, logger, loc, cfg.Precompute.BatchTimeout.Std())
	if err != nil {
		badgerDB.Close()
		sqliteDB.Close()
		return nil, fmt.Errorf("controller: %w", err)
	}

	sched := scheduler.NewService(logger, loc)
	if err := sched.RegisterJob(precomputeJobName, cfg.Precompute.Schedule, func() {
		// Fire-and-forget: the handler only admits the batch. Completion is
		// tracked on the invocation, not the schedule fire.
		invocation, err := ctrl.Trigger("schedule")
		if err != nil {
			logger.Error().Err(err).Msg("Scheduled precompute trigger rejected")
			return
		}
		logger.Info().
			Str("invocation_id", invocation.ID).
			Str("business_date", invocation.BusinessDate.String()).
			Msg("Scheduled precompute accepted")
	}); err != nil {
		badgerDB.Close()
		sqliteDB.Close()
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	return &App{
		Config:     cfg,
		Logger:     logger,
		Reports:    reports,
		Batches:    batches,
		Controller: ctrl,
		Scheduler:  sched,
		sqliteDB:   sqliteDB,
		badgerDB:   badgerDB,
	}, nil
}

func newArtifactStorage(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (interfaces.ArtifactStorage, error) {
	switch cfg.Artifacts.Backend {
	case "s3":
		return artifacts.NewS3Storage(ctx, &cfg.Artifacts.S3, logger)
	case "filesystem":
		return artifacts.NewFilesystemStorage(cfg.Artifacts.Filesystem.Dir, logger)
	default:
		return nil, fmt.Errorf("unknown artifacts backend %q", cfg.Artifacts.Backend)
	}
}

// Start begins the scheduler.
func (a *App) Start() error {
	return a.Scheduler.Start()
}

// Close stops the scheduler, waits for in-flight batches, and closes stores.
func (a *App) Close() {
	a.Scheduler.Stop()
	a.Controller.Wait()

	if err := a.badgerDB.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close batch store")
	}
	if err := a.sqliteDB.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close report store")
	}
}
