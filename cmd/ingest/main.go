// backend-go/cmd/ingest/main.go
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/wb-unit/backend-go/internal/cache"
	"github.com/wb-unit/backend-go/internal/config"
	"github.com/wb-unit/backend-go/internal/importer"
	"github.com/wb-unit/backend-go/internal/pipeline"
	"github.com/wb-unit/backend-go/internal/repository"
	"github.com/wb-unit/backend-go/internal/repository/postgres"
	"github.com/wb-unit/backend-go/internal/service"
	"github.com/wb-unit/backend-go/internal/wbapi"
	"github.com/wb-unit/backend-go/pkg/logger"
)

// deps is the shared wiring for every subcommand.
type deps struct {
	cfg      *config.Config
	client   *wbapi.Client
	ledger   *repository.LedgerRepository
	costs    *repository.CostsRepository
	batches  *repository.BatchRepository
	managers *repository.ManagerRepository
	tracker  *pipeline.RunTracker
	runner   *pipeline.Runner
	costSvc  *service.CostService
	batchSvc *service.BatchService
	reports  cache.ReportCache
}

func buildDeps(c *cli.Context) (*deps, error) {
	cfg := config.Load()
	if cfg.Wildberries.APIKey == "" {
		return nil, fmt.Errorf("WB_API_KEY is not set")
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ledgerRepo := repository.NewLedgerRepository(db)
	costsRepo := repository.NewCostsRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	managerRepo := repository.NewManagerRepository(db)

	ctx := c.Context
	if err := ledgerRepo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	if err := costsRepo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	if err := batchRepo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	if err := managerRepo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	tracker := pipeline.NewRunTracker(db.DB.DB)
	if err := tracker.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	client := wbapi.NewClient(cfg.Wildberries.APIKey, cfg.Wildberries.RequestTimeout)

	resolverCfg := pipeline.ResolverConfig{
		TaxPercent:         cfg.Costs.TaxPercent,
		DefectPercent:      cfg.Costs.DefectPercent,
		AcquiringSurcharge: cfg.Costs.AcquiringSurcharge,
	}
	runner := pipeline.NewRunner(
		pipeline.RunnerConfig{
			Resolver:   resolverCfg,
			BatchSize:  cfg.Wildberries.BatchSize,
			BatchPause: cfg.Wildberries.BatchPause,
		},
		client, client, client, client, client,
		ledgerRepo, costsRepo, managerRepo, batchRepo,
	).WithTracker(tracker)

	reportCache, err := cache.NewReportCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("report cache unavailable, readers rely on TTL expiry")
		reportCache = cache.NewNoopReportCache()
	}

	return &deps{
		cfg:      cfg,
		client:   client,
		ledger:   ledgerRepo,
		costs:    costsRepo,
		batches:  batchRepo,
		managers: managerRepo,
		tracker:  tracker,
		runner:   runner,
		costSvc:  service.NewCostService(costsRepo, ledgerRepo, resolverCfg).WithCatalog(client),
		batchSvc: service.NewBatchService(batchRepo),
		reports:  reportCache,
	}, nil
}

// invalidateReports drops cached report responses after the ledger changed.
func (d *deps) invalidateReports(c *cli.Context) {
	if err := d.reports.InvalidateAll(c.Context); err != nil {
		logger.Log.Warn().Err(err).Msg("report cache invalidation failed")
	}
}

func newDateFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "date",
		Usage: "Calendar date to ingest (YYYY-MM-DD), defaults to today",
	}
}

func parseDateFlag(c *cli.Context) (time.Time, error) {
	raw := c.String("date")
	if raw == "" {
		return pipeline.Midnight(time.Now()), nil
	}
	date, ok := pipeline.ParseDay(raw)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return date, nil
}

func runIngest(c *cli.Context) error {
	d, err := buildDeps(c)
	if err != nil {
		return err
	}

	date, err := parseDateFlag(c)
	if err != nil {
		return err
	}

	summary, err := d.runner.Run(c.Context, date)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	d.invalidateReports(c)

	logger.Log.Info().
		Int("inserted", summary.RowsInserted).
		Int("updated", summary.RowsUpdated).
		Strs("skipped_batches", summary.SkippedBatches).
		Msg("ingestion complete")
	return nil
}

func runBackfill(c *cli.Context) error {
	d, err := buildDeps(c)
	if err != nil {
		return err
	}

	from, ok := pipeline.ParseDay(c.String("from"))
	if !ok {
		return fmt.Errorf("invalid from date %q", c.String("from"))
	}
	to, ok := pipeline.ParseDay(c.String("to"))
	if !ok {
		return fmt.Errorf("invalid to date %q", c.String("to"))
	}
	if to.Before(from) {
		return fmt.Errorf("to %s precedes from %s", c.String("to"), c.String("from"))
	}

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		summary, err := d.runner.Run(c.Context, day)
		if err != nil {
			return fmt.Errorf("backfill stopped at %s: %w", day.Format("2006-01-02"), err)
		}
		logger.Log.Info().
			Str("date", day.Format("2006-01-02")).
			Int("inserted", summary.RowsInserted).
			Int("updated", summary.RowsUpdated).
			Msg("backfill: day complete")
	}
	d.invalidateReports(c)
	return nil
}

func runImportCosts(c *cli.Context) error {
	d, err := buildDeps(c)
	if err != nil {
		return err
	}

	date, err := parseDateFlag(c)
	if err != nil {
		return err
	}

	file, err := os.Open(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to open cost sheet: %w", err)
	}
	defer file.Close()

	rows, err := importer.ParseCostSheet(file)
	if err != nil {
		return err
	}

	applied, skipped := 0, 0
	startDate := date.Format("2006-01-02")
	for _, row := range rows {
		update := row.ToCostUpdate(startDate)
		if _, err := d.costSvc.ApplyUpdate(c.Context, update); err != nil {
			logger.Log.Warn().Err(err).Str("vendor_code", row.VendorCode).Msg("import: row skipped")
			skipped++
			continue
		}
		applied++
	}

	if applied > 0 {
		d.invalidateReports(c)
	}
	logger.Log.Info().Int("applied", applied).Int("skipped", skipped).Msg("cost import complete")
	return nil
}

func runRefreshPrices(c *cli.Context) error {
	d, err := buildDeps(c)
	if err != nil {
		return err
	}

	date, err := parseDateFlag(c)
	if err != nil {
		return err
	}

	prices, err := d.client.FetchPrices(c.Context)
	if err != nil {
		return fmt.Errorf("failed to fetch prices: %w", err)
	}
	commission, err := d.client.FetchCommissions(c.Context)
	if err != nil {
		return fmt.Errorf("failed to fetch commissions: %w", err)
	}

	refreshed, err := d.costSvc.RefreshPrices(c.Context, prices, commission, date)
	if err != nil {
		return err
	}

	if refreshed > 0 {
		d.invalidateReports(c)
	}
	logger.Log.Info().Int("rows", refreshed).Msg("price refresh complete")
	return nil
}

func runStatus(c *cli.Context) error {
	d, err := buildDeps(c)
	if err != nil {
		return err
	}

	date, err := parseDateFlag(c)
	if err != nil {
		return err
	}

	run, err := d.tracker.LatestRunByDate(c.Context, date)
	if err != nil {
		return fmt.Errorf("failed to load run status: %w", err)
	}
	if run == nil {
		logger.Log.Info().Str("date", date.Format("2006-01-02")).Msg("no runs recorded for date")
		return nil
	}

	event := logger.Log.Info().
		Str("date", date.Format("2006-01-02")).
		Str("status", string(run.Status)).
		Int("inserted", run.RowsInserted).
		Int("updated", run.RowsUpdated).
		Time("started_at", run.StartedAt)
	if run.SkippedBatches != "" {
		event = event.Str("skipped_batches", run.SkippedBatches)
	}
	if run.ErrorMessage != "" {
		event = event.Str("error", run.ErrorMessage)
	}
	event.Msg("latest run")
	return nil
}

func runCheckBatches(c *cli.Context) error {
	d, err := buildDeps(c)
	if err != nil {
		return err
	}

	deactivated, err := d.batchSvc.CheckDeactivations(c.Context)
	if err != nil {
		return err
	}

	logger.Log.Info().Int64("deactivated", deactivated).Msg("batch check complete")
	return nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		logger.Log.Debug().Err(err).Msg("no .env file loaded")
	}
	logger.UseJSON()

	app := &cli.App{
		Name:  "ingest",
		Usage: "Pull marketplace data into the profit ledger",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Ingest one calendar day",
				Flags:  []cli.Flag{newDateFlag()},
				Action: runIngest,
			},
			{
				Name:  "backfill",
				Usage: "Ingest a range of days sequentially",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "First date (YYYY-MM-DD)", Required: true},
					&cli.StringFlag{Name: "to", Usage: "Last date (YYYY-MM-DD)", Required: true},
				},
				Action: runBackfill,
			},
			{
				Name:  "import-costs",
				Usage: "Apply cost components from an xlsx sheet",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "Path to the xlsx workbook", Required: true},
					newDateFlag(),
				},
				Action: runImportCosts,
			},
			{
				Name:   "refresh-prices",
				Usage:  "Re-derive price-dependent figures for one day",
				Flags:  []cli.Flag{newDateFlag()},
				Action: runRefreshPrices,
			},
			{
				Name:   "status",
				Usage:  "Show the most recent run recorded for a date",
				Flags:  []cli.Flag{newDateFlag()},
				Action: runStatus,
			},
			{
				Name:   "check-batches",
				Usage:  "Deactivate purchase batches whose stock is exhausted",
				Action: runCheckBatches,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("command failed")
	}
}
