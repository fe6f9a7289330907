package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wb-unit/backend-go/internal/domain"
)

// RunnerConfig controls batching and pacing of one ingestion run.
type RunnerConfig struct {
	Resolver ResolverConfig
	// BatchSize is the number of item ids per sales-history request; the
	// upstream endpoint accepts at most 20.
	BatchSize int
	// BatchPause is the sleep between sales-history batches. The upstream
	// source rate-limits to roughly one batch per 20 seconds.
	BatchPause time.Duration
}

// Runner drives one day's ingestion: fetch reference data once, page
// through sales history with deliberate pacing, resolve costs, compute
// profit and upsert each (item, day) row. Rows are processed sequentially;
// all carry-forward state lives in storage, so re-running a day is safe.
type Runner struct {
	cfg        RunnerConfig
	catalog    CatalogSource
	sales      SalesSource
	ads        AdSource
	commission CommissionSource
	prices     PriceSource

	ledger   LedgerStore
	costs    CostsStore
	managers ManagerStore
	batches  BatchStore

	tracker *RunTracker
}

func NewRunner(
	cfg RunnerConfig,
	catalog CatalogSource,
	sales SalesSource,
	ads AdSource,
	commission CommissionSource,
	prices PriceSource,
	ledger LedgerStore,
	costs CostsStore,
	managers ManagerStore,
	batches BatchStore,
) *Runner {
	if cfg.BatchSize <= 0 || cfg.BatchSize > 20 {
		cfg.BatchSize = 20
	}
	return &Runner{
		cfg:        cfg,
		catalog:    catalog,
		sales:      sales,
		ads:        ads,
		commission: commission,
		prices:     prices,
		ledger:     ledger,
		costs:      costs,
		managers:   managers,
		batches:    batches,
	}
}

// WithTracker makes the runner record each run in the ingest_runs table.
func (r *Runner) WithTracker(tracker *RunTracker) *Runner {
	r.tracker = tracker
	return r
}

// Run ingests one calendar day. A failed sales batch is logged and skipped;
// the run only aborts when the catalog or the store itself is unavailable.
func (r *Runner) Run(ctx context.Context, date time.Time) (*domain.RunSummary, error) {
	date = Midnight(date)
	summary := &domain.RunSummary{Date: date}

	var tracked *IngestRun
	if r.tracker != nil {
		var err error
		if tracked, err = r.tracker.StartRun(ctx, date); err != nil {
			log.Warn().Err(err).Msg("ingest: run tracking unavailable")
			tracked = nil
		}
	}

	rc, err := r.loadRunContext(ctx, date)
	if err != nil {
		if tracked != nil {
			_ = r.tracker.FailRun(ctx, tracked, err)
		}
		return nil, err
	}

	itemIDs := make([]int64, 0, len(rc.Items))
	for id := range rc.Items {
		itemIDs = append(itemIDs, id)
	}
	sort.Slice(itemIDs, func(i, j int) bool { return itemIDs[i] < itemIDs[j] })

	adMetrics, err := r.ads.FetchAdMetrics(ctx, date)
	if err != nil {
		log.Warn().Err(err).Msg("ingest: ad metrics unavailable, treating spend as zero")
		adMetrics = map[int64]domain.AdMetrics{}
	}

	resolver := NewResolver(r.cfg.Resolver, rc.Commission)

	total := (len(itemIDs) + r.cfg.BatchSize - 1) / r.cfg.BatchSize
	for i := 0; i < len(itemIDs); i += r.cfg.BatchSize {
		end := i + r.cfg.BatchSize
		if end > len(itemIDs) {
			end = len(itemIDs)
		}
		batch := itemIDs[i:end]
		batchNo := i/r.cfg.BatchSize + 1

		if batchNo > 1 {
			if err := sleepCtx(ctx, r.cfg.BatchPause); err != nil {
				if tracked != nil {
					_ = r.tracker.FailRun(ctx, tracked, err)
				}
				return summary, err
			}
		}

		log.Info().Int("batch", batchNo).Int("of", total).Int("items", len(batch)).Msg("ingest: requesting sales history")

		records, err := r.sales.FetchSales(ctx, batch, date, date)
		if err != nil {
			label := fmt.Sprintf("sales batch %d/%d", batchNo, total)
			log.Warn().Err(err).Str("batch", label).Msg("ingest: batch failed, skipping")
			summary.SkippedBatches = append(summary.SkippedBatches, label)
			continue
		}

		for _, rec := range records {
			if err := r.processRecord(ctx, rc, resolver, rec, adMetrics[rec.ItemID], summary); err != nil {
				if tracked != nil {
					_ = r.tracker.FailRun(ctx, tracked, err)
				}
				return summary, err
			}
		}
	}

	if tracked != nil {
		if err := r.tracker.CompleteRun(ctx, tracked, summary); err != nil {
			log.Warn().Err(err).Msg("ingest: could not record run completion")
		}
	}

	log.Info().
		Int("inserted", summary.RowsInserted).
		Int("updated", summary.RowsUpdated).
		Int("skipped_batches", len(summary.SkippedBatches)).
		Int("dropped_fields", len(summary.DroppedFields)).
		Str("date", date.Format("2006-01-02")).
		Msg("ingest: run finished")

	return summary, nil
}

func (r *Runner) loadRunContext(ctx context.Context, date time.Time) (*RunContext, error) {
	items, err := r.catalog.FetchCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	byID := make(map[int64]domain.Item, len(items))
	for _, it := range items {
		byID[it.ItemID] = it
	}
	log.Info().Int("items", len(byID)).Msg("ingest: catalog loaded")

	commission, err := r.commission.FetchCommissions(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("ingest: commission table unavailable, commissions resolve to zero")
		commission = CommissionTable{}
	}

	prices, err := r.prices.FetchPrices(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("ingest: price snapshot unavailable, price-derived amounts resolve to zero")
		prices = map[int64]float64{}
	}

	costs, err := r.costs.LatestAll(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load cost components: %w", err)
	}

	managers := map[int64]string{}
	if r.managers != nil {
		managers, err = r.managers.LabelsFor(ctx, items)
		if err != nil {
			log.Warn().Err(err).Msg("ingest: manager labels unavailable")
			managers = map[int64]string{}
		}
	}

	return &RunContext{
		Date:       date,
		Items:      byID,
		Commission: commission,
		Prices:     prices,
		Costs:      costs,
		Managers:   managers,
	}, nil
}

func (r *Runner) processRecord(ctx context.Context, rc *RunContext, resolver *Resolver, rec domain.SalesRecord, ads domain.AdMetrics, summary *domain.RunSummary) error {
	item := rc.Items[rec.ItemID]
	price := rc.Prices[rec.ItemID]
	carried := rc.Costs[rec.ItemID]

	resolved := resolver.Resolve(carried, item.Category, price)

	orders := rec.OrdersCount
	if orders < 0 {
		orders = 0
	}
	figures := CalculateProfit(resolved, orders, ads.Spend)

	manager, ok := rc.Managers[rec.ItemID]
	if !ok {
		manager = domain.ManagerUnset
	}

	row := domain.LedgerRow{
		ItemID: rec.ItemID,
		Date:   rec.Date,
		Fields: map[string]interface{}{
			"bundle_id":   item.BundleID,
			"vendor_code": item.VendorCode,
			"brand":       item.Brand,
			"category":    item.Category,
			"manager":     manager,

			"opened_count":             rec.OpenedCount,
			"add_to_cart_count":        rec.AddToCartCount,
			"orders_count":             orders,
			"orders_revenue":           rec.OrdersRevenue,
			"buyout_count":             rec.BuyoutCount,
			"buyout_revenue":           rec.BuyoutRevenue,
			"buyout_percent":           rec.BuyoutPercent,
			"add_to_cart_conversion":   rec.AddToCartConversion,
			"cart_to_order_conversion": rec.CartToOrderConversion,

			"ad_views":     ads.Views,
			"ad_clicks":    ads.Clicks,
			"ad_spend":     ads.Spend,
			"ad_cart_adds": ads.CartAdds,
			"ad_orders":    ads.Orders,
			"ad_shipped":   ads.Shipped,
			"ad_revenue":   ads.Revenue,
			"ad_ctr":       ads.CTR,
			"ad_cpc":       ads.CPC,
			"ad_cr":        ads.CR,

			"sale_price":            resolved.Price,
			"purchase_price":        resolved.Components.PurchasePrice,
			"delivery_to_warehouse": resolved.Components.DeliveryToWarehouse,
			"logistics":             resolved.Components.Logistics,
			"packaging":             resolved.Components.Packaging,
			"fuel":                  resolved.Components.Fuel,
			"gift":                  resolved.Components.Gift,
			"defect_percent":        resolved.Components.DefectPercent,
			"commission_percent":    resolved.Components.CommissionPercent,
			"tax_percent":           resolved.Components.TaxPercent,
			"commission_amount":     resolved.CommissionAmount,
			"tax_amount":            resolved.TaxAmount,
			"defect_amount":         resolved.DefectAmount,

			"cost_price":      figures.CostPrice,
			"profit_per_unit": figures.ProfitPerUnit,
			"total_profit":    figures.TotalProfit,
		},
	}

	inserted, dropped, err := r.ledger.Upsert(ctx, row)
	if err != nil {
		return fmt.Errorf("upsert item %d: %w", rec.ItemID, err)
	}
	if inserted {
		summary.RowsInserted++
	} else {
		summary.RowsUpdated++
	}
	summary.DroppedFields = append(summary.DroppedFields, dropped...)

	if r.batches != nil && orders > 0 && item.VendorCode != "" {
		if err := r.batches.SyncSold(ctx, item.VendorCode, rec.Date); err != nil {
			log.Warn().Err(err).Str("vendor_code", item.VendorCode).Msg("ingest: purchase batch sync failed")
		}
	}

	return nil
}

// Midnight truncates a timestamp to its UTC calendar date.
func Midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay normalizes the source's day value, which may arrive as a
// date-only string, a full timestamp, or anything in between. The second
// return reports whether parsing succeeded; callers substitute the current
// processing date on failure instead of aborting the batch.
func ParseDay(raw string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return Midnight(t), true
		}
	}
	return time.Time{}, false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
