package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wb-unit/backend-go/internal/domain"
	"github.com/wb-unit/backend-go/internal/pipeline"
)

// costStore is the cost-components persistence the service depends on.
type costStore interface {
	Latest(ctx context.Context, itemID int64, asOf time.Time) (domain.CostComponents, error)
	Save(ctx context.Context, c domain.CostComponents) error
	ApplyUpdate(ctx context.Context, itemIDs []int64, update domain.CostUpdate, startDate time.Time) error
}

// costLedger is the slice of the ledger the service reads and patches.
type costLedger interface {
	ItemIDsForVendor(ctx context.Context, vendorCode string) ([]int64, error)
	RowsSince(ctx context.Context, itemIDs []int64, from time.Time) ([]domain.LedgerRow, error)
	Upsert(ctx context.Context, row domain.LedgerRow) (bool, []string, error)
}

// CostService applies cost overrides and replays them over ledger history.
type CostService struct {
	costs    costStore
	ledger   costLedger
	catalog  pipeline.CatalogSource
	resolver pipeline.ResolverConfig
}

func NewCostService(costs costStore, ledger costLedger, resolver pipeline.ResolverConfig) *CostService {
	return &CostService{costs: costs, ledger: ledger, resolver: resolver}
}

// WithCatalog lets the service resolve vendor codes through the catalog
// when the ledger has no rows yet, so a cost sheet can be imported before
// the first ingestion run.
func (s *CostService) WithCatalog(catalog pipeline.CatalogSource) *CostService {
	s.catalog = catalog
	return s
}

// ApplyUpdate merges a partial cost override for a vendor code effective
// from its start date, then recomputes every already-persisted ledger row
// from that date forward so history reflects the corrected model.
func (s *CostService) ApplyUpdate(ctx context.Context, update domain.CostUpdate) (int, error) {
	startDate, ok := pipeline.ParseDay(update.StartDate)
	if !ok {
		return 0, fmt.Errorf("invalid start_date %q", update.StartDate)
	}

	itemIDs, err := s.ledger.ItemIDsForVendor(ctx, update.VendorCode)
	if err != nil {
		return 0, err
	}
	if len(itemIDs) == 0 && s.catalog != nil {
		if itemIDs, err = s.catalogItemIDs(ctx, update.VendorCode); err != nil {
			return 0, err
		}
	}
	if len(itemIDs) == 0 {
		return 0, fmt.Errorf("no items known for vendor code %q", update.VendorCode)
	}

	if err := s.costs.ApplyUpdate(ctx, itemIDs, update, startDate); err != nil {
		return 0, err
	}

	recomputed, err := s.recomputeFrom(ctx, itemIDs, startDate)
	if err != nil {
		return 0, err
	}

	log.Info().
		Str("vendor_code", update.VendorCode).
		Time("start_date", startDate).
		Int("items", len(itemIDs)).
		Int("rows_recomputed", recomputed).
		Msg("costs: override applied")
	return recomputed, nil
}

// SaveComponents stores full cost rows, typically from an xlsx import.
func (s *CostService) SaveComponents(ctx context.Context, rows []domain.CostComponents) error {
	for _, row := range rows {
		if err := s.costs.Save(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// RefreshPrices rewrites the given day's ledger rows with current
// discounted prices, re-deriving the price-dependent cost and profit
// columns. Sales and advertising figures stay as persisted.
func (s *CostService) RefreshPrices(ctx context.Context, prices map[int64]float64, commission pipeline.CommissionTable, date time.Time) (int, error) {
	itemIDs := make([]int64, 0, len(prices))
	for id := range prices {
		itemIDs = append(itemIDs, id)
	}
	if len(itemIDs) == 0 {
		return 0, nil
	}

	day := pipeline.Midnight(date)
	rows, err := s.ledger.RowsSince(ctx, itemIDs, day)
	if err != nil {
		return 0, err
	}

	resolver := pipeline.NewResolver(s.resolver, commission)
	refreshed := 0
	for _, row := range rows {
		if !row.Date.Equal(day) {
			continue
		}
		price, ok := prices[row.ItemID]
		if !ok {
			continue
		}

		carried, err := s.costs.Latest(ctx, row.ItemID, day)
		if err != nil && err != sql.ErrNoRows {
			return refreshed, fmt.Errorf("load costs for item %d: %w", row.ItemID, err)
		}

		resolved := resolver.Resolve(carried, fieldString(row.Fields, "category"), price)
		figures := pipeline.CalculateProfit(resolved, fieldInt(row.Fields, "orders_count"), fieldFloat(row.Fields, "ad_spend"))

		patch := domain.LedgerRow{
			ItemID: row.ItemID,
			Date:   day,
			Fields: map[string]interface{}{
				"sale_price":         resolved.Price,
				"defect_percent":     resolved.Components.DefectPercent,
				"commission_percent": resolved.Components.CommissionPercent,
				"tax_percent":        resolved.Components.TaxPercent,
				"commission_amount":  resolved.CommissionAmount,
				"tax_amount":         resolved.TaxAmount,
				"defect_amount":      resolved.DefectAmount,
				"cost_price":         figures.CostPrice,
				"profit_per_unit":    figures.ProfitPerUnit,
				"total_profit":       figures.TotalProfit,
			},
		}
		if _, _, err := s.ledger.Upsert(ctx, patch); err != nil {
			return refreshed, fmt.Errorf("rewrite ledger row for item %d: %w", row.ItemID, err)
		}
		refreshed++
	}

	log.Info().Int("rows", refreshed).Str("date", day.Format("2006-01-02")).Msg("costs: prices refreshed")
	return refreshed, nil
}

// catalogItemIDs resolves a vendor code against the live catalog, for
// databases the ingestion has not populated yet.
func (s *CostService) catalogItemIDs(ctx context.Context, vendorCode string) ([]int64, error) {
	items, err := s.catalog.FetchCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve vendor %s through catalog: %w", vendorCode, err)
	}
	var ids []int64
	for _, item := range items {
		if item.VendorCode == vendorCode {
			ids = append(ids, item.ItemID)
		}
	}
	return ids, nil
}

// recomputeFrom replays the profit computation over stored ledger rows
// using the new cost model. Sales and advertising figures stay as
// persisted; only the cost and profit columns change.
func (s *CostService) recomputeFrom(ctx context.Context, itemIDs []int64, from time.Time) (int, error) {
	rows, err := s.ledger.RowsSince(ctx, itemIDs, from)
	if err != nil {
		return 0, err
	}

	recomputed := 0
	for _, row := range rows {
		carried, err := s.costs.Latest(ctx, row.ItemID, row.Date)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return recomputed, fmt.Errorf("load costs for item %d: %w", row.ItemID, err)
		}

		category := fieldString(row.Fields, "category")
		price := fieldFloat(row.Fields, "sale_price")

		// The stored commission percentage is the category rate at ingest
		// time; replaying through the resolver applies the acquiring
		// surcharge the same way the original run did.
		table := pipeline.CommissionTable{}
		if percent := fieldFloat(row.Fields, "commission_percent"); percent > 0 {
			table[pipeline.NormalizeCategory(category)] = percent
		}
		resolver := pipeline.NewResolver(s.resolver, table)
		resolved := resolver.Resolve(carried, category, price)

		orders := fieldInt(row.Fields, "orders_count")
		figures := pipeline.CalculateProfit(resolved, orders, fieldFloat(row.Fields, "ad_spend"))

		patch := domain.LedgerRow{
			ItemID: row.ItemID,
			Date:   row.Date,
			Fields: map[string]interface{}{
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
				"cost_price":            figures.CostPrice,
				"profit_per_unit":       figures.ProfitPerUnit,
				"total_profit":          figures.TotalProfit,
			},
		}
		if _, _, err := s.ledger.Upsert(ctx, patch); err != nil {
			return recomputed, fmt.Errorf("rewrite ledger row for item %d: %w", row.ItemID, err)
		}
		recomputed++
	}
	return recomputed, nil
}

func fieldFloat(fields map[string]interface{}, name string) float64 {
	switch v := fields[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func fieldInt(fields map[string]interface{}, name string) int {
	return int(fieldFloat(fields, name))
}

func fieldString(fields map[string]interface{}, name string) string {
	s, _ := fields[name].(string)
	return s
}
