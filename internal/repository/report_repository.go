package repository

import (
	"context"
	"fmt"

	"github.com/wb-unit/backend-go/internal/domain"
	"github.com/wb-unit/backend-go/internal/pipeline"
	"github.com/wb-unit/backend-go/internal/repository/postgres"
)

// ReportRepository aggregates the profit ledger for the dashboard.
type ReportRepository struct {
	db *postgres.DB
}

func NewReportRepository(db *postgres.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// investmentExpr sums what the sold units cost to put on a shelf: the
// per-unit outlay components times that day's order count.
const investmentExpr = `SUM((COALESCE(purchase_price, 0) + COALESCE(logistics, 0) + COALESCE(packaging, 0)
				+ COALESCE(fuel, 0) + COALESCE(gift, 0)) * COALESCE(orders_count, 0))`

// RangeReport rolls the ledger up per bundle over [start, end]. Each
// bundle is labelled with the vendor code of its best-selling variant;
// when variants tie on orders the lowest item id wins, so the label is
// stable between runs.
func (r *ReportRepository) RangeReport(ctx context.Context, start, end string) (*domain.RangeReport, error) {
	query := `
		WITH variant AS (
			SELECT
				bundle_id,
				item_id,
				MAX(vendor_code) AS vendor_code,
				SUM(COALESCE(orders_count, 0)) AS orders_count,
				SUM(COALESCE(ad_spend, 0)) AS ad_spend,
				SUM(COALESCE(total_profit, 0)) AS total_profit,
				` + investmentExpr + ` AS investment
			FROM profit_ledger
			WHERE date BETWEEN $1 AND $2 AND bundle_id IS NOT NULL
			GROUP BY bundle_id, item_id
		),
		best AS (
			SELECT DISTINCT ON (bundle_id) bundle_id, vendor_code
			FROM variant
			ORDER BY bundle_id, orders_count DESC, item_id ASC
		)
		SELECT
			v.bundle_id,
			best.vendor_code,
			SUM(v.orders_count)::int AS orders_count,
			SUM(v.ad_spend) AS ad_spend,
			SUM(v.total_profit) AS total_profit,
			SUM(v.investment) AS investment
		FROM variant v
		JOIN best ON best.bundle_id = v.bundle_id
		GROUP BY v.bundle_id, best.vendor_code
		ORDER BY SUM(v.total_profit) DESC
	`
	var bundles []domain.BundleReport
	if err := r.db.SelectContext(ctx, &bundles, query, start, end); err != nil {
		return nil, fmt.Errorf("failed to build range report: %w", err)
	}

	report := &domain.RangeReport{StartDate: start, EndDate: end, Bundles: bundles}
	finalizeRange(report)
	return report, nil
}

// finalizeRange rounds each bundle's investment, derives its margin and
// totals the profit with one terminal rounding.
func finalizeRange(report *domain.RangeReport) {
	for i := range report.Bundles {
		b := &report.Bundles[i]
		b.Investment = pipeline.Round2(b.Investment)
		b.MarginPercent = marginPercent(b.TotalProfit, b.Investment)
		report.TotalProfit += b.TotalProfit
	}
	report.TotalProfit = pipeline.Round2(report.TotalProfit)
}

// marginPercent is profit over invested money. Zero investment yields zero
// margin, never a division by zero.
func marginPercent(profit, investment float64) float64 {
	if investment <= 0 {
		return 0
	}
	return pipeline.Round2(profit / investment * 100)
}

// BundleVariants rolls one bundle up per variant. Sale and cost price come
// from each variant's most recent row in the range.
func (r *ReportRepository) BundleVariants(ctx context.Context, bundleID int64, start, end string) ([]domain.VariantReport, error) {
	query := `
		WITH latest AS (
			SELECT DISTINCT ON (item_id) item_id,
				COALESCE(sale_price, 0) AS sale_price,
				COALESCE(cost_price, 0) AS cost_price
			FROM profit_ledger
			WHERE bundle_id = $1 AND date BETWEEN $2 AND $3
			ORDER BY item_id, date DESC
		)
		SELECT
			l.item_id,
			MAX(l.vendor_code) AS vendor_code,
			SUM(COALESCE(l.orders_count, 0))::int AS orders_count,
			SUM(COALESCE(l.ad_spend, 0)) AS ad_spend,
			SUM(COALESCE(l.total_profit, 0)) AS total_profit,
			MAX(latest.cost_price) AS cost_price,
			MAX(latest.sale_price) AS sale_price
		FROM profit_ledger l
		JOIN latest ON latest.item_id = l.item_id
		WHERE l.bundle_id = $1 AND l.date BETWEEN $2 AND $3
		GROUP BY l.item_id
		ORDER BY orders_count DESC, l.item_id ASC
	`
	var variants []domain.VariantReport
	if err := r.db.SelectContext(ctx, &variants, query, bundleID, start, end); err != nil {
		return nil, fmt.Errorf("failed to build variant report for bundle %d: %w", bundleID, err)
	}
	return variants, nil
}

// BundleDaily rolls one bundle up per calendar date, with the same
// investment and margin figures as the range roll-up.
func (r *ReportRepository) BundleDaily(ctx context.Context, bundleID int64, start, end string) ([]domain.DailyReport, error) {
	query := `
		SELECT
			TO_CHAR(date, 'YYYY-MM-DD') AS date,
			SUM(COALESCE(orders_count, 0))::int AS orders_count,
			SUM(COALESCE(ad_spend, 0)) AS ad_spend,
			SUM(COALESCE(total_profit, 0)) AS total_profit,
			` + investmentExpr + ` AS investment
		FROM profit_ledger
		WHERE bundle_id = $1 AND date BETWEEN $2 AND $3
		GROUP BY date
		ORDER BY date
	`
	var days []domain.DailyReport
	if err := r.db.SelectContext(ctx, &days, query, bundleID, start, end); err != nil {
		return nil, fmt.Errorf("failed to build daily report for bundle %d: %w", bundleID, err)
	}
	finalizeDaily(days)
	return days, nil
}

// finalizeDaily rounds each day's investment and derives its margin.
func finalizeDaily(days []domain.DailyReport) {
	for i := range days {
		days[i].Investment = pipeline.Round2(days[i].Investment)
		days[i].MarginPercent = marginPercent(days[i].TotalProfit, days[i].Investment)
	}
}

// MissingCosts lists items whose newest ledger row still has no purchase
// price, meaning their profit figures run on an incomplete cost model.
func (r *ReportRepository) MissingCosts(ctx context.Context) ([]domain.MissingCost, error) {
	query := `
		SELECT DISTINCT ON (item_id) item_id,
			COALESCE(vendor_code, '') AS vendor_code,
			COALESCE(purchase_price, 0) AS purchase_price,
			COALESCE(logistics, 0) AS logistics
		FROM profit_ledger
		ORDER BY item_id, date DESC
	`
	var rows []struct {
		ItemID        int64   `db:"item_id"`
		VendorCode    string  `db:"vendor_code"`
		PurchasePrice float64 `db:"purchase_price"`
		Logistics     float64 `db:"logistics"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to find missing costs: %w", err)
	}

	var missing []domain.MissingCost
	for _, row := range rows {
		var fields []string
		if row.PurchasePrice == 0 {
			fields = append(fields, "purchase_price")
		}
		if row.Logistics == 0 {
			fields = append(fields, "logistics")
		}
		if len(fields) > 0 {
			missing = append(missing, domain.MissingCost{
				ItemID:        row.ItemID,
				VendorCode:    row.VendorCode,
				MissingFields: fields,
			})
		}
	}
	return missing, nil
}

// LedgerRange exports raw ledger rows for a date range, ordered for xlsx
// output.
func (r *ReportRepository) LedgerRange(ctx context.Context, start, end string) ([]map[string]interface{}, error) {
	query := `
		SELECT * FROM profit_ledger
		WHERE date BETWEEN $1 AND $2
		ORDER BY date, item_id
	`
	rows, err := r.db.QueryxContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to export ledger range: %w", err)
	}
	defer rows.Close()

	var result []map[string]interface{}
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("failed to scan export row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading export rows: %w", err)
	}
	return result, nil
}
