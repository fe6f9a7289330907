package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/wb-unit/backend-go/internal/domain"
	"github.com/wb-unit/backend-go/internal/pipeline"
	"github.com/wb-unit/backend-go/internal/repository/postgres"
)

// CostsRepository stores the time-varying cost components per item. Each
// row is effective from its date until a later row supersedes it, which is
// what makes the last-known-value carry-forward a single DISTINCT ON query.
type CostsRepository struct {
	db *postgres.DB
}

func NewCostsRepository(db *postgres.DB) *CostsRepository {
	return &CostsRepository{db: db}
}

func (r *CostsRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS item_costs (
			item_id BIGINT NOT NULL,
			vendor_code TEXT NOT NULL DEFAULT '',
			date DATE NOT NULL,
			purchase_price DOUBLE PRECISION NOT NULL DEFAULT 0,
			delivery_to_warehouse DOUBLE PRECISION NOT NULL DEFAULT 0,
			logistics DOUBLE PRECISION NOT NULL DEFAULT 0,
			packaging DOUBLE PRECISION NOT NULL DEFAULT 0,
			fuel DOUBLE PRECISION NOT NULL DEFAULT 0,
			gift DOUBLE PRECISION NOT NULL DEFAULT 0,
			defect_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
			commission_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
			tax_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (item_id, date)
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create item_costs: %w", err)
	}
	return nil
}

// LatestAll returns, per item, the most recent cost row dated on or before
// asOf. Items with no row on or before asOf are absent from the map.
func (r *CostsRepository) LatestAll(ctx context.Context, asOf time.Time) (map[int64]domain.CostComponents, error) {
	query := `
		SELECT DISTINCT ON (item_id)
			item_id, vendor_code, date,
			purchase_price, delivery_to_warehouse, logistics, packaging,
			fuel, gift, defect_percent, commission_percent, tax_percent
		FROM item_costs
		WHERE date <= $1
		ORDER BY item_id, date DESC
	`
	var rows []domain.CostComponents
	if err := r.db.SelectContext(ctx, &rows, query, pipeline.Midnight(asOf)); err != nil {
		return nil, fmt.Errorf("failed to load latest costs: %w", err)
	}

	result := make(map[int64]domain.CostComponents, len(rows))
	for _, row := range rows {
		result[row.ItemID] = row
	}
	return result, nil
}

// Latest returns the most recent cost row for one item dated on or before
// asOf, or sql.ErrNoRows when the item has no history yet.
func (r *CostsRepository) Latest(ctx context.Context, itemID int64, asOf time.Time) (domain.CostComponents, error) {
	query := `
		SELECT item_id, vendor_code, date,
			purchase_price, delivery_to_warehouse, logistics, packaging,
			fuel, gift, defect_percent, commission_percent, tax_percent
		FROM item_costs
		WHERE item_id = $1 AND date <= $2
		ORDER BY date DESC
		LIMIT 1
	`
	var row domain.CostComponents
	err := r.db.GetContext(ctx, &row, query, itemID, pipeline.Midnight(asOf))
	if err != nil {
		return domain.CostComponents{}, err
	}
	return row, nil
}

// Save writes one cost row, replacing an existing row for the same item
// and date.
func (r *CostsRepository) Save(ctx context.Context, c domain.CostComponents) error {
	query := `
		INSERT INTO item_costs (
			item_id, vendor_code, date,
			purchase_price, delivery_to_warehouse, logistics, packaging,
			fuel, gift, defect_percent, commission_percent, tax_percent, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (item_id, date)
		DO UPDATE SET
			vendor_code = EXCLUDED.vendor_code,
			purchase_price = EXCLUDED.purchase_price,
			delivery_to_warehouse = EXCLUDED.delivery_to_warehouse,
			logistics = EXCLUDED.logistics,
			packaging = EXCLUDED.packaging,
			fuel = EXCLUDED.fuel,
			gift = EXCLUDED.gift,
			defect_percent = EXCLUDED.defect_percent,
			commission_percent = EXCLUDED.commission_percent,
			tax_percent = EXCLUDED.tax_percent,
			updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ItemID,
		c.VendorCode,
		pipeline.Midnight(c.Date),
		c.PurchasePrice,
		c.DeliveryToWarehouse,
		c.Logistics,
		c.Packaging,
		c.Fuel,
		c.Gift,
		c.DefectPercent,
		c.CommissionPercent,
		c.TaxPercent,
	)
	if err != nil {
		return fmt.Errorf("failed to save costs for item %d: %w", c.ItemID, err)
	}
	return nil
}

// ApplyUpdate merges a partial override into each item's carried state and
// writes the merged row at the override's start date. Nil fields keep the
// carried values, so an update touching only logistics leaves the purchase
// price intact.
func (r *CostsRepository) ApplyUpdate(ctx context.Context, itemIDs []int64, update domain.CostUpdate, startDate time.Time) error {
	for _, itemID := range itemIDs {
		carried, err := r.Latest(ctx, itemID, startDate)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to load carried costs for item %d: %w", itemID, err)
		}

		carried.ItemID = itemID
		carried.VendorCode = update.VendorCode
		carried.Date = pipeline.Midnight(startDate)
		if update.PurchasePrice != nil {
			carried.PurchasePrice = *update.PurchasePrice
		}
		if update.DeliveryToWarehouse != nil {
			carried.DeliveryToWarehouse = *update.DeliveryToWarehouse
		}
		if update.Logistics != nil {
			carried.Logistics = *update.Logistics
		}
		if update.Packaging != nil {
			carried.Packaging = *update.Packaging
		}
		if update.Fuel != nil {
			carried.Fuel = *update.Fuel
		}
		if update.Gift != nil {
			carried.Gift = *update.Gift
		}
		if update.DefectPercent != nil {
			carried.DefectPercent = *update.DefectPercent
		}
		if update.TaxPercent != nil {
			carried.TaxPercent = *update.TaxPercent
		}

		if err := r.Save(ctx, carried); err != nil {
			return err
		}
	}
	return nil
}
