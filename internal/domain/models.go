package domain

import "time"

// ManagerUnset marks operator metadata that is known to be unassigned, as
// opposed to a NULL that was simply never written.
const ManagerUnset = "-"

// Item is one sellable product variant from the marketplace catalog.
// ItemID (nmID) is globally unique; BundleID (imtID) groups variants of
// the same listing.
type Item struct {
	ItemID     int64  `json:"item_id" db:"item_id"`
	BundleID   int64  `json:"bundle_id" db:"bundle_id"`
	VendorCode string `json:"vendor_code" db:"vendor_code"`
	Brand      string `json:"brand" db:"brand"`
	Category   string `json:"category" db:"category"`
}

// CostComponents are the per-item, time-varying cost inputs. DefectPercent,
// CommissionPercent and TaxPercent are percentages of current sale price,
// never absolute currency; the derived currency figures live on ResolvedCosts.
type CostComponents struct {
	ItemID              int64     `json:"item_id" db:"item_id"`
	VendorCode          string    `json:"vendor_code" db:"vendor_code"`
	Date                time.Time `json:"date" db:"date"`
	PurchasePrice       float64   `json:"purchase_price" db:"purchase_price"`
	DeliveryToWarehouse float64   `json:"delivery_to_warehouse" db:"delivery_to_warehouse"`
	Logistics           float64   `json:"logistics" db:"logistics"`
	Packaging           float64   `json:"packaging" db:"packaging"`
	Fuel                float64   `json:"fuel" db:"fuel"`
	Gift                float64   `json:"gift" db:"gift"`
	DefectPercent       float64   `json:"defect_percent" db:"defect_percent"`
	CommissionPercent   float64   `json:"commission_percent" db:"commission_percent"`
	TaxPercent          float64   `json:"tax_percent" db:"tax_percent"`
}

// CostUpdate is a partial cost override for a vendor code effective from
// StartDate forward. Nil fields are left untouched.
type CostUpdate struct {
	VendorCode          string   `json:"vendor_code" binding:"required"`
	StartDate           string   `json:"start_date" binding:"required"`
	PurchasePrice       *float64 `json:"purchase_price"`
	DeliveryToWarehouse *float64 `json:"delivery_to_warehouse"`
	Logistics           *float64 `json:"logistics"`
	Packaging           *float64 `json:"packaging"`
	Fuel                *float64 `json:"fuel"`
	Gift                *float64 `json:"gift"`
	DefectPercent       *float64 `json:"defect_percent"`
	TaxPercent          *float64 `json:"tax_percent"`
}

// ResolvedCosts is the output of the cost model for one item on one day:
// carried-forward components plus the price-derived currency amounts.
type ResolvedCosts struct {
	Components       CostComponents
	Price            float64
	CommissionAmount float64
	TaxAmount        float64
	DefectAmount     float64
}

// SalesRecord is one (item, day) observation from the sales-history source.
type SalesRecord struct {
	ItemID                int64     `json:"item_id"`
	Date                  time.Time `json:"date"`
	OpenedCount           int       `json:"opened_count"`
	AddToCartCount        int       `json:"add_to_cart_count"`
	OrdersCount           int       `json:"orders_count"`
	OrdersRevenue         float64   `json:"orders_revenue"`
	BuyoutCount           int       `json:"buyout_count"`
	BuyoutRevenue         float64   `json:"buyout_revenue"`
	BuyoutPercent         float64   `json:"buyout_percent"`
	AddToCartConversion   float64   `json:"add_to_cart_conversion"`
	CartToOrderConversion float64   `json:"cart_to_order_conversion"`
}

// AdMetrics is advertising performance for one (item, day), already summed
// across every campaign referencing the item.
type AdMetrics struct {
	ItemID   int64   `json:"item_id"`
	Views    int     `json:"views"`
	Clicks   int     `json:"clicks"`
	Spend    float64 `json:"spend"`
	CartAdds int     `json:"cart_adds"`
	Orders   int     `json:"orders"`
	Shipped  int     `json:"shipped"`
	Revenue  float64 `json:"revenue"`
	CTR      float64 `json:"ctr"`
	CPC      float64 `json:"cpc"`
	CR       float64 `json:"cr"`
}

// LedgerRow is the persisted unit of truth: one row per (item, date) with a
// full snapshot of sales, ads, resolved costs and computed profit. Extra
// carries source fields that are not part of the column registry.
type LedgerRow struct {
	ItemID int64                  `json:"item_id"`
	Date   time.Time              `json:"date"`
	Fields map[string]interface{} `json:"fields"`
	Extra  map[string]interface{} `json:"extra,omitempty"`
}

// PurchaseBatch is a discrete inventory lot bought at one purchase price.
// At most one batch per vendor code is active with an open end date.
type PurchaseBatch struct {
	ID             int64      `json:"id" db:"id"`
	VendorCode     string     `json:"vendor_code" db:"vendor_code"`
	PurchasePrice  float64    `json:"purchase_price" db:"purchase_price"`
	QuantityBought int        `json:"quantity_bought" db:"quantity_bought"`
	QuantitySold   int        `json:"quantity_sold" db:"quantity_sold"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	StartDate      time.Time  `json:"start_date" db:"start_date"`
	EndDate        *time.Time `json:"end_date" db:"end_date"`
}

// RunSummary is the user-visible result of one ingestion run.
type RunSummary struct {
	Date           time.Time `json:"date"`
	RowsInserted   int       `json:"rows_inserted"`
	RowsUpdated    int       `json:"rows_updated"`
	SkippedBatches []string  `json:"skipped_batches,omitempty"`
	DroppedFields  []string  `json:"dropped_fields,omitempty"`
}
