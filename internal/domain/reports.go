package domain

// BundleReport is the per-bundle roll-up for a date range. VendorCode is
// the best-selling variant's code, used as a human label for the bundle.
type BundleReport struct {
	BundleID      int64   `json:"bundle_id" db:"bundle_id"`
	VendorCode    string  `json:"vendor_code" db:"vendor_code"`
	OrdersCount   int     `json:"orders_count" db:"orders_count"`
	AdSpend       float64 `json:"ad_spend" db:"ad_spend"`
	TotalProfit   float64 `json:"total_profit" db:"total_profit"`
	Investment    float64 `json:"investment" db:"investment"`
	MarginPercent float64 `json:"margin_percent"`
}

// VariantReport is the per-item roll-up inside one bundle.
type VariantReport struct {
	ItemID      int64   `json:"item_id" db:"item_id"`
	VendorCode  string  `json:"vendor_code" db:"vendor_code"`
	OrdersCount int     `json:"orders_count" db:"orders_count"`
	AdSpend     float64 `json:"ad_spend" db:"ad_spend"`
	TotalProfit float64 `json:"total_profit" db:"total_profit"`
	CostPrice   float64 `json:"cost_price" db:"cost_price"`
	SalePrice   float64 `json:"sale_price" db:"sale_price"`
}

// DailyReport is the per-calendar-date roll-up for a bundle or the whole
// account.
type DailyReport struct {
	Date          string  `json:"date" db:"date"`
	OrdersCount   int     `json:"orders_count" db:"orders_count"`
	AdSpend       float64 `json:"ad_spend" db:"ad_spend"`
	TotalProfit   float64 `json:"total_profit" db:"total_profit"`
	Investment    float64 `json:"investment" db:"investment"`
	MarginPercent float64 `json:"margin_percent"`
}

// RangeReport is the full response for a date-range query.
type RangeReport struct {
	StartDate   string         `json:"start_date"`
	EndDate     string         `json:"end_date"`
	TotalProfit float64        `json:"total_profit"`
	Bundles     []BundleReport `json:"data"`
}

// MissingCost describes an item whose cost components are incomplete, so
// its profit figures cannot be trusted yet.
type MissingCost struct {
	ItemID        int64    `json:"item_id" db:"item_id"`
	VendorCode    string   `json:"vendor_code" db:"vendor_code"`
	MissingFields []string `json:"missing_fields"`
}

// ReportFilter carries the query parameters for report endpoints.
type ReportFilter struct {
	StartDate string
	EndDate   string
	BundleID  int64
}
