package pipeline

import (
	"context"
	"time"

	"github.com/wb-unit/backend-go/internal/domain"
)

// The marketplace endpoints are consumed through narrow interfaces so the
// runner can be exercised against fakes. internal/wbapi provides the HTTP
// implementations.

// CatalogSource yields the full product catalog snapshot.
type CatalogSource interface {
	FetchCatalog(ctx context.Context) ([]domain.Item, error)
}

// SalesSource yields per-item per-day sales history for up to 20 item ids
// at a time.
type SalesSource interface {
	FetchSales(ctx context.Context, itemIDs []int64, from, to time.Time) ([]domain.SalesRecord, error)
}

// AdSource yields advertising metrics for a day, already summed across
// campaigns per item.
type AdSource interface {
	FetchAdMetrics(ctx context.Context, date time.Time) (map[int64]domain.AdMetrics, error)
}

// CommissionSource yields the current category commission snapshot.
type CommissionSource interface {
	FetchCommissions(ctx context.Context) (CommissionTable, error)
}

// PriceSource yields the current discounted price per item.
type PriceSource interface {
	FetchPrices(ctx context.Context) (map[int64]float64, error)
}

// LedgerStore is the persistence surface the runner writes through.
type LedgerStore interface {
	// Upsert merges one computed row into the ledger, reporting whether it
	// was inserted (vs updated) and which fields were dropped.
	Upsert(ctx context.Context, row domain.LedgerRow) (inserted bool, dropped []string, err error)
}

// CostsStore reads back the carry-forward state at the start of a run.
type CostsStore interface {
	// LatestAll returns, per item, the most recent cost components row
	// dated on or before asOf.
	LatestAll(ctx context.Context, asOf time.Time) (map[int64]domain.CostComponents, error)
}

// ManagerStore resolves operator-assigned manager labels.
type ManagerStore interface {
	// LabelsFor returns the effective manager label per item id, with the
	// item -> bundle -> unset fallback already applied.
	LabelsFor(ctx context.Context, items []domain.Item) (map[int64]string, error)
}

// BatchStore keeps purchase-batch counters in line with the ledger.
type BatchStore interface {
	// SyncSold rebuilds a vendor's active batch sold counter from the
	// ledger's order counts and deactivates batches that reached their
	// bought quantity. Safe to call repeatedly for the same day.
	SyncSold(ctx context.Context, vendorCode string, date time.Time) error
}

// RunContext is the reference data for one ingestion run, populated once
// at run start and never mutated mid-run.
type RunContext struct {
	Date       time.Time
	Items      map[int64]domain.Item
	Commission CommissionTable
	Prices     map[int64]float64
	Costs      map[int64]domain.CostComponents
	Managers   map[int64]string
}
