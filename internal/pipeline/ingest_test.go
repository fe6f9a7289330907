package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wb-unit/backend-go/internal/domain"
)

type fakeBackend struct {
	items      []domain.Item
	sales      map[int64]domain.SalesRecord
	ads        map[int64]domain.AdMetrics
	commission CommissionTable
	prices     map[int64]float64
	costs      map[int64]domain.CostComponents
	managers   map[int64]string

	commissionErr error
	failBatchWith int64

	salesCalls [][]int64
	ledger     map[string]map[string]interface{}
	batches    map[string]*fakeBatch
}

// fakeBatch mirrors one active purchase batch for a vendor code.
type fakeBatch struct {
	bought int
	sold   int
	active bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		sales:      map[int64]domain.SalesRecord{},
		ads:        map[int64]domain.AdMetrics{},
		commission: CommissionTable{},
		prices:     map[int64]float64{},
		costs:      map[int64]domain.CostComponents{},
		managers:   map[int64]string{},
		ledger:     map[string]map[string]interface{}{},
		batches:    map[string]*fakeBatch{},
	}
}

func (f *fakeBackend) FetchCatalog(ctx context.Context) ([]domain.Item, error) {
	return f.items, nil
}

func (f *fakeBackend) FetchSales(ctx context.Context, itemIDs []int64, from, to time.Time) ([]domain.SalesRecord, error) {
	batch := append([]int64(nil), itemIDs...)
	f.salesCalls = append(f.salesCalls, batch)
	var records []domain.SalesRecord
	for _, id := range itemIDs {
		if id == f.failBatchWith {
			return nil, errors.New("too many requests")
		}
		rec, ok := f.sales[id]
		if !ok {
			rec = domain.SalesRecord{ItemID: id}
		}
		if rec.Date.IsZero() {
			rec.Date = from
		}
		records = append(records, rec)
	}
	return records, nil
}

func (f *fakeBackend) FetchAdMetrics(ctx context.Context, date time.Time) (map[int64]domain.AdMetrics, error) {
	return f.ads, nil
}

func (f *fakeBackend) FetchCommissions(ctx context.Context) (CommissionTable, error) {
	if f.commissionErr != nil {
		return nil, f.commissionErr
	}
	return f.commission, nil
}

func (f *fakeBackend) FetchPrices(ctx context.Context) (map[int64]float64, error) {
	return f.prices, nil
}

func (f *fakeBackend) Upsert(ctx context.Context, row domain.LedgerRow) (bool, []string, error) {
	key := fmt.Sprintf("%d|%s", row.ItemID, Midnight(row.Date).Format("2006-01-02"))
	existing, ok := f.ledger[key]
	if !ok {
		existing = map[string]interface{}{}
		f.ledger[key] = existing
	}
	for name, value := range row.Fields {
		existing[name] = value
	}
	return !ok, nil, nil
}

func (f *fakeBackend) LatestAll(ctx context.Context, asOf time.Time) (map[int64]domain.CostComponents, error) {
	return f.costs, nil
}

func (f *fakeBackend) LabelsFor(ctx context.Context, items []domain.Item) (map[int64]string, error) {
	return f.managers, nil
}

func (f *fakeBackend) SyncSold(ctx context.Context, vendorCode string, date time.Time) error {
	b, ok := f.batches[vendorCode]
	if !ok || !b.active {
		return nil
	}
	sold := 0
	for _, row := range f.ledger {
		if row["vendor_code"] == vendorCode {
			if n, ok := row["orders_count"].(int); ok {
				sold += n
			}
		}
	}
	b.sold = sold
	if b.bought > 0 && sold >= b.bought {
		b.active = false
	}
	return nil
}

func newTestRunner(f *fakeBackend, batchSize int) *Runner {
	return NewRunner(RunnerConfig{
		Resolver:  ResolverConfig{TaxPercent: 12, DefectPercent: 2, AcquiringSurcharge: 1.1},
		BatchSize: batchSize,
	}, f, f, f, f, f, f, f, f, f)
}

func TestRunSecondPassUpdatesInsteadOfInserting(t *testing.T) {
	f := newFakeBackend()
	f.items = []domain.Item{
		{ItemID: 100, BundleID: 1, VendorCode: "A-1", Category: "Обувь"},
		{ItemID: 101, BundleID: 1, VendorCode: "A-2", Category: "Обувь"},
	}
	f.commission = CommissionTable{"обувь": 10}
	f.prices = map[int64]float64{100: 1000, 101: 500}
	f.sales[100] = domain.SalesRecord{ItemID: 100, OrdersCount: 5}

	runner := newTestRunner(f, 20)
	date := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	first, err := runner.Run(context.Background(), date)
	require.NoError(t, err)
	assert.Equal(t, 2, first.RowsInserted)
	assert.Equal(t, 0, first.RowsUpdated)

	second, err := runner.Run(context.Background(), date)
	require.NoError(t, err)
	assert.Equal(t, 0, second.RowsInserted)
	assert.Equal(t, 2, second.RowsUpdated)
	assert.Len(t, f.ledger, 2)
}

func TestRunComputesLedgerFields(t *testing.T) {
	f := newFakeBackend()
	f.items = []domain.Item{{ItemID: 100, BundleID: 7, VendorCode: "A-1", Category: "Обувь"}}
	f.commission = CommissionTable{"обувь": 10}
	f.prices = map[int64]float64{100: 1000}
	f.costs[100] = domain.CostComponents{
		PurchasePrice:       300,
		DeliveryToWarehouse: 30,
		Logistics:           50,
		Packaging:           20,
		Fuel:                20,
		Gift:                10,
		DefectPercent:       2,
	}
	f.sales[100] = domain.SalesRecord{ItemID: 100, OrdersCount: 5}
	f.ads[100] = domain.AdMetrics{ItemID: 100, Spend: 200}
	f.managers[100] = "Anna"
	f.batches["A-1"] = &fakeBatch{bought: 100, active: true}

	runner := newTestRunner(f, 20)
	date := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	_, err := runner.Run(context.Background(), date)
	require.NoError(t, err)

	row := f.ledger["100|2026-08-30"]
	require.NotNil(t, row)
	assert.Equal(t, int64(7), row["bundle_id"])
	assert.Equal(t, "Anna", row["manager"])
	assert.InDelta(t, 111.0, row["commission_amount"].(float64), 1e-9)
	assert.InDelta(t, 681.0, row["cost_price"].(float64), 1e-9)
	assert.Equal(t, 1395.0, row["total_profit"])
	assert.Equal(t, 5, f.batches["A-1"].sold)
}

func TestRunRerunKeepsBatchSoldDerived(t *testing.T) {
	f := newFakeBackend()
	f.items = []domain.Item{{ItemID: 100, BundleID: 1, VendorCode: "A-1"}}
	f.sales[100] = domain.SalesRecord{ItemID: 100, OrdersCount: 5}
	f.batches["A-1"] = &fakeBatch{bought: 100, active: true}

	runner := newTestRunner(f, 20)
	date := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	_, err := runner.Run(context.Background(), date)
	require.NoError(t, err)
	_, err = runner.Run(context.Background(), date)
	require.NoError(t, err)

	// Sold is derived from the ledger, so replaying the day leaves it at
	// the day's order count instead of doubling it.
	assert.Equal(t, 5, f.batches["A-1"].sold)
	assert.True(t, f.batches["A-1"].active)
}

func TestRunDeactivatesBatchAtBoughtQuantity(t *testing.T) {
	f := newFakeBackend()
	f.items = []domain.Item{
		{ItemID: 100, BundleID: 1, VendorCode: "A-1"},
		{ItemID: 101, BundleID: 2, VendorCode: "B-2"},
	}
	f.sales[100] = domain.SalesRecord{ItemID: 100, OrdersCount: 5}
	f.sales[101] = domain.SalesRecord{ItemID: 101, OrdersCount: 5}
	f.batches["A-1"] = &fakeBatch{bought: 5, active: true}
	f.batches["B-2"] = &fakeBatch{bought: 6, active: true}

	runner := newTestRunner(f, 20)
	_, err := runner.Run(context.Background(), time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.False(t, f.batches["A-1"].active)
	assert.Equal(t, 5, f.batches["A-1"].sold)
	assert.True(t, f.batches["B-2"].active)
	assert.Equal(t, 5, f.batches["B-2"].sold)
}

func TestRunSkipsFailedSalesBatch(t *testing.T) {
	f := newFakeBackend()
	for i := int64(1); i <= 25; i++ {
		f.items = append(f.items, domain.Item{ItemID: i, BundleID: i, VendorCode: fmt.Sprintf("V-%d", i)})
	}
	// Item 23 lands in the second batch of 20.
	f.failBatchWith = 23

	runner := newTestRunner(f, 20)
	summary, err := runner.Run(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 20, summary.RowsInserted)
	assert.Len(t, summary.SkippedBatches, 1)
	assert.Len(t, f.salesCalls, 2)
	assert.Len(t, f.salesCalls[0], 20)
	assert.Len(t, f.salesCalls[1], 5)
}

func TestRunClampsBatchSize(t *testing.T) {
	f := newFakeBackend()
	for i := int64(1); i <= 30; i++ {
		f.items = append(f.items, domain.Item{ItemID: i})
	}

	runner := newTestRunner(f, 50)
	_, err := runner.Run(context.Background(), time.Now())
	require.NoError(t, err)

	for _, call := range f.salesCalls {
		assert.LessOrEqual(t, len(call), 20)
	}
	assert.Len(t, f.salesCalls, 2)
}

func TestRunSurvivesCommissionOutage(t *testing.T) {
	f := newFakeBackend()
	f.items = []domain.Item{{ItemID: 1, Category: "Обувь"}}
	f.prices = map[int64]float64{1: 1000}
	f.commissionErr = errors.New("service unavailable")

	runner := newTestRunner(f, 20)
	summary, err := runner.Run(context.Background(), time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.RowsInserted)

	row := f.ledger["1|2026-08-30"]
	require.NotNil(t, row)
	assert.Equal(t, 0.0, row["commission_amount"])
	// Tax still applies without a commission table.
	assert.InDelta(t, 120.0, row["tax_amount"].(float64), 1e-9)
}

func TestMidnight(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*3600)
	stamp := time.Date(2026, 8, 30, 1, 30, 0, 0, moscow)

	// 01:30 MSK is still the previous UTC day.
	assert.Equal(t, time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), Midnight(stamp))
}

func TestParseDay(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
		ok   bool
	}{
		{"2026-08-30", time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), true},
		{"2026-08-30T15:04:05", time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), true},
		{"2026-08-30 15:04:05", time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), true},
		{"2026-08-30T15:04:05Z", time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), true},
		{"30.08.2026", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseDay(tt.raw)
		assert.Equal(t, tt.ok, ok, "raw %q", tt.raw)
		if tt.ok {
			assert.Equal(t, tt.want, got, "raw %q", tt.raw)
		}
	}
}
