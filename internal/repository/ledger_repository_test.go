package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLedgerUpdateOnlySetsSuppliedColumns(t *testing.T) {
	date := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	known := map[string]interface{}{"cost_price": 681.0, "sale_price": 1000.0}

	query, args := buildLedgerUpdate(100, date, []string{"cost_price", "sale_price"}, known, nil)

	assert.Equal(t,
		"UPDATE profit_ledger SET cost_price = $1, sale_price = $2, updated_at = NOW() WHERE item_id = $3 AND date = $4",
		query)
	require.Len(t, args, 4)
	assert.Equal(t, 681.0, args[0])
	assert.Equal(t, 1000.0, args[1])
	assert.Equal(t, int64(100), args[2])
	assert.Equal(t, date, args[3])

	// Columns absent from the patch never appear, so their stored values
	// survive the update.
	assert.NotContains(t, query, "orders_count")
	assert.NotContains(t, query, "ad_spend")
	assert.NotContains(t, query, "total_profit")
}

func TestBuildLedgerUpdateMergesExtra(t *testing.T) {
	date := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	query, args := buildLedgerUpdate(100, date, nil, nil, []byte(`{"custom":1}`))

	assert.Contains(t, query, "extra = COALESCE(extra, '{}'::jsonb) || $1")
	require.Len(t, args, 3)
	assert.Equal(t, []byte(`{"custom":1}`), args[0])
}

func TestBuildLedgerInsert(t *testing.T) {
	date := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	known := map[string]interface{}{"orders_count": 5}

	query, args := buildLedgerInsert(100, date, []string{"orders_count"}, known, []byte(`{}`))

	assert.Equal(t,
		"INSERT INTO profit_ledger (item_id, date, orders_count, extra) VALUES ($1, $2, $3, $4)",
		query)
	require.Len(t, args, 4)
	assert.Equal(t, 5, args[2])
}
