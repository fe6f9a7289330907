package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wb-unit/backend-go/internal/domain"
)

func testResolver(table CommissionTable) *Resolver {
	return NewResolver(ResolverConfig{
		TaxPercent:         12,
		DefectPercent:      2,
		AcquiringSurcharge: 1.1,
	}, table)
}

func TestCommissionTableLookupNormalizesCategory(t *testing.T) {
	table := CommissionTable{"смартфоны": 18.5, "обувь": 10}

	tests := []struct {
		category string
		percent  float64
	}{
		{"Смартфоны", 18.5},
		{"СМАРТФОНЫ", 18.5},
		{" смартфоны ", 18.5},
		{"Смартфоны ", 18.5},
		{"Обувь", 10},
	}
	for _, tt := range tests {
		percent, ok := table.Lookup(tt.category)
		require.True(t, ok, "category %q", tt.category)
		assert.Equal(t, tt.percent, percent, "category %q", tt.category)
	}

	_, ok := table.Lookup("Мебель")
	assert.False(t, ok)
}

func TestResolveNewItemGetsDefectBaseline(t *testing.T) {
	r := testResolver(CommissionTable{"обувь": 10})

	resolved := r.Resolve(domain.CostComponents{}, "Обувь", 1000)

	assert.Equal(t, 2.0, resolved.Components.DefectPercent)
	assert.Equal(t, 12.0, resolved.Components.TaxPercent)
	assert.Equal(t, 10.0, resolved.Components.CommissionPercent)
	assert.InDelta(t, 111.0, resolved.CommissionAmount, 1e-9)
	assert.InDelta(t, 120.0, resolved.TaxAmount, 1e-9)
	assert.InDelta(t, 20.0, resolved.DefectAmount, 1e-9)
}

func TestResolveCarriesForwardLastKnownValues(t *testing.T) {
	r := testResolver(CommissionTable{"обувь": 10})

	carried := domain.CostComponents{
		PurchasePrice:       300,
		DeliveryToWarehouse: 30,
		Logistics:           50,
		Packaging:           20,
		Fuel:                20,
		Gift:                10,
		DefectPercent:       5,
	}
	resolved := r.Resolve(carried, "Обувь", 1000)

	assert.Equal(t, 300.0, resolved.Components.PurchasePrice)
	assert.Equal(t, 50.0, resolved.Components.Logistics)
	// A persisted defect percentage wins over the baseline.
	assert.Equal(t, 5.0, resolved.Components.DefectPercent)
	assert.InDelta(t, 50.0, resolved.DefectAmount, 1e-9)
}

func TestResolveCommissionMissMeansZero(t *testing.T) {
	r := testResolver(CommissionTable{"обувь": 10})

	carried := domain.CostComponents{CommissionPercent: 10}
	resolved := r.Resolve(carried, "Мебель", 1000)

	assert.Equal(t, 0.0, resolved.Components.CommissionPercent)
	assert.Equal(t, 0.0, resolved.CommissionAmount)
	// Tax and defect still apply.
	assert.InDelta(t, 120.0, resolved.TaxAmount, 1e-9)
}

func TestResolveZeroPriceZeroesDerivedAmounts(t *testing.T) {
	r := testResolver(CommissionTable{"обувь": 10})

	carried := domain.CostComponents{PurchasePrice: 300, DefectPercent: 2}
	for _, price := range []float64{0, -5} {
		resolved := r.Resolve(carried, "Обувь", price)

		assert.Equal(t, 0.0, resolved.Price)
		assert.Equal(t, 0.0, resolved.CommissionAmount)
		assert.Equal(t, 0.0, resolved.TaxAmount)
		assert.Equal(t, 0.0, resolved.DefectAmount)
		// Per-unit components keep their carried values.
		assert.Equal(t, 300.0, resolved.Components.PurchasePrice)
	}
}

func TestResolveSanitizesNonFinitePrice(t *testing.T) {
	r := testResolver(CommissionTable{"обувь": 10})

	nan := 0.0
	nan /= nan
	resolved := r.Resolve(domain.CostComponents{}, "Обувь", nan)

	assert.Equal(t, 0.0, resolved.Price)
	assert.Equal(t, 0.0, resolved.TaxAmount)
}
