package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wb-unit/backend-go/internal/domain"
)

func TestCalculateProfitFullScenario(t *testing.T) {
	// Shoes priced at 1000 with a 10% category commission: the acquiring
	// surcharge makes the commission 111, tax at 12% is 120, defect at 2%
	// is 20. Per-unit components add up to 430, so cost price is 681.
	r := testResolver(CommissionTable{"обувь": 10})
	carried := domain.CostComponents{
		PurchasePrice:       300,
		DeliveryToWarehouse: 30,
		Logistics:           50,
		Packaging:           20,
		Fuel:                20,
		Gift:                10,
		DefectPercent:       2,
	}
	resolved := r.Resolve(carried, "Обувь", 1000)

	figures := CalculateProfit(resolved, 5, 200)

	assert.InDelta(t, 681.0, figures.CostPrice, 1e-9)
	assert.InDelta(t, 319.0, figures.ProfitPerUnit, 1e-9)
	assert.Equal(t, 1395.0, figures.TotalProfit)
}

func TestCalculateProfitRoundsOnceAtTheEnd(t *testing.T) {
	resolved := domain.ResolvedCosts{
		Price:      10.111,
		Components: domain.CostComponents{PurchasePrice: 3.333},
	}

	figures := CalculateProfit(resolved, 3, 1.005)

	// (10.111-3.333)*3 - 1.005 = 19.329, not a sum of pre-rounded terms.
	assert.Equal(t, 19.33, figures.TotalProfit)
	assert.InDelta(t, 6.778, figures.ProfitPerUnit, 1e-9)
}

func TestCalculateProfitClipsNegativeOrders(t *testing.T) {
	resolved := domain.ResolvedCosts{Price: 100, Components: domain.CostComponents{PurchasePrice: 40}}

	figures := CalculateProfit(resolved, -3, 50)

	assert.Equal(t, -50.0, figures.TotalProfit)
}

func TestCalculateProfitSanitizesNonFiniteInputs(t *testing.T) {
	resolved := domain.ResolvedCosts{
		Price: 100,
		Components: domain.CostComponents{
			PurchasePrice: math.NaN(),
			Logistics:     math.Inf(1),
			Packaging:     10,
		},
	}

	figures := CalculateProfit(resolved, 2, math.NaN())

	assert.Equal(t, 10.0, figures.CostPrice)
	assert.Equal(t, 90.0, figures.ProfitPerUnit)
	assert.Equal(t, 180.0, figures.TotalProfit)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.56, Round2(1.556))
	assert.Equal(t, -1.56, Round2(-1.556))
	assert.Equal(t, 0.13, Round2(0.125))
	assert.Equal(t, 0.0, Round2(math.NaN()))
	assert.Equal(t, 0.0, Round2(math.Inf(-1)))
}
