package pipeline

import (
	"math"

	"github.com/wb-unit/backend-go/internal/domain"
)

// ProfitFigures is the calculator output for one (item, day) line.
type ProfitFigures struct {
	CostPrice     float64
	ProfitPerUnit float64
	TotalProfit   float64
}

// CalculateProfit combines resolved costs, a day's order count and the
// attributed ad spend into the line's profit figures.
//
// Cost price is the sum of every per-unit cost component plus the
// price-derived commission, tax and defect amounts. Total profit is
// rounded to 2 decimals once, at the end; intermediate terms stay exact so
// rounding error does not compound. Non-finite inputs and negative order
// counts are clipped to zero before computing.
func CalculateProfit(costs domain.ResolvedCosts, ordersCount int, adSpend float64) ProfitFigures {
	if ordersCount < 0 {
		ordersCount = 0
	}
	adSpend = sanitizeFloat(adSpend)

	c := costs.Components
	costPrice := sanitizeFloat(c.PurchasePrice) +
		sanitizeFloat(c.DeliveryToWarehouse) +
		sanitizeFloat(costs.CommissionAmount) +
		sanitizeFloat(c.Logistics) +
		sanitizeFloat(costs.TaxAmount) +
		sanitizeFloat(c.Packaging) +
		sanitizeFloat(c.Fuel) +
		sanitizeFloat(c.Gift) +
		sanitizeFloat(costs.DefectAmount)

	profitPerUnit := sanitizeFloat(costs.Price) - costPrice

	return ProfitFigures{
		CostPrice:     costPrice,
		ProfitPerUnit: profitPerUnit,
		TotalProfit:   Round2(profitPerUnit*float64(ordersCount) - adSpend),
	}
}

// Round2 rounds to 2 decimal places, half away from zero.
func Round2(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return math.Round(f*100) / 100
}
