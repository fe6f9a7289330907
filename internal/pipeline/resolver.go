package pipeline

import (
	"strings"

	"github.com/wb-unit/backend-go/internal/domain"
)

// CommissionTable maps a normalized category name to its commission
// percentage. The source system is inconsistent about capitalization and
// stray whitespace, so lookups go through NormalizeCategory.
type CommissionTable map[string]float64

// NormalizeCategory lowercases and trims a category name for table lookup.
func NormalizeCategory(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Lookup returns the commission percentage for a category, matching
// case- and whitespace-insensitively.
func (t CommissionTable) Lookup(category string) (float64, bool) {
	percent, ok := t[NormalizeCategory(category)]
	return percent, ok
}

// ResolverConfig carries the run-wide cost constants.
type ResolverConfig struct {
	// TaxPercent is applied to every item's sale price regardless of
	// commission lookup success.
	TaxPercent float64
	// DefectPercent is the baseline used when an item has no persisted
	// cost components at all.
	DefectPercent float64
	// AcquiringSurcharge is the payment-processing fee added on top of the
	// category commission percentage.
	AcquiringSurcharge float64
}

// Resolver derives the full cost component set for one item on one day.
// It is a pure function of its inputs: all carry-forward state arrives as
// the carried CostComponents argument, read back from storage by the caller.
type Resolver struct {
	cfg        ResolverConfig
	commission CommissionTable
}

func NewResolver(cfg ResolverConfig, commission CommissionTable) *Resolver {
	if commission == nil {
		commission = CommissionTable{}
	}
	return &Resolver{cfg: cfg, commission: commission}
}

// Resolve produces ResolvedCosts for an item given its most recently
// persisted components (zero-valued if none exist), its category and its
// current discounted price.
//
// Carry-forward semantics: every component keeps its last known value; a
// brand-new item starts all-zero except the defect percentage, which takes
// the configured baseline. Price-derived amounts are zero whenever the
// price itself is zero or unusable.
func (r *Resolver) Resolve(carried domain.CostComponents, category string, price float64) domain.ResolvedCosts {
	components := carried
	if components.DefectPercent == 0 {
		components.DefectPercent = r.cfg.DefectPercent
	}
	components.TaxPercent = r.cfg.TaxPercent

	percent, ok := r.commission.Lookup(category)
	if ok {
		components.CommissionPercent = percent
	} else {
		components.CommissionPercent = 0
	}

	price = sanitizeFloat(price)
	if price < 0 {
		price = 0
	}

	resolved := domain.ResolvedCosts{
		Components: components,
		Price:      price,
	}
	if price == 0 {
		return resolved
	}

	if ok {
		resolved.CommissionAmount = price / 100 * (percent + r.cfg.AcquiringSurcharge)
	}
	resolved.TaxAmount = price / 100 * components.TaxPercent
	resolved.DefectAmount = price / 100 * components.DefectPercent

	return resolved
}
