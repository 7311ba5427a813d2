package card

import (
	"github.com/shopspring/decimal"

	"github.com/bibbank/approval/pkg/approval"
)

const (
	minLimit  = 500
	maxLimit  = 50000
	limitStep = 500
)

// CreditLimit estimates the card limit: 30% of income scaled by the approval
// probability, tenure and owned assets, rounded to the nearest $500 and
// bounded to [$500, $50,000].
func CreditLimit(r approval.Record, p float64) int64 {
	multiplier := decimal.NewFromFloat(0.5)
	switch {
	case p > 0.8:
		multiplier = decimal.NewFromFloat(1.5)
	case p > 0.6:
		multiplier = decimal.NewFromFloat(1.2)
	case p > 0.4:
		multiplier = decimal.NewFromInt(1)
	}

	switch years := r.Number("Years_of_Working"); {
	case years > 10:
		multiplier = multiplier.Mul(decimal.NewFromFloat(1.2))
	case years > 5:
		multiplier = multiplier.Mul(decimal.NewFromFloat(1.1))
	}
	if r.Category("Owned_Realty") == "Y" {
		multiplier = multiplier.Mul(decimal.NewFromFloat(1.3))
	}
	if r.Category("Owned_Car") == "Y" {
		multiplier = multiplier.Mul(decimal.NewFromFloat(1.1))
	}

	step := decimal.NewFromInt(limitStep)
	limit := decimal.NewFromFloat(r.Number("Total_Income")).
		Mul(decimal.NewFromFloat(0.3)).
		Mul(multiplier).
		Div(step).
		RoundBank(0).
		Mul(step).
		IntPart()

	return min(max(limit, minLimit), maxLimit)
}
