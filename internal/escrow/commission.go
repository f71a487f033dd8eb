package escrow

import "github.com/shopspring/decimal"

// currencyScale is the number of decimal places in the smallest currency
// unit. All amounts leaving the settlement math are rounded to this scale.
const currencyScale = 2

// Calculator maps a monetary amount to a commission rate. Pure, no side
// effects. The tier is decided by the per-recipient share, not the total
// release amount.
type Calculator struct {
	threshold decimal.Decimal
	lowerRate decimal.Decimal // below threshold
	upperRate decimal.Decimal // at or above threshold
}

// NewCalculator returns the platform's standard tiered calculator: 20%
// below 500, 15% at 500 and above.
func NewCalculator() Calculator {
	return Calculator{
		threshold: decimal.NewFromInt(500),
		lowerRate: decimal.New(20, -2),
		upperRate: decimal.New(15, -2),
	}
}

// Rate returns the commission fraction for the given share. Exactly 500
// lands in the upper tier.
func (c Calculator) Rate(share decimal.Decimal) decimal.Decimal {
	if share.GreaterThanOrEqual(c.threshold) {
		return c.upperRate
	}
	return c.lowerRate
}
