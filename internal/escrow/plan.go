package escrow

import "github.com/shopspring/decimal"

// recipientShare is one worker's cut of a release: the gross share split
// into net payout and platform commission. Net is rounded down to the
// smallest currency unit; the commission absorbs the per-share rounding so
// that net + commission always equals the gross share exactly.
type recipientShare struct {
	WorkerID   string
	Gross      decimal.Decimal
	Net        decimal.Decimal
	Commission decimal.Decimal
}

// settlementPlan is the pure outcome of splitting a release amount across
// the accepted workers. Remainder is the undistributed division leftover
// (amount - n*gross), always less than n smallest currency units.
type settlementPlan struct {
	Shares    []recipientShare
	Remainder decimal.Decimal
}

// buildSettlementPlan splits amount equally across the workers, rounding
// each gross share down to the currency scale, and applies the tiered
// commission per share. The invariant sum(net) + sum(commission) +
// remainder == amount holds exactly.
func buildSettlementPlan(amount decimal.Decimal, workerIDs []string, calc Calculator) settlementPlan {
	n := decimal.NewFromInt(int64(len(workerIDs)))
	gross := amount.Div(n).RoundDown(currencyScale)
	remainder := amount.Sub(gross.Mul(n))

	shares := make([]recipientShare, 0, len(workerIDs))
	for _, workerID := range workerIDs {
		rate := calc.Rate(gross)
		net := gross.Sub(gross.Mul(rate)).RoundDown(currencyScale)
		shares = append(shares, recipientShare{
			WorkerID:   workerID,
			Gross:      gross,
			Net:        net,
			Commission: gross.Sub(net),
		})
	}
	return settlementPlan{Shares: shares, Remainder: remainder}
}
