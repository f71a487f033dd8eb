package escrow

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCalculatorTiers(t *testing.T) {
	calc := NewCalculator()

	cases := []struct {
		share string
		want  string
	}{
		{"100", "0.2"},
		{"499.99", "0.2"},
		{"500", "0.15"},
		{"500.01", "0.15"},
		{"10000", "0.15"},
	}
	for _, tc := range cases {
		share := decimal.RequireFromString(tc.share)
		want := decimal.RequireFromString(tc.want)
		if got := calc.Rate(share); !got.Equal(want) {
			t.Errorf("Rate(%s) = %s, want %s", tc.share, got, want)
		}
	}
}

func TestSettlementPlanSingleWorker(t *testing.T) {
	plan := buildSettlementPlan(decimal.NewFromInt(1_000), []string{"w1"}, NewCalculator())

	if len(plan.Shares) != 1 {
		t.Fatalf("expected one share, got %d", len(plan.Shares))
	}
	s := plan.Shares[0]
	if !s.Net.Equal(decimal.NewFromInt(850)) || !s.Commission.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected net 850 commission 150, got net %s commission %s", s.Net, s.Commission)
	}
	if !plan.Remainder.IsZero() {
		t.Fatalf("expected no remainder, got %s", plan.Remainder)
	}
}

func TestSettlementPlanBoundaryShare(t *testing.T) {
	plan := buildSettlementPlan(decimal.NewFromInt(500), []string{"w1"}, NewCalculator())

	s := plan.Shares[0]
	if !s.Net.Equal(decimal.NewFromInt(425)) || !s.Commission.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("share of exactly 500 must use 0.15: net %s commission %s", s.Net, s.Commission)
	}
}

func TestSettlementPlanUnevenSplit(t *testing.T) {
	plan := buildSettlementPlan(decimal.NewFromInt(1_000), []string{"w1", "w2", "w3"}, NewCalculator())

	gross := decimal.RequireFromString("333.33")
	total := plan.Remainder
	for _, s := range plan.Shares {
		if !s.Gross.Equal(gross) {
			t.Fatalf("expected gross share 333.33, got %s", s.Gross)
		}
		if !s.Net.Add(s.Commission).Equal(s.Gross) {
			t.Fatalf("net %s + commission %s != gross %s", s.Net, s.Commission, s.Gross)
		}
		if s.Net.Exponent() < -currencyScale {
			t.Fatalf("net %s has sub-cent precision", s.Net)
		}
		total = total.Add(s.Gross)
	}
	if !total.Equal(decimal.NewFromInt(1_000)) {
		t.Fatalf("shares plus remainder total %s, want 1000", total)
	}
	if !plan.Remainder.Equal(decimal.RequireFromString("0.01")) {
		t.Fatalf("expected remainder 0.01, got %s", plan.Remainder)
	}
}

func TestSettlementPlanTierPerShareNotTotal(t *testing.T) {
	// 1200 split across 4 workers: each share of 300 is in the 20% tier even
	// though the total is above 500.
	plan := buildSettlementPlan(decimal.NewFromInt(1_200), []string{"a", "b", "c", "d"}, NewCalculator())

	for _, s := range plan.Shares {
		if !s.Net.Equal(decimal.NewFromInt(240)) || !s.Commission.Equal(decimal.NewFromInt(60)) {
			t.Fatalf("expected net 240 commission 60 per share, got net %s commission %s", s.Net, s.Commission)
		}
	}
}
