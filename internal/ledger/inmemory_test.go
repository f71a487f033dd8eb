package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestInMemoryLedger_HoldAndRelease(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	client := uuid.NewString()
	worker := uuid.NewString()
	platform := uuid.NewString()

	SeedWallet(l, client, dec(2_000), decimal.Zero)
	ref := Reference{Type: "project", ID: "project-1"}

	w, err := l.HoldFunds(ctx, client, dec(1_000), ref, "escrow deposit")
	if err != nil {
		t.Fatalf("hold funds: %v", err)
	}
	if !w.Balance.Equal(dec(1_000)) || !w.HeldBalance.Equal(dec(1_000)) {
		t.Fatalf("unexpected balances after hold: balance=%s held=%s", w.Balance, w.HeldBalance)
	}

	entries, err := l.Entries(ctx, w.ID)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != KindEscrowDeposit || !entries[0].Amount.Equal(dec(-1_000)) {
		t.Fatalf("expected single escrow_deposit of -1000, got %+v", entries)
	}

	res, err := l.ReleaseFunds(ctx, client, dec(1_000), ref, []Credit{
		{OwnerID: worker, Amount: dec(850), Kind: KindPaymentReceived, Description: "milestone payout"},
		{OwnerID: platform, Amount: dec(150), Kind: KindCommission, Description: "commission"},
	})
	if err != nil {
		t.Fatalf("release funds: %v", err)
	}
	if !res.Payer.HeldBalance.IsZero() {
		t.Fatalf("expected held balance 0, got %s", res.Payer.HeldBalance)
	}
	if !res.Credited[0].Balance.Equal(dec(850)) {
		t.Fatalf("expected worker balance 850, got %s", res.Credited[0].Balance)
	}
	if !res.Credited[1].Balance.Equal(dec(150)) {
		t.Fatalf("expected platform balance 150, got %s", res.Credited[1].Balance)
	}

	entries, _ = l.Entries(ctx, w.ID)
	if len(entries) != 2 || entries[1].Kind != KindEscrowRelease || !entries[1].Amount.IsZero() {
		t.Fatalf("expected zero-amount escrow_release marker, got %+v", entries)
	}
}

func TestInMemoryLedger_HoldInsufficientFunds(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	client := uuid.NewString()
	SeedWallet(l, client, dec(100), decimal.Zero)

	_, err := l.HoldFunds(ctx, client, dec(1_000), Reference{Type: "project", ID: "p"}, "escrow deposit")
	var insufficient *InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if !insufficient.Requested.Equal(dec(1_000)) || !insufficient.Available.Equal(dec(100)) {
		t.Fatalf("error amounts wrong: %+v", insufficient)
	}

	w, _ := l.GetOrCreateWallet(ctx, client)
	if !w.Balance.Equal(dec(100)) || !w.HeldBalance.IsZero() {
		t.Fatalf("balances mutated on failed hold: %+v", w)
	}
	if entries, _ := l.Entries(ctx, w.ID); len(entries) != 0 {
		t.Fatalf("expected no entries on failed hold, got %d", len(entries))
	}
}

func TestInMemoryLedger_ReleaseInsufficientEscrow(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	client := uuid.NewString()
	SeedWallet(l, client, decimal.Zero, dec(500))

	_, err := l.ReleaseFunds(ctx, client, dec(1_000), Reference{Type: "project", ID: "p"}, []Credit{
		{OwnerID: uuid.NewString(), Amount: dec(1_000), Kind: KindPaymentReceived},
	})
	var insufficient *InsufficientEscrowError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientEscrowError, got %v", err)
	}

	w, _ := l.GetOrCreateWallet(ctx, client)
	if !w.HeldBalance.Equal(dec(500)) {
		t.Fatalf("held balance mutated on failed release: %s", w.HeldBalance)
	}
}

func TestInMemoryLedger_CreditsExceedingAmountRejected(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	client := uuid.NewString()
	SeedWallet(l, client, decimal.Zero, dec(1_000))

	_, err := l.ReleaseFunds(ctx, client, dec(1_000), Reference{Type: "project", ID: "p"}, []Credit{
		{OwnerID: uuid.NewString(), Amount: dec(900), Kind: KindPaymentReceived},
		{OwnerID: uuid.NewString(), Amount: dec(200), Kind: KindCommission},
	})
	if err == nil {
		t.Fatalf("expected error when credits exceed released amount")
	}
}

func TestInMemoryLedger_EntrySumReconciliation(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	client := uuid.NewString()
	worker := uuid.NewString()
	ref := Reference{Type: "project", ID: "p"}

	if _, err := l.Recharge(ctx, client, dec(5_000), ref, "top-up"); err != nil {
		t.Fatalf("recharge: %v", err)
	}
	if _, err := l.HoldFunds(ctx, client, dec(2_000), ref, "escrow deposit"); err != nil {
		t.Fatalf("hold: %v", err)
	}
	if _, err := l.ReleaseFunds(ctx, client, dec(2_000), ref, []Credit{
		{OwnerID: worker, Amount: dec(1_700), Kind: KindPaymentReceived},
	}); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := l.Withdraw(ctx, client, dec(1_000), ref, "payout to bank"); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	for _, owner := range []string{client, worker} {
		w, _ := l.GetOrCreateWallet(ctx, owner)
		entries, _ := l.Entries(ctx, w.ID)
		sum := decimal.Zero
		for _, e := range entries {
			sum = sum.Add(e.Amount)
		}
		if !sum.Equal(w.Balance) {
			t.Fatalf("entries for %s sum to %s, balance is %s", owner, sum, w.Balance)
		}
		if w.Balance.IsNegative() || w.HeldBalance.IsNegative() {
			t.Fatalf("negative balance for %s: %+v", owner, w)
		}
	}
}

func TestInMemoryLedger_ConcurrentReleasesNeverOverdraw(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	client := uuid.NewString()
	worker := uuid.NewString()
	SeedWallet(l, client, decimal.Zero, dec(1_000))

	release := func(amount decimal.Decimal) error {
		_, err := l.ReleaseFunds(ctx, client, amount, Reference{Type: "project", ID: "p"}, []Credit{
			{OwnerID: worker, Amount: amount, Kind: KindPaymentReceived},
		})
		return err
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = release(dec(700))
		}(i)
	}
	wg.Wait()

	var failures int
	for _, err := range errs {
		if err != nil {
			var insufficient *InsufficientEscrowError
			if !errors.As(err, &insufficient) {
				t.Fatalf("unexpected error: %v", err)
			}
			failures++
		}
	}
	if failures != 1 {
		t.Fatalf("expected exactly one release to fail, got %d failures", failures)
	}

	w, _ := l.GetOrCreateWallet(ctx, client)
	if !w.HeldBalance.Equal(dec(300)) {
		t.Fatalf("expected held balance 300 after one release, got %s", w.HeldBalance)
	}
}

func TestInMemoryLedger_ConcurrentGetOrCreate(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	owner := uuid.NewString()

	const workers = 16
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, err := l.GetOrCreateWallet(ctx, owner)
			if err != nil {
				t.Errorf("get or create: %v", err)
				return
			}
			ids[i] = w.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("duplicate wallets created for one owner: %v", ids)
		}
	}
}

func TestInMemoryLedger_CreditWithoutOwnerLeavesNoTrace(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	client := uuid.NewString()
	worker := uuid.NewString()
	SeedWallet(l, client, decimal.Zero, dec(1_000))

	ref := Reference{Type: "project", ID: uuid.NewString()}
	_, err := l.ReleaseFunds(ctx, client, dec(1_000), ref, []Credit{
		{OwnerID: worker, Amount: dec(500), Kind: KindPaymentReceived},
		{OwnerID: "", Amount: dec(500), Kind: KindCommission},
	})
	if err == nil {
		t.Fatalf("expected release to reject a credit without an owner")
	}

	payer, _ := l.GetOrCreateWallet(ctx, client)
	if !payer.HeldBalance.Equal(dec(1_000)) {
		t.Fatalf("failed release must not debit held balance, got %s", payer.HeldBalance)
	}
	workerWallet, _ := l.GetOrCreateWallet(ctx, worker)
	if !workerWallet.Balance.IsZero() {
		t.Fatalf("failed release must not credit recipients, got %s", workerWallet.Balance)
	}
	entries, _ := l.Entries(ctx, payer.ID)
	if len(entries) != 0 {
		t.Fatalf("failed release must not append entries, got %d", len(entries))
	}
}
