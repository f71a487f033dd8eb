package escrow

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lancepay/lance_pay/internal/ledger"
	"github.com/lancepay/lance_pay/internal/logging"
	"github.com/lancepay/lance_pay/internal/notification"
	"github.com/lancepay/lance_pay/internal/project"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type testNotifier struct {
	messages []notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.messages = append(n.messages, msg)
	return nil
}

type fixture struct {
	svc       *Service
	led       ledger.Ledger
	projects  *project.Service
	notifier  *testNotifier
	clientID  string
	platform  string
	projectID string
}

func newFixture(t *testing.T, acceptedWorkers []string, platformOwner string) fixture {
	t.Helper()
	led := ledger.NewInMemory()
	repo := project.NewMemoryRepository()
	projects := project.NewService(repo)
	notifier := &testNotifier{}
	ctx := context.Background()

	clientID := uuid.NewString()
	p, err := projects.Create(ctx, project.CreateInput{ClientID: clientID, Title: "site build"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	for _, workerID := range acceptedWorkers {
		if err := projects.Apply(ctx, p.ID, workerID); err != nil {
			t.Fatalf("apply: %v", err)
		}
		if err := projects.Accept(ctx, p.ID, workerID, clientID); err != nil {
			t.Fatalf("accept: %v", err)
		}
	}

	svc, err := NewService(led, repo, notifier, platformOwner, logging.Discard())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return fixture{
		svc:       svc,
		led:       led,
		projects:  projects,
		notifier:  notifier,
		clientID:  clientID,
		platform:  platformOwner,
		projectID: p.ID,
	}
}

func TestDepositMovesFundsToEscrow(t *testing.T) {
	worker := uuid.NewString()
	f := newFixture(t, []string{worker}, uuid.NewString())
	ctx := context.Background()
	ledger.SeedWallet(f.led, f.clientID, dec(2_000), decimal.Zero)

	w, err := f.svc.Deposit(ctx, DepositInput{ClientID: f.clientID, ProjectID: f.projectID, Amount: dec(1_000)})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !w.Balance.Equal(dec(1_000)) || !w.HeldBalance.Equal(dec(1_000)) {
		t.Fatalf("unexpected balances: balance=%s held=%s", w.Balance, w.HeldBalance)
	}

	entries, _ := f.led.Entries(ctx, w.ID)
	if len(entries) != 1 || entries[0].Kind != ledger.KindEscrowDeposit || !entries[0].Amount.Equal(dec(-1_000)) {
		t.Fatalf("expected one escrow_deposit entry of -1000, got %+v", entries)
	}
	if entries[0].Reference.Type != "project" || entries[0].Reference.ID != f.projectID {
		t.Fatalf("entry must reference the project, got %+v", entries[0].Reference)
	}
}

func TestReleaseSingleWorker(t *testing.T) {
	worker := uuid.NewString()
	f := newFixture(t, []string{worker}, uuid.NewString())
	ctx := context.Background()
	ledger.SeedWallet(f.led, f.clientID, dec(2_000), decimal.Zero)

	if _, err := f.svc.Deposit(ctx, DepositInput{ClientID: f.clientID, ProjectID: f.projectID, Amount: dec(1_000)}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	outcome, err := f.svc.Release(ctx, ReleaseInput{ClientID: f.clientID, ProjectID: f.projectID, Amount: dec(1_000)})
	if err != nil {
		t.Fatalf("release: %v", err)
	}

	if !outcome.Payer.HeldBalance.IsZero() {
		t.Fatalf("expected held balance 0, got %s", outcome.Payer.HeldBalance)
	}
	if len(outcome.Payouts) != 1 || !outcome.Payouts[0].Net.Equal(dec(850)) {
		t.Fatalf("expected worker net 850, got %+v", outcome.Payouts)
	}
	if !outcome.Commission.Equal(dec(150)) {
		t.Fatalf("expected commission 150, got %s", outcome.Commission)
	}

	workerWallet, _ := f.led.GetOrCreateWallet(ctx, worker)
	if !workerWallet.Balance.Equal(dec(850)) {
		t.Fatalf("expected worker balance 850, got %s", workerWallet.Balance)
	}
	platformWallet, _ := f.led.GetOrCreateWallet(ctx, f.platform)
	if !platformWallet.Balance.Equal(dec(150)) {
		t.Fatalf("expected platform balance 150, got %s", platformWallet.Balance)
	}

	var payouts int
	for _, msg := range f.notifier.messages {
		if msg.Kind == notification.KindPayout && msg.Destination == worker {
			payouts++
		}
	}
	if payouts != 1 {
		t.Fatalf("expected one payout notification, got %d", payouts)
	}
}

func TestReleaseBoundaryShare(t *testing.T) {
	worker := uuid.NewString()
	f := newFixture(t, []string{worker}, uuid.NewString())
	ctx := context.Background()
	ledger.SeedWallet(f.led, f.clientID, dec(5_000), decimal.Zero)

	if _, err := f.svc.Deposit(ctx, DepositInput{ClientID: f.clientID, ProjectID: f.projectID, Amount: dec(500)}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	outcome, err := f.svc.Release(ctx, ReleaseInput{ClientID: f.clientID, ProjectID: f.projectID, Amount: dec(500)})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if !outcome.Payouts[0].Net.Equal(dec(425)) || !outcome.Commission.Equal(dec(75)) {
		t.Fatalf("share of 500 must settle at 0.15: net %s commission %s", outcome.Payouts[0].Net, outcome.Commission)
	}
}

func TestReleaseSplitAcrossWorkers(t *testing.T) {
	first := uuid.NewString()
	second := uuid.NewString()
	f := newFixture(t, []string{first, second}, uuid.NewString())
	ctx := context.Background()
	ledger.SeedWallet(f.led, f.clientID, dec(1_000), decimal.Zero)

	if _, err := f.svc.Deposit(ctx, DepositInput{ClientID: f.clientID, ProjectID: f.projectID, Amount: dec(1_000)}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	outcome, err := f.svc.Release(ctx, ReleaseInput{ClientID: f.clientID, ProjectID: f.projectID, Amount: dec(1_000)})
	if err != nil {
		t.Fatalf("release: %v", err)
	}

	// Each share of 500 sits on the 0.15 boundary.
	for _, p := range outcome.Payouts {
		if !p.Net.Equal(dec(425)) || !p.Commission.Equal(dec(75)) {
			t.Fatalf("expected net 425 commission 75 per worker, got %+v", p)
		}
	}

	// Conservation: nets plus commission equal the released amount.
	total := outcome.Commission
	for _, p := range outcome.Payouts {
		total = total.Add(p.Net)
	}
	if !total.Equal(dec(1_000)) {
		t.Fatalf("release does not conserve money: total %s", total)
	}
}

func TestDepositInsufficientFunds(t *testing.T) {
	f := newFixture(t, []string{uuid.NewString()}, uuid.NewString())
	ctx := context.Background()
	ledger.SeedWallet(f.led, f.clientID, dec(100), decimal.Zero)

	_, err := f.svc.Deposit(ctx, DepositInput{ClientID: f.clientID, ProjectID: f.projectID, Amount: dec(1_000)})
	var insufficient *ledger.InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if !insufficient.Requested.Equal(dec(1_000)) || !insufficient.Available.Equal(dec(100)) {
		t.Fatalf("error must carry requested and available amounts: %+v", insufficient)
	}

	w, _ := f.led.GetOrCreateWallet(ctx, f.clientID)
	if !w.Balance.Equal(dec(100)) || !w.HeldBalance.IsZero() {
		t.Fatalf("wallet mutated by failed deposit: %+v", w)
	}
	if entries, _ := f.led.Entries(ctx, w.ID); len(entries) != 0 {
		t.Fatalf("expected no ledger entries after failed deposit, got %d", len(entries))
	}
}

func TestReleaseNoEligibleRecipients(t *testing.T) {
	f := newFixture(t, nil, uuid.NewString())
	ctx := context.Background()
	ledger.SeedWallet(f.led, f.clientID, decimal.Zero, dec(1_000))

	_, err := f.svc.Release(ctx, ReleaseInput{ClientID: f.clientID, ProjectID: f.projectID, Amount: dec(1_000)})
	var noRecipients *NoEligibleRecipientsError
	if !errors.As(err, &noRecipients) {
		t.Fatalf("expected NoEligibleRecipientsError, got %v", err)
	}

	w, _ := f.led.GetOrCreateWallet(ctx, f.clientID)
	if !w.HeldBalance.Equal(dec(1_000)) {
		t.Fatalf("held balance mutated by failed release: %s", w.HeldBalance)
	}
}

func TestReleaseWithoutPlatformWalletSkipsCommission(t *testing.T) {
	worker := uuid.NewString()
	f := newFixture(t, []string{worker}, "")
	ctx := context.Background()
	ledger.SeedWallet(f.led, f.clientID, decimal.Zero, dec(1_000))

	outcome, err := f.svc.Release(ctx, ReleaseInput{ClientID: f.clientID, ProjectID: f.projectID, Amount: dec(1_000)})
	if err != nil {
		t.Fatalf("release: %v", err)
	}

	// The worker is not penalized by the platform's misconfiguration.
	workerWallet, _ := f.led.GetOrCreateWallet(ctx, worker)
	if !workerWallet.Balance.Equal(dec(850)) {
		t.Fatalf("expected worker balance 850, got %s", workerWallet.Balance)
	}
	if !outcome.Commission.IsZero() {
		t.Fatalf("expected no commission credited, got %s", outcome.Commission)
	}
}

func TestProcessProjectPayment(t *testing.T) {
	worker := uuid.NewString()
	f := newFixture(t, []string{worker}, uuid.NewString())
	ctx := context.Background()
	ledger.SeedWallet(f.led, f.clientID, dec(2_000), decimal.Zero)

	outcome, err := f.svc.ProcessProjectPayment(ctx, DepositInput{ClientID: f.clientID, ProjectID: f.projectID, Amount: dec(1_000)})
	if err != nil {
		t.Fatalf("process payment: %v", err)
	}
	if !outcome.Release.Payer.HeldBalance.IsZero() {
		t.Fatalf("expected held balance 0 after chained payment, got %s", outcome.Release.Payer.HeldBalance)
	}
	workerWallet, _ := f.led.GetOrCreateWallet(ctx, worker)
	if !workerWallet.Balance.Equal(dec(850)) {
		t.Fatalf("expected worker balance 850, got %s", workerWallet.Balance)
	}
}

func TestProcessProjectPaymentDepositSurvivesFailedRelease(t *testing.T) {
	// No accepted workers: the release step fails but the deposit stays
	// committed. The composition is not atomic across its two steps.
	f := newFixture(t, nil, uuid.NewString())
	ctx := context.Background()
	ledger.SeedWallet(f.led, f.clientID, dec(2_000), decimal.Zero)

	_, err := f.svc.ProcessProjectPayment(ctx, DepositInput{ClientID: f.clientID, ProjectID: f.projectID, Amount: dec(1_000)})
	var noRecipients *NoEligibleRecipientsError
	if !errors.As(err, &noRecipients) {
		t.Fatalf("expected NoEligibleRecipientsError, got %v", err)
	}

	w, _ := f.led.GetOrCreateWallet(ctx, f.clientID)
	if !w.Balance.Equal(dec(1_000)) || !w.HeldBalance.Equal(dec(1_000)) {
		t.Fatalf("deposit should remain committed: %+v", w)
	}
}

func TestReleaseUnevenSplitConservesMoney(t *testing.T) {
	workers := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}
	f := newFixture(t, workers, uuid.NewString())
	ctx := context.Background()
	ledger.SeedWallet(f.led, f.clientID, decimal.Zero, dec(1_000))

	outcome, err := f.svc.Release(ctx, ReleaseInput{ClientID: f.clientID, ProjectID: f.projectID, Amount: dec(1_000)})
	if err != nil {
		t.Fatalf("release: %v", err)
	}

	total := outcome.Commission
	for _, p := range outcome.Payouts {
		total = total.Add(p.Net)
	}
	if !total.Equal(dec(1_000)) {
		t.Fatalf("nets plus commission must equal the released amount, got %s", total)
	}

	// Every credited wallet reconciles against its entries.
	for _, owner := range append(workers, f.platform) {
		w, _ := f.led.GetOrCreateWallet(ctx, owner)
		entries, _ := f.led.Entries(ctx, w.ID)
		sum := decimal.Zero
		for _, e := range entries {
			sum = sum.Add(e.Amount)
		}
		if !sum.Equal(w.Balance) {
			t.Fatalf("entries for %s sum to %s, balance is %s", owner, sum, w.Balance)
		}
	}
}

func TestGetWalletCreatesOnFirstAccess(t *testing.T) {
	f := newFixture(t, []string{uuid.NewString()}, uuid.NewString())
	ctx := context.Background()
	owner := uuid.NewString()

	w, err := f.svc.GetWallet(ctx, owner)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !w.Balance.IsZero() || !w.HeldBalance.IsZero() {
		t.Fatalf("fresh wallet must have zero balances: %+v", w)
	}

	again, err := f.svc.GetWallet(ctx, owner)
	if err != nil {
		t.Fatalf("get wallet again: %v", err)
	}
	if again.ID != w.ID {
		t.Fatalf("repeat access created a new wallet: %s vs %s", again.ID, w.ID)
	}
}
