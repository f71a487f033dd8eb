package escrow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lancepay/lance_pay/internal/ledger"
	"github.com/lancepay/lance_pay/internal/notification"
	"github.com/lancepay/lance_pay/internal/project"
)

// NoEligibleRecipientsError indicates a release was attempted on a project
// with no accepted workers.
type NoEligibleRecipientsError struct {
	ProjectID string
}

func (e *NoEligibleRecipientsError) Error() string {
	return fmt.Sprintf("no accepted workers on project %s", e.ProjectID)
}

// Service orchestrates escrow deposits and releases. All balance mutation
// goes through the ledger's atomic operations; the service owns the pure
// settlement math and the accepted-worker lookup.
type Service struct {
	ledger          ledger.Ledger
	projects        project.Repository
	notifier        notification.Notifier
	calc            Calculator
	platformOwnerID string
	logger          *slog.Logger
}

// NewService builds the escrow service. platformOwnerID designates the
// wallet that receives commission; it is resolved once here, not per
// release. It may be empty, in which case commission crediting is skipped
// and workers are still paid.
func NewService(ledgerBackend ledger.Ledger, projects project.Repository, notifier notification.Notifier, platformOwnerID string, logger *slog.Logger) (*Service, error) {
	if ledgerBackend == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if projects == nil {
		return nil, fmt.Errorf("project repository is required")
	}
	if platformOwnerID != "" {
		if _, err := uuid.Parse(platformOwnerID); err != nil {
			return nil, fmt.Errorf("invalid platform owner id: %w", err)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		ledger:          ledgerBackend,
		projects:        projects,
		notifier:        notifier,
		calc:            NewCalculator(),
		platformOwnerID: platformOwnerID,
		logger:          logger,
	}, nil
}

// DepositInput captures the data needed to fund a project's escrow.
type DepositInput struct {
	ClientID  string
	ProjectID string
	Amount    decimal.Decimal
}

// ReleaseInput captures the data needed to settle escrowed funds.
type ReleaseInput struct {
	ClientID  string
	ProjectID string
	Amount    decimal.Decimal
}

// Payout reports one worker's settlement in a release.
type Payout struct {
	WorkerID   string
	Net        decimal.Decimal
	Commission decimal.Decimal
}

// ReleaseOutcome describes the committed result of a release.
type ReleaseOutcome struct {
	Payer       ledger.Wallet
	Payouts     []Payout
	Commission  decimal.Decimal
	CompletedAt time.Time
}

// PaymentOutcome describes the result of a deposit-then-release composition.
type PaymentOutcome struct {
	Deposit ledger.Wallet
	Release ReleaseOutcome
}

// GetWallet returns the user's wallet, creating one with zero balances on
// first access.
func (s *Service) GetWallet(ctx context.Context, ownerID string) (ledger.Wallet, error) {
	return s.ledger.GetOrCreateWallet(ctx, ownerID)
}

// Deposit moves amount from the client's spendable balance into escrow for
// the project. One atomic unit: balance debit, held credit and the
// escrow_deposit entry commit together or not at all.
func (s *Service) Deposit(ctx context.Context, input DepositInput) (ledger.Wallet, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return ledger.Wallet{}, fmt.Errorf("amount must be positive")
	}
	if _, err := s.projects.Get(ctx, input.ProjectID); err != nil {
		return ledger.Wallet{}, err
	}

	ref := ledger.Reference{Type: "project", ID: input.ProjectID}
	w, err := s.ledger.HoldFunds(ctx, input.ClientID, input.Amount, ref,
		fmt.Sprintf("escrow deposit for project %s", input.ProjectID))
	if err != nil {
		return ledger.Wallet{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindEscrowFunded,
			Destination: input.ClientID,
			Body:        fmt.Sprintf("Escrow funded with %s for project %s", input.Amount, input.ProjectID),
		})
	}
	return w, nil
}

// Release settles amount of the client's escrow across the project's
// accepted workers, read live at call time. The whole fan-out commits as
// one atomic unit; recipients are processed in the order the worker set is
// read.
func (s *Service) Release(ctx context.Context, input ReleaseInput) (ReleaseOutcome, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return ReleaseOutcome{}, fmt.Errorf("amount must be positive")
	}
	if _, err := s.projects.Get(ctx, input.ProjectID); err != nil {
		return ReleaseOutcome{}, err
	}

	workers, err := s.projects.AcceptedWorkers(ctx, input.ProjectID)
	if err != nil {
		return ReleaseOutcome{}, err
	}
	if len(workers) == 0 {
		return ReleaseOutcome{}, &NoEligibleRecipientsError{ProjectID: input.ProjectID}
	}

	plan := buildSettlementPlan(input.Amount, workers, s.calc)
	credits, payouts, commission := s.credits(plan, input.ProjectID)

	ref := ledger.Reference{Type: "project", ID: input.ProjectID}
	res, err := s.ledger.ReleaseFunds(ctx, input.ClientID, input.Amount, ref, credits)
	if err != nil {
		return ReleaseOutcome{}, err
	}

	if s.notifier != nil {
		for _, p := range payouts {
			_ = s.notifier.Send(ctx, notification.Message{
				Kind:        notification.KindPayout,
				Destination: p.WorkerID,
				Body:        fmt.Sprintf("You received %s for project %s", p.Net, input.ProjectID),
			})
		}
	}

	return ReleaseOutcome{
		Payer:       res.Payer,
		Payouts:     payouts,
		Commission:  commission,
		CompletedAt: time.Now().UTC(),
	}, nil
}

// ProcessProjectPayment funds escrow and immediately releases the same
// amount. A convenience composition, not atomic across the two steps: if
// the release fails the deposit's effects remain committed.
func (s *Service) ProcessProjectPayment(ctx context.Context, input DepositInput) (PaymentOutcome, error) {
	deposited, err := s.Deposit(ctx, input)
	if err != nil {
		return PaymentOutcome{}, err
	}
	released, err := s.Release(ctx, ReleaseInput{ClientID: input.ClientID, ProjectID: input.ProjectID, Amount: input.Amount})
	if err != nil {
		return PaymentOutcome{}, fmt.Errorf("deposit committed but release failed: %w", err)
	}
	return PaymentOutcome{Deposit: deposited, Release: released}, nil
}

// credits turns a settlement plan into the ordered ledger credits: each
// worker's net payout followed by its commission credit, with the rounding
// remainder appended to the platform wallet last.
func (s *Service) credits(plan settlementPlan, projectID string) ([]ledger.Credit, []Payout, decimal.Decimal) {
	credits := make([]ledger.Credit, 0, 2*len(plan.Shares)+1)
	payouts := make([]Payout, 0, len(plan.Shares))
	commission := decimal.Zero

	platform := s.platformOwnerID
	if platform == "" {
		s.logger.Warn("platform wallet not configured, skipping commission", "project_id", projectID)
	}

	for _, share := range plan.Shares {
		if share.Net.GreaterThan(decimal.Zero) {
			credits = append(credits, ledger.Credit{
				OwnerID:     share.WorkerID,
				Amount:      share.Net,
				Kind:        ledger.KindPaymentReceived,
				Description: fmt.Sprintf("milestone payout for project %s", projectID),
			})
		}
		if platform != "" && share.Commission.GreaterThan(decimal.Zero) {
			credits = append(credits, ledger.Credit{
				OwnerID:     platform,
				Amount:      share.Commission,
				Kind:        ledger.KindCommission,
				Description: fmt.Sprintf("commission for worker %s on project %s", share.WorkerID, projectID),
			})
			commission = commission.Add(share.Commission)
		}
		payouts = append(payouts, Payout{WorkerID: share.WorkerID, Net: share.Net, Commission: share.Commission})
	}

	if platform != "" && plan.Remainder.GreaterThan(decimal.Zero) {
		credits = append(credits, ledger.Credit{
			OwnerID:     platform,
			Amount:      plan.Remainder,
			Kind:        ledger.KindCommission,
			Description: fmt.Sprintf("rounding remainder on project %s", projectID),
		})
		commission = commission.Add(plan.Remainder)
	}

	return credits, payouts, commission
}
