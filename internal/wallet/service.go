package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lancepay/lance_pay/internal/ledger"
)

// Service exposes wallet-facing operations backed by the ledger. Recharge
// and withdrawal are the only paths that move money on or off the platform;
// everything between wallets goes through the escrow engine.
type Service struct {
	ledger    ledger.Ledger
	processor Processor
}

// NewService builds a wallet service instance.
func NewService(ledgerBackend ledger.Ledger, processor Processor) *Service {
	if processor == nil {
		processor = StaticProcessor{}
	}
	return &Service{ledger: ledgerBackend, processor: processor}
}

// RechargeResult describes the outcome of a top-up or withdrawal.
type RechargeResult struct {
	Wallet             ledger.Wallet
	ProcessorReference string
	CompletedAt        time.Time
}

// Get returns the owner's wallet, creating a zero-balance one on first
// access.
func (s *Service) Get(ctx context.Context, ownerID string) (ledger.Wallet, error) {
	return s.ledger.GetOrCreateWallet(ctx, ownerID)
}

// Recharge authorizes a charge with the processor then credits the wallet's
// spendable balance.
func (s *Service) Recharge(ctx context.Context, ownerID string, amount decimal.Decimal) (RechargeResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return RechargeResult{}, fmt.Errorf("amount must be positive")
	}

	decision, err := s.processor.AuthorizeCharge(ctx, ChargeAuthorization{OwnerID: ownerID, Amount: amount})
	if err != nil {
		return RechargeResult{}, err
	}

	ref := ledger.Reference{Type: "recharge", ID: decision.Reference}
	w, err := s.ledger.Recharge(ctx, ownerID, amount, ref, fmt.Sprintf("wallet top-up %s", decision.Reference))
	if err != nil {
		return RechargeResult{}, err
	}

	return RechargeResult{Wallet: w, ProcessorReference: decision.Reference, CompletedAt: time.Now().UTC()}, nil
}

// Withdraw authorizes a payout with the processor then debits the wallet's
// spendable balance. Escrowed funds cannot be withdrawn.
func (s *Service) Withdraw(ctx context.Context, ownerID string, amount decimal.Decimal) (RechargeResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return RechargeResult{}, fmt.Errorf("amount must be positive")
	}

	decision, err := s.processor.AuthorizePayout(ctx, PayoutAuthorization{OwnerID: ownerID, Amount: amount})
	if err != nil {
		return RechargeResult{}, err
	}

	ref := ledger.Reference{Type: "withdrawal", ID: decision.Reference}
	w, err := s.ledger.Withdraw(ctx, ownerID, amount, ref, fmt.Sprintf("withdrawal %s", decision.Reference))
	if err != nil {
		return RechargeResult{}, err
	}

	return RechargeResult{Wallet: w, ProcessorReference: decision.Reference, CompletedAt: time.Now().UTC()}, nil
}

// Statement lists the wallet's ledger entries in commit order.
func (s *Service) Statement(ctx context.Context, ownerID string) (ledger.Wallet, []ledger.Entry, error) {
	w, err := s.ledger.GetOrCreateWallet(ctx, ownerID)
	if err != nil {
		return ledger.Wallet{}, nil, err
	}
	entries, err := s.ledger.Entries(ctx, w.ID)
	if err != nil {
		return ledger.Wallet{}, nil, err
	}
	return w, entries, nil
}
