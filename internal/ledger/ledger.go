package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is assigned to wallets created lazily by the ledger.
const DefaultCurrency = "USD"

// InsufficientFundsError indicates a debit exceeded the wallet's spendable
// balance. It carries both amounts for user-facing messaging.
type InsufficientFundsError struct {
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: requested %s, available %s", e.Requested, e.Available)
}

// InsufficientEscrowError indicates a release exceeded the wallet's held
// balance.
type InsufficientEscrowError struct {
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientEscrowError) Error() string {
	return fmt.Sprintf("insufficient escrow: requested %s, held %s", e.Requested, e.Available)
}

// Credit instructs ReleaseFunds to add funds to the wallet owned by OwnerID
// and append a matching entry. Amount must be positive.
type Credit struct {
	OwnerID     string
	Amount      decimal.Decimal
	Kind        Kind
	Description string
}

// ReleaseResult reports the wallets touched by a settlement, after commit.
type ReleaseResult struct {
	Payer    Wallet
	Credited []Wallet
}

// Ledger is the money engine. Every method that mutates balances executes as
// one atomic unit against the backing store: either every balance change and
// entry of the call commits, or none do. Operations touching disjoint
// wallets do not block each other.
type Ledger interface {
	// GetOrCreateWallet returns the owner's wallet, creating a zero-balance
	// one if absent. Concurrent calls for the same owner never create
	// duplicates.
	GetOrCreateWallet(ctx context.Context, ownerID string) (Wallet, error)

	// Recharge adds spendable funds and appends a deposit entry.
	Recharge(ctx context.Context, ownerID string, amount decimal.Decimal, ref Reference, description string) (Wallet, error)

	// Withdraw removes spendable funds and appends a withdrawal entry.
	// Fails with *InsufficientFundsError when the balance cannot cover it.
	Withdraw(ctx context.Context, ownerID string, amount decimal.Decimal, ref Reference, description string) (Wallet, error)

	// HoldFunds moves spendable funds into the held balance and appends an
	// escrow_deposit entry of -amount. Fails with *InsufficientFundsError.
	HoldFunds(ctx context.Context, ownerID string, amount decimal.Decimal, ref Reference, description string) (Wallet, error)

	// ReleaseFunds debits amount from the payer's held balance, writes a
	// zero-amount escrow_release marker, then applies every credit in order.
	// Fails with *InsufficientEscrowError when the held balance cannot cover
	// it. The total credited must not exceed amount.
	ReleaseFunds(ctx context.Context, ownerID string, amount decimal.Decimal, ref Reference, credits []Credit) (ReleaseResult, error)

	// Entries lists a wallet's ledger entries in commit order.
	Entries(ctx context.Context, walletID string) ([]Entry, error)
}

func validateCredits(amount decimal.Decimal, credits []Credit) error {
	total := decimal.Zero
	for _, c := range credits {
		if c.OwnerID == "" {
			return fmt.Errorf("credit owner id is required")
		}
		if c.Amount.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("credit amount must be positive")
		}
		if !ValidKind(c.Kind) {
			return fmt.Errorf("unknown entry kind %q", c.Kind)
		}
		total = total.Add(c.Amount)
	}
	if total.GreaterThan(amount) {
		return fmt.Errorf("credits %s exceed released amount %s", total, amount)
	}
	return nil
}
