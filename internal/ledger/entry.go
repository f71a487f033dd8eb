package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies a ledger entry. The taxonomy is closed: storage backends
// reject entries with a kind outside this set.
type Kind string

const (
	// KindDeposit records spendable funds arriving from outside the platform.
	KindDeposit Kind = "deposit"
	// KindEscrowDeposit records spendable funds moving into escrow (negative amount).
	KindEscrowDeposit Kind = "escrow_deposit"
	// KindEscrowRelease is a zero-amount audit marker written on the payer wallet
	// when an escrow commitment is settled.
	KindEscrowRelease Kind = "escrow_release"
	// KindPaymentReceived records a worker's net payout arriving.
	KindPaymentReceived Kind = "payment_received"
	// KindCommission records the platform's cut of a payout.
	KindCommission Kind = "commission"
	// KindWithdrawal records spendable funds leaving the platform.
	KindWithdrawal Kind = "withdrawal"
)

// ValidKind reports whether k belongs to the closed entry taxonomy.
func ValidKind(k Kind) bool {
	switch k {
	case KindDeposit, KindEscrowDeposit, KindEscrowRelease, KindPaymentReceived, KindCommission, KindWithdrawal:
		return true
	default:
		return false
	}
}

// Reference ties an entry to the business object that caused it.
type Reference struct {
	Type string
	ID   string
}

// Entry is an immutable record of a single balance mutation. Amounts are
// signed: negative means funds left the wallet's spendable balance, positive
// means funds arrived. Zero is permitted for informational entries.
type Entry struct {
	ID          string
	WalletID    string
	Amount      decimal.Decimal
	Kind        Kind
	Description string
	Reference   Reference
	CreatedAt   time.Time
}

// Wallet is a per-user account. Balance holds spendable funds, HeldBalance
// holds funds committed to in-flight project escrow. Both are always
// non-negative.
type Wallet struct {
	ID          string
	OwnerID     string
	Balance     decimal.Decimal
	HeldBalance decimal.Decimal
	Currency    string
	CreatedAt   time.Time
}
