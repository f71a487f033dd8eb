package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type inMemoryLedger struct {
	mu      sync.RWMutex
	wallets map[string]Wallet  // keyed by owner id
	entries map[string][]Entry // keyed by wallet id
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit
// tests. The mutex held across each operation gives the same all-or-nothing
// view the Postgres transactions give.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		wallets: make(map[string]Wallet),
		entries: make(map[string][]Entry),
	}
}

func (l *inMemoryLedger) GetOrCreateWallet(_ context.Context, ownerID string) (Wallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.walletLocked(ownerID)
}

func (l *inMemoryLedger) Recharge(_ context.Context, ownerID string, amount decimal.Decimal, ref Reference, description string) (Wallet, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return Wallet{}, fmt.Errorf("amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, err := l.walletLocked(ownerID)
	if err != nil {
		return Wallet{}, err
	}
	w.Balance = w.Balance.Add(amount)
	l.wallets[ownerID] = w
	l.appendLocked(w.ID, amount, KindDeposit, description, ref)
	return w, nil
}

func (l *inMemoryLedger) Withdraw(_ context.Context, ownerID string, amount decimal.Decimal, ref Reference, description string) (Wallet, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return Wallet{}, fmt.Errorf("amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, err := l.walletLocked(ownerID)
	if err != nil {
		return Wallet{}, err
	}
	if w.Balance.LessThan(amount) {
		return Wallet{}, &InsufficientFundsError{Requested: amount, Available: w.Balance}
	}
	w.Balance = w.Balance.Sub(amount)
	l.wallets[ownerID] = w
	l.appendLocked(w.ID, amount.Neg(), KindWithdrawal, description, ref)
	return w, nil
}

func (l *inMemoryLedger) HoldFunds(_ context.Context, ownerID string, amount decimal.Decimal, ref Reference, description string) (Wallet, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return Wallet{}, fmt.Errorf("amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, err := l.walletLocked(ownerID)
	if err != nil {
		return Wallet{}, err
	}
	if w.Balance.LessThan(amount) {
		return Wallet{}, &InsufficientFundsError{Requested: amount, Available: w.Balance}
	}
	w.Balance = w.Balance.Sub(amount)
	w.HeldBalance = w.HeldBalance.Add(amount)
	l.wallets[ownerID] = w
	l.appendLocked(w.ID, amount.Neg(), KindEscrowDeposit, description, ref)
	return w, nil
}

func (l *inMemoryLedger) ReleaseFunds(_ context.Context, ownerID string, amount decimal.Decimal, ref Reference, credits []Credit) (ReleaseResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ReleaseResult{}, fmt.Errorf("amount must be positive")
	}
	if err := validateCredits(amount, credits); err != nil {
		return ReleaseResult{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	payer, err := l.walletLocked(ownerID)
	if err != nil {
		return ReleaseResult{}, err
	}
	if payer.HeldBalance.LessThan(amount) {
		return ReleaseResult{}, &InsufficientEscrowError{Requested: amount, Available: payer.HeldBalance}
	}

	// Resolve every credit target before touching a balance so a bad
	// credit cannot leave a half-applied release behind.
	for _, c := range credits {
		if _, err := l.walletLocked(c.OwnerID); err != nil {
			return ReleaseResult{}, err
		}
	}

	payer.HeldBalance = payer.HeldBalance.Sub(amount)
	l.wallets[ownerID] = payer
	l.appendLocked(payer.ID, decimal.Zero, KindEscrowRelease, fmt.Sprintf("escrow release of %s", amount), ref)

	credited := make([]Wallet, 0, len(credits))
	for _, c := range credits {
		w, err := l.walletLocked(c.OwnerID)
		if err != nil {
			return ReleaseResult{}, err
		}
		w.Balance = w.Balance.Add(c.Amount)
		l.wallets[c.OwnerID] = w
		l.appendLocked(w.ID, c.Amount, c.Kind, c.Description, ref)
		if w.ID == payer.ID {
			payer = w
		}
		credited = append(credited, w)
	}

	return ReleaseResult{Payer: payer, Credited: credited}, nil
}

func (l *inMemoryLedger) Entries(_ context.Context, walletID string) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entries := l.entries[walletID]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out, nil
}

func (l *inMemoryLedger) walletLocked(ownerID string) (Wallet, error) {
	if ownerID == "" {
		return Wallet{}, fmt.Errorf("owner id is required")
	}
	if w, ok := l.wallets[ownerID]; ok {
		return w, nil
	}
	w := Wallet{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Balance:     decimal.Zero,
		HeldBalance: decimal.Zero,
		Currency:    DefaultCurrency,
		CreatedAt:   time.Now().UTC(),
	}
	l.wallets[ownerID] = w
	return w, nil
}

func (l *inMemoryLedger) appendLocked(walletID string, amount decimal.Decimal, kind Kind, description string, ref Reference) {
	l.entries[walletID] = append(l.entries[walletID], Entry{
		ID:          uuid.New().String(),
		WalletID:    walletID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
		Reference:   ref,
		CreatedAt:   time.Now().UTC(),
	})
}
