package ledger

import "github.com/shopspring/decimal"

// SeedWallet is a test helper that sets the balances of an owner's wallet
// when using the in-memory ledger.
func SeedWallet(l Ledger, ownerID string, balance, held decimal.Decimal) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		w, _ := mem.walletLocked(ownerID)
		w.Balance = balance
		w.HeldBalance = held
		mem.wallets[ownerID] = w
	}
}
