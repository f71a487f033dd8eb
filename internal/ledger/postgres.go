package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresLedger persists wallets and entries in PostgreSQL. Every mutating
// call runs in a single transaction and takes FOR UPDATE row locks on the
// wallets it touches, so concurrent settlements against the same wallet
// serialize on the balance check instead of racing past it.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

const walletColumns = `id, owner_id, balance::text, held_balance::text, currency, created_at`

// GetOrCreateWallet provisions the owner's wallet on first access. The
// uniqueness constraint on owner_id makes concurrent creation safe: the
// losing insert is a no-op and both callers read the same row.
func (l *PostgresLedger) GetOrCreateWallet(ctx context.Context, ownerID string) (Wallet, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return Wallet{}, err
	}
	if _, err := l.db.Exec(ctx, `INSERT INTO wallets (id, owner_id, balance, held_balance, currency, created_at)
        VALUES ($1, $2, 0, 0, $3, $4) ON CONFLICT (owner_id) DO NOTHING`,
		uuid.New(), owner, DefaultCurrency, time.Now().UTC()); err != nil {
		return Wallet{}, err
	}
	row := l.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE owner_id = $1`, owner)
	return scanWallet(row)
}

// Recharge adds spendable funds inside one transaction.
func (l *PostgresLedger) Recharge(ctx context.Context, ownerID string, amount decimal.Decimal, ref Reference, description string) (Wallet, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return Wallet{}, fmt.Errorf("amount must be positive")
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Wallet{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	w, err := walletForUpdate(ctx, tx, ownerID)
	if err != nil {
		return Wallet{}, err
	}
	w.Balance = w.Balance.Add(amount)
	if err := updateBalances(ctx, tx, w); err != nil {
		return Wallet{}, err
	}
	if err := insertEntry(ctx, tx, w.ID, amount, KindDeposit, description, ref); err != nil {
		return Wallet{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// Withdraw removes spendable funds inside one transaction.
func (l *PostgresLedger) Withdraw(ctx context.Context, ownerID string, amount decimal.Decimal, ref Reference, description string) (Wallet, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return Wallet{}, fmt.Errorf("amount must be positive")
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Wallet{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	w, err := walletForUpdate(ctx, tx, ownerID)
	if err != nil {
		return Wallet{}, err
	}
	if w.Balance.LessThan(amount) {
		return Wallet{}, &InsufficientFundsError{Requested: amount, Available: w.Balance}
	}
	w.Balance = w.Balance.Sub(amount)
	if err := updateBalances(ctx, tx, w); err != nil {
		return Wallet{}, err
	}
	if err := insertEntry(ctx, tx, w.ID, amount.Neg(), KindWithdrawal, description, ref); err != nil {
		return Wallet{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// HoldFunds moves spendable funds into escrow inside one transaction.
func (l *PostgresLedger) HoldFunds(ctx context.Context, ownerID string, amount decimal.Decimal, ref Reference, description string) (Wallet, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return Wallet{}, fmt.Errorf("amount must be positive")
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Wallet{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	w, err := walletForUpdate(ctx, tx, ownerID)
	if err != nil {
		return Wallet{}, err
	}
	if w.Balance.LessThan(amount) {
		return Wallet{}, &InsufficientFundsError{Requested: amount, Available: w.Balance}
	}
	w.Balance = w.Balance.Sub(amount)
	w.HeldBalance = w.HeldBalance.Add(amount)
	if err := updateBalances(ctx, tx, w); err != nil {
		return Wallet{}, err
	}
	if err := insertEntry(ctx, tx, w.ID, amount.Neg(), KindEscrowDeposit, description, ref); err != nil {
		return Wallet{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// ReleaseFunds settles an escrow commitment: the escrow debit and audit
// marker are written first, then every credit in the given order. The payer
// row lock is taken before any recipient lock.
func (l *PostgresLedger) ReleaseFunds(ctx context.Context, ownerID string, amount decimal.Decimal, ref Reference, credits []Credit) (ReleaseResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ReleaseResult{}, fmt.Errorf("amount must be positive")
	}
	if err := validateCredits(amount, credits); err != nil {
		return ReleaseResult{}, err
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ReleaseResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	payer, err := walletForUpdate(ctx, tx, ownerID)
	if err != nil {
		return ReleaseResult{}, err
	}
	if payer.HeldBalance.LessThan(amount) {
		return ReleaseResult{}, &InsufficientEscrowError{Requested: amount, Available: payer.HeldBalance}
	}
	payer.HeldBalance = payer.HeldBalance.Sub(amount)
	if err := updateBalances(ctx, tx, payer); err != nil {
		return ReleaseResult{}, err
	}
	if err := insertEntry(ctx, tx, payer.ID, decimal.Zero, KindEscrowRelease,
		fmt.Sprintf("escrow release of %s", amount), ref); err != nil {
		return ReleaseResult{}, err
	}

	credited := make([]Wallet, 0, len(credits))
	for _, c := range credits {
		w, err := walletForUpdate(ctx, tx, c.OwnerID)
		if err != nil {
			return ReleaseResult{}, err
		}
		w.Balance = w.Balance.Add(c.Amount)
		if err := updateBalances(ctx, tx, w); err != nil {
			return ReleaseResult{}, err
		}
		if err := insertEntry(ctx, tx, w.ID, c.Amount, c.Kind, c.Description, ref); err != nil {
			return ReleaseResult{}, err
		}
		if w.ID == payer.ID {
			payer = w
		}
		credited = append(credited, w)
	}

	if err := tx.Commit(ctx); err != nil {
		return ReleaseResult{}, err
	}
	return ReleaseResult{Payer: payer, Credited: credited}, nil
}

// Entries lists a wallet's entries in the order they committed.
func (l *PostgresLedger) Entries(ctx context.Context, walletID string) ([]Entry, error) {
	wid, err := uuid.Parse(walletID)
	if err != nil {
		return nil, err
	}
	rows, err := l.db.Query(ctx, `SELECT id, wallet_id, amount::text, kind, description, reference_type, reference_id, created_at
        FROM ledger_entries WHERE wallet_id = $1 ORDER BY seq`, wid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			id, wID   uuid.UUID
			amountStr string
			createdAt time.Time
		)
		if err := rows.Scan(&id, &wID, &amountStr, &e.Kind, &e.Description, &e.Reference.Type, &e.Reference.ID, &createdAt); err != nil {
			return nil, err
		}
		e.ID = id.String()
		e.WalletID = wID.String()
		e.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return nil, err
		}
		e.CreatedAt = createdAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// walletForUpdate fetches the owner's wallet under a row lock, creating it
// first if absent. Creation participates in the surrounding transaction.
func walletForUpdate(ctx context.Context, tx pgx.Tx, ownerID string) (Wallet, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return Wallet{}, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO wallets (id, owner_id, balance, held_balance, currency, created_at)
        VALUES ($1, $2, 0, 0, $3, $4) ON CONFLICT (owner_id) DO NOTHING`,
		uuid.New(), owner, DefaultCurrency, time.Now().UTC()); err != nil {
		return Wallet{}, err
	}
	row := tx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE owner_id = $1 FOR UPDATE`, owner)
	return scanWallet(row)
}

func updateBalances(ctx context.Context, tx pgx.Tx, w Wallet) error {
	_, err := tx.Exec(ctx, `UPDATE wallets SET balance = $1, held_balance = $2 WHERE id = $3`,
		w.Balance.String(), w.HeldBalance.String(), w.ID)
	return err
}

func insertEntry(ctx context.Context, tx pgx.Tx, walletID string, amount decimal.Decimal, kind Kind, description string, ref Reference) error {
	_, err := tx.Exec(ctx, `INSERT INTO ledger_entries (id, wallet_id, amount, kind, description, reference_type, reference_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New(), walletID, amount.String(), kind, description, ref.Type, ref.ID, time.Now().UTC())
	return err
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var w Wallet
	var id, owner uuid.UUID
	var balanceStr, heldStr string
	var createdAt time.Time
	if err := row.Scan(&id, &owner, &balanceStr, &heldStr, &w.Currency, &createdAt); err != nil {
		return Wallet{}, err
	}
	var err error
	if w.Balance, err = decimal.NewFromString(balanceStr); err != nil {
		return Wallet{}, err
	}
	if w.HeldBalance, err = decimal.NewFromString(heldStr); err != nil {
		return Wallet{}, err
	}
	w.ID = id.String()
	w.OwnerID = owner.String()
	w.CreatedAt = createdAt.UTC()
	return w, nil
}
