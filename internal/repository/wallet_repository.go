package repository

import (
	"context"
	"database/sql"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/model"
)

// WalletRepo owns every mutation of wallet balances.  Balances live in
// the wallets table in integer cents; each mutation appends an audit row
// to wallet_transactions within the same transaction.  Debits are a
// single conditional UPDATE so that two concurrent spends by the same
// tourist can never both pass a read-then-write balance check.
type WalletRepo struct {
	db *sql.DB
}

// NewWalletRepo returns a new WalletRepo bound to the given database.
func NewWalletRepo(db *sql.DB) *WalletRepo { return &WalletRepo{db: db} }

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories, which is how every
// settlement flow couples a balance change to its dependent booking or
// purchase write.
func (r *WalletRepo) DB() *sql.DB { return r.db }

// Balance returns the current wallet balance for a tourist.  A missing
// wallet row maps to ErrTouristNotFound since wallets are provisioned
// with the account.
func (r *WalletRepo) Balance(ctx context.Context, touristID uint64) (int64, error) {
	const q = `SELECT balance_cents FROM wallets WHERE tourist_id = ?`
	var cents int64
	err := r.db.QueryRowContext(ctx, q, touristID).Scan(&cents)
	if err == sql.ErrNoRows {
		return 0, ErrTouristNotFound
	}
	if err != nil {
		return 0, err
	}
	return cents, nil
}

// DebitTx atomically withdraws amountCents from a tourist's wallet within
// the caller's transaction.  The decrement only happens when the balance
// covers the amount; when it does not, no row is touched and
// ErrInsufficientFunds is returned.  reference describes the cause and is
// recorded in the audit trail.
func (r *WalletRepo) DebitTx(ctx context.Context, tx *sql.Tx, touristID uint64, amountCents int64, reference string) error {
	if amountCents <= 0 {
		return ErrInvalidAmount
	}
	const q = `UPDATE wallets
	           SET balance_cents = balance_cents - ?, updated_at = UTC_TIMESTAMP()
	           WHERE tourist_id = ? AND balance_cents >= ?`
	res, err := tx.ExecContext(ctx, q, amountCents, touristID, amountCents)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// either the wallet is missing or the balance does not cover the
		// amount; distinguish so handlers return 404 vs 402
		const chk = `SELECT 1 FROM wallets WHERE tourist_id = ?`
		var one int
		if errChk := tx.QueryRowContext(ctx, chk, touristID).Scan(&one); errChk == sql.ErrNoRows {
			return ErrTouristNotFound
		} else if errChk != nil {
			return errChk
		}
		return ErrInsufficientFunds
	}
	return r.appendTransactionTx(ctx, tx, touristID, amountCents, model.WalletTxDebit, reference)
}

// CreditTx deposits amountCents into a tourist's wallet within the
// caller's transaction.  Credits always succeed for an existing wallet;
// a missing wallet row returns ErrTouristNotFound.
func (r *WalletRepo) CreditTx(ctx context.Context, tx *sql.Tx, touristID uint64, amountCents int64, reference string) error {
	if amountCents <= 0 {
		return ErrInvalidAmount
	}
	const q = `UPDATE wallets
	           SET balance_cents = balance_cents + ?, updated_at = UTC_TIMESTAMP()
	           WHERE tourist_id = ?`
	res, err := tx.ExecContext(ctx, q, amountCents, touristID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTouristNotFound
	}
	return r.appendTransactionTx(ctx, tx, touristID, amountCents, model.WalletTxCredit, reference)
}

// appendTransactionTx writes the append-only audit row for a balance
// change.  Audit rows are never updated or deleted.
func (r *WalletRepo) appendTransactionTx(ctx context.Context, tx *sql.Tx, touristID uint64, amountCents int64, txType, reference string) error {
	const q = `INSERT INTO wallet_transactions (tourist_id, amount_cents, type, reference)
	           VALUES (?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, touristID, amountCents, txType, reference)
	return err
}

// Transactions lists a tourist's wallet audit rows, newest first.  Used
// by the wallet endpoint so tourists can reconcile their own history.
func (r *WalletRepo) Transactions(ctx context.Context, touristID uint64, limit int) ([]model.WalletTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const q = `SELECT id, tourist_id, amount_cents, type, reference, created_at
	           FROM wallet_transactions
	           WHERE tourist_id = ?
	           ORDER BY id DESC
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, touristID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.WalletTransaction
	for rows.Next() {
		var t model.WalletTransaction
		if err := rows.Scan(&t.ID, &t.TouristID, &t.AmountCents, &t.Type, &t.Reference, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
