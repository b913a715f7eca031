package repository

import (
	"context"
	"database/sql"
	"math"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/model"
)

// LoyaltyRepo manages loyalty accounts.  Accrual multiplies spend by the
// tier rate in effect BEFORE the accrual, then re-derives the level from
// lifetime points: crossing a threshold therefore pays off on the next
// accrual, not the crossing one.  Redemption converts points to wallet
// currency atomically with the wallet credit.
type LoyaltyRepo struct {
	db *sql.DB
}

// NewLoyaltyRepo returns a new LoyaltyRepo bound to the given database.
func NewLoyaltyRepo(db *sql.DB) *LoyaltyRepo { return &LoyaltyRepo{db: db} }

// DB exposes the underlying sql.DB so redemption can share a transaction
// with the wallet repository.
func (r *LoyaltyRepo) DB() *sql.DB { return r.db }

// Get loads a tourist's loyalty account.  Accounts are provisioned by
// the external user service; a missing row is ErrLoyaltyNotFound.
func (r *LoyaltyRepo) Get(ctx context.Context, touristID uint64) (*model.LoyaltyAccount, error) {
	const q = `SELECT id, tourist_id, points, total_points_earned, level, updated_at
	           FROM loyalty_accounts WHERE tourist_id = ?`
	var a model.LoyaltyAccount
	err := r.db.QueryRowContext(ctx, q, touristID).Scan(
		&a.ID, &a.TouristID, &a.Points, &a.TotalPointsEarned, &a.Level, &a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrLoyaltyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Accrue awards points for a settled amount.  The account row is locked,
// points are computed as floor(amountCents x multiplier) with the
// multiplier taken from the CURRENT level, then the level is re-derived
// from the new lifetime total.  The level never decreases.  It returns
// the points awarded and the level after accrual.
func (r *LoyaltyRepo) Accrue(ctx context.Context, touristID uint64, amountCents int64) (int64, uint8, error) {
	if amountCents <= 0 {
		return 0, 0, ErrInvalidAmount
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const sel = `SELECT points, total_points_earned, level
	             FROM loyalty_accounts WHERE tourist_id = ? FOR UPDATE`
	var points, lifetime int64
	var level uint8
	err = tx.QueryRowContext(ctx, sel, touristID).Scan(&points, &lifetime, &level)
	if err == sql.ErrNoRows {
		return 0, 0, ErrLoyaltyNotFound
	}
	if err != nil {
		return 0, 0, err
	}

	earned := int64(math.Floor(float64(amountCents) * model.AccrualMultiplier(level)))
	lifetime += earned
	newLevel := model.LevelForLifetime(lifetime)
	if newLevel < level {
		newLevel = level // levels never downgrade
	}

	const upd = `UPDATE loyalty_accounts
	             SET points = points + ?, total_points_earned = ?, level = ?,
	                 updated_at = UTC_TIMESTAMP()
	             WHERE tourist_id = ?`
	if _, err := tx.ExecContext(ctx, upd, earned, lifetime, newLevel, touristID); err != nil {
		return 0, 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	committed = true
	return earned, newLevel, nil
}

// RedeemTx converts points into wallet currency within the caller's
// transaction.  currencyCents of wallet credit costs currencyCents
// points (100 points = 1 currency unit = 100 cents).  The conditional
// decrement fails with ErrInsufficientPoints when the balance cannot
// cover the conversion, leaving the transaction to roll back so the
// paired wallet credit never lands alone.
func (r *LoyaltyRepo) RedeemTx(ctx context.Context, tx *sql.Tx, touristID uint64, currencyCents int64) (int64, error) {
	if currencyCents <= 0 {
		return 0, ErrInvalidAmount
	}
	// 100 points per currency unit and 100 cents per unit cancel out
	pointsNeeded := currencyCents * model.PointsPerCurrencyUnit / 100
	const q = `UPDATE loyalty_accounts
	           SET points = points - ?, updated_at = UTC_TIMESTAMP()
	           WHERE tourist_id = ? AND points >= ?`
	res, err := tx.ExecContext(ctx, q, pointsNeeded, touristID, pointsNeeded)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		const chk = `SELECT 1 FROM loyalty_accounts WHERE tourist_id = ?`
		var one int
		if errChk := tx.QueryRowContext(ctx, chk, touristID).Scan(&one); errChk == sql.ErrNoRows {
			return 0, ErrLoyaltyNotFound
		} else if errChk != nil {
			return 0, errChk
		}
		return 0, ErrInsufficientPoints
	}
	return pointsNeeded, nil
}
