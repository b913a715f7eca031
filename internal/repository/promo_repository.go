package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/model"
)

// PromoRepo manages promo codes and their redemption log.  Codes are
// matched case-insensitively by their unique name.  Redemptions are
// recorded per tourist but deliberately do not block reuse; see
// DESIGN.md for the open-question decision.
type PromoRepo struct {
	db *sql.DB
}

// NewPromoRepo returns a new PromoRepo bound to the given database.
func NewPromoRepo(db *sql.DB) *PromoRepo { return &PromoRepo{db: db} }

// GetActive loads the code by name and enforces the validity gate:
// missing codes return ErrPromoNotFound, while codes that exist but are
// switched off or past expiry return ErrPromoExpiredOrInactive.  The two
// cases are distinct so tourists can tell a typo from a dead code.
func (r *PromoRepo) GetActive(ctx context.Context, name string, now time.Time) (*model.PromoCode, error) {
	const q = `SELECT id, name, percentage, is_active, expires_at, created_at
	           FROM promo_codes WHERE name = ?`
	var p model.PromoCode
	err := r.db.QueryRowContext(ctx, q, strings.ToUpper(strings.TrimSpace(name))).Scan(
		&p.ID, &p.Name, &p.Percentage, &p.IsActive, &p.ExpiresAt, &p.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrPromoNotFound
	}
	if err != nil {
		return nil, err
	}
	if !p.IsActive || now.After(p.ExpiresAt) {
		return nil, ErrPromoExpiredOrInactive
	}
	return &p, nil
}

// Discount returns the discount a code grants on a subtotal, in cents.
// Integer division floors the result; the value never goes negative and
// never exceeds the subtotal for percentages within 0..100.
func Discount(p *model.PromoCode, subtotalCents int64) int64 {
	if subtotalCents <= 0 {
		return 0
	}
	d := subtotalCents * int64(p.Percentage) / 100
	if d < 0 {
		return 0
	}
	return d
}

// Create inserts a new promo code.  Names are stored upper-cased; a
// duplicate name is reported as ErrConflict.
func (r *PromoRepo) Create(ctx context.Context, p *model.PromoCode) error {
	const q = `INSERT INTO promo_codes (name, percentage, is_active, expires_at)
	           VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		strings.ToUpper(strings.TrimSpace(p.Name)), p.Percentage, p.IsActive, p.ExpiresAt)
	if err != nil {
		if IsDuplicateEntry(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// Deactivate switches a code off by name.  Missing codes return
// ErrPromoNotFound.
func (r *PromoRepo) Deactivate(ctx context.Context, name string) error {
	const q = `UPDATE promo_codes SET is_active = 0 WHERE name = ?`
	res, err := r.db.ExecContext(ctx, q, strings.ToUpper(strings.TrimSpace(name)))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPromoNotFound
	}
	return nil
}

// RecordRedemptionTx appends a redemption row inside the settlement
// transaction so the log stays consistent with the discounted charge it
// belongs to.
func (r *PromoRepo) RecordRedemptionTx(ctx context.Context, tx *sql.Tx, promoID, touristID uint64) error {
	const q = `INSERT INTO promo_redemptions (promo_id, tourist_id) VALUES (?, ?)`
	_, err := tx.ExecContext(ctx, q, promoID, touristID)
	return err
}
