package repository

import (
	"context"
	"database/sql"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/model"
)

// PurchaseRepo persists settled checkout lines.  Purchases are written
// inside the checkout transaction alongside the stock decrement and
// (for wallet payment) the wallet debit.
type PurchaseRepo struct {
	db *sql.DB
}

// NewPurchaseRepo returns a new PurchaseRepo bound to the given database.
func NewPurchaseRepo(db *sql.DB) *PurchaseRepo { return &PurchaseRepo{db: db} }

// CreateTx inserts a purchase row within the caller's transaction and
// populates the generated ID and timestamp on the given model.
func (r *PurchaseRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Purchase) error {
	const q = `INSERT INTO purchases
	           (tourist_id, product_id, quantity, total_price_cents,
	            delivery_address, payment_method)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		p.TouristID, p.ProductID, p.Quantity, p.TotalPriceCents,
		p.DeliveryAddress, p.PaymentMethod)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	const sel = `SELECT purchased_at, delivered FROM purchases WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, p.ID).Scan(&p.PurchasedAt, &p.Delivered)
}

// ListByTourist returns a tourist's purchases, newest first.
func (r *PurchaseRepo) ListByTourist(ctx context.Context, touristID uint64) ([]model.Purchase, error) {
	const q = `SELECT id, tourist_id, product_id, quantity, total_price_cents,
	                  delivery_address, payment_method, delivered, rating, review, purchased_at
	           FROM purchases WHERE tourist_id = ? ORDER BY purchased_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, touristID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Purchase{}
	for rows.Next() {
		var p model.Purchase
		var rating sql.NullInt16
		var review sql.NullString
		if err := rows.Scan(&p.ID, &p.TouristID, &p.ProductID, &p.Quantity,
			&p.TotalPriceCents, &p.DeliveryAddress, &p.PaymentMethod,
			&p.Delivered, &rating, &review, &p.PurchasedAt); err != nil {
			return nil, err
		}
		if rating.Valid {
			v := uint8(rating.Int16)
			p.Rating = &v
		}
		if review.Valid {
			s := review.String
			p.Review = &s
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkDelivered flags a purchase as delivered.  Missing purchases return
// ErrPurchaseNotFound; flagging twice is a harmless no-op.
func (r *PurchaseRepo) MarkDelivered(ctx context.Context, purchaseID uint64) error {
	const q = `UPDATE purchases SET delivered = 1 WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, purchaseID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		const chk = `SELECT 1 FROM purchases WHERE id = ?`
		var one int
		if errChk := r.db.QueryRowContext(ctx, chk, purchaseID).Scan(&one); errChk == sql.ErrNoRows {
			return ErrPurchaseNotFound
		} else if errChk != nil {
			return errChk
		}
	}
	return nil
}

// SetReview stores a one-time rating and review on an owned purchase,
// with the same write-once conditional guard bookings use.
func (r *PurchaseRepo) SetReview(ctx context.Context, purchaseID, touristID uint64, rating uint8, review string) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	const q = `UPDATE purchases SET rating = ?, review = ?
	           WHERE id = ? AND tourist_id = ? AND rating IS NULL`
	res, err := r.db.ExecContext(ctx, q, rating, review, purchaseID, touristID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	const chk = `SELECT 1 FROM purchases WHERE id = ? AND tourist_id = ?`
	var one int
	if errChk := r.db.QueryRowContext(ctx, chk, purchaseID, touristID).Scan(&one); errChk == sql.ErrNoRows {
		return ErrPurchaseNotFound
	} else if errChk != nil {
		return errChk
	}
	return ErrAlreadyRated
}
