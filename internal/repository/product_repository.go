package repository

import (
	"context"
	"database/sql"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/model"
)

// ProductRepo reads products and performs the stock decrement that
// settles a purchase.  Catalogue management is external; only the
// checkout-facing operations live here.
type ProductRepo struct {
	db *sql.DB
}

// NewProductRepo returns a new ProductRepo bound to the given database.
func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

// GetByID loads an active product.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	const q = `SELECT id, name, price_cents, stock, is_active
	           FROM products WHERE id = ? AND is_active = 1`
	var p model.Product
	err := r.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Name, &p.PriceCents, &p.Stock, &p.IsActive)
	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DecrementStockTx takes quantity units off a product's stock within the
// caller's transaction.  The decrement is conditional on sufficient
// stock: zero rows affected means the request exceeded availability and
// the whole checkout transaction must roll back, leaving every other
// line's stock untouched.
func (r *ProductRepo) DecrementStockTx(ctx context.Context, tx *sql.Tx, productID uint64, quantity int64) error {
	if quantity < 1 {
		return ErrInvalidAmount
	}
	const q = `UPDATE products SET stock = stock - ?
	           WHERE id = ? AND is_active = 1 AND stock >= ?`
	res, err := tx.ExecContext(ctx, q, quantity, productID, quantity)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		const chk = `SELECT 1 FROM products WHERE id = ? AND is_active = 1`
		var one int
		if errChk := tx.QueryRowContext(ctx, chk, productID).Scan(&one); errChk == sql.ErrNoRows {
			return ErrProductNotFound
		} else if errChk != nil {
			return errChk
		}
		return ErrInsufficientStock
	}
	return nil
}
