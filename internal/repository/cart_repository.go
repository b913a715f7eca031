package repository

import (
	"context"
	"database/sql"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/model"
)

// CartLine is a cart item joined with the product's current name, price
// and stock.  Line totals are always computed from the current price at
// read time; nothing is cached on the cart row.
type CartLine struct {
	ItemID         uint64
	ProductID      uint64
	ProductName    string
	Quantity       int64
	UnitPriceCents int64
	Stock          int64
}

// LineTotalCents returns the line's current total.
func (l CartLine) LineTotalCents() int64 { return l.UnitPriceCents * l.Quantity }

// CartRepo manages the single open cart per tourist and its line items.
type CartRepo struct {
	db *sql.DB
}

// NewCartRepo returns a new CartRepo bound to the given database.
func NewCartRepo(db *sql.DB) *CartRepo { return &CartRepo{db: db} }

// GetOrCreate returns the tourist's open cart, creating an empty one on
// first use.  The carts table has a unique index on tourist_id, so a
// racing create is absorbed by re-reading the surviving row.
func (r *CartRepo) GetOrCreate(ctx context.Context, touristID uint64) (*model.Cart, error) {
	cart, err := r.get(ctx, touristID)
	if err == nil {
		return cart, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}
	const ins = `INSERT INTO carts (tourist_id) VALUES (?)`
	if _, err := r.db.ExecContext(ctx, ins, touristID); err != nil && !IsDuplicateEntry(err) {
		return nil, err
	}
	cart, err = r.get(ctx, touristID)
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *CartRepo) get(ctx context.Context, touristID uint64) (*model.Cart, error) {
	const q = `SELECT id, tourist_id, created_at FROM carts WHERE tourist_id = ?`
	var c model.Cart
	err := r.db.QueryRowContext(ctx, q, touristID).Scan(&c.ID, &c.TouristID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertItem sets the quantity for a product line, inserting the line on
// first add.  Quantities below 1 are rejected with ErrInvalidAmount; use
// RemoveItem to drop a line.  The product must exist and be active.
func (r *CartRepo) UpsertItem(ctx context.Context, cartID, productID uint64, quantity int64) error {
	if quantity < 1 {
		return ErrInvalidAmount
	}
	const chk = `SELECT 1 FROM products WHERE id = ? AND is_active = 1`
	var one int
	if err := r.db.QueryRowContext(ctx, chk, productID).Scan(&one); err == sql.ErrNoRows {
		return ErrProductNotFound
	} else if err != nil {
		return err
	}
	const q = `INSERT INTO cart_items (cart_id, product_id, quantity)
	           VALUES (?, ?, ?)
	           ON DUPLICATE KEY UPDATE quantity = VALUES(quantity)`
	_, err := r.db.ExecContext(ctx, q, cartID, productID, quantity)
	return err
}

// RemoveItem drops a product line from the cart.  Removing an absent
// line is a no-op.
func (r *CartRepo) RemoveItem(ctx context.Context, cartID, productID uint64) error {
	const q = `DELETE FROM cart_items WHERE cart_id = ? AND product_id = ?`
	_, err := r.db.ExecContext(ctx, q, cartID, productID)
	return err
}

// Lines returns the cart's items joined with current product data,
// ordered by insertion.  An empty cart yields an empty slice.
func (r *CartRepo) Lines(ctx context.Context, cartID uint64) ([]CartLine, error) {
	const q = `SELECT ci.id, ci.product_id, p.name, ci.quantity, p.price_cents, p.stock
	           FROM cart_items ci
	           JOIN products p ON p.id = ci.product_id
	           WHERE ci.cart_id = ?
	           ORDER BY ci.id`
	rows, err := r.db.QueryContext(ctx, q, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CartLine{}
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.ItemID, &l.ProductID, &l.ProductName, &l.Quantity,
			&l.UnitPriceCents, &l.Stock); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ClearTx empties the cart within the caller's transaction.  Checkout
// calls this in the same transaction that writes the purchases, so a
// failed checkout never loses the cart's contents.
func (r *CartRepo) ClearTx(ctx context.Context, tx *sql.Tx, cartID uint64) error {
	const q = `DELETE FROM cart_items WHERE cart_id = ?`
	_, err := tx.ExecContext(ctx, q, cartID)
	return err
}
