package repository

import (
	"context"
	"database/sql"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/model"
)

// TouristRepo reads tourist accounts.  Account lifecycle belongs to the
// external user service; this repository only loads the fields the
// settlement flows and notification templates need.
type TouristRepo struct {
	db *sql.DB
}

// NewTouristRepo returns a new TouristRepo bound to the given database.
func NewTouristRepo(db *sql.DB) *TouristRepo { return &TouristRepo{db: db} }

// GetByID loads an active tourist.  Inactive accounts are treated as
// absent so no settlement can run against a disabled account.
func (r *TouristRepo) GetByID(ctx context.Context, id uint64) (*model.Tourist, error) {
	const q = `SELECT id, email, username, is_active, created_at, updated_at
	           FROM tourists WHERE id = ? AND is_active = 1`
	var t model.Tourist
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&t.ID, &t.Email, &t.Username, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrTouristNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
