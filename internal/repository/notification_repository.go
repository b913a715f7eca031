package repository

import (
	"context"
	"database/sql"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/model"
)

// NotificationRepo persists notifications written by the queue consumer.
// Writes here are best-effort side effects of settlement events and
// never propagate failures back into the originating operation.
type NotificationRepo struct {
	db *sql.DB
}

// NewNotificationRepo returns a new NotificationRepo bound to the given
// database.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create inserts a notification row and populates its generated ID.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	const q = `INSERT INTO notifications (tourist_id, type, message, data)
	           VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, n.TouristID, n.Type, n.Message, n.Data)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// ListByTourist returns a tourist's notifications, newest first.
func (r *NotificationRepo) ListByTourist(ctx context.Context, touristID uint64, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const q = `SELECT id, tourist_id, type, message, data, created_at
	           FROM notifications WHERE tourist_id = ?
	           ORDER BY id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, touristID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.TouristID, &n.Type, &n.Message, &n.Data, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
