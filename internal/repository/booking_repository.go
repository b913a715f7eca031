package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/model"
)

// BookingRepo provides persistence for bookings of activities and
// itineraries.  The bookings table carries a UNIQUE index over
// (tourist_id, subject_kind, subject_id, active_key) where active_key is
// 1 for ACTIVE rows and NULL once cancelled: MySQL ignores NULLs in
// unique indexes, so a cancelled booking never blocks re-booking while
// two concurrent creations for the same subject collide at the storage
// layer.  session_ref carries its own UNIQUE index so a provider session
// reconciles into at most one booking.  All timestamps are UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying sql.DB for callers that begin transactions
// spanning the wallet and booking repositories.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// IsDuplicateEntry reports whether err is the MySQL duplicate-key error.
// Settlement flows rely on it to turn a lost creation race into the
// idempotent "return existing booking" outcome.
func IsDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

const bookingCols = `id, tourist_id, subject_kind, subject_id, status,
	amount_paid_cents, payment_method, session_ref, booked_at,
	cancellation_deadline, cancelled_at, rating, comment, reminder_sent`

// scanBooking reads one bookings row from any row scanner.
func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	var sessionRef sql.NullString
	var cancelledAt sql.NullTime
	var rating sql.NullInt16
	var comment sql.NullString
	err := row.Scan(
		&b.ID, &b.TouristID, &b.SubjectKind, &b.SubjectID, &b.Status,
		&b.AmountPaidCents, &b.PaymentMethod, &sessionRef, &b.BookedAt,
		&b.CancellationDeadline, &cancelledAt, &rating, &comment, &b.ReminderSent,
	)
	if err != nil {
		return nil, err
	}
	if sessionRef.Valid {
		s := sessionRef.String
		b.SessionRef = &s
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}
	if rating.Valid {
		v := uint8(rating.Int16)
		b.Rating = &v
	}
	if comment.Valid {
		s := comment.String
		b.Comment = &s
	}
	return &b, nil
}

// CreateTx inserts a new ACTIVE booking within the caller's transaction
// and populates the generated ID and timestamps on the given model.  A
// duplicate-key collision on the active-subject index is returned as
// ErrBookingExists; callers that need the surviving row reload it after
// rollback.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings
	           (tourist_id, subject_kind, subject_id, status, active_key,
	            amount_paid_cents, payment_method, session_ref, cancellation_deadline)
	           VALUES (?, ?, ?, 'ACTIVE', 1, ?, ?, ?, ?)`
	var sessionRef any
	if b.SessionRef != nil {
		sessionRef = *b.SessionRef
	}
	res, err := tx.ExecContext(ctx, q,
		b.TouristID, b.SubjectKind, b.SubjectID,
		b.AmountPaidCents, b.PaymentMethod, sessionRef, b.CancellationDeadline,
	)
	if err != nil {
		if IsDuplicateEntry(err) {
			return ErrBookingExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	// Query back the row to pick up DB-side defaults (booked_at, status).
	const sel = `SELECT ` + bookingCols + ` FROM bookings WHERE id = ?`
	got, err := scanBooking(tx.QueryRowContext(ctx, sel, b.ID))
	if err != nil {
		return err
	}
	*b = *got
	return nil
}

// GetByID loads a booking regardless of owner.  Missing rows map to
// ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetByIDForTourist loads a booking and enforces ownership.  A booking
// owned by someone else is reported as not found so the endpoint does
// not leak other tourists' booking IDs.
func (r *BookingRepo) GetByIDForTourist(ctx context.Context, id, touristID uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id = ? AND tourist_id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id, touristID))
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// FindActiveBySubject returns the tourist's ACTIVE booking for a subject,
// or ErrBookingNotFound.  Reconciliation uses this to return the existing
// booking when a duplicate completion signal arrives.
func (r *BookingRepo) FindActiveBySubject(ctx context.Context, touristID uint64, kind model.SubjectKind, subjectID uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings
	           WHERE tourist_id = ? AND subject_kind = ? AND subject_id = ? AND status = 'ACTIVE'`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, touristID, kind, subjectID))
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetBySessionRef returns the booking reconciled from a provider session,
// or ErrBookingNotFound when the session has not produced one yet.
func (r *BookingRepo) GetBySessionRef(ctx context.Context, sessionRef string) (*model.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE session_ref = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, sessionRef))
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListByTourist returns all of a tourist's bookings, newest first.
func (r *BookingRepo) ListByTourist(ctx context.Context, touristID uint64) ([]model.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings
	           WHERE tourist_id = ? ORDER BY booked_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, touristID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// CancelTx transitions an ACTIVE booking to CANCELLED within the caller's
// transaction, strictly before the cancellation deadline.  The row is
// locked first so that the deadline check and the status transition are
// atomic; the row is retained for audit rather than deleted.  It returns
// the locked booking so the caller can refund amount_paid_cents in the
// same transaction.
func (r *BookingRepo) CancelTx(ctx context.Context, tx *sql.Tx, bookingID, touristID uint64, now time.Time) (*model.Booking, error) {
	const sel = `SELECT ` + bookingCols + ` FROM bookings WHERE id = ? FOR UPDATE`
	b, err := scanBooking(tx.QueryRowContext(ctx, sel, bookingID))
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	if b.TouristID != touristID {
		return nil, ErrForbidden
	}
	if b.Status != model.BookingActive {
		return nil, ErrBookingNotFound
	}
	if !now.Before(b.CancellationDeadline) {
		return nil, ErrDeadlinePassed
	}
	const upd = `UPDATE bookings
	             SET status = 'CANCELLED', active_key = NULL, cancelled_at = ?
	             WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd, now, bookingID); err != nil {
		return nil, err
	}
	b.Status = model.BookingCancelled
	b.CancelledAt = &now
	return b, nil
}

// SetRating stores a 1..5 rating exactly once.  The conditional UPDATE
// only matches an owned booking whose rating is still NULL, so a repeat
// call cannot overwrite the first value even under concurrency.
func (r *BookingRepo) SetRating(ctx context.Context, bookingID, touristID uint64, rating uint8) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	const q = `UPDATE bookings SET rating = ?
	           WHERE id = ? AND tourist_id = ? AND rating IS NULL`
	res, err := r.db.ExecContext(ctx, q, rating, bookingID, touristID)
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
	// zero rows: either the booking is missing/foreign or already rated
	if _, err := r.GetByIDForTourist(ctx, bookingID, touristID); err != nil {
		return err
	}
	return ErrAlreadyRated
}

// SetComment stores a free-text comment exactly once, mirroring
// SetRating.  Empty or whitespace-only comments are rejected by the
// handler before reaching this method.
func (r *BookingRepo) SetComment(ctx context.Context, bookingID, touristID uint64, comment string) error {
	if comment == "" {
		return ErrInvalidComment
	}
	const q = `UPDATE bookings SET comment = ?
	           WHERE id = ? AND tourist_id = ? AND comment IS NULL`
	res, err := r.db.ExecContext(ctx, q, comment, bookingID, touristID)
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
	if _, err := r.GetByIDForTourist(ctx, bookingID, touristID); err != nil {
		return err
	}
	return ErrAlreadyCommented
}

// ReminderRow pairs a booking nearing its cancellation deadline with the
// owner's contact details.  TouristEmail is nil when the tourist row is
// dangling; the sweep logs and skips those.
type ReminderRow struct {
	BookingID       uint64
	TouristID       uint64
	SubjectKind     model.SubjectKind
	SubjectID       uint64
	Deadline        time.Time
	TouristEmail    *string
	TouristUsername *string
}

// DueReminders returns ACTIVE bookings whose cancellation deadline falls
// within the next `within` window and that have not been reminded yet.
// Tourist details are LEFT JOINed so dangling owner references surface as
// NULL emails instead of silently dropping the row.
func (r *BookingRepo) DueReminders(ctx context.Context, now time.Time, within time.Duration) ([]ReminderRow, error) {
	const q = `SELECT b.id, b.tourist_id, b.subject_kind, b.subject_id,
	                  b.cancellation_deadline, t.email, t.username
	           FROM bookings b
	           LEFT JOIN tourists t ON t.id = b.tourist_id
	           WHERE b.status = 'ACTIVE'
	             AND b.reminder_sent = 0
	             AND b.cancellation_deadline > ?
	             AND b.cancellation_deadline <= ?
	           ORDER BY b.cancellation_deadline`
	rows, err := r.db.QueryContext(ctx, q, now, now.Add(within))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ReminderRow
	for rows.Next() {
		var row ReminderRow
		var email, username sql.NullString
		if err := rows.Scan(&row.BookingID, &row.TouristID, &row.SubjectKind,
			&row.SubjectID, &row.Deadline, &email, &username); err != nil {
			return nil, err
		}
		if email.Valid {
			e := email.String
			row.TouristEmail = &e
		}
		if username.Valid {
			u := username.String
			row.TouristUsername = &u
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// MarkReminderSent flags a booking so the sweep emits at most one
// reminder per booking.
func (r *BookingRepo) MarkReminderSent(ctx context.Context, bookingID uint64) error {
	const q = `UPDATE bookings SET reminder_sent = 1 WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, bookingID)
	return err
}
