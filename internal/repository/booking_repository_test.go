package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/model"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/repository"
)

var bookingColumns = []string{
	"id", "tourist_id", "subject_kind", "subject_id", "status",
	"amount_paid_cents", "payment_method", "session_ref", "booked_at",
	"cancellation_deadline", "cancelled_at", "rating", "comment", "reminder_sent",
}

func activeBookingRow(id, touristID uint64, rating any) *sqlmock.Rows {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(bookingColumns).AddRow(
		id, touristID, "activity", uint64(3), "ACTIVE",
		int64(5000), "wallet", nil, now,
		now.Add(72*time.Hour), nil, rating, nil, false,
	)
}

func TestIsDuplicateEntry(t *testing.T) {
	assert.True(t, repository.IsDuplicateEntry(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, repository.IsDuplicateEntry(&mysql.MySQLError{Number: 1452, Message: "FK fails"}))
	assert.False(t, repository.IsDuplicateEntry(errors.New("plain error")))
	assert.False(t, repository.IsDuplicateEntry(nil))
}

func TestBookingCreateTxDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	repo := repository.NewBookingRepo(db)
	tx, err := db.Begin()
	assert.NoError(t, err)

	b := &model.Booking{
		TouristID:            7,
		SubjectKind:          model.SubjectActivity,
		SubjectID:            3,
		Status:               model.BookingActive,
		AmountPaidCents:      5000,
		PaymentMethod:        model.PayWallet,
		BookedAt:             time.Now().UTC(),
		CancellationDeadline: time.Now().UTC().Add(72 * time.Hour),
	}
	err = repo.CreateTx(context.Background(), tx, b)
	assert.ErrorIs(t, err, repository.ErrBookingExists)
}

func TestBookingSetRating(t *testing.T) {
	t.Run("first rating lands", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("UPDATE bookings SET rating").
			WithArgs(uint8(4), uint64(12), uint64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := repository.NewBookingRepo(db)
		assert.NoError(t, repo.SetRating(context.Background(), 12, 7, 4))
	})

	t.Run("second rating is a conflict", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("UPDATE bookings SET rating").
			WithArgs(uint8(2), uint64(12), uint64(7)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		// The existence check finds an owned, already-rated booking.
		mock.ExpectQuery("FROM bookings").
			WithArgs(uint64(12), uint64(7)).
			WillReturnRows(activeBookingRow(12, 7, int16(5)))

		repo := repository.NewBookingRepo(db)
		err = repo.SetRating(context.Background(), 12, 7, 2)
		assert.ErrorIs(t, err, repository.ErrAlreadyRated)
	})

	t.Run("rating a foreign booking is not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("UPDATE bookings SET rating").
			WithArgs(uint8(3), uint64(12), uint64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("FROM bookings").
			WithArgs(uint64(12), uint64(99)).
			WillReturnRows(sqlmock.NewRows(bookingColumns))

		repo := repository.NewBookingRepo(db)
		err = repo.SetRating(context.Background(), 12, 99, 3)
		assert.ErrorIs(t, err, repository.ErrBookingNotFound)
	})

	t.Run("out of range rating is rejected", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		repo := repository.NewBookingRepo(db)
		assert.ErrorIs(t, repo.SetRating(context.Background(), 12, 7, 0), repository.ErrInvalidRating)
		assert.ErrorIs(t, repo.SetRating(context.Background(), 12, 7, 6), repository.ErrInvalidRating)
	})
}
