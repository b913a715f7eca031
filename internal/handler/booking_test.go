package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/repository"
)

var bookingRowCols = []string{
	"id", "tourist_id", "subject_kind", "subject_id", "status",
	"amount_paid_cents", "payment_method", "session_ref", "booked_at",
	"cancellation_deadline", "cancelled_at", "rating", "comment", "reminder_sent",
}

var touristRowCols = []string{"id", "email", "username", "is_active", "created_at", "updated_at"}

func newTouristContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(7))
	return c, rec
}

// A promo that covers the full price settles the booking with a zero
// charge and must not touch the wallet ledger at all.
func TestCreateBookingFullDiscount(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	startsAt := now.Add(96 * time.Hour)
	deadline := startsAt.Add(-48 * time.Hour)

	mock.ExpectQuery("FROM tourists").WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(touristRowCols).
			AddRow(7, "amina@example.com", "amina", true, now, now))
	mock.ExpectQuery("FROM activities").WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "starts_at", "price_cents"}).
			AddRow(3, "Desert Safari", startsAt, int64(10000)))
	mock.ExpectQuery("FROM promo_codes").WithArgs("FREE100").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "percentage", "is_active", "expires_at", "created_at"}).
			AddRow(1, "FREE100", 100, true, startsAt, now))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(uint64(7), "activity", uint64(3), int64(0), "wallet", nil, deadline).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectQuery("FROM bookings WHERE id").WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(bookingRowCols).
			AddRow(42, 7, "activity", 3, "ACTIVE", int64(0), "wallet", nil, now, deadline, nil, nil, nil, false))
	mock.ExpectExec("INSERT INTO promo_redemptions").WithArgs(uint64(1), uint64(7)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT balance_cents FROM wallets").WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"balance_cents"}).AddRow(int64(5000)))

	h := NewBookingHandler(
		repository.NewBookingRepo(db),
		repository.NewWalletRepo(db),
		repository.NewSubjectRepo(db),
		repository.NewTouristRepo(db),
		repository.NewLoyaltyRepo(db),
		repository.NewPromoRepo(db),
		nil,
	)

	e := echo.New()
	c, rec := newTouristContext(e, http.MethodPost, "/v1/bookings",
		`{"subject_kind":"activity","subject_id":3,"promo_code":"FREE100"}`)
	assert.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"discount_cents":10000`)
	assert.Contains(t, rec.Body.String(), `"amount_paid_cents":0`)
	// An unfulfilled "UPDATE wallets" would fail here; a zero charge
	// never reaches the ledger.
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Cancelling a booking that cost nothing refunds nothing and skips the
// wallet credit instead of rejecting the zero amount.
func TestCancelBookingZeroRefund(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	deadline := now.Add(72 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id = (.+) FOR UPDATE").WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(bookingRowCols).
			AddRow(42, 7, "activity", 3, "ACTIVE", int64(0), "wallet", nil, now, deadline, nil, nil, nil, false))
	mock.ExpectExec("UPDATE bookings").WithArgs(sqlmock.AnyArg(), uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	// Empty result: the cancelled event is skipped when the owner row
	// cannot be loaded, which keeps this test off the message broker.
	mock.ExpectQuery("FROM tourists").WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(touristRowCols))

	h := NewBookingHandler(
		repository.NewBookingRepo(db),
		repository.NewWalletRepo(db),
		repository.NewSubjectRepo(db),
		repository.NewTouristRepo(db),
		repository.NewLoyaltyRepo(db),
		repository.NewPromoRepo(db),
		nil,
	)

	e := echo.New()
	c, rec := newTouristContext(e, http.MethodDelete, "/v1/bookings/42", "")
	c.SetParamNames("id")
	c.SetParamValues("42")
	assert.NoError(t, h.Cancel(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"refunded_cents":0`)
	assert.NoError(t, mock.ExpectationsWereMet())
}
