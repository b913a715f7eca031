package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/payment"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/repository"
)

func newWebhookContext(e *echo.Echo, body string, header string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/webhook", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if header != "" {
		req.Header.Set("Webhook-Signature", header)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestWebhookSignatureGate(t *testing.T) {
	e := echo.New()
	h := &PaymentHandler{WebhookSecret: "whsec_test", Validate: validator.New()}
	body := `{"type":"checkout.session.expired","data":{"object":{"id":"cs_1"}}}`

	t.Run("missing signature is rejected", func(t *testing.T) {
		c, rec := newWebhookContext(e, body, "")
		assert.NoError(t, h.Webhook(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("forged signature is rejected", func(t *testing.T) {
		forged := payment.Sign("wrong_secret", time.Now().UTC(), []byte(body))
		c, rec := newWebhookContext(e, body, forged)
		assert.NoError(t, h.Webhook(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("valid signature with an unhandled event type is acked", func(t *testing.T) {
		sig := payment.Sign("whsec_test", time.Now().UTC(), []byte(body))
		c, rec := newWebhookContext(e, body, sig)
		assert.NoError(t, h.Webhook(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "ignored")
	})

	t.Run("valid signature over a tampered body is rejected", func(t *testing.T) {
		sig := payment.Sign("whsec_test", time.Now().UTC(), []byte(body))
		c, rec := newWebhookContext(e, strings.Replace(body, "cs_1", "cs_2", 1), sig)
		assert.NoError(t, h.Webhook(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// A wallet booking made while the provider session was open collides on
// the active-subject index, not on session_ref.  Reconciliation must
// still resolve to the existing booking instead of surfacing the
// duplicate-key error.
func TestReconcileBookingAfterWalletBooking(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	startsAt := now.Add(96 * time.Hour)
	deadline := startsAt.Add(-48 * time.Hour)

	mock.ExpectQuery("FROM bookings WHERE session_ref").WithArgs("cs_9").
		WillReturnRows(sqlmock.NewRows(bookingRowCols))
	mock.ExpectQuery("FROM tourists").WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(touristRowCols).
			AddRow(7, "amina@example.com", "amina", true, now, now))
	mock.ExpectQuery("FROM activities").WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "starts_at", "price_cents"}).
			AddRow(3, "Desert Safari", startsAt, int64(10000)))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()
	// The wallet booking carries no session_ref, so the first reload
	// misses and the subject fallback finds it.
	mock.ExpectQuery("FROM bookings WHERE session_ref").WithArgs("cs_9").
		WillReturnRows(sqlmock.NewRows(bookingRowCols))
	mock.ExpectQuery("status = 'ACTIVE'").WithArgs(uint64(7), "activity", uint64(3)).
		WillReturnRows(sqlmock.NewRows(bookingRowCols).
			AddRow(42, 7, "activity", 3, "ACTIVE", int64(10000), "wallet", nil, now, deadline, nil, nil, nil, false))

	h := &PaymentHandler{
		Bookings: repository.NewBookingRepo(db),
		Subjects: repository.NewSubjectRepo(db),
		Tourists: repository.NewTouristRepo(db),
		Wallets:  repository.NewWalletRepo(db),
		Validate: validator.New(),
	}

	e := echo.New()
	c, _ := newWebhookContext(e, "", "")
	sess := &payment.CheckoutSession{
		ID:               "cs_9",
		PaymentStatus:    payment.StatusPaid,
		AmountTotalCents: 10000,
		CompletedAt:      now.Unix(),
		Metadata: map[string]string{
			payment.MetaTouristID:   "7",
			payment.MetaSubjectKind: "activity",
			payment.MetaSubjectID:   "3",
		},
	}

	out, err := h.reconcileBooking(c, sess, now)
	assert.NoError(t, err)
	assert.Equal(t, true, out["duplicate"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusFor(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "insufficient funds maps to 402", err: repository.ErrInsufficientFunds, expected: http.StatusPaymentRequired},
		{name: "insufficient points maps to 402", err: repository.ErrInsufficientPoints, expected: http.StatusPaymentRequired},
		{name: "deadline passed maps to 403", err: repository.ErrDeadlinePassed, expected: http.StatusForbidden},
		{name: "foreign booking maps to 403", err: repository.ErrForbidden, expected: http.StatusForbidden},
		{name: "missing booking maps to 404", err: repository.ErrBookingNotFound, expected: http.StatusNotFound},
		{name: "unknown promo maps to 404", err: repository.ErrPromoNotFound, expected: http.StatusNotFound},
		{name: "dead promo maps to 400", err: repository.ErrPromoExpiredOrInactive, expected: http.StatusBadRequest},
		{name: "duplicate rating maps to 409", err: repository.ErrAlreadyRated, expected: http.StatusConflict},
		{name: "duplicate active booking maps to 409", err: repository.ErrBookingExists, expected: http.StatusConflict},
		{name: "short stock maps to 409", err: repository.ErrInsufficientStock, expected: http.StatusConflict},
		{name: "provider outage maps to 502", err: payment.ErrUnavailable, expected: http.StatusBadGateway},
		{name: "anything else maps to 500", err: assert.AnError, expected: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, statusFor(tc.err))
		})
	}
}
