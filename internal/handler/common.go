package handler // handler defines http handlers

import (
	"errors"   // errors provides sentinel comparisons for status mapping
	"net/http" // HTTP status codes
	"strconv"  // strconv converts strings to numeric types

	"github.com/labstack/echo/v4" // echo defines request context types

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/payment"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/repository"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64.
// JWT numeric claims arrive as float64; string subjects are parsed.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// statusFor maps repository and provider sentinels onto HTTP status
// codes following the service's error taxonomy: validation 400,
// not-found 404, ownership and deadline policy 403, balance policy 402,
// conflicts 409, provider trouble 502, everything else 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrInvalidRating),
		errors.Is(err, repository.ErrInvalidComment),
		errors.Is(err, repository.ErrInvalidAmount),
		errors.Is(err, repository.ErrCartEmpty),
		errors.Is(err, repository.ErrPromoExpiredOrInactive),
		errors.Is(err, repository.ErrDiscountExceedsTotal),
		errors.Is(err, repository.ErrAmountExceedsPrice),
		errors.Is(err, payment.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrInsufficientFunds),
		errors.Is(err, repository.ErrInsufficientPoints):
		return http.StatusPaymentRequired
	case errors.Is(err, repository.ErrForbidden),
		errors.Is(err, repository.ErrDeadlinePassed):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrTouristNotFound),
		errors.Is(err, repository.ErrSubjectNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrPromoNotFound),
		errors.Is(err, repository.ErrLoyaltyNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrPurchaseNotFound),
		errors.Is(err, payment.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrAlreadyRated),
		errors.Is(err, repository.ErrAlreadyCommented),
		errors.Is(err, repository.ErrBookingExists),
		errors.Is(err, repository.ErrInsufficientStock),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, payment.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// jsonError renders a sentinel error with its mapped status.  Internal
// errors are masked so storage details never leak to clients.
func jsonError(c echo.Context, err error) error {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	return c.JSON(status, echo.Map{"error": msg})
}

// pathID parses a numeric path parameter, rejecting zero and garbage.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
