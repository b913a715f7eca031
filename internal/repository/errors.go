// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios and map
// them onto HTTP status classes: not-found errors become 404, policy
// violations become 402/403/409, validation errors become 400.  Checks
// always precede writes, so a returned policy error guarantees that no
// partial mutation was committed.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state. Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")

// Not-found sentinels, one per entity the settlement core depends on.
var (
	ErrTouristNotFound  = errors.New("tourist not found")
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrPromoNotFound    = errors.New("promo code not found")
	ErrLoyaltyNotFound  = errors.New("loyalty account not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrPurchaseNotFound = errors.New("purchase not found")
)

// Policy violations.  Each is checked before any dependent write, or is
// enforced by a conditional UPDATE inside the settlement transaction so
// that a violation rolls back the whole operation.
var (
	ErrInsufficientFunds      = errors.New("insufficient wallet balance")
	ErrInsufficientPoints     = errors.New("insufficient loyalty points")
	ErrInsufficientStock      = errors.New("insufficient product stock")
	ErrDeadlinePassed         = errors.New("cancellation deadline passed")
	ErrAmountExceedsPrice     = errors.New("amount exceeds subject price")
	ErrDiscountExceedsTotal   = errors.New("discount exceeds subtotal")
	ErrPromoExpiredOrInactive = errors.New("promo code expired or inactive")
)

// Conflicts on one-time mutations and idempotent creation.
var (
	ErrAlreadyRated     = errors.New("booking already rated")
	ErrAlreadyCommented = errors.New("booking already commented")
	ErrBookingExists    = errors.New("booking already exists for subject")
	ErrCartEmpty        = errors.New("cart is empty")
)

// Validation errors surfaced before any storage access.
var (
	ErrInvalidRating  = errors.New("rating must be between 1 and 5")
	ErrInvalidComment = errors.New("comment must be non-empty text")
	ErrInvalidAmount  = errors.New("amount must be positive")
)
