package model

import "time"

// PromoCode is a named, time-boxed percentage discount applicable to a
// booking or cart subtotal.  A code applies only while IsActive is true
// and the current time is not past ExpiresAt.  Redemptions are recorded
// per user but do not block reuse; enforcement of single-use semantics is
// deliberately left out (see DESIGN.md).
//
// Fields:
//
//	ID         – primary key identifier.
//	Name       – unique, case-insensitive code entered by tourists.
//	Percentage – discount percentage, 0..100.
//	IsActive   – manual kill switch for the code.
//	ExpiresAt  – last instant the code is honoured.
//	CreatedAt  – timestamp of creation.
type PromoCode struct {
	ID         uint64    // promo_codes.id
	Name       string    // promo_codes.name
	Percentage uint8     // promo_codes.percentage
	IsActive   bool      // promo_codes.is_active
	ExpiresAt  time.Time // promo_codes.expires_at
	CreatedAt  time.Time // promo_codes.created_at
}

// PromoRedemption links a code to a tourist who used it.  One row is
// appended per successful application; the same tourist may appear more
// than once for the same code.
//
// Fields:
//
//	ID         – primary key identifier.
//	PromoID    – redeemed code.
//	TouristID  – tourist who applied the code.
//	RedeemedAt – when the code was applied.
type PromoRedemption struct {
	ID         uint64    // promo_redemptions.id
	PromoID    uint64    // promo_redemptions.promo_id
	TouristID  uint64    // promo_redemptions.tourist_id
	RedeemedAt time.Time // promo_redemptions.redeemed_at
}
