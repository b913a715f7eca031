package model

import "time"

// SubjectKind discriminates what a booking reserves.  Activities and
// itineraries share one booking flow; the kind plus subject ID identify
// the reserved entity.  The set is closed: repositories reject any other
// value before touching the database.
type SubjectKind string

const (
	SubjectActivity  SubjectKind = "activity"
	SubjectItinerary SubjectKind = "itinerary"
)

// Booking statuses.  A booking is created ACTIVE and may transition to
// CANCELLED exactly once; cancelled rows are retained for audit rather
// than deleted.
const (
	BookingActive    = "ACTIVE"
	BookingCancelled = "CANCELLED"
)

// Payment method tags fixed at booking creation.
const (
	PayWallet   = "wallet"
	PayExternal = "external"
)

// Booking records a tourist's reservation of an activity or itinerary.
// The cancellation deadline is computed once at creation as the subject's
// start time minus 48 hours and never changes afterwards.  Rating and
// comment are each settable exactly once.
//
// Fields:
//
//	ID                   – primary key identifier.
//	TouristID            – tourist who made the booking.
//	SubjectKind          – "activity" or "itinerary".
//	SubjectID            – reserved activity/itinerary ID.
//	Status               – ACTIVE or CANCELLED.
//	AmountPaidCents      – amount settled at creation, refunded verbatim on cancel.
//	PaymentMethod        – "wallet" or "external".
//	SessionRef           – provider session ID for external payments (nullable).
//	BookedAt             – creation timestamp.
//	CancellationDeadline – start time minus 48h; cancels must precede it.
//	CancelledAt          – when the booking was cancelled (nullable).
//	Rating               – 1..5, nil until set (immutable once set).
//	Comment              – free text, nil until set (immutable once set).
//	ReminderSent         – whether the 24h deadline reminder was emitted.
type Booking struct {
	ID                   uint64      // bookings.id
	TouristID            uint64      // bookings.tourist_id
	SubjectKind          SubjectKind // bookings.subject_kind
	SubjectID            uint64      // bookings.subject_id
	Status               string      // bookings.status
	AmountPaidCents      int64       // bookings.amount_paid_cents
	PaymentMethod        string      // bookings.payment_method
	SessionRef           *string     // bookings.session_ref (nullable, unique)
	BookedAt             time.Time   // bookings.booked_at
	CancellationDeadline time.Time   // bookings.cancellation_deadline
	CancelledAt          *time.Time  // bookings.cancelled_at (nullable)
	Rating               *uint8      // bookings.rating (nullable)
	Comment              *string     // bookings.comment (nullable)
	ReminderSent         bool        // bookings.reminder_sent
}

// Activity is a bookable subject with a single fixed date.
//
// Fields:
//
//	ID         – primary key identifier.
//	Name       – display name.
//	StartsAt   – when the activity takes place (UTC).
//	PriceCents – price in cents.
//	IsActive   – whether the activity is open for booking.
type Activity struct {
	ID         uint64    // activities.id
	Name       string    // activities.name
	StartsAt   time.Time // activities.starts_at
	PriceCents int64     // activities.price_cents
	IsActive   bool      // activities.is_active
}

// Itinerary is a bookable subject with one or more available dates; the
// earliest date drives the cancellation deadline.  TotalPriceCents covers
// the whole itinerary.
//
// Fields:
//
//	ID              – primary key identifier.
//	Name            – display name.
//	TotalPriceCents – price of the full itinerary in cents.
//	IsActive        – whether the itinerary is open for booking.
type Itinerary struct {
	ID              uint64 // itineraries.id
	Name            string // itineraries.name
	TotalPriceCents int64  // itineraries.total_price_cents
	IsActive        bool   // itineraries.is_active
}
