// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names.  All queues are durable and messages are published
// persistent so settlement events survive a broker restart.
const (
	QueueBookingCreated   = "booking.created"
	QueueBookingCancelled = "booking.cancelled"
	QueueBookingReminder  = "booking.reminder"
	QueueReceiptIssued    = "receipt.issued"
)

// BookingCreatedEvent is published when a booking settles, on both the
// wallet-pay and external-payment paths.  It contains enough information
// for downstream consumers to notify the tourist without querying the
// primary database.
type BookingCreatedEvent struct {
	EventID         string `json:"event_id"`
	BookingID       uint64 `json:"booking_id"`
	TouristID       uint64 `json:"tourist_id"`
	TouristEmail    string `json:"tourist_email"`
	SubjectKind     string `json:"subject_kind"`
	SubjectID       uint64 `json:"subject_id"`
	SubjectName     string `json:"subject_name"`
	AmountPaidCents int64  `json:"amount_paid_cents"`
	PaymentMethod   string `json:"payment_method"`
	Deadline        string `json:"cancellation_deadline"`
	BookedAt        string `json:"booked_at"`
}

// BookingCancelledEvent is published when a booking is cancelled and the
// refund has been credited.
type BookingCancelledEvent struct {
	EventID       string `json:"event_id"`
	BookingID     uint64 `json:"booking_id"`
	TouristID     uint64 `json:"tourist_id"`
	TouristEmail  string `json:"tourist_email"`
	SubjectKind   string `json:"subject_kind"`
	SubjectID     uint64 `json:"subject_id"`
	RefundedCents int64  `json:"refunded_cents"`
	CancelledAt   string `json:"cancelled_at"`
}

// BookingReminderEvent is published by the background sweep for each
// ACTIVE booking whose cancellation deadline falls within the next 24
// hours.  At most one reminder is emitted per booking.
type BookingReminderEvent struct {
	EventID      string `json:"event_id"`
	BookingID    uint64 `json:"booking_id"`
	TouristID    uint64 `json:"tourist_id"`
	TouristEmail string `json:"tourist_email"`
	SubjectKind  string `json:"subject_kind"`
	SubjectID    uint64 `json:"subject_id"`
	SubjectName  string `json:"subject_name"`
	Deadline     string `json:"cancellation_deadline"`
}

// ReceiptIssuedEvent is published after a cart checkout settles.  One
// event covers the whole checkout.
type ReceiptIssuedEvent struct {
	EventID       string   `json:"event_id"`
	TouristID     uint64   `json:"tourist_id"`
	TouristEmail  string   `json:"tourist_email"`
	PurchaseIDs   []uint64 `json:"purchase_ids"`
	SubtotalCents int64    `json:"subtotal_cents"`
	DiscountCents int64    `json:"discount_cents"`
	TotalCents    int64    `json:"total_cents"`
	PaymentMethod string   `json:"payment_method"`
	PromoCode     string   `json:"promo_code,omitempty"`
	PurchasedAt   string   `json:"purchased_at"`
}
