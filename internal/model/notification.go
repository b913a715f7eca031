package model

import "time"

// Notification types emitted by the settlement flows and persisted by the
// queue consumer.
const (
	NotifyBookingCreated   = "booking_created"
	NotifyBookingCancelled = "booking_cancelled"
	NotifyBookingReminder  = "booking_reminder"
	NotifyReceipt          = "receipt"
)

// Notification is a persisted message for a tourist, written by the
// background consumer when it processes a settlement event.  The actual
// email dispatch is delegated to the external mailer; a failure there is
// logged and never fails the originating operation.
//
// Fields:
//
//	ID        – primary key identifier.
//	TouristID – recipient.
//	Type      – one of the Notify* constants.
//	Message   – templated human-readable body.
//	Data      – structured event payload as JSON.
//	CreatedAt – timestamp of persistence.
type Notification struct {
	ID        uint64    // notifications.id
	TouristID uint64    // notifications.tourist_id
	Type      string    // notifications.type
	Message   string    // notifications.message
	Data      string    // notifications.data (JSON)
	CreatedAt time.Time // notifications.created_at
}
