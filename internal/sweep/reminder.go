// Package sweep runs the background reminder loop for bookings whose
// cancellation deadline is approaching.
package sweep

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/queue"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/repository"
	queuepublisher "github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/service"
)

// reminderWindow is how far ahead of the cancellation deadline a
// reminder fires.  Each booking is reminded at most once.
const reminderWindow = 24 * time.Hour

// Reminder scans for ACTIVE bookings whose cancellation deadline falls
// within the next 24 hours and publishes one reminder event per booking.
type Reminder struct {
	Bookings *repository.BookingRepo
	Subjects *repository.SubjectRepo
	Interval time.Duration
}

func NewReminder(bookings *repository.BookingRepo, subjects *repository.SubjectRepo, interval time.Duration) *Reminder {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Reminder{Bookings: bookings, Subjects: subjects, Interval: interval}
}

// Run loops until the context is cancelled, sweeping once per interval.
// Intended to be launched as `go r.Run(ctx)` from main.
func (r *Reminder) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	// Sweep once at startup so a restart does not delay overdue
	// reminders by a full interval.
	r.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reminder) sweep(ctx context.Context) {
	now := time.Now().UTC()
	due, err := r.Bookings.DueReminders(ctx, now, reminderWindow)
	if err != nil {
		log.Printf("reminder sweep query failed: %v", err)
		return
	}
	for _, row := range due {
		// A dangling tourist reference means there is nobody to
		// notify; skip without marking so the row surfaces in logs on
		// every sweep until the data is repaired.
		if row.TouristEmail == nil {
			log.Printf("reminder sweep: booking %d references missing tourist %d, skipping",
				row.BookingID, row.TouristID)
			continue
		}

		// Same treatment for a dangling subject reference.
		info, serr := r.Subjects.Resolve(ctx, row.SubjectKind, row.SubjectID)
		if serr != nil {
			log.Printf("reminder sweep: booking %d references missing %s %d, skipping: %v",
				row.BookingID, row.SubjectKind, row.SubjectID, serr)
			continue
		}

		event := queue.BookingReminderEvent{
			EventID:      uuid.NewString(),
			BookingID:    row.BookingID,
			TouristID:    row.TouristID,
			TouristEmail: *row.TouristEmail,
			SubjectKind:  string(row.SubjectKind),
			SubjectID:    row.SubjectID,
			SubjectName:  info.Name,
			Deadline:     row.Deadline.Format(time.RFC3339),
		}
		if err := queuepublisher.PublishBookingReminder(ctx, event); err != nil {
			log.Printf("reminder sweep: publish failed for booking %d: %v", row.BookingID, err)
			continue
		}
		if err := r.Bookings.MarkReminderSent(ctx, row.BookingID); err != nil {
			log.Printf("reminder sweep: mark failed for booking %d: %v", row.BookingID, err)
		}
	}
}
