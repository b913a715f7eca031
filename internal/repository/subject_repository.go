package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/model"
)

// SubjectInfo is the booking-facing view of an activity or itinerary:
// the two facts the booking flow needs from any subject are when it
// starts (driving the cancellation deadline) and what it costs.  The
// discriminated kind plus this common shape replace duplicating the
// whole flow per subject family.
type SubjectInfo struct {
	Kind       model.SubjectKind
	ID         uint64
	Name       string
	StartsAt   time.Time
	PriceCents int64
}

// SubjectRepo resolves booking subjects across the activities and
// itineraries tables.  Inactive subjects are treated as absent so that
// retired listings cannot be booked.
type SubjectRepo struct {
	db *sql.DB
}

// NewSubjectRepo returns a new SubjectRepo bound to the given database.
func NewSubjectRepo(db *sql.DB) *SubjectRepo { return &SubjectRepo{db: db} }

// Resolve loads the subject identified by (kind, id).  For activities the
// start time is the activity date; for itineraries it is the earliest row
// in itinerary_dates.  Unknown kinds and missing or inactive subjects
// return ErrSubjectNotFound.
func (r *SubjectRepo) Resolve(ctx context.Context, kind model.SubjectKind, id uint64) (*SubjectInfo, error) {
	switch kind {
	case model.SubjectActivity:
		return r.resolveActivity(ctx, id)
	case model.SubjectItinerary:
		return r.resolveItinerary(ctx, id)
	default:
		return nil, ErrSubjectNotFound
	}
}

func (r *SubjectRepo) resolveActivity(ctx context.Context, id uint64) (*SubjectInfo, error) {
	const q = `SELECT id, name, starts_at, price_cents FROM activities
	           WHERE id = ? AND is_active = 1`
	info := SubjectInfo{Kind: model.SubjectActivity}
	err := r.db.QueryRowContext(ctx, q, id).Scan(&info.ID, &info.Name, &info.StartsAt, &info.PriceCents)
	if err == sql.ErrNoRows {
		return nil, ErrSubjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (r *SubjectRepo) resolveItinerary(ctx context.Context, id uint64) (*SubjectInfo, error) {
	// the first available date is the itinerary's start for deadline
	// purposes; an itinerary without dates is not bookable
	const q = `SELECT i.id, i.name, MIN(d.available_at), i.total_price_cents
	           FROM itineraries i
	           JOIN itinerary_dates d ON d.itinerary_id = i.id
	           WHERE i.id = ? AND i.is_active = 1
	           GROUP BY i.id, i.name, i.total_price_cents`
	info := SubjectInfo{Kind: model.SubjectItinerary}
	err := r.db.QueryRowContext(ctx, q, id).Scan(&info.ID, &info.Name, &info.StartsAt, &info.PriceCents)
	if err == sql.ErrNoRows {
		return nil, ErrSubjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}
