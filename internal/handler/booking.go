package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/model"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/queue"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/repository"
	queuepublisher "github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/service"
)

// cancellationNotice is the minimum lead time before a subject's start
// at which a booking may still be cancelled.  The deadline is frozen at
// creation as starts_at minus this value.
const cancellationNotice = 48 * time.Hour

// BookingHandler owns the booking lifecycle: create (wallet settled),
// cancel with refund, list, and write-once rating and comment.
type BookingHandler struct {
	Bookings *repository.BookingRepo
	Wallets  *repository.WalletRepo
	Subjects *repository.SubjectRepo
	Tourists *repository.TouristRepo
	Loyalty  *repository.LoyaltyRepo
	Promos   *repository.PromoRepo
	Cache    *WalletCache
	Validate *validator.Validate
}

func NewBookingHandler(
	bookings *repository.BookingRepo,
	wallets *repository.WalletRepo,
	subjects *repository.SubjectRepo,
	tourists *repository.TouristRepo,
	loyalty *repository.LoyaltyRepo,
	promos *repository.PromoRepo,
	cache *WalletCache,
) *BookingHandler {
	return &BookingHandler{
		Bookings: bookings,
		Wallets:  wallets,
		Subjects: subjects,
		Tourists: tourists,
		Loyalty:  loyalty,
		Promos:   promos,
		Cache:    cache,
		Validate: validator.New(),
	}
}

type createBookingRequest struct {
	SubjectKind     string `json:"subject_kind" validate:"required,oneof=activity itinerary"`
	SubjectID       uint64 `json:"subject_id" validate:"required,gt=0"`
	AmountPaidCents int64  `json:"amount_paid_cents" validate:"gte=0"`
	PromoCode       string `json:"promo_code"`
}

// bookingJSON is the single serialization of a booking used by every
// endpoint that returns one.
func bookingJSON(b *model.Booking) echo.Map {
	m := echo.Map{
		"id":                    b.ID,
		"tourist_id":            b.TouristID,
		"subject_kind":          b.SubjectKind,
		"subject_id":            b.SubjectID,
		"status":                b.Status,
		"amount_paid_cents":     b.AmountPaidCents,
		"payment_method":        b.PaymentMethod,
		"booked_at":             b.BookedAt,
		"cancellation_deadline": b.CancellationDeadline,
		"reminder_sent":         b.ReminderSent,
	}
	if b.SessionRef != nil {
		m["session_ref"] = *b.SessionRef
	}
	if b.CancelledAt != nil {
		m["cancelled_at"] = *b.CancelledAt
	}
	if b.Rating != nil {
		m["rating"] = *b.Rating
	}
	if b.Comment != nil {
		m["comment"] = *b.Comment
	}
	return m
}

// Create books a subject against the caller's wallet.  The debit, the
// booking row and the promo redemption commit in one transaction; the
// unique active-booking index turns a concurrent duplicate into a 409.
func (h *BookingHandler) Create(c echo.Context) error {
	touristID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.Validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx := c.Request().Context()
	now := time.Now().UTC()

	tourist, err := h.Tourists.GetByID(ctx, touristID)
	if err != nil {
		return jsonError(c, err)
	}

	subject, err := h.Subjects.Resolve(ctx, model.SubjectKind(req.SubjectKind), req.SubjectID)
	if err != nil {
		return jsonError(c, err)
	}
	if !subject.StartsAt.After(now) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "subject has already started"})
	}

	total := subject.PriceCents
	var promo *model.PromoCode
	discount := int64(0)
	if code := strings.TrimSpace(req.PromoCode); code != "" {
		promo, err = h.Promos.GetActive(ctx, code, now)
		if err != nil {
			return jsonError(c, err)
		}
		discount = repository.Discount(promo, total)
		if discount > total {
			return jsonError(c, repository.ErrDiscountExceedsTotal)
		}
		total -= discount
	}

	charged := total
	if req.AmountPaidCents > 0 {
		if req.AmountPaidCents > total {
			return jsonError(c, repository.ErrAmountExceedsPrice)
		}
		charged = req.AmountPaidCents
	}

	deadline := subject.StartsAt.Add(-cancellationNotice)
	booking := &model.Booking{
		TouristID:            touristID,
		SubjectKind:          subject.Kind,
		SubjectID:            subject.ID,
		Status:               model.BookingActive,
		AmountPaidCents:      charged,
		PaymentMethod:        model.PayWallet,
		BookedAt:             now,
		CancellationDeadline: deadline,
	}

	tx, err := h.Wallets.DB().BeginTx(ctx, nil)
	if err != nil {
		return jsonError(c, err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	// A fully discounted booking charges nothing; the ledger only
	// records positive movements.
	if charged > 0 {
		ref := fmt.Sprintf("booking:%s:%d", subject.Kind, subject.ID)
		if err := h.Wallets.DebitTx(ctx, tx, touristID, charged, ref); err != nil {
			return jsonError(c, err)
		}
	}
	if err := h.Bookings.CreateTx(ctx, tx, booking); err != nil {
		return jsonError(c, err)
	}
	if promo != nil {
		if err := h.Promos.RecordRedemptionTx(ctx, tx, promo.ID, touristID); err != nil {
			return jsonError(c, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return jsonError(c, err)
	}
	committed = true

	h.Cache.Invalidate(ctx, touristID)
	emitBookingCreated(ctx, h.Loyalty, tourist, booking, subject.Name)

	balance, err := h.Wallets.Balance(ctx, touristID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"booking":        bookingJSON(booking),
		"discount_cents": discount,
		"balance_cents":  balance,
	})
}

// emitBookingCreated runs the post-commit work shared by the wallet and
// external payment paths: loyalty accrual and the created event.  Both
// are logged on failure; the booking itself is already durable.
func emitBookingCreated(ctx context.Context, loyalty *repository.LoyaltyRepo, tourist *model.Tourist, b *model.Booking, subjectName string) {
	if b.AmountPaidCents > 0 {
		earned, level, err := loyalty.Accrue(ctx, tourist.ID, b.AmountPaidCents)
		if err != nil {
			log.Printf("loyalty accrual failed for tourist %d booking %d: %v", tourist.ID, b.ID, err)
		} else {
			log.Printf("loyalty accrual: tourist %d earned %d points (level %d)", tourist.ID, earned, level)
		}
	}

	event := queue.BookingCreatedEvent{
		EventID:         uuid.NewString(),
		BookingID:       b.ID,
		TouristID:       tourist.ID,
		TouristEmail:    tourist.Email,
		SubjectKind:     string(b.SubjectKind),
		SubjectID:       b.SubjectID,
		SubjectName:     subjectName,
		AmountPaidCents: b.AmountPaidCents,
		PaymentMethod:   b.PaymentMethod,
		Deadline:        b.CancellationDeadline.Format(time.RFC3339),
		BookedAt:        b.BookedAt.Format(time.RFC3339),
	}
	if err := queuepublisher.PublishBookingCreated(ctx, event); err != nil {
		log.Printf("publish booking.created failed for booking %d: %v", b.ID, err)
	}
}

// Cancel archives an ACTIVE booking and refunds the amount paid in the
// same transaction.  Cancels at or past the deadline are rejected.
func (h *BookingHandler) Cancel(c echo.Context) error {
	touristID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx := c.Request().Context()
	now := time.Now().UTC()

	tx, err := h.Wallets.DB().BeginTx(ctx, nil)
	if err != nil {
		return jsonError(c, err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	booking, err := h.Bookings.CancelTx(ctx, tx, bookingID, touristID, now)
	if err != nil {
		return jsonError(c, err)
	}
	if booking.AmountPaidCents > 0 {
		ref := fmt.Sprintf("refund:booking:%d", booking.ID)
		if err := h.Wallets.CreditTx(ctx, tx, touristID, booking.AmountPaidCents, ref); err != nil {
			return jsonError(c, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return jsonError(c, err)
	}
	committed = true

	h.Cache.Invalidate(ctx, touristID)

	if tourist, terr := h.Tourists.GetByID(ctx, touristID); terr == nil {
		event := queue.BookingCancelledEvent{
			EventID:       uuid.NewString(),
			BookingID:     booking.ID,
			TouristID:     touristID,
			TouristEmail:  tourist.Email,
			SubjectKind:   string(booking.SubjectKind),
			SubjectID:     booking.SubjectID,
			RefundedCents: booking.AmountPaidCents,
			CancelledAt:   now.Format(time.RFC3339),
		}
		if err := queuepublisher.PublishBookingCancelled(ctx, event); err != nil {
			log.Printf("publish booking.cancelled failed for booking %d: %v", booking.ID, err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"booking":        bookingJSON(booking),
		"refunded_cents": booking.AmountPaidCents,
	})
}

// List returns the caller's bookings, active and archived, newest first.
func (h *BookingHandler) List(c echo.Context) error {
	touristID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	bookings, err := h.Bookings.ListByTourist(c.Request().Context(), touristID)
	if err != nil {
		return jsonError(c, err)
	}
	out := make([]echo.Map, 0, len(bookings))
	for i := range bookings {
		out = append(out, bookingJSON(&bookings[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// Get returns one of the caller's bookings by ID.
func (h *BookingHandler) Get(c echo.Context) error {
	touristID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	booking, err := h.Bookings.GetByIDForTourist(c.Request().Context(), bookingID, touristID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": bookingJSON(booking)})
}

type rateBookingRequest struct {
	Rating uint8 `json:"rating"`
}

// Rate sets a booking's rating once.  Repeats are a 409.
func (h *BookingHandler) Rate(c echo.Context) error {
	touristID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	var req rateBookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Rating < 1 || req.Rating > 5 {
		return jsonError(c, repository.ErrInvalidRating)
	}

	if err := h.Bookings.SetRating(c.Request().Context(), bookingID, touristID, req.Rating); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "rating recorded"})
}

type commentBookingRequest struct {
	Comment string `json:"comment"`
}

// Comment sets a booking's comment once.  Repeats are a 409.
func (h *BookingHandler) Comment(c echo.Context) error {
	touristID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	var req commentBookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	comment := strings.TrimSpace(req.Comment)
	if comment == "" || len(comment) > 2000 {
		return jsonError(c, repository.ErrInvalidComment)
	}

	if err := h.Bookings.SetComment(c.Request().Context(), bookingID, touristID, comment); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "comment recorded"})
}
