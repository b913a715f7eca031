package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/model"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/payment"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/repository"
)

// reconcileLockTTL bounds how long a session reconciliation holds its
// Redis lock.  The lock only narrows the race window; the session_ref
// unique index is the actual idempotency authority.
const reconcileLockTTL = 30 * time.Second

// errSessionUnpaid and errSessionStale are reconciliation outcomes that
// map to client errors rather than settlement.
var (
	errSessionUnpaid = errors.New("payment session is not paid")
	errSessionStale  = errors.New("payment session is outside the reconciliation window")
)

// PaymentHandler bridges the external payment provider and local
// settlement: session creation, client-driven confirm, and the signed
// webhook.  Confirm and webhook converge on reconcileSession so a
// session settles exactly once no matter which path lands first.
type PaymentHandler struct {
	Provider  *payment.Client
	Bookings  *repository.BookingRepo
	Subjects  *repository.SubjectRepo
	Tourists  *repository.TouristRepo
	Wallets   *repository.WalletRepo
	Loyalty   *repository.LoyaltyRepo
	Promos    *repository.PromoRepo
	Carts     *repository.CartRepo
	Products  *repository.ProductRepo
	Purchases *repository.PurchaseRepo
	Checkout  *CheckoutHandler
	Cache     *WalletCache
	Redis     *redis.Client

	WebhookSecret   string
	ReconcileWindow time.Duration
	SuccessURL      string
	CancelURL       string
	Validate        *validator.Validate
}

func NewPaymentHandler(
	provider *payment.Client,
	bookings *repository.BookingRepo,
	subjects *repository.SubjectRepo,
	tourists *repository.TouristRepo,
	wallets *repository.WalletRepo,
	loyalty *repository.LoyaltyRepo,
	promos *repository.PromoRepo,
	carts *repository.CartRepo,
	products *repository.ProductRepo,
	purchases *repository.PurchaseRepo,
	checkout *CheckoutHandler,
	cache *WalletCache,
	rdb *redis.Client,
	webhookSecret string,
	reconcileWindow time.Duration,
	successURL, cancelURL string,
) *PaymentHandler {
	return &PaymentHandler{
		Provider:        provider,
		Bookings:        bookings,
		Subjects:        subjects,
		Tourists:        tourists,
		Wallets:         wallets,
		Loyalty:         loyalty,
		Promos:          promos,
		Carts:           carts,
		Products:        products,
		Purchases:       purchases,
		Checkout:        checkout,
		Cache:           cache,
		Redis:           rdb,
		WebhookSecret:   webhookSecret,
		ReconcileWindow: reconcileWindow,
		SuccessURL:      successURL,
		CancelURL:       cancelURL,
		Validate:        validator.New(),
	}
}

type createSessionRequest struct {
	SubjectKind string `json:"subject_kind" validate:"required,oneof=activity itinerary"`
	SubjectID   uint64 `json:"subject_id" validate:"required,gt=0"`
	PromoCode   string `json:"promo_code"`
}

// CreateSession opens a provider checkout session for a booking.  The
// subject and caller travel in session metadata and come back at
// reconciliation; nothing is written locally until the payment lands.
func (h *PaymentHandler) CreateSession(c echo.Context) error {
	touristID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.Validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx := c.Request().Context()
	now := time.Now().UTC()

	if _, err := h.Tourists.GetByID(ctx, touristID); err != nil {
		return jsonError(c, err)
	}
	subject, err := h.Subjects.Resolve(ctx, model.SubjectKind(req.SubjectKind), req.SubjectID)
	if err != nil {
		return jsonError(c, err)
	}
	if !subject.StartsAt.After(now) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "subject has already started"})
	}
	if existing, err := h.Bookings.FindActiveBySubject(ctx, touristID, subject.Kind, subject.ID); err == nil && existing != nil {
		return jsonError(c, repository.ErrBookingExists)
	} else if err != nil && !errors.Is(err, repository.ErrBookingNotFound) {
		return jsonError(c, err)
	}

	total := subject.PriceCents
	meta := map[string]string{
		payment.MetaTouristID:   strconv.FormatUint(touristID, 10),
		payment.MetaSubjectKind: string(subject.Kind),
		payment.MetaSubjectID:   strconv.FormatUint(subject.ID, 10),
	}
	if code := strings.TrimSpace(req.PromoCode); code != "" {
		promo, err := h.Promos.GetActive(ctx, code, now)
		if err != nil {
			return jsonError(c, err)
		}
		discount := repository.Discount(promo, total)
		if discount > total {
			return jsonError(c, repository.ErrDiscountExceedsTotal)
		}
		total -= discount
		meta[payment.MetaPromoCode] = promo.Name
	}

	sess, err := h.Provider.CreateSession(ctx, payment.CreateSessionInput{
		AmountCents: total,
		Currency:    "usd",
		SuccessURL:  h.SuccessURL,
		CancelURL:   h.CancelURL,
		Metadata:    meta,
	})
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"session_id":   sess.ID,
		"checkout_url": sess.URL,
		"amount_cents": total,
	})
}

type confirmRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

// Confirm settles a session on the client's say-so, after re-verifying
// payment status with the provider.  Safe to call any number of times.
func (h *PaymentHandler) Confirm(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.Validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx := c.Request().Context()
	sess, err := h.Provider.GetSession(ctx, req.SessionID)
	if err != nil {
		return jsonError(c, err)
	}

	result, err := h.reconcileSession(c, sess)
	if err != nil {
		switch {
		case errors.Is(err, errSessionUnpaid):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.Is(err, errSessionStale):
			return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
		default:
			return jsonError(c, err)
		}
	}
	return c.JSON(http.StatusOK, result)
}

// webhookEvent is the provider's envelope: a type tag plus the session.
type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Object payment.CheckoutSession `json:"object"`
	} `json:"data"`
}

// Webhook ingests provider events.  The signature covers the raw body
// with a timestamp to stop replays; unknown event types are acked and
// dropped so the provider does not retry them forever.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}
	sig := c.Request().Header.Get("Webhook-Signature")
	if err := payment.VerifySignature(h.WebhookSecret, sig, body, time.Now().UTC()); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
	}

	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	if ev.Type != "checkout.session.completed" {
		return c.JSON(http.StatusOK, echo.Map{"received": true, "ignored": ev.Type})
	}

	result, err := h.reconcileSession(c, &ev.Data.Object)
	if err != nil {
		if errors.Is(err, errSessionUnpaid) || errors.Is(err, errSessionStale) {
			// Acked so the provider stops retrying a session that will
			// never become settleable.
			log.Printf("webhook session %s not settled: %v", ev.Data.Object.ID, err)
			return c.JSON(http.StatusOK, echo.Map{"received": true})
		}
		log.Printf("webhook reconciliation failed for session %s: %v", ev.Data.Object.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reconciliation failed"})
	}
	result["received"] = true
	return c.JSON(http.StatusOK, result)
}

// reconcileSession settles a paid session exactly once.  A Redis SETNX
// lock narrows the confirm/webhook race; the booking table's unique
// session_ref absorbs whatever slips through, and a duplicate resolves
// to the already-settled booking instead of an error.
func (h *PaymentHandler) reconcileSession(c echo.Context, sess *payment.CheckoutSession) (echo.Map, error) {
	ctx := c.Request().Context()
	now := time.Now().UTC()

	if sess.PaymentStatus != payment.StatusPaid {
		return nil, errSessionUnpaid
	}
	if sess.CompletedAt > 0 {
		completed := time.Unix(sess.CompletedAt, 0).UTC()
		if now.Sub(completed) > h.ReconcileWindow {
			return nil, errSessionStale
		}
	}

	if h.Redis != nil {
		lockKey := "reconcile:session:" + sess.ID
		ok, err := h.Redis.SetNX(ctx, lockKey, "1", reconcileLockTTL).Result()
		if err == nil && !ok {
			// Another worker holds the session; report the current state.
			if b, berr := h.Bookings.GetBySessionRef(ctx, sess.ID); berr == nil {
				return echo.Map{"booking": bookingJSON(b), "duplicate": true}, nil
			}
			return echo.Map{"status": "processing"}, nil
		}
		if err == nil {
			defer h.Redis.Del(ctx, lockKey)
		}
	}

	if sess.Metadata[payment.MetaCart] != "" {
		return h.reconcileCart(c, sess, now)
	}
	return h.reconcileBooking(c, sess, now)
}

func (h *PaymentHandler) reconcileBooking(c echo.Context, sess *payment.CheckoutSession, now time.Time) (echo.Map, error) {
	ctx := c.Request().Context()

	touristID, err := strconv.ParseUint(sess.Metadata[payment.MetaTouristID], 10, 64)
	if err != nil || touristID == 0 {
		return nil, fmt.Errorf("session %s: bad tourist metadata", sess.ID)
	}
	subjectID, err := strconv.ParseUint(sess.Metadata[payment.MetaSubjectID], 10, 64)
	if err != nil || subjectID == 0 {
		return nil, fmt.Errorf("session %s: bad subject metadata", sess.ID)
	}
	kind := model.SubjectKind(sess.Metadata[payment.MetaSubjectKind])

	if existing, err := h.Bookings.GetBySessionRef(ctx, sess.ID); err == nil {
		return echo.Map{"booking": bookingJSON(existing), "duplicate": true}, nil
	} else if !errors.Is(err, repository.ErrBookingNotFound) {
		return nil, err
	}

	tourist, err := h.Tourists.GetByID(ctx, touristID)
	if err != nil {
		return nil, err
	}
	subject, err := h.Subjects.Resolve(ctx, kind, subjectID)
	if err != nil {
		return nil, err
	}

	sessionRef := sess.ID
	booking := &model.Booking{
		TouristID:            touristID,
		SubjectKind:          subject.Kind,
		SubjectID:            subject.ID,
		Status:               model.BookingActive,
		AmountPaidCents:      sess.AmountTotalCents,
		PaymentMethod:        model.PayExternal,
		SessionRef:           &sessionRef,
		BookedAt:             now,
		CancellationDeadline: subject.StartsAt.Add(-cancellationNotice),
	}

	var promo *model.PromoCode
	if code := sess.Metadata[payment.MetaPromoCode]; code != "" {
		// Redemption is recorded even if the code expired between
		// session creation and settlement; the discount was already
		// priced into the session amount.
		if p, perr := h.Promos.GetActive(ctx, code, now); perr == nil {
			promo = p
		}
	}

	tx, err := h.Wallets.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if err := h.Bookings.CreateTx(ctx, tx, booking); err != nil {
		if errors.Is(err, repository.ErrBookingExists) {
			tx.Rollback()
			committed = true
			// The collision is either a replayed session or an active
			// booking for the same subject made through the wallet
			// while the session was open.  Both resolve to the
			// existing row.
			if b, berr := h.Bookings.GetBySessionRef(ctx, sess.ID); berr == nil {
				return echo.Map{"booking": bookingJSON(b), "duplicate": true}, nil
			}
			if b, berr := h.Bookings.FindActiveBySubject(ctx, touristID, subject.Kind, subject.ID); berr == nil {
				return echo.Map{"booking": bookingJSON(b), "duplicate": true}, nil
			}
		}
		return nil, err
	}
	if promo != nil {
		if err := h.Promos.RecordRedemptionTx(ctx, tx, promo.ID, touristID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	emitBookingCreated(ctx, h.Loyalty, tourist, booking, subject.Name)
	return echo.Map{"booking": bookingJSON(booking), "duplicate": false}, nil
}

func (h *PaymentHandler) reconcileCart(c echo.Context, sess *payment.CheckoutSession, now time.Time) (echo.Map, error) {
	ctx := c.Request().Context()

	touristID, err := strconv.ParseUint(sess.Metadata[payment.MetaTouristID], 10, 64)
	if err != nil || touristID == 0 {
		return nil, fmt.Errorf("session %s: bad tourist metadata", sess.ID)
	}
	cartID, err := strconv.ParseUint(sess.Metadata[payment.MetaCart], 10, 64)
	if err != nil || cartID == 0 {
		return nil, fmt.Errorf("session %s: bad cart metadata", sess.ID)
	}
	address := sess.Metadata[payment.MetaAddress]

	tourist, err := h.Tourists.GetByID(ctx, touristID)
	if err != nil {
		return nil, err
	}
	lines, err := h.Carts.Lines(ctx, cartID)
	if err != nil {
		return nil, err
	}
	// The cart is cleared in the settlement transaction, so an empty
	// cart means this session was already reconciled.
	if len(lines) == 0 {
		return echo.Map{"status": "already processed", "duplicate": true}, nil
	}

	var subtotal int64
	for _, l := range lines {
		subtotal += l.LineTotalCents()
	}
	discount := subtotal - sess.AmountTotalCents
	if discount < 0 {
		discount = 0
	}

	var promo *model.PromoCode
	if code := sess.Metadata[payment.MetaPromoCode]; code != "" {
		if p, perr := h.Promos.GetActive(ctx, code, now); perr == nil {
			promo = p
		}
	}

	tx, err := h.Wallets.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	purchaseIDs, err := settleCartLines(ctx, tx, h.Products, h.Purchases, h.Carts,
		cartID, touristID, lines, address, model.PayExternal, now)
	if err != nil {
		return nil, err
	}
	if promo != nil {
		if err := h.Promos.RecordRedemptionTx(ctx, tx, promo.ID, touristID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	h.Checkout.issueReceipt(ctx, tourist, purchaseIDs, subtotal, discount, sess.AmountTotalCents,
		model.PayExternal, sess.Metadata[payment.MetaPromoCode], now)

	return echo.Map{
		"purchase_ids":   purchaseIDs,
		"subtotal_cents": subtotal,
		"discount_cents": discount,
		"total_cents":    sess.AmountTotalCents,
		"duplicate":      false,
	}, nil
}
