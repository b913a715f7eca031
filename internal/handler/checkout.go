package handler

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/model"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/payment"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/queue"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/repository"
	queuepublisher "github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/service"
)

// CheckoutHandler owns the cart and its settlement: cart CRUD, wallet
// checkout, and handoff to the external provider for card checkout.
type CheckoutHandler struct {
	Carts      *repository.CartRepo
	Products   *repository.ProductRepo
	Purchases  *repository.PurchaseRepo
	Wallets    *repository.WalletRepo
	Promos     *repository.PromoRepo
	Tourists   *repository.TouristRepo
	Loyalty    *repository.LoyaltyRepo
	Provider   *payment.Client
	Cache      *WalletCache
	SuccessURL string
	CancelURL  string
	Validate   *validator.Validate
}

func NewCheckoutHandler(
	carts *repository.CartRepo,
	products *repository.ProductRepo,
	purchases *repository.PurchaseRepo,
	wallets *repository.WalletRepo,
	promos *repository.PromoRepo,
	tourists *repository.TouristRepo,
	loyalty *repository.LoyaltyRepo,
	provider *payment.Client,
	cache *WalletCache,
	successURL, cancelURL string,
) *CheckoutHandler {
	return &CheckoutHandler{
		Carts:      carts,
		Products:   products,
		Purchases:  purchases,
		Wallets:    wallets,
		Promos:     promos,
		Tourists:   tourists,
		Loyalty:    loyalty,
		Provider:   provider,
		Cache:      cache,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		Validate:   validator.New(),
	}
}

// GetCart returns the caller's open cart with line totals computed from
// current product prices.
func (h *CheckoutHandler) GetCart(c echo.Context) error {
	touristID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()

	cart, err := h.Carts.GetOrCreate(ctx, touristID)
	if err != nil {
		return jsonError(c, err)
	}
	lines, err := h.Carts.Lines(ctx, cart.ID)
	if err != nil {
		return jsonError(c, err)
	}

	items := make([]echo.Map, 0, len(lines))
	var subtotal int64
	for _, l := range lines {
		subtotal += l.LineTotalCents()
		items = append(items, echo.Map{
			"product_id":       l.ProductID,
			"product_name":     l.ProductName,
			"quantity":         l.Quantity,
			"unit_price_cents": l.UnitPriceCents,
			"line_total_cents": l.LineTotalCents(),
			"stock":            l.Stock,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"cart_id":        cart.ID,
		"items":          items,
		"subtotal_cents": subtotal,
	})
}

type addItemRequest struct {
	ProductID uint64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int64  `json:"quantity" validate:"required,gte=1,lte=1000"`
}

// AddItem puts a product in the cart or replaces its quantity.  Stock is
// not reserved here; it is enforced atomically at settlement.
func (h *CheckoutHandler) AddItem(c echo.Context) error {
	touristID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req addItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.Validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()

	product, err := h.Products.GetByID(ctx, req.ProductID)
	if err != nil {
		return jsonError(c, err)
	}
	cart, err := h.Carts.GetOrCreate(ctx, touristID)
	if err != nil {
		return jsonError(c, err)
	}
	if err := h.Carts.UpsertItem(ctx, cart.ID, product.ID, req.Quantity); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "item added", "product_id": product.ID, "quantity": req.Quantity})
}

// RemoveItem drops a product from the cart.  Removing an absent product
// is a no-op.
func (h *CheckoutHandler) RemoveItem(c echo.Context) error {
	touristID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	productID, ok := pathID(c, "productId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	ctx := c.Request().Context()

	cart, err := h.Carts.GetOrCreate(ctx, touristID)
	if err != nil {
		return jsonError(c, err)
	}
	if err := h.Carts.RemoveItem(ctx, cart.ID, productID); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "item removed"})
}

type checkoutRequest struct {
	PaymentMethod   string `json:"payment_method" validate:"required,oneof=wallet external"`
	DeliveryAddress string `json:"delivery_address" validate:"required,min=5,max=500"`
	PromoCode       string `json:"promo_code"`
}

// Checkout settles the caller's cart.  Wallet checkout commits debit,
// stock decrements, purchase rows and cart clearing in one transaction.
// External checkout opens a provider session and leaves the cart intact
// until the payment is confirmed.
func (h *CheckoutHandler) Checkout(c echo.Context) error {
	touristID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req checkoutRequest
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
	cart, err := h.Carts.GetOrCreate(ctx, touristID)
	if err != nil {
		return jsonError(c, err)
	}
	lines, err := h.Carts.Lines(ctx, cart.ID)
	if err != nil {
		return jsonError(c, err)
	}
	if len(lines) == 0 {
		return jsonError(c, repository.ErrCartEmpty)
	}

	var subtotal int64
	for _, l := range lines {
		subtotal += l.LineTotalCents()
	}

	var promo *model.PromoCode
	discount := int64(0)
	if code := strings.TrimSpace(req.PromoCode); code != "" {
		promo, err = h.Promos.GetActive(ctx, code, now)
		if err != nil {
			return jsonError(c, err)
		}
		discount = repository.Discount(promo, subtotal)
		if discount > subtotal {
			return jsonError(c, repository.ErrDiscountExceedsTotal)
		}
	}
	total := subtotal - discount

	if req.PaymentMethod == model.PayExternal {
		meta := map[string]string{
			payment.MetaTouristID: strconv.FormatUint(touristID, 10),
			payment.MetaCart:      strconv.FormatUint(cart.ID, 10),
			payment.MetaAddress:   req.DeliveryAddress,
		}
		if promo != nil {
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
			"session_id":     sess.ID,
			"checkout_url":   sess.URL,
			"subtotal_cents": subtotal,
			"discount_cents": discount,
			"total_cents":    total,
		})
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

	// A promo covering the whole subtotal leaves nothing to debit; the
	// ledger only records positive movements.
	if total > 0 {
		ref := fmt.Sprintf("checkout:cart:%d", cart.ID)
		if err := h.Wallets.DebitTx(ctx, tx, touristID, total, ref); err != nil {
			return jsonError(c, err)
		}
	}
	purchaseIDs, err := settleCartLines(ctx, tx, h.Products, h.Purchases, h.Carts,
		cart.ID, touristID, lines, req.DeliveryAddress, model.PayWallet, now)
	if err != nil {
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
	h.issueReceipt(ctx, tourist, purchaseIDs, subtotal, discount, total, model.PayWallet, req.PromoCode, now)

	return c.JSON(http.StatusOK, echo.Map{
		"purchase_ids":   purchaseIDs,
		"subtotal_cents": subtotal,
		"discount_cents": discount,
		"total_cents":    total,
	})
}

// settleCartLines turns cart lines into purchase rows, decrementing
// stock for each inside the caller's transaction, then clears the cart.
// A single out-of-stock line aborts the whole settlement.
func settleCartLines(
	ctx context.Context,
	tx *sql.Tx,
	products *repository.ProductRepo,
	purchases *repository.PurchaseRepo,
	carts *repository.CartRepo,
	cartID, touristID uint64,
	lines []repository.CartLine,
	address, method string,
	now time.Time,
) ([]uint64, error) {
	ids := make([]uint64, 0, len(lines))
	for _, l := range lines {
		if err := products.DecrementStockTx(ctx, tx, l.ProductID, l.Quantity); err != nil {
			return nil, err
		}
		p := &model.Purchase{
			TouristID:       touristID,
			ProductID:       l.ProductID,
			Quantity:        l.Quantity,
			TotalPriceCents: l.LineTotalCents(),
			DeliveryAddress: address,
			PaymentMethod:   method,
			PurchasedAt:     now,
		}
		if err := purchases.CreateTx(ctx, tx, p); err != nil {
			return nil, err
		}
		ids = append(ids, p.ID)
	}
	if err := carts.ClearTx(ctx, tx, cartID); err != nil {
		return nil, err
	}
	return ids, nil
}

// issueReceipt accrues loyalty points and publishes the receipt event.
// Both are post-commit side effects and only logged on failure.
func (h *CheckoutHandler) issueReceipt(ctx context.Context, tourist *model.Tourist, purchaseIDs []uint64, subtotal, discount, total int64, method, promoCode string, now time.Time) {
	if total > 0 {
		if _, _, err := h.Loyalty.Accrue(ctx, tourist.ID, total); err != nil {
			log.Printf("loyalty accrual failed for tourist %d checkout: %v", tourist.ID, err)
		}
	}
	event := queue.ReceiptIssuedEvent{
		EventID:       uuid.NewString(),
		TouristID:     tourist.ID,
		TouristEmail:  tourist.Email,
		PurchaseIDs:   purchaseIDs,
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TotalCents:    total,
		PaymentMethod: method,
		PromoCode:     strings.ToUpper(strings.TrimSpace(promoCode)),
		PurchasedAt:   now.Format(time.RFC3339),
	}
	if err := queuepublisher.PublishReceiptIssued(ctx, event); err != nil {
		log.Printf("publish receipt.issued failed for tourist %d: %v", tourist.ID, err)
	}
}

// ListPurchases lists the caller's settled purchases.
func (h *CheckoutHandler) ListPurchases(c echo.Context) error {
	touristID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Purchases.ListByTourist(c.Request().Context(), touristID)
	if err != nil {
		return jsonError(c, err)
	}
	out := make([]echo.Map, 0, len(list))
	for _, p := range list {
		m := echo.Map{
			"id":                p.ID,
			"product_id":        p.ProductID,
			"quantity":          p.Quantity,
			"total_price_cents": p.TotalPriceCents,
			"delivery_address":  p.DeliveryAddress,
			"payment_method":    p.PaymentMethod,
			"delivered":         p.Delivered,
			"purchased_at":      p.PurchasedAt,
		}
		if p.Rating != nil {
			m["rating"] = *p.Rating
		}
		if p.Review != nil {
			m["review"] = *p.Review
		}
		out = append(out, m)
	}
	return c.JSON(http.StatusOK, echo.Map{"purchases": out})
}

type reviewPurchaseRequest struct {
	Rating uint8  `json:"rating"`
	Review string `json:"review"`
}

// ReviewPurchase records a write-once rating and review on a purchase.
func (h *CheckoutHandler) ReviewPurchase(c echo.Context) error {
	touristID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	purchaseID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid purchase id"})
	}

	var req reviewPurchaseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Rating < 1 || req.Rating > 5 {
		return jsonError(c, repository.ErrInvalidRating)
	}
	review := strings.TrimSpace(req.Review)
	if review == "" || len(review) > 2000 {
		return jsonError(c, repository.ErrInvalidComment)
	}

	if err := h.Purchases.SetReview(c.Request().Context(), purchaseID, touristID, req.Rating, review); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "review recorded"})
}

// MarkDelivered flips a purchase to delivered.  Admin only.
func (h *CheckoutHandler) MarkDelivered(c echo.Context) error {
	purchaseID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid purchase id"})
	}
	if err := h.Purchases.MarkDelivered(c.Request().Context(), purchaseID); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "purchase marked delivered"})
}
