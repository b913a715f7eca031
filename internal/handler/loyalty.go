package handler

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/model"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/repository"
)

// LoyaltyHandler serves loyalty account reads and point redemption.
type LoyaltyHandler struct {
	Loyalty  *repository.LoyaltyRepo
	Wallets  *repository.WalletRepo
	Cache    *WalletCache
	Validate *validator.Validate
}

func NewLoyaltyHandler(loyalty *repository.LoyaltyRepo, wallets *repository.WalletRepo, cache *WalletCache) *LoyaltyHandler {
	return &LoyaltyHandler{Loyalty: loyalty, Wallets: wallets, Cache: cache, Validate: validator.New()}
}

// Get returns the caller's loyalty account with the accrual rate their
// current level earns.
func (h *LoyaltyHandler) Get(c echo.Context) error {
	touristID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	acct, err := h.Loyalty.Get(c.Request().Context(), touristID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"points":              acct.Points,
		"total_points_earned": acct.TotalPointsEarned,
		"level":               acct.Level,
		"accrual_multiplier":  model.AccrualMultiplier(acct.Level),
	})
}

type redeemRequest struct {
	AmountCents int64 `json:"amount_cents" validate:"required,gt=0"`
}

// Redeem converts points into wallet credit at 100 points per currency
// unit.  The point decrement and the wallet credit commit together.
func (h *LoyaltyHandler) Redeem(c echo.Context) error {
	touristID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req redeemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.Validate.Struct(&req); err != nil {
		return jsonError(c, repository.ErrInvalidAmount)
	}

	ctx := c.Request().Context()
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

	pointsSpent, err := h.Loyalty.RedeemTx(ctx, tx, touristID, req.AmountCents)
	if err != nil {
		return jsonError(c, err)
	}
	ref := fmt.Sprintf("loyalty:redeem:%d", pointsSpent)
	if err := h.Wallets.CreditTx(ctx, tx, touristID, req.AmountCents, ref); err != nil {
		return jsonError(c, err)
	}
	if err := tx.Commit(); err != nil {
		return jsonError(c, err)
	}
	committed = true

	h.Cache.Invalidate(ctx, touristID)

	balance, err := h.Wallets.Balance(ctx, touristID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"points_spent":   pointsSpent,
		"credited_cents": req.AmountCents,
		"balance_cents":  balance,
	})
}
