package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/repository"
)

// walletCacheTTL keeps cached balances short-lived; every mutation also
// invalidates explicitly, so the TTL only bounds staleness after a
// missed invalidation.
const walletCacheTTL = 30 * time.Second

// WalletCache caches wallet balances in Redis.  All methods are nil-safe
// so the service runs unchanged when Redis is absent.
type WalletCache struct {
	rdb *redis.Client
}

func NewWalletCache(rdb *redis.Client) *WalletCache { return &WalletCache{rdb: rdb} }

func (wc *WalletCache) key(touristID uint64) string {
	return fmt.Sprintf("wallet:balance:%d", touristID)
}

// Get returns the cached balance and whether it was present.
func (wc *WalletCache) Get(ctx context.Context, touristID uint64) (int64, bool) {
	if wc == nil || wc.rdb == nil {
		return 0, false
	}
	v, err := wc.rdb.Get(ctx, wc.key(touristID)).Result()
	if err != nil {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (wc *WalletCache) Set(ctx context.Context, touristID uint64, balanceCents int64) {
	if wc == nil || wc.rdb == nil {
		return
	}
	wc.rdb.Set(ctx, wc.key(touristID), strconv.FormatInt(balanceCents, 10), walletCacheTTL)
}

// Invalidate drops the cached balance after any wallet mutation.
func (wc *WalletCache) Invalidate(ctx context.Context, touristID uint64) {
	if wc == nil || wc.rdb == nil {
		return
	}
	wc.rdb.Del(ctx, wc.key(touristID))
}

// WalletHandler serves wallet reads.  Mutations happen only inside the
// booking, checkout and loyalty flows.
type WalletHandler struct {
	Wallets *repository.WalletRepo
	Cache   *WalletCache
}

func NewWalletHandler(wallets *repository.WalletRepo, cache *WalletCache) *WalletHandler {
	return &WalletHandler{Wallets: wallets, Cache: cache}
}

// Balance returns the caller's current wallet balance, served from the
// Redis cache when warm.
func (h *WalletHandler) Balance(c echo.Context) error {
	touristID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx := c.Request().Context()
	if cents, ok := h.Cache.Get(ctx, touristID); ok {
		return c.JSON(http.StatusOK, echo.Map{"balance_cents": cents, "cached": true})
	}

	cents, err := h.Wallets.Balance(ctx, touristID)
	if err != nil {
		return jsonError(c, err)
	}
	h.Cache.Set(ctx, touristID, cents)
	return c.JSON(http.StatusOK, echo.Map{"balance_cents": cents, "cached": false})
}

// Transactions lists the caller's wallet audit trail, newest first.
func (h *WalletHandler) Transactions(c echo.Context) error {
	touristID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	txs, err := h.Wallets.Transactions(c.Request().Context(), touristID, limit)
	if err != nil {
		return jsonError(c, err)
	}

	out := make([]echo.Map, 0, len(txs))
	for _, t := range txs {
		out = append(out, echo.Map{
			"id":           t.ID,
			"type":         t.Type,
			"amount_cents": t.AmountCents,
			"reference":    t.Reference,
			"created_at":   t.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": out})
}
