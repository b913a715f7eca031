package router

import (
	"github.com/labstack/echo/v4"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/handler"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/middleware"
)

// TouristHandlers bundles everything mounted under the TOURIST group so
// registration does not take a dozen positional arguments.
type TouristHandlers struct {
	Booking      *handler.BookingHandler
	Checkout     *handler.CheckoutHandler
	Payment      *handler.PaymentHandler
	Promo        *handler.PromoHandler
	Loyalty      *handler.LoyaltyHandler
	Wallet       *handler.WalletHandler
	Notification *handler.NotificationHandler
}

// RegisterTourist registers tourist-scoped endpoints under /v1.  All
// routes require a valid JWT and the TOURIST role.  Tourists book and
// cancel activities and itineraries, rate and comment on bookings,
// manage and settle their cart, drive external payments, preview promo
// codes, and operate their wallet and loyalty account.
func RegisterTourist(e *echo.Echo, h TouristHandlers, jwtSecret string, extra ...echo.MiddlewareFunc) {
	mws := append([]echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("TOURIST"),
	}, extra...)
	g := e.Group("/v1", mws...)

	// Booking lifecycle.
	g.POST("/bookings", h.Booking.Create)
	g.GET("/my-bookings", h.Booking.List)
	g.GET("/bookings/:id", h.Booking.Get)
	g.DELETE("/bookings/:id", h.Booking.Cancel)
	g.POST("/bookings/:id/rating", h.Booking.Rate)
	g.POST("/bookings/:id/comment", h.Booking.Comment)

	// Cart and checkout.
	g.GET("/cart", h.Checkout.GetCart)
	g.POST("/cart/items", h.Checkout.AddItem)
	g.DELETE("/cart/items/:productId", h.Checkout.RemoveItem)
	g.POST("/checkout", h.Checkout.Checkout)
	g.GET("/purchases", h.Checkout.ListPurchases)
	g.POST("/purchases/:id/review", h.Checkout.ReviewPurchase)

	// External payment sessions.  The webhook itself is public; the
	// session endpoints act on behalf of the logged-in tourist.
	g.POST("/payments/session", h.Payment.CreateSession)
	g.POST("/payments/confirm", h.Payment.Confirm)

	// Promo preview without redemption.
	g.POST("/promos/validate", h.Promo.ValidateCode)

	// Wallet and loyalty.
	g.GET("/wallet", h.Wallet.Balance)
	g.GET("/wallet/transactions", h.Wallet.Transactions)
	g.GET("/loyalty", h.Loyalty.Get)
	g.POST("/loyalty/redeem", h.Loyalty.Redeem)

	// Notifications produced by the queue consumer.
	g.GET("/notifications", h.Notification.List)
}
