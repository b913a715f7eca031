package router

import (
	"github.com/labstack/echo/v4"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/handler"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/middleware"
)

// RegisterAdmin registers ADMIN-scoped endpoints under /v1.  Admins
// manage promo codes and flag purchases as delivered.
func RegisterAdmin(e *echo.Echo, promo *handler.PromoHandler, checkout *handler.CheckoutHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)
	g.POST("/promos", promo.CreateCode)
	g.DELETE("/promos/:name", promo.DeactivateCode)
	g.POST("/purchases/:id/delivered", checkout.MarkDelivered)
}
