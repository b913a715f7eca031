package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // the Echo web framework handles routing

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/handler"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  The health check serves load balancers;
// the provider webhook authenticates itself with an HMAC signature over
// the raw body rather than a JWT, so it must stay outside the
// authenticated groups.
func RegisterRoutes(e *echo.Echo, p *handler.PaymentHandler) {
	// Map the GET request at path "/healthz" to the Health handler so
	// monitoring systems can verify the service is up.
	e.GET("/healthz", handler.Health)

	// The payment provider POSTs signed settlement events here.  The
	// handler verifies the Webhook-Signature header before acting.
	e.POST("/v1/payments/webhook", p.Webhook)
}
