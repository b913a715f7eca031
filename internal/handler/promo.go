package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/model"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/repository"
)

// PromoHandler serves promo validation for tourists and code management
// for admins.
type PromoHandler struct {
	Promos   *repository.PromoRepo
	Validate *validator.Validate
}

func NewPromoHandler(promos *repository.PromoRepo) *PromoHandler {
	return &PromoHandler{Promos: promos, Validate: validator.New()}
}

type validatePromoRequest struct {
	Code          string `json:"code" validate:"required,min=2,max=64"`
	SubtotalCents int64  `json:"subtotal_cents" validate:"gte=0"`
}

// ValidateCode previews a code against an optional subtotal without
// recording a redemption.  Expired and disabled codes are a 400.
func (h *PromoHandler) ValidateCode(c echo.Context) error {
	var req validatePromoRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.Validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	promo, err := h.Promos.GetActive(c.Request().Context(), req.Code, time.Now().UTC())
	if err != nil {
		return jsonError(c, err)
	}

	resp := echo.Map{
		"code":       promo.Name,
		"percentage": promo.Percentage,
		"expires_at": promo.ExpiresAt,
	}
	if req.SubtotalCents > 0 {
		discount := repository.Discount(promo, req.SubtotalCents)
		resp["discount_cents"] = discount
		resp["total_cents"] = req.SubtotalCents - discount
	}
	return c.JSON(http.StatusOK, resp)
}

type createPromoRequest struct {
	Name       string `json:"name" validate:"required,min=2,max=64"`
	Percentage uint8  `json:"percentage" validate:"required,gte=1,lte=100"`
	ExpiresAt  string `json:"expires_at" validate:"required"`
}

// CreateCode registers a new promo code.  Admin only; duplicate names
// are a 409.
func (h *PromoHandler) CreateCode(c echo.Context) error {
	var req createPromoRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.Validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "expires_at must be RFC3339"})
	}
	if !expiresAt.After(time.Now().UTC()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "expires_at must be in the future"})
	}

	promo := &model.PromoCode{
		Name:       strings.ToUpper(strings.TrimSpace(req.Name)),
		Percentage: req.Percentage,
		IsActive:   true,
		ExpiresAt:  expiresAt.UTC(),
	}
	if err := h.Promos.Create(c.Request().Context(), promo); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":         promo.ID,
		"name":       promo.Name,
		"percentage": promo.Percentage,
		"expires_at": promo.ExpiresAt,
	})
}

// DeactivateCode switches a code off.  Admin only.
func (h *PromoHandler) DeactivateCode(c echo.Context) error {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid promo name"})
	}
	if err := h.Promos.Deactivate(c.Request().Context(), name); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "promo code deactivated"})
}
