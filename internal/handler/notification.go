package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/repository"
)

// NotificationHandler lists the notifications the consumer persisted for
// a tourist.
type NotificationHandler struct {
	Notifications *repository.NotificationRepo
}

func NewNotificationHandler(notifications *repository.NotificationRepo) *NotificationHandler {
	return &NotificationHandler{Notifications: notifications}
}

// List returns the caller's notifications, newest first.
func (h *NotificationHandler) List(c echo.Context) error {
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

	list, err := h.Notifications.ListByTourist(c.Request().Context(), touristID, limit)
	if err != nil {
		return jsonError(c, err)
	}
	out := make([]echo.Map, 0, len(list))
	for _, n := range list {
		out = append(out, echo.Map{
			"id":         n.ID,
			"type":       n.Type,
			"message":    n.Message,
			"created_at": n.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": out})
}
