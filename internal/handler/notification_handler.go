package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Mliaj/scholarsphere-sub000/internal/domain"
	"github.com/gofiber/fiber/v2"
)

// NotificationInbox is the read side of in-app notifications.
type NotificationInbox interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id, userID string, at time.Time) error
}

type NotificationHandler struct {
	inbox NotificationInbox
	now   func() time.Time
}

func NewNotificationHandler(inbox NotificationInbox) (*NotificationHandler, error) {
	if inbox == nil {
		return nil, fmt.Errorf("notification inbox is required")
	}
	return &NotificationHandler{inbox: inbox, now: time.Now}, nil
}

func RegisterNotificationRoutes(router fiber.Router, inbox NotificationInbox) error {
	h, err := NewNotificationHandler(inbox)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/notifications", h.List)
	v1.Post("/notifications/:id/read", h.MarkRead)

	return nil
}

type notificationResponse struct {
	ID        string     `json:"id"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	actorID, err := actorFromRequest(c)
	if err != nil {
		return err
	}

	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	notifications, err := h.inbox.ListByUser(c.Context(), actorID, limit)
	if err != nil {
		return err
	}

	items := make([]notificationResponse, 0, len(notifications))
	for i := range notifications {
		n := &notifications[i]
		items = append(items, notificationResponse{
			ID:        n.ID,
			Kind:      n.Kind.String(),
			Title:     n.Title,
			Message:   n.Message,
			ReadAt:    n.ReadAt,
			CreatedAt: n.CreatedAt,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"notifications": items})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	actorID, err := actorFromRequest(c)
	if err != nil {
		return err
	}

	id := strings.TrimSpace(c.Params("id"))
	if err := h.inbox.MarkRead(c.Context(), id, actorID, h.now()); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
