package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Mliaj/scholarsphere-sub000/internal/domain"
	"github.com/gofiber/fiber/v2"
)

// HeaderActorID carries the authenticated user's id, set by the host
// application's auth layer in front of these routes.
const HeaderActorID = "X-Actor-Id"

type ApplicationService interface {
	Submit(ctx context.Context, studentID, scholarshipID string) (*domain.Application, error)
	RequestRenewal(ctx context.Context, studentID, originalApplicationID string) (*domain.Application, error)
	Withdraw(ctx context.Context, applicationID, studentID string) (*domain.Application, error)
}

type ReviewService interface {
	Review(ctx context.Context, applicationID, providerID string, action domain.ReviewAction) (*domain.Application, error)
}

type ApplicationHandler struct {
	applications ApplicationService
	reviews      ReviewService
}

func NewApplicationHandler(applications ApplicationService, reviews ReviewService) (*ApplicationHandler, error) {
	if applications == nil {
		return nil, fmt.Errorf("application service is required")
	}
	if reviews == nil {
		return nil, fmt.Errorf("review service is required")
	}
	return &ApplicationHandler{applications: applications, reviews: reviews}, nil
}

func RegisterApplicationRoutes(router fiber.Router, applications ApplicationService, reviews ReviewService) error {
	h, err := NewApplicationHandler(applications, reviews)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/applications", h.Submit)
	v1.Post("/applications/:id/renewal", h.RequestRenewal)
	v1.Post("/applications/:id/review", h.Review)
	v1.Post("/applications/:id/withdraw", h.Withdraw)

	return nil
}

type submitApplicationRequest struct {
	ScholarshipID string `json:"scholarshipId"`
}

type reviewApplicationRequest struct {
	Action string `json:"action"`
}

type applicationResponse struct {
	ID            string     `json:"id"`
	ScholarshipID string     `json:"scholarshipId"`
	StudentID     string     `json:"studentId"`
	Kind          string     `json:"kind"`
	RenewalOf     *string    `json:"renewalOf,omitempty"`
	Status        string     `json:"status"`
	Active        bool       `json:"active"`
	RenewalFailed bool       `json:"renewalFailed"`
	Notes         *string    `json:"notes,omitempty"`
	ReviewedBy    *string    `json:"reviewedBy,omitempty"`
	ReviewedAt    *time.Time `json:"reviewedAt,omitempty"`
	SubmittedAt   time.Time  `json:"submittedAt"`
}

func (h *ApplicationHandler) Submit(c *fiber.Ctx) error {
	actorID, err := actorFromRequest(c)
	if err != nil {
		return err
	}

	var req submitApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	app, err := h.applications.Submit(c.Context(), actorID, strings.TrimSpace(req.ScholarshipID))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(toApplicationResponse(app))
}

func (h *ApplicationHandler) RequestRenewal(c *fiber.Ctx) error {
	actorID, err := actorFromRequest(c)
	if err != nil {
		return err
	}

	originalID := strings.TrimSpace(c.Params("id"))
	renewal, err := h.applications.RequestRenewal(c.Context(), actorID, originalID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(toApplicationResponse(renewal))
}

func (h *ApplicationHandler) Review(c *fiber.Ctx) error {
	actorID, err := actorFromRequest(c)
	if err != nil {
		return err
	}

	var req reviewApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	action, err := domain.ParseReviewActionFromString(req.Action)
	if err != nil {
		return err
	}

	app, err := h.reviews.Review(c.Context(), strings.TrimSpace(c.Params("id")), actorID, action)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(toApplicationResponse(app))
}

func (h *ApplicationHandler) Withdraw(c *fiber.Ctx) error {
	actorID, err := actorFromRequest(c)
	if err != nil {
		return err
	}

	app, err := h.applications.Withdraw(c.Context(), strings.TrimSpace(c.Params("id")), actorID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(toApplicationResponse(app))
}

func toApplicationResponse(a *domain.Application) applicationResponse {
	return applicationResponse{
		ID:            a.ID,
		ScholarshipID: a.ScholarshipID,
		StudentID:     a.StudentID,
		Kind:          a.Kind.String(),
		RenewalOf:     a.RenewalOf,
		Status:        a.Status.String(),
		Active:        a.Active,
		RenewalFailed: a.RenewalFailed,
		Notes:         a.Notes,
		ReviewedBy:    a.ReviewedBy,
		ReviewedAt:    a.ReviewedAt,
		SubmittedAt:   a.SubmittedAt,
	}
}

func actorFromRequest(c *fiber.Ctx) (string, error) {
	actorID := strings.TrimSpace(c.Get(HeaderActorID))
	if actorID == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "missing "+HeaderActorID+" header")
	}
	return actorID, nil
}
