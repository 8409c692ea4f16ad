package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Mliaj/scholarsphere-sub000/internal/domain"
	"github.com/gofiber/fiber/v2"
)

const dateLayout = "2006-01-02"

type ScholarshipService interface {
	Create(ctx context.Context, scholarship *domain.Scholarship) (*domain.Scholarship, error)
	SetRenewalWindow(ctx context.Context, scholarshipID, providerID string, next time.Time) error
	Archive(ctx context.Context, scholarshipID, providerID string) error
	Restore(ctx context.Context, scholarshipID, providerID string) (*domain.Scholarship, error)
	Recount(ctx context.Context, scholarshipID string) (*domain.Scholarship, error)
	HardDelete(ctx context.Context, scholarshipID, providerID string) error
}

type ScholarshipHandler struct {
	service ScholarshipService
}

func NewScholarshipHandler(service ScholarshipService) (*ScholarshipHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("scholarship service is required")
	}
	return &ScholarshipHandler{service: service}, nil
}

func RegisterScholarshipRoutes(router fiber.Router, service ScholarshipService) error {
	h, err := NewScholarshipHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/scholarships", h.Create)
	v1.Put("/scholarships/:id/renewal-window", h.SetRenewalWindow)
	v1.Post("/scholarships/:id/archive", h.Archive)
	v1.Post("/scholarships/:id/restore", h.Restore)
	v1.Post("/scholarships/:id/recount", h.Recount)
	v1.Delete("/scholarships/:id", h.Delete)

	return nil
}

type createScholarshipRequest struct {
	Code         string  `json:"code"`
	Title        string  `json:"title"`
	Requirements string  `json:"requirements"`
	Slots        *int    `json:"slots,omitempty"`
	Status       string  `json:"status,omitempty"`
	SemesterDate *string `json:"semesterDate,omitempty"`
}

type setRenewalWindowRequest struct {
	NextLastSemesterDate string `json:"nextLastSemesterDate"`
}

type scholarshipResponse struct {
	ID                   string     `json:"id"`
	ProviderID           string     `json:"providerId"`
	Code                 string     `json:"code"`
	Title                string     `json:"title"`
	Requirements         string     `json:"requirements"`
	SlotsTotal           *int       `json:"slotsTotal,omitempty"`
	Slots                *int       `json:"slots,omitempty"`
	Status               string     `json:"status"`
	SemesterDate         *time.Time `json:"semesterDate,omitempty"`
	NextLastSemesterDate *time.Time `json:"nextLastSemesterDate,omitempty"`
	ApplicationsCount    int        `json:"applicationsCount"`
	PendingCount         int        `json:"pendingCount"`
	ApprovedCount        int        `json:"approvedCount"`
	DisapprovedCount     int        `json:"disapprovedCount"`
}

func (h *ScholarshipHandler) Create(c *fiber.Ctx) error {
	actorID, err := actorFromRequest(c)
	if err != nil {
		return err
	}

	var req createScholarshipRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	scholarship := &domain.Scholarship{
		ProviderID:   actorID,
		Code:         strings.TrimSpace(req.Code),
		Title:        strings.TrimSpace(req.Title),
		Requirements: strings.TrimSpace(req.Requirements),
		SlotsTotal:   req.Slots,
	}
	if req.Status != "" {
		status, err := domain.ParseScholarshipStatusFromString(req.Status)
		if err != nil {
			return err
		}
		scholarship.Status = status
	}
	if req.SemesterDate != nil {
		semesterDate, err := parseDate(*req.SemesterDate, "semesterDate")
		if err != nil {
			return err
		}
		scholarship.SemesterDate = &semesterDate
	}

	created, err := h.service.Create(c.Context(), scholarship)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(toScholarshipResponse(created))
}

func (h *ScholarshipHandler) SetRenewalWindow(c *fiber.Ctx) error {
	actorID, err := actorFromRequest(c)
	if err != nil {
		return err
	}

	var req setRenewalWindowRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	next, err := parseDate(req.NextLastSemesterDate, "nextLastSemesterDate")
	if err != nil {
		return err
	}

	scholarshipID := strings.TrimSpace(c.Params("id"))
	if err := h.service.SetRenewalWindow(c.Context(), scholarshipID, actorID, next); err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"scholarshipId":        scholarshipID,
		"nextLastSemesterDate": next.Format(dateLayout),
	})
}

func (h *ScholarshipHandler) Archive(c *fiber.Ctx) error {
	actorID, err := actorFromRequest(c)
	if err != nil {
		return err
	}

	scholarshipID := strings.TrimSpace(c.Params("id"))
	if err := h.service.Archive(c.Context(), scholarshipID, actorID); err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"scholarshipId": scholarshipID,
		"status":        domain.ScholarshipArchived.String(),
	})
}

func (h *ScholarshipHandler) Restore(c *fiber.Ctx) error {
	actorID, err := actorFromRequest(c)
	if err != nil {
		return err
	}

	restored, err := h.service.Restore(c.Context(), strings.TrimSpace(c.Params("id")), actorID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(toScholarshipResponse(restored))
}

func (h *ScholarshipHandler) Recount(c *fiber.Ctx) error {
	if _, err := actorFromRequest(c); err != nil {
		return err
	}

	recounted, err := h.service.Recount(c.Context(), strings.TrimSpace(c.Params("id")))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(toScholarshipResponse(recounted))
}

func (h *ScholarshipHandler) Delete(c *fiber.Ctx) error {
	actorID, err := actorFromRequest(c)
	if err != nil {
		return err
	}

	if err := h.service.HardDelete(c.Context(), strings.TrimSpace(c.Params("id")), actorID); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func toScholarshipResponse(s *domain.Scholarship) scholarshipResponse {
	return scholarshipResponse{
		ID:                   s.ID,
		ProviderID:           s.ProviderID,
		Code:                 s.Code,
		Title:                s.Title,
		Requirements:         s.Requirements,
		SlotsTotal:           s.SlotsTotal,
		Slots:                s.Slots,
		Status:               s.Status.String(),
		SemesterDate:         s.SemesterDate,
		NextLastSemesterDate: s.NextLastSemesterDate,
		ApplicationsCount:    s.ApplicationsCount,
		PendingCount:         s.PendingCount,
		ApprovedCount:        s.ApprovedCount,
		DisapprovedCount:     s.DisapprovedCount,
	}
}

func parseDate(value string, field string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be a %s date", domain.ErrValidation, field, dateLayout)
	}
	return parsed, nil
}
