package transport

import (
	"errors"

	"github.com/Mliaj/scholarsphere-sub000/internal/domain"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorHandler converts domain sentinel errors into HTTP statuses in one
// place. Handlers return wrapped sentinels; anything unclassified is a 500.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := StatusFromError(err)

		log := logger.Warn
		if code >= fiber.StatusInternalServerError {
			log = logger.Error
		}
		log("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
			"kind":  errorKind(err),
		})
	}
}

func StatusFromError(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrAccessDenied):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInvalidTransition):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrMissingDocuments),
		errors.Is(err, domain.ErrUnverifiedDocuments),
		errors.Is(err, domain.ErrMissingRenewalWindow),
		errors.Is(err, domain.ErrNoSlotsAvailable):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// errorKind is the stable machine-readable label for the failure, so route
// consumers do not have to parse error strings.
func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrMissingDocuments):
		return "missing_documents"
	case errors.Is(err, domain.ErrUnverifiedDocuments):
		return "unverified_documents"
	case errors.Is(err, domain.ErrMissingRenewalWindow):
		return "missing_renewal_window"
	case errors.Is(err, domain.ErrNoSlotsAvailable):
		return "no_slots_available"
	default:
		return "internal"
	}
}
