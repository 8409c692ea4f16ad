package domain

import "errors"

// Sentinel errors shared across the domain. Callers classify failures with
// errors.Is and wrap them with context via fmt.Errorf("%w: ...").
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")

	// ErrAccessDenied is returned when the acting user does not own or
	// control the scholarship or application being operated on.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidTransition is returned for a status change the transition
	// table does not allow, or for an unrecognized review action.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNoSlotsAvailable is returned when an approval would exceed the
	// scholarship's remaining award capacity.
	ErrNoSlotsAvailable = errors.New("no slots available")

	// ErrMissingDocuments and ErrUnverifiedDocuments block an approval on
	// the document completeness gate; their messages enumerate the
	// affected requirement labels.
	ErrMissingDocuments    = errors.New("missing documents")
	ErrUnverifiedDocuments = errors.New("unverified documents")

	// ErrMissingRenewalWindow is returned when a renewal approval is
	// attempted before the scholarship's next term end date is configured.
	ErrMissingRenewalWindow = errors.New("missing renewal window")
)
