package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Mliaj/scholarsphere-sub000/internal/credential"
	"github.com/Mliaj/scholarsphere-sub000/internal/domain"
	"github.com/Mliaj/scholarsphere-sub000/internal/notify"
	"github.com/Mliaj/scholarsphere-sub000/internal/observability"
	"github.com/Mliaj/scholarsphere-sub000/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReviewService applies a provider's approve/reject decision to one
// application. Every mutation of a decision runs inside a single transaction;
// notifications are collected in an outbox and flushed only after commit.
type ReviewService struct {
	store      repository.Store
	matcher    credential.Matcher
	dispatcher *notify.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewReviewService(
	store repository.Store,
	matcher credential.Matcher,
	dispatcher *notify.Dispatcher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*ReviewService, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if matcher == nil {
		return nil, fmt.Errorf("credential matcher is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("notification dispatcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReviewService{
		store:      store,
		matcher:    matcher,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}, nil
}

// Review applies the provider's decision. Approving an already-approved
// application and rejecting an already-rejected one are no-ops that still
// return the application.
func (s *ReviewService) Review(ctx context.Context, applicationID, providerID string, action domain.ReviewAction) (*domain.Application, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(applicationID) == "" {
		return nil, fmt.Errorf("%w: application id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(providerID) == "" {
		return nil, fmt.Errorf("%w: provider id is required", domain.ErrValidation)
	}
	if !action.IsValid() {
		return nil, fmt.Errorf("%w: unknown review action %q", domain.ErrInvalidTransition, action)
	}

	outbox := notify.NewOutbox()
	var reviewed *domain.Application

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		app, err := tx.Applications().LockForReview(ctx, applicationID)
		if err != nil {
			return err
		}

		scholarship, err := tx.Scholarships().LockForUpdate(ctx, app.ScholarshipID)
		if err != nil {
			return err
		}
		if scholarship.ProviderID != providerID {
			return fmt.Errorf("%w: scholarship %s is not managed by the acting provider", domain.ErrAccessDenied, scholarship.ID)
		}

		switch action {
		case domain.ActionReject:
			reviewed, err = s.reject(ctx, tx, app, scholarship, providerID, outbox)
		case domain.ActionApprove:
			reviewed, err = s.approve(ctx, tx, app, scholarship, providerID, outbox)
		default:
			err = fmt.Errorf("%w: unknown review action %q", domain.ErrInvalidTransition, action)
		}
		return err
	})
	if err != nil {
		s.metrics.IncReviewDecision(action.String(), reviewOutcome(err))
		return nil, err
	}

	s.dispatcher.Flush(ctx, outbox)
	s.metrics.IncReviewDecision(action.String(), "success")

	return reviewed, nil
}

func (s *ReviewService) reject(
	ctx context.Context,
	tx repository.Store,
	app *domain.Application,
	scholarship *domain.Scholarship,
	providerID string,
	outbox *notify.Outbox,
) (*domain.Application, error) {
	if app.Status == domain.ApplicationRejected {
		return app, nil
	}

	effect, err := domain.TransitionEffect(app.Status, domain.ApplicationRejected, app.Kind)
	if err != nil {
		return nil, err
	}

	// An approved renewal holds no slot of its own until the original award's
	// term ends, so rejecting it before activation returns none.
	if app.IsRenewal() && app.Status == domain.ApplicationApproved && app.RenewalOf != nil {
		original, origErr := tx.Applications().GetByID(ctx, *app.RenewalOf)
		if origErr != nil && !errors.Is(origErr, domain.ErrNotFound) {
			return nil, origErr
		}
		if origErr == nil && original.Active {
			effect.Slots = 0
		}
	}

	now := s.now()
	if err := tx.Applications().SetDecision(ctx, app.ID, domain.ApplicationRejected, providerID, now, nil); err != nil {
		return nil, err
	}
	if err := tx.Scholarships().ApplyCounterEffect(ctx, scholarship.ID, effect); err != nil {
		return nil, err
	}

	app.Status = domain.ApplicationRejected
	app.StampReview(providerID, now)

	outbox.Add(rejectedEvent(app.StudentID, scholarship.Title))

	return app, nil
}

func (s *ReviewService) approve(
	ctx context.Context,
	tx repository.Store,
	app *domain.Application,
	scholarship *domain.Scholarship,
	providerID string,
	outbox *notify.Outbox,
) (*domain.Application, error) {
	if app.Status == domain.ApplicationApproved {
		return app, nil
	}
	if !domain.CanTransition(app.Status, domain.ApplicationApproved) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, app.Status, domain.ApplicationApproved)
	}

	// The document completeness gate applies to first-time and renewal
	// approvals alike.
	if err := s.checkDocuments(ctx, app, scholarship); err != nil {
		return nil, err
	}

	if app.IsRenewal() {
		return s.approveRenewal(ctx, tx, app, scholarship, providerID, outbox)
	}

	now := s.now()

	// Single-active-award enforcement: every other open application by the
	// same student is rejected. Renewals never block each other.
	others, err := tx.Applications().ListActiveByStudent(ctx, app.StudentID)
	if err != nil {
		return nil, err
	}

	slotsFreed := 0
	for i := range others {
		other := &others[i]
		if other.ID == app.ID || other.IsRenewal() {
			continue
		}
		if other.Status != domain.ApplicationPending && other.Status != domain.ApplicationApproved {
			continue
		}

		cascadeEffect, err := domain.TransitionEffect(other.Status, domain.ApplicationRejected, other.Kind)
		if err != nil {
			return nil, err
		}
		if err := tx.Applications().SetDecision(ctx, other.ID, domain.ApplicationRejected, providerID, now, nil); err != nil {
			return nil, err
		}
		if err := tx.Scholarships().ApplyCounterEffect(ctx, other.ScholarshipID, cascadeEffect); err != nil {
			return nil, err
		}
		if other.ScholarshipID == scholarship.ID {
			slotsFreed += cascadeEffect.Slots
		}

		outbox.Add(displacedEvent(other.StudentID))
		s.metrics.IncCascadedRejection()
	}

	if remaining, tracked := scholarship.RemainingSlots(); tracked && remaining+slotsFreed <= 0 {
		return nil, fmt.Errorf("%w: scholarship %s has no remaining slots", domain.ErrNoSlotsAvailable, scholarship.ID)
	}

	effect, err := domain.TransitionEffect(app.Status, domain.ApplicationApproved, app.Kind)
	if err != nil {
		return nil, err
	}
	if err := tx.Applications().SetDecision(ctx, app.ID, domain.ApplicationApproved, providerID, now, nil); err != nil {
		return nil, err
	}
	if err := tx.Scholarships().ApplyCounterEffect(ctx, scholarship.ID, effect); err != nil {
		return nil, err
	}

	app.Status = domain.ApplicationApproved
	app.StampReview(providerID, now)

	outbox.Add(approvedEvent(app.StudentID, scholarship.Title))

	return app, nil
}

func (s *ReviewService) approveRenewal(
	ctx context.Context,
	tx repository.Store,
	app *domain.Application,
	scholarship *domain.Scholarship,
	providerID string,
	outbox *notify.Outbox,
) (*domain.Application, error) {
	if scholarship.NextLastSemesterDate == nil {
		return nil, fmt.Errorf("%w: scholarship %s has no next term end date configured", domain.ErrMissingRenewalWindow, scholarship.ID)
	}

	// Slot consumption is deferred until the original award's term ends, and
	// the original approved application stays untouched until then.
	effect, err := domain.TransitionEffect(app.Status, domain.ApplicationApproved, domain.KindRenewal)
	if err != nil {
		return nil, err
	}

	now := s.now()
	app.AppendNote(fmt.Sprintf("Renewal approved on %s; award activates when the current term ends.", now.Format("2006-01-02")))

	if err := tx.Applications().SetDecision(ctx, app.ID, domain.ApplicationApproved, providerID, now, app.Notes); err != nil {
		return nil, err
	}
	if err := tx.Scholarships().ApplyCounterEffect(ctx, scholarship.ID, effect); err != nil {
		return nil, err
	}

	app.Status = domain.ApplicationApproved
	app.StampReview(providerID, now)

	outbox.Add(renewalApprovedEvent(app.StudentID, scholarship.Title))

	return app, nil
}

func (s *ReviewService) checkDocuments(ctx context.Context, app *domain.Application, scholarship *domain.Scholarship) error {
	codes := scholarship.RequirementCodes()
	if len(codes) == 0 {
		return nil
	}

	resolutions, err := s.matcher.Resolve(ctx, app.StudentID, codes)
	if err != nil {
		return fmt.Errorf("credential matcher: %w", err)
	}

	var missing, unverified []string
	for _, code := range codes {
		resolution := resolutions[code]
		switch {
		case !resolution.Resolved:
			missing = append(missing, resolution.DisplayLabel(code))
		case !resolution.Verified:
			unverified = append(unverified, resolution.DisplayLabel(code))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrMissingDocuments, strings.Join(missing, ", "))
	}
	if len(unverified) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrUnverifiedDocuments, strings.Join(unverified, ", "))
	}
	return nil
}

func reviewOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrMissingDocuments):
		return "missing_documents"
	case errors.Is(err, domain.ErrUnverifiedDocuments):
		return "unverified_documents"
	case errors.Is(err, domain.ErrMissingRenewalWindow):
		return "missing_renewal_window"
	case errors.Is(err, domain.ErrNoSlotsAvailable):
		return "no_slots"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
