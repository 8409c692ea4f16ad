package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Mliaj/scholarsphere-sub000/internal/domain"
	"github.com/Mliaj/scholarsphere-sub000/internal/notify"
	"github.com/Mliaj/scholarsphere-sub000/internal/observability"
	"github.com/Mliaj/scholarsphere-sub000/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ApplicationService handles the student-facing lifecycle operations:
// submitting an application, requesting a renewal, and withdrawing.
type ApplicationService struct {
	store      repository.Store
	dispatcher *notify.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewApplicationService(
	store repository.Store,
	dispatcher *notify.Dispatcher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*ApplicationService, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("notification dispatcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ApplicationService{
		store:      store,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}, nil
}

// Submit files a new application for an active scholarship. A student may
// hold at most one open application per scholarship.
func (s *ApplicationService) Submit(ctx context.Context, studentID, scholarshipID string) (*domain.Application, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(studentID) == "" {
		return nil, fmt.Errorf("%w: student id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(scholarshipID) == "" {
		return nil, fmt.Errorf("%w: scholarship id is required", domain.ErrValidation)
	}

	outbox := notify.NewOutbox()
	var created *domain.Application

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		scholarship, err := tx.Scholarships().LockForUpdate(ctx, scholarshipID)
		if err != nil {
			return err
		}
		if scholarship.Status != domain.ScholarshipActive {
			return fmt.Errorf("%w: scholarship %s is not accepting applications", domain.ErrConflict, scholarship.ID)
		}

		existing, err := tx.Applications().GetOpenByStudentAndScholarship(ctx, studentID, scholarshipID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: an open application for scholarship %s already exists", domain.ErrConflict, scholarship.ID)
		}

		now := s.now()
		app := &domain.Application{
			ID:            s.newID(),
			ScholarshipID: scholarshipID,
			StudentID:     studentID,
			Kind:          domain.KindOriginal,
			Status:        domain.ApplicationPending,
			Active:        true,
			SubmittedAt:   now,
		}
		if err := app.Validate(); err != nil {
			return err
		}
		if err := tx.Applications().Create(ctx, app); err != nil {
			return err
		}

		effect := domain.CounterEffect{Pending: 1, Applications: 1}
		if err := tx.Scholarships().ApplyCounterEffect(ctx, scholarshipID, effect); err != nil {
			return err
		}

		outbox.Add(submittedEvent(studentID, scholarship.Title))
		created = app
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Flush(ctx, outbox)
	s.metrics.IncApplicationSubmitted()

	return created, nil
}

// RequestRenewal files a renewal application extending an approved active
// award into a new term. The renewal coexists with the original until the
// current term ends.
func (s *ApplicationService) RequestRenewal(ctx context.Context, studentID, originalApplicationID string) (*domain.Application, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(studentID) == "" {
		return nil, fmt.Errorf("%w: student id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(originalApplicationID) == "" {
		return nil, fmt.Errorf("%w: original application id is required", domain.ErrValidation)
	}

	outbox := notify.NewOutbox()
	var created *domain.Application

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		original, err := tx.Applications().LockForReview(ctx, originalApplicationID)
		if err != nil {
			return err
		}
		if original.StudentID != studentID {
			return fmt.Errorf("%w: application %s does not belong to the acting student", domain.ErrAccessDenied, original.ID)
		}
		if original.Status != domain.ApplicationApproved || !original.Active {
			return fmt.Errorf("%w: only an approved active award can be renewed", domain.ErrInvalidTransition)
		}

		open, err := tx.Applications().FindOpenRenewalOf(ctx, original.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if open != nil {
			return fmt.Errorf("%w: an open renewal of application %s already exists", domain.ErrConflict, original.ID)
		}

		scholarship, err := tx.Scholarships().LockForUpdate(ctx, original.ScholarshipID)
		if err != nil {
			return err
		}

		now := s.now()
		originalID := original.ID
		renewal := &domain.Application{
			ID:            s.newID(),
			ScholarshipID: original.ScholarshipID,
			StudentID:     studentID,
			Kind:          domain.KindRenewal,
			RenewalOf:     &originalID,
			Status:        domain.ApplicationPending,
			Active:        true,
			SubmittedAt:   now,
		}
		if err := renewal.Validate(); err != nil {
			return err
		}
		if err := tx.Applications().Create(ctx, renewal); err != nil {
			return err
		}

		effect := domain.CounterEffect{Pending: 1, Applications: 1}
		if err := tx.Scholarships().ApplyCounterEffect(ctx, scholarship.ID, effect); err != nil {
			return err
		}

		outbox.Add(submittedEvent(studentID, scholarship.Title))
		created = renewal
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Flush(ctx, outbox)
	s.metrics.IncApplicationSubmitted()

	return created, nil
}

// Withdraw retracts a pending application. Both the student and, when
// resolvable, the scholarship's provider are notified.
func (s *ApplicationService) Withdraw(ctx context.Context, applicationID, studentID string) (*domain.Application, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(applicationID) == "" {
		return nil, fmt.Errorf("%w: application id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(studentID) == "" {
		return nil, fmt.Errorf("%w: student id is required", domain.ErrValidation)
	}

	outbox := notify.NewOutbox()
	var withdrawn *domain.Application

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		app, err := tx.Applications().LockForReview(ctx, applicationID)
		if err != nil {
			return err
		}
		if app.StudentID != studentID {
			return fmt.Errorf("%w: application %s does not belong to the acting student", domain.ErrAccessDenied, app.ID)
		}
		if app.Status != domain.ApplicationPending || !app.Active {
			return fmt.Errorf("%w: only a pending application can be withdrawn", domain.ErrInvalidTransition)
		}

		scholarship, err := tx.Scholarships().LockForUpdate(ctx, app.ScholarshipID)
		if err != nil {
			return err
		}

		now := s.now()
		if err := tx.Applications().Withdraw(ctx, app.ID, now); err != nil {
			return err
		}

		effect, err := domain.TransitionEffect(domain.ApplicationPending, domain.ApplicationWithdrawn, app.Kind)
		if err != nil {
			return err
		}
		if err := tx.Scholarships().ApplyCounterEffect(ctx, scholarship.ID, effect); err != nil {
			return err
		}

		app.Status = domain.ApplicationWithdrawn
		app.Active = false
		app.ReviewedAt = &now

		outbox.Add(withdrawnEvent(studentID, scholarship.Title))
		if scholarship.ProviderID != "" {
			outbox.Add(withdrawnEvent(scholarship.ProviderID, scholarship.Title))
		}

		withdrawn = app
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Flush(ctx, outbox)
	s.metrics.IncApplicationWithdrawn()

	return withdrawn, nil
}
