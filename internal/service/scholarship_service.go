package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Mliaj/scholarsphere-sub000/internal/domain"
	"github.com/Mliaj/scholarsphere-sub000/internal/observability"
	"github.com/Mliaj/scholarsphere-sub000/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScholarshipService covers provider-side maintenance of an award definition:
// configuring the renewal window, archiving and restoring, the operator
// recount, and the hard-delete cascade. Restore and Recount recompute every
// counter from live rows instead of trusting incremental deltas.
type ScholarshipService struct {
	store   repository.Store
	metrics *observability.Metrics
	logger  *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewScholarshipService(store repository.Store, metrics *observability.Metrics, logger *zap.Logger) (*ScholarshipService, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ScholarshipService{
		store:   store,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}, nil
}

// Create registers a new scholarship for a provider. Remaining slots start at
// the configured capacity.
func (s *ScholarshipService) Create(ctx context.Context, scholarship *domain.Scholarship) (*domain.Scholarship, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if scholarship == nil {
		return nil, fmt.Errorf("%w: scholarship is required", domain.ErrValidation)
	}

	if scholarship.Status == "" {
		scholarship.Status = domain.ScholarshipDraft
	}
	if scholarship.SlotsTotal != nil && scholarship.Slots == nil {
		remaining := *scholarship.SlotsTotal
		scholarship.Slots = &remaining
	}
	if err := scholarship.Validate(); err != nil {
		return nil, err
	}

	scholarship.ID = s.newID()
	if err := s.store.Scholarships().Create(ctx, scholarship); err != nil {
		return nil, err
	}

	return scholarship, nil
}

// SetRenewalWindow configures the next term's end date, the prerequisite for
// approving any renewal against the scholarship.
func (s *ScholarshipService) SetRenewalWindow(ctx context.Context, scholarshipID, providerID string, next time.Time) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if next.IsZero() {
		return fmt.Errorf("%w: next term end date is required", domain.ErrValidation)
	}

	scholarship, err := s.ownedScholarship(ctx, s.store, scholarshipID, providerID)
	if err != nil {
		return err
	}
	if scholarship.SemesterDate != nil && !next.After(*scholarship.SemesterDate) {
		return fmt.Errorf("%w: next term end date must be after the current term end", domain.ErrValidation)
	}

	return s.store.Scholarships().SetRenewalWindow(ctx, scholarshipID, next)
}

// Archive retires the scholarship and archives all of its active
// applications, then recounts so the counters reflect the emptied state.
func (s *ScholarshipService) Archive(ctx context.Context, scholarshipID, providerID string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		scholarship, err := s.ownedScholarshipLocked(ctx, tx, scholarshipID, providerID)
		if err != nil {
			return err
		}
		if scholarship.Status == domain.ScholarshipArchived {
			return nil
		}

		archived, err := tx.Applications().ArchiveAllActiveByScholarship(ctx, scholarshipID, s.now())
		if err != nil {
			return err
		}
		if err := tx.Scholarships().UpdateStatus(ctx, scholarshipID, domain.ScholarshipArchived); err != nil {
			return err
		}
		if _, err := tx.Scholarships().Recount(ctx, scholarshipID); err != nil {
			return err
		}

		s.logger.Info("scholarship archived",
			zap.String("scholarshipId", scholarshipID),
			zap.Int64("applicationsArchived", archived),
		)
		return nil
	})
}

// Restore reactivates an archived scholarship. Counters and remaining slots
// are recomputed from scratch by scanning live applications; this is the
// system's reconciliation path, not an incremental update.
func (s *ScholarshipService) Restore(ctx context.Context, scholarshipID, providerID string) (*domain.Scholarship, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var restored *domain.Scholarship
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		scholarship, err := s.ownedScholarshipLocked(ctx, tx, scholarshipID, providerID)
		if err != nil {
			return err
		}
		if scholarship.Status != domain.ScholarshipArchived {
			return fmt.Errorf("%w: only an archived scholarship can be restored", domain.ErrInvalidTransition)
		}

		if err := tx.Scholarships().UpdateStatus(ctx, scholarshipID, domain.ScholarshipActive); err != nil {
			return err
		}
		restored, err = tx.Scholarships().Recount(ctx, scholarshipID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncRecount()
	return restored, nil
}

// Recount recomputes the scholarship's counters from its live application
// rows. Exposed as a first-class repair operation for operators and tests.
func (s *ScholarshipService) Recount(ctx context.Context, scholarshipID string) (*domain.Scholarship, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(scholarshipID) == "" {
		return nil, fmt.Errorf("%w: scholarship id is required", domain.ErrValidation)
	}

	scholarship, err := s.store.Scholarships().Recount(ctx, scholarshipID)
	if err != nil {
		return nil, err
	}

	s.metrics.IncRecount()
	return scholarship, nil
}

// HardDelete physically removes the scholarship together with its
// applications and ledger rows. This is the only path that deletes
// application records.
func (s *ScholarshipService) HardDelete(ctx context.Context, scholarshipID, providerID string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := s.ownedScholarshipLocked(ctx, tx, scholarshipID, providerID); err != nil {
			return err
		}
		if err := tx.Applications().DeleteByScholarship(ctx, scholarshipID); err != nil {
			return err
		}
		if err := tx.Notices().DeleteByScholarship(ctx, scholarshipID); err != nil {
			return err
		}
		return tx.Scholarships().Delete(ctx, scholarshipID)
	})
}

func (s *ScholarshipService) ownedScholarship(ctx context.Context, store repository.Store, scholarshipID, providerID string) (*domain.Scholarship, error) {
	scholarship, err := store.Scholarships().GetByID(ctx, scholarshipID)
	if err != nil {
		return nil, err
	}
	if scholarship.ProviderID != providerID {
		return nil, fmt.Errorf("%w: scholarship %s is not managed by the acting provider", domain.ErrAccessDenied, scholarshipID)
	}
	return scholarship, nil
}

func (s *ScholarshipService) ownedScholarshipLocked(ctx context.Context, tx repository.Store, scholarshipID, providerID string) (*domain.Scholarship, error) {
	scholarship, err := tx.Scholarships().LockForUpdate(ctx, scholarshipID)
	if err != nil {
		return nil, err
	}
	if scholarship.ProviderID != providerID {
		return nil, fmt.Errorf("%w: scholarship %s is not managed by the acting provider", domain.ErrAccessDenied, scholarshipID)
	}
	return scholarship, nil
}
