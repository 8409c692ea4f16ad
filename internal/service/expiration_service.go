package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mliaj/scholarsphere-sub000/internal/domain"
	"github.com/Mliaj/scholarsphere-sub000/internal/notify"
	"github.com/Mliaj/scholarsphere-sub000/internal/observability"
	"github.com/Mliaj/scholarsphere-sub000/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExpirationService sweeps every scholarship with a semester end date and, per
// approved active application, either sends the nearest staged reminder or
// archives the expired award, reconciling any renewal on record. Sweeps may be
// triggered repeatedly; the notice ledger's unique constraint keeps every
// notice at most once per (scholarship, student, tier, semester date).
type ExpirationService struct {
	store      repository.Store
	dispatcher *notify.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger

	now   func() time.Time
	newID func() string
}

// SweepSummary reports what one sweep invocation actually did.
type SweepSummary struct {
	RemindersSent        int
	ExpirationsProcessed int
}

func NewExpirationService(
	store repository.Store,
	dispatcher *notify.Dispatcher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*ExpirationService, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("notification dispatcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ExpirationService{
		store:      store,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}, nil
}

// SweepExpirations runs one sweep as of the given date. A zero asOf uses the
// current processing date. Failures on one scholarship are logged and do not
// stop the rest of the sweep.
func (s *ExpirationService) SweepExpirations(ctx context.Context, asOf time.Time) (SweepSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if asOf.IsZero() {
		asOf = s.now()
	}

	var summary SweepSummary

	scholarships, err := s.store.Scholarships().ListWithSemesterDate(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list scholarships with a semester date: %w", err)
	}

	for i := range scholarships {
		scholarship := &scholarships[i]

		// Computed once per scholarship, before any of its pairs are
		// processed, so an archival cannot change a sibling's view of
		// the term.
		daysLeft, ok := scholarship.DaysUntilSemesterEnd(asOf)
		if !ok {
			continue
		}

		apps, err := s.store.Applications().ListActiveApprovedByScholarship(ctx, scholarship.ID)
		if err != nil {
			s.logger.Error("sweep: failed to list approved applications",
				zap.String("scholarshipId", scholarship.ID),
				zap.Error(err),
			)
			continue
		}
		if len(apps) == 0 {
			continue
		}

		if daysLeft < 0 {
			s.expireScholarship(ctx, scholarship, apps, &summary)
			continue
		}
		s.remindScholarship(ctx, scholarship, apps, daysLeft, &summary)
	}

	return summary, nil
}

func (s *ExpirationService) expireScholarship(
	ctx context.Context,
	scholarship *domain.Scholarship,
	apps []domain.Application,
	summary *SweepSummary,
) {
	renewalActivated := false
	activatedByThisPass := make(map[string]struct{})

	for i := range apps {
		app := &apps[i]

		// A renewal activated earlier in this pass is the surviving
		// award for the next term; it must not be archived by the
		// same invocation that activated it.
		if _, ok := activatedByThisPass[app.ID]; ok {
			continue
		}

		// An approved renewal is reconciled together with its original
		// while the original is still active; skip it here so the pair
		// is processed once.
		if app.IsRenewal() && app.RenewalOf != nil {
			original, err := s.store.Applications().GetByID(ctx, *app.RenewalOf)
			if err == nil && original.Active {
				continue
			}
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				s.logger.Error("sweep: failed to resolve renewal original",
					zap.String("applicationId", app.ID),
					zap.Error(err),
				)
				continue
			}
		}

		outbox := notify.NewOutbox()
		var activatedRenewalID string

		err := s.store.WithinTx(ctx, func(tx repository.Store) error {
			return s.expireOne(ctx, tx, scholarship, app.ID, outbox, &activatedRenewalID, summary)
		})
		if err != nil {
			s.logger.Error("sweep: failed to expire application",
				zap.String("applicationId", app.ID),
				zap.String("scholarshipId", scholarship.ID),
				zap.Error(err),
			)
			continue
		}
		if activatedRenewalID != "" {
			renewalActivated = true
			activatedByThisPass[activatedRenewalID] = struct{}{}
		}

		s.dispatcher.Flush(ctx, outbox)
	}

	// When at least one renewal activated, the term rolls forward so the
	// surviving award is not archived by the very next sweep. The guard on
	// the previous date makes concurrent sweeps roll at most once.
	if renewalActivated && scholarship.SemesterDate != nil && scholarship.NextLastSemesterDate != nil {
		rolled, err := s.store.Scholarships().RollSemester(ctx, scholarship.ID, *scholarship.SemesterDate, *scholarship.NextLastSemesterDate)
		if err != nil {
			s.logger.Error("sweep: failed to roll semester date",
				zap.String("scholarshipId", scholarship.ID),
				zap.Error(err),
			)
			return
		}
		if rolled {
			s.logger.Info("sweep: semester rolled to next term",
				zap.String("scholarshipId", scholarship.ID),
				zap.Time("newSemesterDate", *scholarship.NextLastSemesterDate),
			)
		}
	}
}

func (s *ExpirationService) expireOne(
	ctx context.Context,
	tx repository.Store,
	scholarship *domain.Scholarship,
	applicationID string,
	outbox *notify.Outbox,
	activatedRenewalID *string,
	summary *SweepSummary,
) error {
	app, err := tx.Applications().LockForReview(ctx, applicationID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	// Another invocation may have archived it between the list and the lock.
	if !app.Active || app.Status != domain.ApplicationApproved {
		return nil
	}

	now := s.now()

	renewal, err := tx.Applications().FindOpenRenewalOf(ctx, app.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	archiveEffect, err := domain.TransitionEffect(domain.ApplicationApproved, domain.ApplicationArchived, app.Kind)
	if err != nil {
		return err
	}

	switch {
	case renewal != nil && renewal.Status == domain.ApplicationApproved:
		// The renewal takes over the original's slot; nothing is
		// released and nothing extra is consumed.
		if err := tx.Applications().Archive(ctx, app.ID, now); err != nil {
			return err
		}
		if err := tx.Scholarships().ApplyCounterEffect(ctx, scholarship.ID, archiveEffect); err != nil {
			return err
		}
		outbox.Add(renewalActivatedEvent(app.StudentID, scholarship.Title))
		*activatedRenewalID = renewal.ID

	case renewal != nil && renewal.Status == domain.ApplicationPending:
		// The renewal's approval never landed before the term ended:
		// archive both the original and the stale renewal.
		if err := tx.Applications().Archive(ctx, app.ID, now); err != nil {
			return err
		}
		if err := tx.Applications().ArchiveFailedRenewal(ctx, renewal.ID, now); err != nil {
			return err
		}
		staleEffect, err := domain.TransitionEffect(domain.ApplicationPending, domain.ApplicationArchived, renewal.Kind)
		if err != nil {
			return err
		}
		if err := tx.Scholarships().ApplyCounterEffect(ctx, scholarship.ID, archiveEffect); err != nil {
			return err
		}
		if err := tx.Scholarships().ApplyCounterEffect(ctx, scholarship.ID, staleEffect); err != nil {
			return err
		}

	default:
		if err := tx.Applications().Archive(ctx, app.ID, now); err != nil {
			return err
		}
		if err := tx.Scholarships().ApplyCounterEffect(ctx, scholarship.ID, archiveEffect); err != nil {
			return err
		}
	}

	recorded, err := s.recordNotice(ctx, tx.Notices(), scholarship, app.StudentID, domain.NoticeExpired, now)
	if err != nil {
		return err
	}
	if recorded {
		// The activation event already covers the student's renewal case.
		if *activatedRenewalID == "" {
			outbox.Add(expiredEvent(app.StudentID, scholarship.Title))
		}
		summary.ExpirationsProcessed++
		s.metrics.IncExpirationProcessed()
	} else {
		s.metrics.IncNoticeDeduped()
	}

	return nil
}

func (s *ExpirationService) remindScholarship(
	ctx context.Context,
	scholarship *domain.Scholarship,
	apps []domain.Application,
	daysLeft int,
	summary *SweepSummary,
) {
	tier, ok := domain.ReminderTierFor(daysLeft)
	if !ok {
		return
	}

	outbox := notify.NewOutbox()

	for i := range apps {
		app := &apps[i]

		recorded, err := s.recordNotice(ctx, s.store.Notices(), scholarship, app.StudentID, tier, s.now())
		if err != nil {
			s.logger.Error("sweep: failed to record reminder notice",
				zap.String("applicationId", app.ID),
				zap.String("tier", tier.String()),
				zap.Error(err),
			)
			continue
		}
		if !recorded {
			s.metrics.IncNoticeDeduped()
			continue
		}

		outbox.Add(reminderEvent(app.StudentID, scholarship.Title, daysLeft))
		summary.RemindersSent++
		s.metrics.IncReminderSent(tier.String())
	}

	s.dispatcher.Flush(ctx, outbox)
}

// recordNotice appends one ledger row. The ledger insert happens-before the
// user-visible send; the storage unique constraint, not a check-then-insert,
// is what makes concurrent sweeps safe.
func (s *ExpirationService) recordNotice(
	ctx context.Context,
	ledger repository.NoticeLedger,
	scholarship *domain.Scholarship,
	studentID string,
	noticeType domain.NoticeType,
	sentAt time.Time,
) (bool, error) {
	if scholarship.SemesterDate == nil {
		return false, fmt.Errorf("scholarship %s has no semester date", scholarship.ID)
	}

	notice := &domain.SemesterNotice{
		ID:            s.newID(),
		ScholarshipID: scholarship.ID,
		UserID:        studentID,
		NoticeType:    noticeType,
		SemesterDate:  *scholarship.SemesterDate,
		SentAt:        sentAt,
	}
	return ledger.Record(ctx, notice)
}
