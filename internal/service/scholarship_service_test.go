package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Mliaj/scholarsphere-sub000/internal/domain"
	"go.uber.org/zap"
)

var maintNow = time.Date(2026, time.January, 20, 8, 0, 0, 0, time.UTC)

func newScholarshipService(t *testing.T, store *memStore) *ScholarshipService {
	t.Helper()

	svc, err := NewScholarshipService(store, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewScholarshipService() error = %v", err)
	}
	svc.now = func() time.Time { return maintNow }
	return svc
}

func TestCreateScholarship(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newScholarshipService(t, store)

	created, err := svc.Create(context.Background(), &domain.Scholarship{
		ProviderID: "prov-1",
		Code:       "MERIT-2026",
		Title:      "Merit Grant",
		SlotsTotal: intPtr(10),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected an assigned id")
	}
	if created.Status != domain.ScholarshipDraft {
		t.Fatalf("status = %s, want DRAFT default", created.Status)
	}
	if created.Slots == nil || *created.Slots != 10 {
		t.Fatalf("slots = %v, want remaining capacity initialized to 10", created.Slots)
	}
}

func TestCreateScholarshipValidation(t *testing.T) {
	t.Parallel()

	svc := newScholarshipService(t, newMemStore())

	_, err := svc.Create(context.Background(), &domain.Scholarship{ProviderID: "prov-1"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Create() error = %v, want ErrValidation", err)
	}
}

func TestSetRenewalWindow(t *testing.T) {
	t.Parallel()

	current := date(2026, time.June, 15)
	store := newMemStore()
	seedScholarship(store, domain.Scholarship{
		ID: "sch-1", ProviderID: "prov-1", Title: "Merit Grant",
		SemesterDate: &current,
	})

	svc := newScholarshipService(t, store)

	next := date(2026, time.December, 20)
	if err := svc.SetRenewalWindow(context.Background(), "sch-1", "prov-1", next); err != nil {
		t.Fatalf("SetRenewalWindow() error = %v", err)
	}

	sc := store.scholarship("sch-1")
	if sc.NextLastSemesterDate == nil || !sc.NextLastSemesterDate.Equal(next) {
		t.Fatalf("window = %v, want %v", sc.NextLastSemesterDate, next)
	}
}

func TestSetRenewalWindowGuards(t *testing.T) {
	t.Parallel()

	current := date(2026, time.June, 15)

	tests := []struct {
		name     string
		provider string
		next     time.Time
		wantErr  error
	}{
		{"wrong provider", "prov-other", date(2026, time.December, 20), domain.ErrAccessDenied},
		{"not after current term", "prov-1", date(2026, time.May, 1), domain.ErrValidation},
		{"zero date", "prov-1", time.Time{}, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newMemStore()
			seedScholarship(store, domain.Scholarship{
				ID: "sch-1", ProviderID: "prov-1", Title: "Merit Grant",
				SemesterDate: &current,
			})

			svc := newScholarshipService(t, store)

			err := svc.SetRenewalWindow(context.Background(), "sch-1", tt.provider, tt.next)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SetRenewalWindow() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestArchiveScholarship(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedScholarship(store, domain.Scholarship{
		ID: "sch-1", ProviderID: "prov-1", Title: "Merit Grant",
		SlotsTotal: intPtr(2), Slots: intPtr(1),
		PendingCount: 1, ApprovedCount: 1, ApplicationsCount: 2,
	})
	store.putApplication(domain.Application{
		ID: "app-1", ScholarshipID: "sch-1", StudentID: "stu-1",
		Kind: domain.KindOriginal, Status: domain.ApplicationPending, Active: true,
		SubmittedAt: maintNow.Add(-time.Hour),
	})
	store.putApplication(domain.Application{
		ID: "app-2", ScholarshipID: "sch-1", StudentID: "stu-2",
		Kind: domain.KindOriginal, Status: domain.ApplicationApproved, Active: true,
		SubmittedAt: maintNow.Add(-2 * time.Hour),
	})

	svc := newScholarshipService(t, store)

	if err := svc.Archive(context.Background(), "sch-1", "prov-1"); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	sc := store.scholarship("sch-1")
	if sc.Status != domain.ScholarshipArchived {
		t.Fatalf("status = %s, want ARCHIVED", sc.Status)
	}
	for _, id := range []string{"app-1", "app-2"} {
		if got := store.application(id); got.Status != domain.ApplicationArchived || got.Active {
			t.Fatalf("application %s = %s active=%v, want ARCHIVED/inactive", id, got.Status, got.Active)
		}
	}
	// Recount after emptying: no live rows, full capacity back.
	if sc.PendingCount != 0 || sc.ApprovedCount != 0 {
		t.Fatalf("counters = pending %d approved %d, want 0/0", sc.PendingCount, sc.ApprovedCount)
	}
	if *sc.Slots != 2 {
		t.Fatalf("slots = %d, want 2", *sc.Slots)
	}

	// Archiving twice is a no-op.
	if err := svc.Archive(context.Background(), "sch-1", "prov-1"); err != nil {
		t.Fatalf("second Archive() error = %v", err)
	}
}

func TestRestoreRepairsDriftedCounters(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	// Deliberately wrong counters: restore must rebuild them from rows.
	seedScholarship(store, domain.Scholarship{
		ID: "sch-1", ProviderID: "prov-1", Title: "Merit Grant",
		Status:     domain.ScholarshipArchived,
		SlotsTotal: intPtr(3), Slots: intPtr(0),
		PendingCount: 7, ApprovedCount: 5, DisapprovedCount: 2, ApplicationsCount: 99,
	})
	store.putApplication(domain.Application{
		ID: "app-1", ScholarshipID: "sch-1", StudentID: "stu-1",
		Kind: domain.KindOriginal, Status: domain.ApplicationApproved, Active: true,
		SubmittedAt: maintNow.Add(-time.Hour),
	})
	store.putApplication(domain.Application{
		ID: "app-2", ScholarshipID: "sch-1", StudentID: "stu-2",
		Kind: domain.KindOriginal, Status: domain.ApplicationWithdrawn, Active: false,
		SubmittedAt: maintNow.Add(-2 * time.Hour),
	})

	svc := newScholarshipService(t, store)

	restored, err := svc.Restore(context.Background(), "sch-1", "prov-1")
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if restored.Status != domain.ScholarshipActive {
		t.Fatalf("status = %s, want ACTIVE", restored.Status)
	}
	if restored.PendingCount != 0 || restored.ApprovedCount != 1 || restored.DisapprovedCount != 0 {
		t.Fatalf("counters = %d/%d/%d, want 0/1/0",
			restored.PendingCount, restored.ApprovedCount, restored.DisapprovedCount)
	}
	if restored.ApplicationsCount != 1 {
		t.Fatalf("applications = %d, want 1 (withdrawn excluded)", restored.ApplicationsCount)
	}
	if *restored.Slots != 2 {
		t.Fatalf("slots = %d, want 2 (capacity minus live awards)", *restored.Slots)
	}
}

func TestRecountDuringDeferredRenewal(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedScholarship(store, domain.Scholarship{
		ID: "sch-1", ProviderID: "prov-1", Title: "Merit Grant",
		Status:     domain.ScholarshipActive,
		SlotsTotal: intPtr(1), Slots: intPtr(0),
		ApprovedCount: 2, ApplicationsCount: 2,
	})
	// The award and its approved-but-unactivated renewal share one slot.
	store.putApplication(domain.Application{
		ID: "app-orig", ScholarshipID: "sch-1", StudentID: "stu-1",
		Kind: domain.KindOriginal, Status: domain.ApplicationApproved, Active: true,
		SubmittedAt: maintNow.Add(-48 * time.Hour),
	})
	store.putApplication(domain.Application{
		ID: "app-renew", ScholarshipID: "sch-1", StudentID: "stu-1",
		Kind: domain.KindRenewal, RenewalOf: strPtr("app-orig"),
		Status: domain.ApplicationApproved, Active: true,
		SubmittedAt: maintNow.Add(-time.Hour),
	})

	svc := newScholarshipService(t, store)

	recounted, err := svc.Recount(context.Background(), "sch-1")
	if err != nil {
		t.Fatalf("Recount() error = %v", err)
	}
	if recounted.ApprovedCount != 2 {
		t.Fatalf("approved = %d, want 2", recounted.ApprovedCount)
	}
	if *recounted.Slots != 0 {
		t.Fatalf("slots = %d, want 0 (renewal shares the original's slot)", *recounted.Slots)
	}

	// Once the original retires, the renewal consumes the slot itself and
	// the recount still lands on the same remainder.
	orig := store.application("app-orig")
	orig.Status = domain.ApplicationArchived
	orig.Active = false
	store.putApplication(orig)

	recounted, err = svc.Recount(context.Background(), "sch-1")
	if err != nil {
		t.Fatalf("Recount() after activation error = %v", err)
	}
	if recounted.ApprovedCount != 1 {
		t.Fatalf("approved = %d, want 1", recounted.ApprovedCount)
	}
	if *recounted.Slots != 0 {
		t.Fatalf("slots = %d, want 0 (renewal now holds the slot)", *recounted.Slots)
	}
}

func TestRestoreRequiresArchivedState(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedScholarship(store, domain.Scholarship{ID: "sch-1", ProviderID: "prov-1", Title: "Merit Grant"})

	svc := newScholarshipService(t, store)

	_, err := svc.Restore(context.Background(), "sch-1", "prov-1")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("Restore() error = %v, want ErrInvalidTransition", err)
	}
}

func TestHardDeleteCascades(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedScholarship(store, domain.Scholarship{ID: "sch-1", ProviderID: "prov-1", Title: "Merit Grant"})
	seedScholarship(store, domain.Scholarship{ID: "sch-2", ProviderID: "prov-1", Title: "Other"})
	store.putApplication(domain.Application{
		ID: "app-1", ScholarshipID: "sch-1", StudentID: "stu-1",
		Kind: domain.KindOriginal, Status: domain.ApplicationApproved, Active: true,
		SubmittedAt: maintNow.Add(-time.Hour),
	})
	store.putApplication(domain.Application{
		ID: "app-keep", ScholarshipID: "sch-2", StudentID: "stu-1",
		Kind: domain.KindOriginal, Status: domain.ApplicationPending, Active: true,
		SubmittedAt: maintNow.Add(-time.Hour),
	})
	endDate := date(2026, time.June, 15)
	if _, err := store.Notices().Record(context.Background(), &domain.SemesterNotice{
		ID: "not-1", ScholarshipID: "sch-1", UserID: "stu-1",
		NoticeType: domain.NoticeExpiring14Days, SemesterDate: endDate, SentAt: maintNow,
	}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	svc := newScholarshipService(t, store)

	if err := svc.HardDelete(context.Background(), "sch-1", "prov-1"); err != nil {
		t.Fatalf("HardDelete() error = %v", err)
	}

	if _, err := store.Scholarships().GetByID(context.Background(), "sch-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("scholarship lookup error = %v, want ErrNotFound", err)
	}
	if _, err := store.Applications().GetByID(context.Background(), "app-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("application lookup error = %v, want ErrNotFound", err)
	}
	notices, _ := store.Notices().ListByUser(context.Background(), "stu-1")
	if len(notices) != 0 {
		t.Fatalf("ledger rows = %d, want 0", len(notices))
	}

	// Unrelated rows survive.
	if _, err := store.Applications().GetByID(context.Background(), "app-keep"); err != nil {
		t.Fatalf("unrelated application lookup error = %v", err)
	}
}

func TestHardDeleteAccessDenied(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedScholarship(store, domain.Scholarship{ID: "sch-1", ProviderID: "prov-1", Title: "Merit Grant"})

	svc := newScholarshipService(t, store)

	if err := svc.HardDelete(context.Background(), "sch-1", "prov-other"); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("HardDelete() error = %v, want ErrAccessDenied", err)
	}
	if _, err := store.Scholarships().GetByID(context.Background(), "sch-1"); err != nil {
		t.Fatalf("scholarship must survive a denied delete, lookup error = %v", err)
	}
}
