package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Mliaj/scholarsphere-sub000/internal/credential"
	"github.com/Mliaj/scholarsphere-sub000/internal/domain"
	"github.com/Mliaj/scholarsphere-sub000/internal/notify"
	"github.com/Mliaj/scholarsphere-sub000/internal/repository"
)

// memStore is an in-memory repository.Store with the same observable
// semantics as the gorm-backed one: copies in, copies out, sentinel errors,
// counter clamping, ledger dedup, and rollback of everything mutated inside
// a failed WithinTx.
type memStore struct {
	apps          map[string]domain.Application
	scholarships  map[string]domain.Scholarship
	notices       map[string]domain.SemesterNotice
	notifications map[string]domain.Notification
}

func newMemStore() *memStore {
	return &memStore{
		apps:          map[string]domain.Application{},
		scholarships:  map[string]domain.Scholarship{},
		notices:       map[string]domain.SemesterNotice{},
		notifications: map[string]domain.Notification{},
	}
}

func (s *memStore) Applications() repository.ApplicationRepository   { return &memApplicationRepo{s} }
func (s *memStore) Scholarships() repository.ScholarshipRepository   { return &memScholarshipRepo{s} }
func (s *memStore) Notices() repository.NoticeLedger                 { return &memNoticeLedger{s} }
func (s *memStore) Notifications() repository.NotificationRepository { return &memNotificationRepo{s} }

func (s *memStore) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	apps := cloneMap(s.apps)
	scholarships := cloneMap(s.scholarships)
	notices := cloneMap(s.notices)
	notifications := cloneMap(s.notifications)

	if err := fn(s); err != nil {
		s.apps = apps
		s.scholarships = scholarships
		s.notices = notices
		s.notifications = notifications
		return err
	}
	return nil
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) putApplication(app domain.Application)    { s.apps[app.ID] = app }
func (s *memStore) putScholarship(sc domain.Scholarship)     { s.scholarships[sc.ID] = sc }
func (s *memStore) application(id string) domain.Application { return s.apps[id] }
func (s *memStore) scholarship(id string) domain.Scholarship { return s.scholarships[id] }

type memApplicationRepo struct{ s *memStore }

func isOpen(a domain.Application) bool {
	return a.Active && (a.Status == domain.ApplicationPending || a.Status == domain.ApplicationApproved)
}

func (r *memApplicationRepo) Create(_ context.Context, app *domain.Application) error {
	r.s.apps[app.ID] = *app
	return nil
}

func (r *memApplicationRepo) GetByID(_ context.Context, id string) (*domain.Application, error) {
	app, ok := r.s.apps[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &app, nil
}

func (r *memApplicationRepo) LockForReview(ctx context.Context, id string) (*domain.Application, error) {
	return r.GetByID(ctx, id)
}

func (r *memApplicationRepo) GetOpenByStudentAndScholarship(_ context.Context, studentID, scholarshipID string) (*domain.Application, error) {
	for _, app := range r.s.apps {
		if app.StudentID == studentID && app.ScholarshipID == scholarshipID && isOpen(app) {
			found := app
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memApplicationRepo) ListActiveByStudent(_ context.Context, studentID string) ([]domain.Application, error) {
	var apps []domain.Application
	for _, app := range r.s.apps {
		if app.StudentID == studentID && app.Active {
			apps = append(apps, app)
		}
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].SubmittedAt.Before(apps[j].SubmittedAt) })
	return apps, nil
}

func (r *memApplicationRepo) ListActiveApprovedByScholarship(_ context.Context, scholarshipID string) ([]domain.Application, error) {
	var apps []domain.Application
	for _, app := range r.s.apps {
		if app.ScholarshipID == scholarshipID && app.Active && app.Status == domain.ApplicationApproved {
			apps = append(apps, app)
		}
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].SubmittedAt.Before(apps[j].SubmittedAt) })
	return apps, nil
}

func (r *memApplicationRepo) FindOpenRenewalOf(_ context.Context, originalID string) (*domain.Application, error) {
	for _, app := range r.s.apps {
		if app.Kind == domain.KindRenewal && app.RenewalOf != nil && *app.RenewalOf == originalID && isOpen(app) {
			found := app
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memApplicationRepo) SetDecision(_ context.Context, id string, status domain.ApplicationStatus, reviewerID string, reviewedAt time.Time, notes *string) error {
	app, ok := r.s.apps[id]
	if !ok {
		return domain.ErrNotFound
	}
	app.Status = status
	app.ReviewedBy = &reviewerID
	app.ReviewedAt = &reviewedAt
	if notes != nil {
		app.Notes = notes
	}
	r.s.apps[id] = app
	return nil
}

func (r *memApplicationRepo) Withdraw(_ context.Context, id string, at time.Time) error {
	app, ok := r.s.apps[id]
	if !ok || app.Status != domain.ApplicationPending || !app.Active {
		return domain.ErrConflict
	}
	app.Status = domain.ApplicationWithdrawn
	app.Active = false
	app.ReviewedAt = &at
	r.s.apps[id] = app
	return nil
}

func (r *memApplicationRepo) Archive(_ context.Context, id string, at time.Time) error {
	app, ok := r.s.apps[id]
	if !ok || !app.Active {
		return domain.ErrConflict
	}
	app.Status = domain.ApplicationArchived
	app.Active = false
	app.ReviewedAt = &at
	r.s.apps[id] = app
	return nil
}

func (r *memApplicationRepo) ArchiveFailedRenewal(_ context.Context, id string, at time.Time) error {
	app, ok := r.s.apps[id]
	if !ok || !app.Active {
		return domain.ErrConflict
	}
	app.Status = domain.ApplicationArchived
	app.Active = false
	app.RenewalFailed = true
	app.ReviewedAt = &at
	r.s.apps[id] = app
	return nil
}

func (r *memApplicationRepo) ArchiveAllActiveByScholarship(_ context.Context, scholarshipID string, at time.Time) (int64, error) {
	var archived int64
	for id, app := range r.s.apps {
		if app.ScholarshipID == scholarshipID && app.Active {
			app.Status = domain.ApplicationArchived
			app.Active = false
			app.ReviewedAt = &at
			r.s.apps[id] = app
			archived++
		}
	}
	return archived, nil
}

func (r *memApplicationRepo) DeleteByScholarship(_ context.Context, scholarshipID string) error {
	for id, app := range r.s.apps {
		if app.ScholarshipID == scholarshipID {
			delete(r.s.apps, id)
		}
	}
	return nil
}

type memScholarshipRepo struct{ s *memStore }

func (r *memScholarshipRepo) Create(_ context.Context, sc *domain.Scholarship) error {
	r.s.scholarships[sc.ID] = *sc
	return nil
}

func (r *memScholarshipRepo) GetByID(_ context.Context, id string) (*domain.Scholarship, error) {
	sc, ok := r.s.scholarships[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sc, nil
}

func (r *memScholarshipRepo) LockForUpdate(ctx context.Context, id string) (*domain.Scholarship, error) {
	return r.GetByID(ctx, id)
}

func (r *memScholarshipRepo) ListWithSemesterDate(_ context.Context) ([]domain.Scholarship, error) {
	var out []domain.Scholarship
	for _, sc := range r.s.scholarships {
		if sc.SemesterDate != nil {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SemesterDate.Before(*out[j].SemesterDate) })
	return out, nil
}

func (r *memScholarshipRepo) ApplyCounterEffect(_ context.Context, id string, effect domain.CounterEffect) error {
	sc, ok := r.s.scholarships[id]
	if !ok {
		return domain.ErrNotFound
	}
	sc.PendingCount = max(sc.PendingCount+effect.Pending, 0)
	sc.ApprovedCount = max(sc.ApprovedCount+effect.Approved, 0)
	sc.DisapprovedCount = max(sc.DisapprovedCount+effect.Disapproved, 0)
	sc.ApplicationsCount = max(sc.ApplicationsCount+effect.Applications, 0)
	if sc.Slots != nil && effect.Slots != 0 {
		remaining := *sc.Slots + effect.Slots
		sc.Slots = &remaining
	}
	r.s.scholarships[id] = sc
	return nil
}

func (r *memScholarshipRepo) Recount(_ context.Context, id string) (*domain.Scholarship, error) {
	sc, ok := r.s.scholarships[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	var pending, approved, disapproved, applications, slotConsumers int
	for _, app := range r.s.apps {
		if app.ScholarshipID != id {
			continue
		}
		if app.Status != domain.ApplicationWithdrawn {
			applications++
		}
		if !app.Active {
			continue
		}
		switch app.Status {
		case domain.ApplicationPending:
			pending++
		case domain.ApplicationApproved:
			approved++
			// An approved renewal shares its still-active original's
			// slot until activation.
			deferred := false
			if app.RenewalOf != nil {
				if original, ok := r.s.apps[*app.RenewalOf]; ok && original.Active {
					deferred = true
				}
			}
			if !deferred {
				slotConsumers++
			}
		case domain.ApplicationRejected:
			disapproved++
		}
	}

	sc.PendingCount = pending
	sc.ApprovedCount = approved
	sc.DisapprovedCount = disapproved
	sc.ApplicationsCount = applications
	if sc.SlotsTotal != nil {
		remaining := max(*sc.SlotsTotal-slotConsumers, 0)
		sc.Slots = &remaining
	}
	r.s.scholarships[id] = sc

	out := sc
	return &out, nil
}

func (r *memScholarshipRepo) SetRenewalWindow(_ context.Context, id string, next time.Time) error {
	sc, ok := r.s.scholarships[id]
	if !ok {
		return domain.ErrNotFound
	}
	sc.NextLastSemesterDate = &next
	r.s.scholarships[id] = sc
	return nil
}

func (r *memScholarshipRepo) RollSemester(_ context.Context, id string, from, to time.Time) (bool, error) {
	sc, ok := r.s.scholarships[id]
	if !ok || sc.SemesterDate == nil || !sc.SemesterDate.Equal(from) {
		return false, nil
	}
	sc.SemesterDate = &to
	sc.NextLastSemesterDate = nil
	r.s.scholarships[id] = sc
	return true, nil
}

func (r *memScholarshipRepo) UpdateStatus(_ context.Context, id string, status domain.ScholarshipStatus) error {
	sc, ok := r.s.scholarships[id]
	if !ok {
		return domain.ErrNotFound
	}
	sc.Status = status
	r.s.scholarships[id] = sc
	return nil
}

func (r *memScholarshipRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.s.scholarships[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.scholarships, id)
	return nil
}

type memNoticeLedger struct{ s *memStore }

func noticeKey(n *domain.SemesterNotice) string {
	return fmt.Sprintf("%s|%s|%s|%s", n.ScholarshipID, n.UserID, n.NoticeType, n.SemesterDate.Format("2006-01-02"))
}

func (l *memNoticeLedger) Record(_ context.Context, n *domain.SemesterNotice) (bool, error) {
	key := noticeKey(n)
	if _, exists := l.s.notices[key]; exists {
		return false, nil
	}
	l.s.notices[key] = *n
	return true, nil
}

func (l *memNoticeLedger) ListByUser(_ context.Context, userID string) ([]domain.SemesterNotice, error) {
	var out []domain.SemesterNotice
	for _, n := range l.s.notices {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	return out, nil
}

func (l *memNoticeLedger) DeleteByScholarship(_ context.Context, scholarshipID string) error {
	for key, n := range l.s.notices {
		if n.ScholarshipID == scholarshipID {
			delete(l.s.notices, key)
		}
	}
	return nil
}

type memNotificationRepo struct{ s *memStore }

func (r *memNotificationRepo) Create(_ context.Context, n *domain.Notification) error {
	r.s.notifications[n.ID] = *n
	return nil
}

func (r *memNotificationRepo) ListByUser(_ context.Context, userID string, _ int) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, n := range r.s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memNotificationRepo) MarkRead(_ context.Context, id, userID string, at time.Time) error {
	n, ok := r.s.notifications[id]
	if !ok || n.UserID != userID || n.ReadAt != nil {
		return domain.ErrNotFound
	}
	n.ReadAt = &at
	r.s.notifications[id] = n
	return nil
}

// recordingNotifier captures both legs of every dispatched event.
type recordingNotifier struct {
	mu     sync.Mutex
	inApp  []domain.Notification
	emails []notify.EmailMessage
}

func (r *recordingNotifier) Notify(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inApp = append(r.inApp, n)
	return nil
}

func (r *recordingNotifier) Email(_ context.Context, msg notify.EmailMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emails = append(r.emails, msg)
	return nil
}

func (r *recordingNotifier) inAppKinds() []domain.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]domain.NotificationKind, 0, len(r.inApp))
	for _, n := range r.inApp {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

func (r *recordingNotifier) countKind(kind domain.NotificationKind) int {
	count := 0
	for _, k := range r.inAppKinds() {
		if k == kind {
			count++
		}
	}
	return count
}

// fakeMatcher resolves every requirement as present and verified unless a
// resolveFunc overrides it.
type fakeMatcher struct {
	resolveFunc func(ctx context.Context, studentID string, codes []string) (map[string]credential.Resolution, error)
}

func (m *fakeMatcher) Resolve(ctx context.Context, studentID string, codes []string) (map[string]credential.Resolution, error) {
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, studentID, codes)
	}
	out := make(map[string]credential.Resolution, len(codes))
	for _, code := range codes {
		out[code] = credential.Resolution{Resolved: true, Verified: true}
	}
	return out, nil
}

func intPtr(v int) *int              { return &v }
func strPtr(v string) *string        { return &v }
func timePtr(v time.Time) *time.Time { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
