package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Mliaj/scholarsphere-sub000/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ScholarshipRepository interface {
	Create(ctx context.Context, s *domain.Scholarship) error
	GetByID(ctx context.Context, id string) (*domain.Scholarship, error)
	LockForUpdate(ctx context.Context, id string) (*domain.Scholarship, error)
	ListWithSemesterDate(ctx context.Context) ([]domain.Scholarship, error)
	ApplyCounterEffect(ctx context.Context, id string, effect domain.CounterEffect) error
	Recount(ctx context.Context, id string) (*domain.Scholarship, error)
	SetRenewalWindow(ctx context.Context, id string, next time.Time) error
	RollSemester(ctx context.Context, id string, from, to time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id string, status domain.ScholarshipStatus) error
	Delete(ctx context.Context, id string) error
}

type GormScholarshipRepo struct {
	db *gorm.DB
}

func NewGormScholarshipRepo(db *gorm.DB) *GormScholarshipRepo {
	return &GormScholarshipRepo{db: db}
}

func (r *GormScholarshipRepo) Create(ctx context.Context, s *domain.Scholarship) error {
	model := scholarshipModelFromDomain(s)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if s != nil {
		*s = *scholarshipModelToDomain(model)
	}
	return nil
}

func (r *GormScholarshipRepo) GetByID(ctx context.Context, id string) (*domain.Scholarship, error) {
	var model ScholarshipModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return scholarshipModelToDomain(&model), nil
}

// LockForUpdate reads the scholarship under a row lock. Review decisions lock
// the scholarship first so concurrent decisions on the same award serialize.
func (r *GormScholarshipRepo) LockForUpdate(ctx context.Context, id string) (*domain.Scholarship, error) {
	var model ScholarshipModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return scholarshipModelToDomain(&model), nil
}

func (r *GormScholarshipRepo) ListWithSemesterDate(ctx context.Context) ([]domain.Scholarship, error) {
	var models []ScholarshipModel
	err := r.db.WithContext(ctx).
		Where("semester_date IS NOT NULL").
		Order("semester_date ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	scholarships := make([]domain.Scholarship, 0, len(models))
	for i := range models {
		scholarships = append(scholarships, *scholarshipModelToDomain(&models[i]))
	}

	return scholarships, nil
}

// ApplyCounterEffect applies the deltas of one status transition in a single
// UPDATE. The three status counters clamp at zero; the slots column keeps
// NULL arithmetic, so untracked capacity stays untracked.
func (r *GormScholarshipRepo) ApplyCounterEffect(ctx context.Context, id string, effect domain.CounterEffect) error {
	if effect.IsZero() {
		return nil
	}

	updates := map[string]any{}
	if effect.Pending != 0 {
		updates["pending_count"] = gorm.Expr("GREATEST(pending_count + ?, 0)", effect.Pending)
	}
	if effect.Approved != 0 {
		updates["approved_count"] = gorm.Expr("GREATEST(approved_count + ?, 0)", effect.Approved)
	}
	if effect.Disapproved != 0 {
		updates["disapproved_count"] = gorm.Expr("GREATEST(disapproved_count + ?, 0)", effect.Disapproved)
	}
	if effect.Applications != 0 {
		updates["applications_count"] = gorm.Expr("GREATEST(applications_count + ?, 0)", effect.Applications)
	}
	if effect.Slots != 0 {
		updates["slots"] = gorm.Expr("slots + ?", effect.Slots)
	}

	result := r.db.WithContext(ctx).
		Model(&ScholarshipModel{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Recount recomputes every counter from the live application rows and derives
// remaining slots from the configured capacity. This is the reconciliation
// path; incremental effects are only trusted between recounts.
func (r *GormScholarshipRepo) Recount(ctx context.Context, id string) (*domain.Scholarship, error) {
	countExpr := "(SELECT COUNT(*) FROM applications WHERE applications.scholarship_id = scholarships.id AND applications.active = ? AND applications.status = ?)"

	// An approved renewal whose original is still active shares the
	// original's slot until activation, so it does not consume one of its
	// own here.
	slotConsumerExpr := "(SELECT COUNT(*) FROM applications consumer" +
		" WHERE consumer.scholarship_id = scholarships.id AND consumer.active = ? AND consumer.status = ?" +
		" AND (consumer.renewal_of IS NULL OR NOT EXISTS" +
		" (SELECT 1 FROM applications original WHERE original.id = consumer.renewal_of AND original.active = ?)))"

	result := r.db.WithContext(ctx).
		Model(&ScholarshipModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"pending_count":      gorm.Expr(countExpr, true, domain.ApplicationPending),
			"approved_count":     gorm.Expr(countExpr, true, domain.ApplicationApproved),
			"disapproved_count":  gorm.Expr(countExpr, true, domain.ApplicationRejected),
			"applications_count": gorm.Expr("(SELECT COUNT(*) FROM applications WHERE applications.scholarship_id = scholarships.id AND applications.status <> ?)", domain.ApplicationWithdrawn),
			"slots":              gorm.Expr("CASE WHEN slots_total IS NULL THEN NULL ELSE GREATEST(slots_total - "+slotConsumerExpr+", 0) END", true, domain.ApplicationApproved, true),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *GormScholarshipRepo) SetRenewalWindow(ctx context.Context, id string, next time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&ScholarshipModel{}).
		Where("id = ?", id).
		Update("next_last_semester_date", next)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RollSemester advances the term end from its current value to the configured
// next one, clearing the renewal window. The from guard makes concurrent
// sweeps roll at most once; a second caller sees false.
func (r *GormScholarshipRepo) RollSemester(ctx context.Context, id string, from, to time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&ScholarshipModel{}).
		Where("id = ? AND semester_date = ?", id, from).
		Updates(map[string]any{
			"semester_date":           to,
			"next_last_semester_date": nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormScholarshipRepo) UpdateStatus(ctx context.Context, id string, status domain.ScholarshipStatus) error {
	result := r.db.WithContext(ctx).
		Model(&ScholarshipModel{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormScholarshipRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&ScholarshipModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
