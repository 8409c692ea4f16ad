package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Mliaj/scholarsphere-sub000/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// openStatuses are the statuses of an application still in play: awaiting a
// decision or holding an award.
var openStatuses = []domain.ApplicationStatus{
	domain.ApplicationPending,
	domain.ApplicationApproved,
}

type ApplicationRepository interface {
	Create(ctx context.Context, app *domain.Application) error
	GetByID(ctx context.Context, id string) (*domain.Application, error)
	LockForReview(ctx context.Context, id string) (*domain.Application, error)
	GetOpenByStudentAndScholarship(ctx context.Context, studentID, scholarshipID string) (*domain.Application, error)
	ListActiveByStudent(ctx context.Context, studentID string) ([]domain.Application, error)
	ListActiveApprovedByScholarship(ctx context.Context, scholarshipID string) ([]domain.Application, error)
	FindOpenRenewalOf(ctx context.Context, originalID string) (*domain.Application, error)
	SetDecision(ctx context.Context, id string, status domain.ApplicationStatus, reviewerID string, reviewedAt time.Time, notes *string) error
	Withdraw(ctx context.Context, id string, at time.Time) error
	Archive(ctx context.Context, id string, at time.Time) error
	ArchiveFailedRenewal(ctx context.Context, id string, at time.Time) error
	ArchiveAllActiveByScholarship(ctx context.Context, scholarshipID string, at time.Time) (int64, error)
	DeleteByScholarship(ctx context.Context, scholarshipID string) error
}

type GormApplicationRepo struct {
	db *gorm.DB
}

func NewGormApplicationRepo(db *gorm.DB) *GormApplicationRepo {
	return &GormApplicationRepo{db: db}
}

func (r *GormApplicationRepo) Create(ctx context.Context, app *domain.Application) error {
	model := applicationModelFromDomain(app)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if app != nil {
		*app = *applicationModelToDomain(model)
	}
	return nil
}

func (r *GormApplicationRepo) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	var model ApplicationModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return applicationModelToDomain(&model), nil
}

func (r *GormApplicationRepo) LockForReview(ctx context.Context, id string) (*domain.Application, error) {
	var model ApplicationModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return applicationModelToDomain(&model), nil
}

func (r *GormApplicationRepo) GetOpenByStudentAndScholarship(ctx context.Context, studentID, scholarshipID string) (*domain.Application, error) {
	var model ApplicationModel
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND scholarship_id = ? AND active = ? AND status IN ?",
			studentID, scholarshipID, true, openStatuses).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return applicationModelToDomain(&model), nil
}

func (r *GormApplicationRepo) ListActiveByStudent(ctx context.Context, studentID string) ([]domain.Application, error) {
	var models []ApplicationModel
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND active = ?", studentID, true).
		Order("submitted_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	apps := make([]domain.Application, 0, len(models))
	for i := range models {
		apps = append(apps, *applicationModelToDomain(&models[i]))
	}

	return apps, nil
}

func (r *GormApplicationRepo) ListActiveApprovedByScholarship(ctx context.Context, scholarshipID string) ([]domain.Application, error) {
	var models []ApplicationModel
	err := r.db.WithContext(ctx).
		Where("scholarship_id = ? AND active = ? AND status = ?",
			scholarshipID, true, domain.ApplicationApproved).
		Order("submitted_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	apps := make([]domain.Application, 0, len(models))
	for i := range models {
		apps = append(apps, *applicationModelToDomain(&models[i]))
	}

	return apps, nil
}

func (r *GormApplicationRepo) FindOpenRenewalOf(ctx context.Context, originalID string) (*domain.Application, error) {
	var model ApplicationModel
	err := r.db.WithContext(ctx).
		Where("kind = ? AND renewal_of = ? AND active = ? AND status IN ?",
			domain.KindRenewal, originalID, true, openStatuses).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return applicationModelToDomain(&model), nil
}

func (r *GormApplicationRepo) SetDecision(ctx context.Context, id string, status domain.ApplicationStatus, reviewerID string, reviewedAt time.Time, notes *string) error {
	updates := map[string]any{
		"status":      status,
		"reviewed_by": reviewerID,
		"reviewed_at": reviewedAt,
	}
	if notes != nil {
		updates["notes"] = *notes
	}

	result := r.db.WithContext(ctx).
		Model(&ApplicationModel{}).
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

func (r *GormApplicationRepo) Withdraw(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&ApplicationModel{}).
		Where("id = ? AND status = ? AND active = ?", id, domain.ApplicationPending, true).
		Updates(map[string]any{
			"status":      domain.ApplicationWithdrawn,
			"active":      false,
			"reviewed_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormApplicationRepo) Archive(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&ApplicationModel{}).
		Where("id = ? AND active = ?", id, true).
		Updates(map[string]any{
			"status":      domain.ApplicationArchived,
			"active":      false,
			"reviewed_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormApplicationRepo) ArchiveFailedRenewal(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&ApplicationModel{}).
		Where("id = ? AND active = ?", id, true).
		Updates(map[string]any{
			"status":         domain.ApplicationArchived,
			"active":         false,
			"renewal_failed": true,
			"reviewed_at":    at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormApplicationRepo) ArchiveAllActiveByScholarship(ctx context.Context, scholarshipID string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&ApplicationModel{}).
		Where("scholarship_id = ? AND active = ?", scholarshipID, true).
		Updates(map[string]any{
			"status":      domain.ApplicationArchived,
			"active":      false,
			"reviewed_at": at,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *GormApplicationRepo) DeleteByScholarship(ctx context.Context, scholarshipID string) error {
	return r.db.WithContext(ctx).
		Where("scholarship_id = ?", scholarshipID).
		Delete(&ApplicationModel{}).Error
}
