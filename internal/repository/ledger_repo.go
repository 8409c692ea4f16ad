package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/Mliaj/scholarsphere-sub000/internal/domain"
	"gorm.io/gorm"
)

// NoticeLedger is the append-only dedup store for semester notices. Record
// relies on the storage-level unique constraint, not a check-then-insert, so
// it stays correct under concurrent sweeps.
type NoticeLedger interface {
	Record(ctx context.Context, n *domain.SemesterNotice) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]domain.SemesterNotice, error)
	DeleteByScholarship(ctx context.Context, scholarshipID string) error
}

type GormNoticeLedger struct {
	db *gorm.DB
}

func NewGormNoticeLedger(db *gorm.DB) *GormNoticeLedger {
	return &GormNoticeLedger{db: db}
}

// Record inserts one ledger row. It returns false with no error when an entry
// with the same (scholarship, user, type, semester date) already exists.
func (r *GormNoticeLedger) Record(ctx context.Context, n *domain.SemesterNotice) (bool, error) {
	model := semesterNoticeModelFromDomain(n)
	err := r.db.WithContext(ctx).Create(model).Error
	if isUniqueViolationError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if n != nil {
		*n = *semesterNoticeModelToDomain(model)
	}
	return true, nil
}

func (r *GormNoticeLedger) ListByUser(ctx context.Context, userID string) ([]domain.SemesterNotice, error) {
	var models []SemesterNoticeModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("sent_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	notices := make([]domain.SemesterNotice, 0, len(models))
	for i := range models {
		notices = append(notices, *semesterNoticeModelToDomain(&models[i]))
	}

	return notices, nil
}

func (r *GormNoticeLedger) DeleteByScholarship(ctx context.Context, scholarshipID string) error {
	return r.db.WithContext(ctx).
		Where("scholarship_id = ?", scholarshipID).
		Delete(&SemesterNoticeModel{}).Error
}

func isUniqueViolationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
