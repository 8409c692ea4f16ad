package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories that participate in one unit of work.
// WithinTx runs fn against a Store whose repositories all share a single
// database transaction; returning an error rolls the whole unit back.
type Store interface {
	Applications() ApplicationRepository
	Scholarships() ScholarshipRepository
	Notices() NoticeLedger
	Notifications() NotificationRepository
	WithinTx(ctx context.Context, fn func(Store) error) error
}

type GormStore struct {
	db            *gorm.DB
	applications  *GormApplicationRepo
	scholarships  *GormScholarshipRepo
	notices       *GormNoticeLedger
	notifications *GormNotificationRepo
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:            db,
		applications:  NewGormApplicationRepo(db),
		scholarships:  NewGormScholarshipRepo(db),
		notices:       NewGormNoticeLedger(db),
		notifications: NewGormNotificationRepo(db),
	}
}

func (s *GormStore) Applications() ApplicationRepository   { return s.applications }
func (s *GormStore) Scholarships() ScholarshipRepository   { return s.scholarships }
func (s *GormStore) Notices() NoticeLedger                 { return s.notices }
func (s *GormStore) Notifications() NotificationRepository { return s.notifications }

func (s *GormStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormStore(tx))
	})
}
