package migrations

import (
	"github.com/Mliaj/scholarsphere-sub000/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createSemesterNoticesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_semester_notices",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.SemesterNoticeModel{}); err != nil {
				return err
			}
			// The dedup key. At-most-once delivery under concurrent
			// sweeps rests on this constraint, not on application code.
			return tx.Exec(
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_semester_notices_dedup ON semester_notices (scholarship_id, user_id, notice_type, semester_date)`,
			).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.SemesterNoticeModel{})
		},
	}
}
