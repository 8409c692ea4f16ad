package migrations

import (
	"github.com/Mliaj/scholarsphere-sub000/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createApplicationsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_applications",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ApplicationModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_applications_student_active ON applications (student_id) WHERE active`,
				`CREATE INDEX IF NOT EXISTS idx_applications_scholarship_status ON applications (scholarship_id, status) WHERE active`,
				`CREATE INDEX IF NOT EXISTS idx_applications_renewal_of ON applications (renewal_of) WHERE renewal_of IS NOT NULL`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ApplicationModel{})
		},
	}
}
