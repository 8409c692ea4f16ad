package migrations

import (
	"github.com/Mliaj/scholarsphere-sub000/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createScholarshipsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_scholarships",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ScholarshipModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_scholarships_provider_id ON scholarships (provider_id)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_scholarships_code ON scholarships (code)`,
				`CREATE INDEX IF NOT EXISTS idx_scholarships_semester_date ON scholarships (semester_date) WHERE semester_date IS NOT NULL`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ScholarshipModel{})
		},
	}
}
