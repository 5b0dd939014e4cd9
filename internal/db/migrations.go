package db

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
)

// Migrate applies the schema migrations in order. IDs are append-only.
func Migrate(gdb *gorm.DB) error {
	m := gormigrate.New(gdb, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "20260901_create_workflow_tables",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
					return err
				}
				return tx.AutoMigrate(
					&models.Project{},
					&models.ProjectStatusHistory{},
					&models.Communication{},
					&models.WorkRecord{},
					&models.WorkUpdate{},
				)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					&models.WorkUpdate{}, &models.WorkRecord{},
					&models.Communication{}, &models.ProjectStatusHistory{}, &models.Project{},
				)
			},
		},
		{
			ID: "20260915_add_reviews_and_ledger",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.StudentReview{}, &models.StudentPerformance{}, &models.EarningLedgerEntry{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&models.EarningLedgerEntry{}, &models.StudentPerformance{}, &models.StudentReview{})
			},
		},
	})
	return m.Migrate()
}
