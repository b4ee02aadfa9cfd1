package gorm

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: capture log table
		{
			ID: "001_captures",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&Capture{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("captures")
			},
		},
	})

	return m.Migrate()
}
