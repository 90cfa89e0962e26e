package database

import (
	"fmt"

	"gorm.io/gorm"

	"vibebros/models"
)

// RunMigrations creates or updates the analytics tables.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.PostView{}); err != nil {
		return fmt.Errorf("migrate post views: %w", err)
	}
	return nil
}
