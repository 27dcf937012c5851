package database

import (
	"gorm.io/gorm"

	"github.com/avellaud/pictobank/internal/models"
)

// GlobalRootPath is the fixed mirror segment that holds unowned content.
const GlobalRootPath = "public"

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Folder{},
		&models.Pictogram{},
		&models.Artifact{},
	)
}

// SeedData provisions the global root folder. Idempotent: the root is matched
// on its NULL owner and NULL parent, never duplicated.
func SeedData(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Folder{}).
		Where("owner_user_id IS NULL AND parent_id IS NULL").
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	root := models.Folder{
		Name: GlobalRootPath,
		Path: GlobalRootPath,
	}
	return db.Create(&root).Error
}
