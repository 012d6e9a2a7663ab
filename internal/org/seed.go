package org

import (
	"github.com/formflow/platform/internal/models"
	"gorm.io/gorm"
)

// SeedDefaultTenant creates a starter tenant so a fresh install has
// somewhere to register users into. Skipped once any tenant exists.
func SeedDefaultTenant(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Tenant{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tenant := models.Tenant{Name: "Default Organization", Code: "DEFAULT", IsActive: true}
	return db.Create(&tenant).Error
}
