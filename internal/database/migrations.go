package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gorm.io/gorm"
)

type Migration struct {
	ID        uint   `gorm:"primaryKey"`
	Version   string `gorm:"uniqueIndex;size:255"`
	AppliedAt string
}

// RunMigrations applies any *.sql files under ./migrations that have not
// been recorded yet. AutoMigrate handles the schema; these cover data
// backfills and index tweaks that GORM cannot express.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&Migration{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %v", err)
	}

	files, err := filepath.Glob(filepath.Join("./migrations", "*.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %v", err)
	}

	for _, file := range files {
		filename := filepath.Base(file)

		var applied Migration
		if err := db.Where("version = ?", filename).First(&applied).Error; err == nil {
			log.Printf("⏭️  Skipping migration: %s (already applied)", filename)
			continue
		}

		sqlContent, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %v", filename, err)
		}

		log.Printf("▶️  Applying migration: %s", filename)
		if err := db.Exec(string(sqlContent)).Error; err != nil {
			return fmt.Errorf("failed to execute migration %s: %v", filename, err)
		}

		record := Migration{
			Version:   filename,
			AppliedAt: fmt.Sprintf("%v", db.NowFunc()),
		}
		if err := db.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to record migration %s: %v", filename, err)
		}

		log.Printf("✅ Applied migration: %s", filename)
	}

	log.Println("🎉 All migrations completed successfully")
	return nil
}
