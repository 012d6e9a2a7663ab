package database

import (
	"fmt"
	"log"

	"github.com/formflow/platform/internal/config"
	"github.com/formflow/platform/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	DB = db

	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Tenant{},
		&models.Department{},
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.ResetToken{},
		&models.RefreshToken{},
		&models.MetricDefinition{},
		&models.MetricValue{},
		&models.FormTemplate{},
		&models.FormSection{},
		&models.FormField{},
		&models.FormTemplateAssignment{},
		&models.FormTemplateSubmission{},
		&models.FormResponse{},
		&models.WorkflowDefinition{},
		&models.WorkflowStep{},
		&models.WorkflowAction{},
		&models.SubmissionWorkflowProgress{},
		&models.Notification{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database: ", err)
	}
	log.Println("Database migrated successfully!")
	return nil
}
