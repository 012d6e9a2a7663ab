package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification is an in-app message telling a user a workflow touched
// them: a step landed on their queue, a step was delegated to them, or a
// submission they filed was decided.
type Notification struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"index" json:"user_id"`
	Kind         string         `gorm:"size:40" json:"kind"`
	Message      string         `gorm:"size:500" json:"message"`
	SubmissionID uint           `gorm:"index" json:"submission_id"`
	StepID       *uint          `json:"step_id,omitempty"`
	IsRead       bool           `gorm:"default:false;index" json:"is_read"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
