package models

import (
	"time"

	"gorm.io/gorm"
)

type SubmissionStatus string

const (
	SubmissionDraft      SubmissionStatus = "Draft"
	SubmissionSubmitted  SubmissionStatus = "Submitted"
	SubmissionInApproval SubmissionStatus = "InApproval"
	SubmissionApproved   SubmissionStatus = "Approved"
	SubmissionRejected   SubmissionStatus = "Rejected"
)

type FormTemplateSubmission struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	TemplateID    uint             `gorm:"index" json:"template_id"`
	Template      *FormTemplate    `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	SubmittedBy   uint             `gorm:"index" json:"submitted_by"`
	Submitter     *User            `gorm:"foreignKey:SubmittedBy" json:"submitter,omitempty"`
	TenantID      uint             `gorm:"index" json:"tenant_id"`
	Status        SubmissionStatus `gorm:"size:20;default:'Draft';index" json:"status"`
	SubmittedDate *time.Time       `json:"submitted_date,omitempty"`
	Responses     []FormResponse   `gorm:"foreignKey:SubmissionID" json:"responses,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	DeletedAt     gorm.DeletedAt   `gorm:"index" json:"-"`
}

type FormResponse struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	SubmissionID uint           `gorm:"index:idx_submission_field,unique" json:"submission_id"`
	FieldID      uint           `gorm:"index:idx_submission_field,unique" json:"field_id"`
	Field        *FormField     `gorm:"foreignKey:FieldID" json:"field,omitempty"`
	TextValue    string         `gorm:"type:text" json:"text_value,omitempty"`
	NumericValue *float64       `json:"numeric_value,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
