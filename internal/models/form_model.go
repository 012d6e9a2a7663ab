package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PublishDraft     = "draft"
	PublishPublished = "published"
	PublishArchived  = "archived"
)

type FormTemplate struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	Name          string              `gorm:"size:150" json:"name"`
	Code          string              `gorm:"size:50;uniqueIndex" json:"code"`
	Description   string              `gorm:"type:text" json:"description"`
	PublishStatus string              `gorm:"size:20;default:'draft'" json:"publish_status"`
	WorkflowID    *uint               `gorm:"index" json:"workflow_id,omitempty"`
	Workflow      *WorkflowDefinition `gorm:"foreignKey:WorkflowID" json:"workflow,omitempty"`
	CreatedBy     uint                `json:"created_by"`
	Creator       *User               `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Sections      []FormSection       `gorm:"foreignKey:TemplateID" json:"sections,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	DeletedAt     gorm.DeletedAt      `gorm:"index" json:"-"`
}

type FormSection struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	TemplateID uint           `gorm:"index" json:"template_id"`
	Title      string         `gorm:"size:150" json:"title"`
	SortOrder  int            `json:"sort_order"`
	Fields     []FormField    `gorm:"foreignKey:SectionID" json:"fields,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

type FormField struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	SectionID  uint           `gorm:"index" json:"section_id"`
	Name       string         `gorm:"size:100" json:"name"`
	Code       string         `gorm:"size:50" json:"code"`
	FieldType  string         `gorm:"size:50" json:"field_type"` // text, number, date, select, user, signature
	IsRequired bool           `json:"is_required"`
	SortOrder  int            `json:"sort_order"`
	Options    datatypes.JSON `json:"options,omitempty"`    // select choices
	Validation datatypes.JSON `json:"validation,omitempty"` // min/max/pattern rules, evaluated client-side
	MetricID   *uint          `gorm:"index" json:"metric_id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

type FormTemplateAssignment struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	TemplateID uint           `gorm:"index" json:"template_id"`
	Template   *FormTemplate  `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	TargetType string         `gorm:"size:20" json:"target_type"` // tenant, department, user
	TargetID   uint           `json:"target_id"`
	AssignedBy uint           `json:"assigned_by"`
	DueDate    *time.Time     `json:"due_date,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
