package models

import (
	"time"

	"gorm.io/gorm"
)

type MetricDefinition struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"size:100" json:"name"`
	Code        string         `gorm:"size:50;uniqueIndex" json:"code"`
	Unit        string         `gorm:"size:20" json:"unit"`
	Description string         `gorm:"type:text" json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// MetricValue is a data point captured from an approved submission's
// metric-linked field responses.
type MetricValue struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	MetricID     uint              `gorm:"index" json:"metric_id"`
	Metric       *MetricDefinition `gorm:"foreignKey:MetricID" json:"metric,omitempty"`
	TenantID     uint              `gorm:"index" json:"tenant_id"`
	SubmissionID uint              `gorm:"index" json:"submission_id"`
	Value        float64           `json:"value"`
	RecordedAt   time.Time         `json:"recorded_at"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	DeletedAt    gorm.DeletedAt    `gorm:"index" json:"-"`
}
