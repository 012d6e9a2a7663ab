package metrics

import (
	"time"

	"github.com/formflow/platform/internal/models"
	"gorm.io/gorm"
)

// CaptureFromSubmission records a metric value for every numeric response
// whose field is linked to a metric definition. Called once when a
// submission's workflow completes; re-capture for the same submission is
// a no-op.
func CaptureFromSubmission(db *gorm.DB, submissionID uint) error {
	var existing int64
	if err := db.Model(&models.MetricValue{}).
		Where("submission_id = ?", submissionID).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	var submission models.FormTemplateSubmission
	if err := db.Preload("Responses.Field").First(&submission, submissionID).Error; err != nil {
		return err
	}

	now := time.Now()
	return db.Transaction(func(tx *gorm.DB) error {
		for _, resp := range submission.Responses {
			if resp.Field == nil || resp.Field.MetricID == nil || resp.NumericValue == nil {
				continue
			}
			value := models.MetricValue{
				MetricID:     *resp.Field.MetricID,
				TenantID:     submission.TenantID,
				SubmissionID: submission.ID,
				Value:        *resp.NumericValue,
				RecordedAt:   now,
			}
			if err := tx.Create(&value).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Summary aggregates a metric's captured values for a tenant.
type Summary struct {
	MetricID uint    `json:"metric_id"`
	Count    int64   `json:"count"`
	Sum      float64 `json:"sum"`
	Avg      float64 `json:"avg"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

func Summarize(db *gorm.DB, metricID uint, tenantID uint) (*Summary, error) {
	var s Summary
	query := db.Model(&models.MetricValue{}).
		Select("COUNT(*) as count, COALESCE(SUM(value),0) as sum, COALESCE(AVG(value),0) as avg, COALESCE(MIN(value),0) as min, COALESCE(MAX(value),0) as max").
		Where("metric_id = ?", metricID)
	if tenantID != 0 {
		query = query.Where("tenant_id = ?", tenantID)
	}
	if err := query.Scan(&s).Error; err != nil {
		return nil, err
	}
	s.MetricID = metricID
	return &s, nil
}
