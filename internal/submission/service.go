package submission

import (
	"fmt"

	"github.com/formflow/platform/internal/form"
	"github.com/formflow/platform/internal/models"
	"gorm.io/gorm"
)

type ResponseInput struct {
	FieldID      uint     `json:"field_id"`
	TextValue    string   `json:"text_value"`
	NumericValue *float64 `json:"numeric_value"`
}

// ValidateResponses checks every response against the template's fields
// and that every required field has a value.
func ValidateResponses(db *gorm.DB, templateID uint, responses []ResponseInput) (map[string]string, error) {
	fields, err := form.TemplateFieldIDs(db, templateID)
	if err != nil {
		return nil, err
	}

	problems := make(map[string]string)
	answered := make(map[uint]bool)

	for _, r := range responses {
		field, ok := fields[r.FieldID]
		if !ok {
			problems[fmt.Sprintf("field_%d", r.FieldID)] = "field does not belong to this template"
			continue
		}
		if r.TextValue != "" || r.NumericValue != nil {
			answered[field.ID] = true
		}
		if field.FieldType == "number" && r.NumericValue == nil && r.TextValue != "" {
			problems[field.Code] = "numeric field requires numeric_value"
		}
	}

	for id, field := range fields {
		if field.IsRequired && !answered[id] {
			problems[field.Code] = "field is required"
		}
	}

	if len(problems) == 0 {
		return nil, nil
	}
	return problems, nil
}

// SaveResponses replaces a draft submission's responses.
func SaveResponses(db *gorm.DB, submissionID uint, responses []ResponseInput) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("submission_id = ?", submissionID).Delete(&models.FormResponse{}).Error; err != nil {
			return err
		}
		for _, r := range responses {
			row := models.FormResponse{
				SubmissionID: submissionID,
				FieldID:      r.FieldID,
				TextValue:    form.Sanitize(r.TextValue),
				NumericValue: r.NumericValue,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
