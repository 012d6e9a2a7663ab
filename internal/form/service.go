package form

import (
	"fmt"

	"github.com/formflow/platform/internal/models"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

var sanitizer = bluemonday.StrictPolicy()

// Sanitize strips any markup from user-supplied text.
func Sanitize(s string) string {
	return sanitizer.Sanitize(s)
}

type FieldInput struct {
	Name       string `json:"name"`
	Code       string `json:"code"`
	FieldType  string `json:"field_type"`
	IsRequired bool   `json:"is_required"`
	SortOrder  int    `json:"sort_order"`
	Options    []byte `json:"options,omitempty"`
	MetricID   *uint  `json:"metric_id,omitempty"`
}

var validFieldTypes = map[string]bool{
	"text":      true,
	"textarea":  true,
	"number":    true,
	"date":      true,
	"select":    true,
	"checkbox":  true,
	"user":      true,
	"signature": true,
	"file":      true,
}

func ValidateFieldType(fieldType string) error {
	if !validFieldTypes[fieldType] {
		return fmt.Errorf("unknown field type: %s", fieldType)
	}
	return nil
}

// CreateTemplate persists a template with its nested sections and fields
// in one transaction.
func CreateTemplate(db *gorm.DB, template *models.FormTemplate) error {
	return db.Transaction(func(tx *gorm.DB) error {
		template.Name = Sanitize(template.Name)
		template.Description = Sanitize(template.Description)
		for i := range template.Sections {
			template.Sections[i].Title = Sanitize(template.Sections[i].Title)
			for j := range template.Sections[i].Fields {
				f := &template.Sections[i].Fields[j]
				f.Name = Sanitize(f.Name)
				if err := ValidateFieldType(f.FieldType); err != nil {
					return err
				}
			}
		}
		return tx.Create(template).Error
	})
}

// FieldByID loads a field and verifies it belongs to the template.
func FieldByID(db *gorm.DB, templateID, fieldID uint) (*models.FormField, error) {
	var field models.FormField
	err := db.Joins("JOIN form_sections ON form_sections.id = form_fields.section_id").
		Where("form_fields.id = ? AND form_sections.template_id = ?", fieldID, templateID).
		First(&field).Error
	if err != nil {
		return nil, err
	}
	return &field, nil
}

// TemplateFieldIDs returns the IDs of every field on a template.
func TemplateFieldIDs(db *gorm.DB, templateID uint) (map[uint]models.FormField, error) {
	var fields []models.FormField
	err := db.Joins("JOIN form_sections ON form_sections.id = form_fields.section_id").
		Where("form_sections.template_id = ?", templateID).
		Find(&fields).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]models.FormField, len(fields))
	for _, f := range fields {
		byID[f.ID] = f
	}
	return byID, nil
}
