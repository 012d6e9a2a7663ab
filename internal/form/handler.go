package form

import (
	"time"

	"github.com/formflow/platform/internal/database"
	"github.com/formflow/platform/internal/models"
	"github.com/formflow/platform/internal/response"
	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

type sectionInput struct {
	Title     string `json:"title"`
	SortOrder int    `json:"sort_order"`
	Fields    []struct {
		Name       string         `json:"name"`
		Code       string         `json:"code"`
		FieldType  string         `json:"field_type"`
		IsRequired bool           `json:"is_required"`
		SortOrder  int            `json:"sort_order"`
		Options    datatypes.JSON `json:"options"`
		Validation datatypes.JSON `json:"validation"`
		MetricID   *uint          `json:"metric_id"`
	} `json:"fields"`
}

func CreateTemplateHandler(c *fiber.Ctx) error {
	var body struct {
		Name        string         `json:"name"`
		Code        string         `json:"code"`
		Description string         `json:"description"`
		WorkflowID  *uint          `json:"workflow_id"`
		Sections    []sectionInput `json:"sections"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if body.Name == "" || body.Code == "" {
		return response.ValidationError(c, map[string]string{
			"name": "name is required",
			"code": "code is required",
		})
	}

	var existing models.FormTemplate
	if err := database.DB.Where("code = ?", body.Code).First(&existing).Error; err == nil {
		return response.Conflict(c, "Template with this code already exists")
	}

	if body.WorkflowID != nil {
		var wf models.WorkflowDefinition
		if err := database.DB.First(&wf, *body.WorkflowID).Error; err != nil {
			return response.NotFound(c, "Workflow")
		}
	}

	userID := c.Locals("user_id").(uint)

	template := models.FormTemplate{
		Name:          body.Name,
		Code:          body.Code,
		Description:   body.Description,
		PublishStatus: models.PublishDraft,
		WorkflowID:    body.WorkflowID,
		CreatedBy:     userID,
	}

	for _, s := range body.Sections {
		section := models.FormSection{
			Title:     s.Title,
			SortOrder: s.SortOrder,
		}
		for _, f := range s.Fields {
			section.Fields = append(section.Fields, models.FormField{
				Name:       f.Name,
				Code:       f.Code,
				FieldType:  f.FieldType,
				IsRequired: f.IsRequired,
				SortOrder:  f.SortOrder,
				Options:    f.Options,
				Validation: f.Validation,
				MetricID:   f.MetricID,
			})
		}
		template.Sections = append(template.Sections, section)
	}

	if err := CreateTemplate(database.DB, &template); err != nil {
		return response.BadRequest(c, "Failed to create template", err.Error())
	}

	database.DB.Preload("Sections.Fields").First(&template, template.ID)

	return response.Created(c, template, "Template created successfully")
}

func ListTemplatesHandler(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	query := database.DB.Model(&models.FormTemplate{})

	if status := c.Query("status"); status != "" {
		query = query.Where("publish_status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalError(c, "Failed to count templates")
	}

	var templates []models.FormTemplate
	if err := query.Preload("Sections.Fields").
		Offset((page - 1) * limit).Limit(limit).
		Order("created_at DESC").
		Find(&templates).Error; err != nil {
		return response.InternalError(c, "Failed to fetch templates")
	}

	meta := response.CalculateMeta(page, limit, total)
	return response.SuccessWithMeta(c, templates, meta, "Templates retrieved successfully")
}

func GetTemplateHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid template ID", nil)
	}

	var template models.FormTemplate
	if err := database.DB.Preload("Sections.Fields").Preload("Workflow.Steps").First(&template, id).Error; err != nil {
		return response.NotFound(c, "Template")
	}

	return response.Success(c, template, "Template retrieved successfully")
}

func UpdateTemplateHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid template ID", nil)
	}

	var template models.FormTemplate
	if err := database.DB.First(&template, id).Error; err != nil {
		return response.NotFound(c, "Template")
	}

	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		WorkflowID  *uint  `json:"workflow_id"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	// Published templates keep their structure; only the workflow binding
	// and description may change.
	if template.PublishStatus == models.PublishDraft && body.Name != "" {
		template.Name = Sanitize(body.Name)
	}
	if body.Description != "" {
		template.Description = Sanitize(body.Description)
	}
	if body.WorkflowID != nil {
		var wf models.WorkflowDefinition
		if err := database.DB.First(&wf, *body.WorkflowID).Error; err != nil {
			return response.NotFound(c, "Workflow")
		}
		template.WorkflowID = body.WorkflowID
	}

	if err := database.DB.Save(&template).Error; err != nil {
		return response.InternalError(c, "Failed to update template")
	}

	return response.Success(c, template, "Template updated successfully")
}

func PublishTemplateHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid template ID", nil)
	}

	var template models.FormTemplate
	if err := database.DB.Preload("Sections.Fields").First(&template, id).Error; err != nil {
		return response.NotFound(c, "Template")
	}

	if template.PublishStatus == models.PublishPublished {
		return response.Conflict(c, "Template is already published")
	}

	fieldCount := 0
	for _, s := range template.Sections {
		fieldCount += len(s.Fields)
	}
	if fieldCount == 0 {
		return response.UnprocessableEntity(c, "INVALID_TEMPLATE", "Cannot publish a template with no fields")
	}

	template.PublishStatus = models.PublishPublished
	if err := database.DB.Save(&template).Error; err != nil {
		return response.InternalError(c, "Failed to publish template")
	}

	return response.Success(c, template, "Template published successfully")
}

func ArchiveTemplateHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid template ID", nil)
	}

	var template models.FormTemplate
	if err := database.DB.First(&template, id).Error; err != nil {
		return response.NotFound(c, "Template")
	}

	template.PublishStatus = models.PublishArchived
	if err := database.DB.Save(&template).Error; err != nil {
		return response.InternalError(c, "Failed to archive template")
	}

	return response.Success(c, template, "Template archived successfully")
}

func DeleteTemplateHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid template ID", nil)
	}

	var template models.FormTemplate
	if err := database.DB.First(&template, id).Error; err != nil {
		return response.NotFound(c, "Template")
	}

	var submissionCount int64
	if err := database.DB.Model(&models.FormTemplateSubmission{}).Where("template_id = ?", id).Count(&submissionCount).Error; err != nil {
		return response.InternalError(c, "Failed to check template usage")
	}

	// Templates with submissions are archived rather than removed so
	// history stays resolvable.
	if submissionCount > 0 {
		template.PublishStatus = models.PublishArchived
		if err := database.DB.Save(&template).Error; err != nil {
			return response.InternalError(c, "Failed to archive template")
		}
		return response.Success(c, template, "Template has submissions; archived instead of deleted")
	}

	if err := database.DB.Delete(&template).Error; err != nil {
		return response.InternalError(c, "Failed to delete template")
	}

	return response.NoContent(c)
}

func AssignTemplateHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid template ID", nil)
	}

	var body struct {
		TargetType string     `json:"target_type"`
		TargetID   uint       `json:"target_id"`
		DueDate    *time.Time `json:"due_date"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	var template models.FormTemplate
	if err := database.DB.First(&template, id).Error; err != nil {
		return response.NotFound(c, "Template")
	}

	if template.PublishStatus != models.PublishPublished {
		return response.UnprocessableEntity(c, "TEMPLATE_NOT_PUBLISHED", "Only published templates can be assigned")
	}

	switch body.TargetType {
	case "tenant":
		var tenant models.Tenant
		if err := database.DB.First(&tenant, body.TargetID).Error; err != nil {
			return response.NotFound(c, "Tenant")
		}
	case "department":
		var dept models.Department
		if err := database.DB.First(&dept, body.TargetID).Error; err != nil {
			return response.NotFound(c, "Department")
		}
	case "user":
		var user models.User
		if err := database.DB.First(&user, body.TargetID).Error; err != nil {
			return response.NotFound(c, "User")
		}
	default:
		return response.ValidationError(c, map[string]string{
			"target_type": "target_type must be 'tenant', 'department', or 'user'",
		})
	}

	userID := c.Locals("user_id").(uint)

	assignment := models.FormTemplateAssignment{
		TemplateID: template.ID,
		TargetType: body.TargetType,
		TargetID:   body.TargetID,
		AssignedBy: userID,
		DueDate:    body.DueDate,
	}

	if err := database.DB.Create(&assignment).Error; err != nil {
		return response.InternalError(c, "Failed to assign template")
	}

	return response.Created(c, assignment, "Template assigned successfully")
}

func ListAssignmentsHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid template ID", nil)
	}

	var assignments []models.FormTemplateAssignment
	if err := database.DB.Where("template_id = ?", id).Find(&assignments).Error; err != nil {
		return response.InternalError(c, "Failed to fetch assignments")
	}

	return response.Success(c, assignments, "Assignments retrieved successfully")
}
