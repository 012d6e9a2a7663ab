package submission

import (
	"time"

	"github.com/formflow/platform/internal/database"
	"github.com/formflow/platform/internal/engine"
	"github.com/formflow/platform/internal/metrics"
	"github.com/formflow/platform/internal/models"
	"github.com/formflow/platform/internal/response"
	"github.com/gofiber/fiber/v2"
)

func CreateSubmissionHandler(c *fiber.Ctx) error {
	var body struct {
		TemplateID uint            `json:"template_id"`
		Responses  []ResponseInput `json:"responses"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if body.TemplateID == 0 {
		return response.ValidationError(c, map[string]string{
			"template_id": "template_id is required",
		})
	}

	var template models.FormTemplate
	if err := database.DB.First(&template, body.TemplateID).Error; err != nil {
		return response.NotFound(c, "Template")
	}

	if template.PublishStatus != models.PublishPublished {
		return response.UnprocessableEntity(c, "TEMPLATE_NOT_PUBLISHED", "Cannot submit against an unpublished template")
	}

	userID := c.Locals("user_id").(uint)
	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return response.Unauthorized(c, "User not found")
	}

	sub := models.FormTemplateSubmission{
		TemplateID:  template.ID,
		SubmittedBy: userID,
		TenantID:    user.TenantID,
		Status:      models.SubmissionDraft,
	}

	if err := database.DB.Create(&sub).Error; err != nil {
		return response.InternalError(c, "Failed to create submission")
	}

	if len(body.Responses) > 0 {
		if err := SaveResponses(database.DB, sub.ID, body.Responses); err != nil {
			return response.BadRequest(c, "Failed to save responses", err.Error())
		}
	}

	database.DB.Preload("Responses").First(&sub, sub.ID)

	return response.Created(c, sub, "Submission created successfully")
}

func UpdateSubmissionHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid submission ID", nil)
	}

	var sub models.FormTemplateSubmission
	if err := database.DB.First(&sub, id).Error; err != nil {
		return response.NotFound(c, "Submission")
	}

	if sub.Status != models.SubmissionDraft {
		return response.Conflict(c, "Only draft submissions can be edited")
	}

	userID := c.Locals("user_id").(uint)
	if sub.SubmittedBy != userID {
		return response.Forbidden(c, "Only the submitter can edit this submission")
	}

	var body struct {
		Responses []ResponseInput `json:"responses"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if err := SaveResponses(database.DB, sub.ID, body.Responses); err != nil {
		return response.BadRequest(c, "Failed to save responses", err.Error())
	}

	database.DB.Preload("Responses").First(&sub, sub.ID)

	return response.Success(c, sub, "Submission updated successfully")
}

// SubmitHandler finalizes a draft: responses are validated, the status
// moves to Submitted, and the template's workflow run is created. A
// template without a workflow approves immediately.
func SubmitHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid submission ID", nil)
	}

	var sub models.FormTemplateSubmission
	if err := database.DB.Preload("Template").Preload("Responses").First(&sub, id).Error; err != nil {
		return response.NotFound(c, "Submission")
	}

	if sub.Status != models.SubmissionDraft {
		return response.Conflict(c, "Submission has already been submitted")
	}

	userID := c.Locals("user_id").(uint)
	if sub.SubmittedBy != userID {
		return response.Forbidden(c, "Only the submitter can submit this submission")
	}

	inputs := make([]ResponseInput, 0, len(sub.Responses))
	for _, r := range sub.Responses {
		inputs = append(inputs, ResponseInput{
			FieldID:      r.FieldID,
			TextValue:    r.TextValue,
			NumericValue: r.NumericValue,
		})
	}

	problems, err := ValidateResponses(database.DB, sub.TemplateID, inputs)
	if err != nil {
		return response.InternalError(c, "Failed to validate responses")
	}
	if problems != nil {
		return response.ValidationError(c, problems)
	}

	now := time.Now()
	sub.Status = models.SubmissionSubmitted
	sub.SubmittedDate = &now
	if err := database.DB.Save(&sub).Error; err != nil {
		return response.InternalError(c, "Failed to submit")
	}

	if sub.Template != nil && sub.Template.WorkflowID != nil {
		if err := engine.Default().Initialize(sub.ID); err != nil {
			return response.UnprocessableEntity(c, "WORKFLOW_INIT_FAILED", err.Error())
		}
	} else {
		sub.Status = models.SubmissionApproved
		if err := database.DB.Save(&sub).Error; err != nil {
			return response.InternalError(c, "Failed to finalize submission")
		}
		if err := metrics.CaptureFromSubmission(database.DB, sub.ID); err != nil {
			return response.InternalError(c, "Failed to capture metrics")
		}
	}

	database.DB.Preload("Responses").First(&sub, sub.ID)

	return response.Success(c, sub, "Submission submitted successfully")
}

func GetSubmissionHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid submission ID", nil)
	}

	var sub models.FormTemplateSubmission
	err = database.DB.Preload("Template").Preload("Responses.Field").Preload("Submitter").First(&sub, id).Error
	if err != nil {
		return response.NotFound(c, "Submission")
	}

	if sub.Submitter != nil {
		sub.Submitter.Password = ""
	}

	return response.Success(c, sub, "Submission retrieved successfully")
}

func ListSubmissionsHandler(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	query := database.DB.Model(&models.FormTemplateSubmission{})

	if templateID := c.QueryInt("template_id"); templateID > 0 {
		query = query.Where("template_id = ?", templateID)
	}
	if tenantID := c.QueryInt("tenant_id"); tenantID > 0 {
		query = query.Where("tenant_id = ?", tenantID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if mine := c.Query("mine"); mine == "true" {
		query = query.Where("submitted_by = ?", c.Locals("user_id").(uint))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalError(c, "Failed to count submissions")
	}

	var subs []models.FormTemplateSubmission
	if err := query.Preload("Template").
		Offset((page - 1) * limit).Limit(limit).
		Order("created_at DESC").
		Find(&subs).Error; err != nil {
		return response.InternalError(c, "Failed to fetch submissions")
	}

	meta := response.CalculateMeta(page, limit, total)
	return response.SuccessWithMeta(c, subs, meta, "Submissions retrieved successfully")
}

func DeleteSubmissionHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid submission ID", nil)
	}

	var sub models.FormTemplateSubmission
	if err := database.DB.First(&sub, id).Error; err != nil {
		return response.NotFound(c, "Submission")
	}

	if sub.Status != models.SubmissionDraft {
		return response.Conflict(c, "Only draft submissions can be deleted")
	}

	userID := c.Locals("user_id").(uint)
	if sub.SubmittedBy != userID {
		return response.Forbidden(c, "Only the submitter can delete this submission")
	}

	if err := database.DB.Delete(&sub).Error; err != nil {
		return response.InternalError(c, "Failed to delete submission")
	}

	return response.NoContent(c)
}
