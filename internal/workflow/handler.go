package workflow

import (
	"github.com/formflow/platform/internal/database"
	"github.com/formflow/platform/internal/models"
	"github.com/formflow/platform/internal/response"
	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type stepInput struct {
	ID               uint                  `json:"id"`
	Name             string                `json:"name"`
	StepOrder        int                   `json:"step_order"`
	ActionID         uint                  `json:"action_id"`
	TargetType       models.StepTargetType `json:"target_type"`
	TargetID         *uint                 `json:"target_id"`
	AssigneeType     models.AssigneeType   `json:"assignee_type"`
	AssigneeRoleID   *uint                 `json:"assignee_role_id"`
	AssigneeUserID   *uint                 `json:"assignee_user_id"`
	AssigneeFieldID  *uint                 `json:"assignee_field_id"`
	AssigneeDeptID   *uint                 `json:"assignee_department_id"`
	IsParallel       bool                  `json:"is_parallel"`
	IsMandatory      *bool                 `json:"is_mandatory"`
	DependsOnStepIDs datatypes.JSON        `json:"depends_on_step_ids"`
	DueDays          *int                  `json:"due_days"`
	EscalationRoleID *uint                 `json:"escalation_role_id"`
	AutoApproveRule  datatypes.JSON        `json:"auto_approve_rule"`
}

func (s stepInput) toModel(workflowID uint) models.WorkflowStep {
	mandatory := true
	if s.IsMandatory != nil {
		mandatory = *s.IsMandatory
	}
	targetType := s.TargetType
	if targetType == "" {
		targetType = models.TargetSubmission
	}
	return models.WorkflowStep{
		ID:               s.ID,
		WorkflowID:       workflowID,
		Name:             s.Name,
		StepOrder:        s.StepOrder,
		ActionID:         s.ActionID,
		TargetType:       targetType,
		TargetID:         s.TargetID,
		AssigneeType:     s.AssigneeType,
		AssigneeRoleID:   s.AssigneeRoleID,
		AssigneeUserID:   s.AssigneeUserID,
		AssigneeFieldID:  s.AssigneeFieldID,
		AssigneeDeptID:   s.AssigneeDeptID,
		IsParallel:       s.IsParallel,
		IsMandatory:      mandatory,
		DependsOnStepIDs: s.DependsOnStepIDs,
		DueDays:          s.DueDays,
		EscalationRoleID: s.EscalationRoleID,
		AutoApproveRule:  s.AutoApproveRule,
	}
}

func CreateWorkflowHandler(c *fiber.Ctx) error {
	var body struct {
		Name        string      `json:"name"`
		Description string      `json:"description"`
		Steps       []stepInput `json:"steps"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if body.Name == "" {
		return response.ValidationError(c, map[string]string{
			"name": "name is required",
		})
	}

	steps := make([]models.WorkflowStep, 0, len(body.Steps))
	for _, s := range body.Steps {
		step := s.toModel(0)
		step.ID = 0
		steps = append(steps, step)
	}

	// Dependencies on create reference sibling positions rather than IDs,
	// so only per-step configuration is validated here; the validate
	// endpoint covers the full graph once IDs exist.
	for i := range steps {
		if err := validateAssigneeConfig(&steps[i]); err != nil {
			return response.ValidationError(c, map[string]string{steps[i].Name: err.Error()})
		}
		if err := validateActionTarget(&steps[i]); err != nil {
			return response.ValidationError(c, map[string]string{steps[i].Name: err.Error()})
		}
	}
	if len(steps) == 0 {
		return response.ValidationError(c, map[string]string{"steps": "a workflow needs at least one step"})
	}

	userID := c.Locals("user_id").(uint)

	wf := models.WorkflowDefinition{
		Name:        body.Name,
		Description: body.Description,
		IsActive:    true,
		CreatedBy:   userID,
		Steps:       steps,
	}

	if err := database.DB.Create(&wf).Error; err != nil {
		return response.InternalError(c, "Failed to create workflow")
	}

	database.DB.Preload("Steps").First(&wf, wf.ID)

	return response.Created(c, wf, "Workflow created successfully")
}

func ListWorkflowsHandler(c *fiber.Ctx) error {
	query := database.DB.Model(&models.WorkflowDefinition{})

	if active := c.Query("active"); active == "true" {
		query = query.Where("is_active = ?", true)
	}

	var workflows []models.WorkflowDefinition
	if err := query.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("step_order ASC")
	}).Find(&workflows).Error; err != nil {
		return response.InternalError(c, "Failed to fetch workflows")
	}

	return response.Success(c, workflows, "Workflows retrieved successfully")
}

func GetWorkflowHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid workflow ID", nil)
	}

	var wf models.WorkflowDefinition
	if err := database.DB.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("step_order ASC")
	}).First(&wf, id).Error; err != nil {
		return response.NotFound(c, "Workflow")
	}

	return response.Success(c, wf, "Workflow retrieved successfully")
}

func UpdateWorkflowHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid workflow ID", nil)
	}

	var wf models.WorkflowDefinition
	if err := database.DB.Preload("Steps").First(&wf, id).Error; err != nil {
		return response.NotFound(c, "Workflow")
	}

	var body struct {
		Name        string      `json:"name"`
		Description string      `json:"description"`
		IsActive    *bool       `json:"is_active"`
		Steps       []stepInput `json:"steps"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if body.Name != "" {
		wf.Name = body.Name
	}
	if body.Description != "" {
		wf.Description = body.Description
	}
	if body.IsActive != nil {
		wf.IsActive = *body.IsActive
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&wf).Error; err != nil {
			return err
		}

		if body.Steps == nil {
			return nil
		}

		keep := make(map[uint]bool)
		for _, s := range body.Steps {
			if s.ID != 0 {
				keep[s.ID] = true
			}
		}

		// Steps a run has already touched stay; others not resubmitted
		// are removed.
		for _, existing := range wf.Steps {
			if keep[existing.ID] {
				continue
			}
			hasProgress, err := StepHasProgress(tx, existing.ID)
			if err != nil {
				return err
			}
			if hasProgress {
				return gorm.ErrForeignKeyViolated
			}
			if err := tx.Delete(&models.WorkflowStep{}, existing.ID).Error; err != nil {
				return err
			}
		}

		for _, s := range body.Steps {
			step := s.toModel(wf.ID)
			if step.ID != 0 {
				if err := tx.Save(&step).Error; err != nil {
					return err
				}
			} else {
				if err := tx.Create(&step).Error; err != nil {
					return err
				}
			}
		}

		return nil
	})

	if err == gorm.ErrForeignKeyViolated {
		return response.Conflict(c, "Cannot remove a step that has workflow history")
	}
	if err != nil {
		return response.InternalError(c, "Failed to update workflow")
	}

	database.DB.Preload("Steps").First(&wf, wf.ID)

	return response.Success(c, wf, "Workflow updated successfully")
}

func ValidateWorkflowHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid workflow ID", nil)
	}

	var wf models.WorkflowDefinition
	if err := database.DB.Preload("Steps").First(&wf, id).Error; err != nil {
		return response.NotFound(c, "Workflow")
	}

	if problems := ValidateDefinition(wf.Steps); problems != nil {
		return response.ValidationError(c, problems)
	}

	return response.Success(c, fiber.Map{"valid": true}, "Workflow is valid")
}

func CloneWorkflowHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid workflow ID", nil)
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if body.Name == "" {
		return response.ValidationError(c, map[string]string{
			"name": "new workflow name is required",
		})
	}

	var wf models.WorkflowDefinition
	if err := database.DB.Preload("Steps").First(&wf, id).Error; err != nil {
		return response.NotFound(c, "Workflow")
	}

	userID := c.Locals("user_id").(uint)

	clone, err := Clone(database.DB, &wf, body.Name, userID)
	if err != nil {
		return response.InternalError(c, "Failed to clone workflow")
	}

	return response.Created(c, clone, "Workflow cloned successfully")
}

func DeleteWorkflowHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid workflow ID", nil)
	}

	var wf models.WorkflowDefinition
	if err := database.DB.First(&wf, id).Error; err != nil {
		return response.NotFound(c, "Workflow")
	}

	hasHistory, err := HasRunHistory(database.DB, uint(id))
	if err != nil {
		return response.InternalError(c, "Failed to check workflow usage")
	}
	if hasHistory {
		return response.Conflict(c, "Cannot delete a workflow with submission history")
	}

	var templateCount int64
	if err := database.DB.Model(&models.FormTemplate{}).Where("workflow_id = ?", id).Count(&templateCount).Error; err != nil {
		return response.InternalError(c, "Failed to check workflow usage")
	}

	// Referenced workflows are deactivated so existing templates and runs
	// keep resolving.
	if templateCount > 0 {
		wf.IsActive = false
		if err := database.DB.Save(&wf).Error; err != nil {
			return response.InternalError(c, "Failed to deactivate workflow")
		}
		return response.Success(c, wf, "Workflow is referenced by templates; deactivated instead of deleted")
	}

	if err := database.DB.Delete(&wf).Error; err != nil {
		return response.InternalError(c, "Failed to delete workflow")
	}

	return response.NoContent(c)
}

func ListActionsHandler(c *fiber.Ctx) error {
	var actions []models.WorkflowAction
	if err := database.DB.Find(&actions).Error; err != nil {
		return response.InternalError(c, "Failed to fetch actions")
	}

	return response.Success(c, actions, "Actions retrieved successfully")
}
