package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/formflow/platform/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ValidateDefinition checks a workflow's step graph before it is saved or
// activated. Returned problems are keyed by step name where possible.
func ValidateDefinition(steps []models.WorkflowStep) map[string]string {
	problems := make(map[string]string)

	if len(steps) == 0 {
		problems["steps"] = "a workflow needs at least one step"
		return problems
	}

	byID := make(map[uint]*models.WorkflowStep, len(steps))
	ordersSeen := make(map[int]string)
	for i := range steps {
		step := &steps[i]
		if step.ID != 0 {
			byID[step.ID] = step
		}

		if prev, dup := ordersSeen[step.StepOrder]; dup && !step.IsParallel {
			problems[step.Name] = fmt.Sprintf("step order %d already used by %q; mark both parallel or reorder", step.StepOrder, prev)
		} else if !dup {
			ordersSeen[step.StepOrder] = step.Name
		}

		if err := validateAssigneeConfig(step); err != nil {
			problems[step.Name] = err.Error()
		} else if err := validateActionTarget(step); err != nil {
			problems[step.Name] = err.Error()
		}
	}

	for i := range steps {
		step := &steps[i]
		deps, err := step.DependsOn()
		if err != nil {
			problems[step.Name] = "depends_on_step_ids is not a valid ID list"
			continue
		}
		for _, depID := range deps {
			if depID == step.ID {
				problems[step.Name] = "step cannot depend on itself"
				continue
			}
			if _, ok := byID[depID]; !ok {
				problems[step.Name] = fmt.Sprintf("dependency %d is not a step of this workflow", depID)
			}
		}
	}

	if cycle := findCycle(byID); cycle != "" {
		problems["dependencies"] = "dependency cycle involving " + cycle
	}

	if len(problems) == 0 {
		return nil
	}
	return problems
}

func validateAssigneeConfig(step *models.WorkflowStep) error {
	switch step.AssigneeType {
	case models.AssigneeRole:
		if step.AssigneeRoleID == nil {
			return fmt.Errorf("Role assignee requires assignee_role_id")
		}
	case models.AssigneeUser:
		if step.AssigneeUserID == nil {
			return fmt.Errorf("User assignee requires assignee_user_id")
		}
	case models.AssigneeFieldValue:
		if step.AssigneeFieldID == nil {
			return fmt.Errorf("FieldValue assignee requires assignee_field_id")
		}
	case models.AssigneeDepartment:
		if step.AssigneeDeptID == nil {
			return fmt.Errorf("Department assignee requires assignee_department_id")
		}
	case models.AssigneeSubmitter, models.AssigneePreviousActor:
		// No extra configuration.
	default:
		return fmt.Errorf("unknown assignee type %q", step.AssigneeType)
	}
	return nil
}

func validateActionTarget(step *models.WorkflowStep) error {
	if step.ActionID == 0 {
		return fmt.Errorf("step needs an action type")
	}
	switch step.TargetType {
	case models.TargetSubmission, "":
		// Whole-submission steps carry no target reference.
	case models.TargetSection:
		if step.TargetID == nil {
			return fmt.Errorf("Section target requires target_id")
		}
	case models.TargetField:
		if step.TargetID == nil {
			return fmt.Errorf("Field target requires target_id")
		}
	default:
		return fmt.Errorf("unknown target type %q", step.TargetType)
	}
	return nil
}

// findCycle runs a depth-first search over explicit dependencies and
// returns the name of a step on a cycle, or "".
func findCycle(byID map[uint]*models.WorkflowStep) string {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[uint]int, len(byID))

	var visit func(id uint) string
	visit = func(id uint) string {
		step, ok := byID[id]
		if !ok {
			return ""
		}
		switch state[id] {
		case visiting:
			return step.Name
		case done:
			return ""
		}
		state[id] = visiting
		deps, err := step.DependsOn()
		if err == nil {
			for _, depID := range deps {
				if found := visit(depID); found != "" {
					return found
				}
			}
		}
		state[id] = done
		return ""
	}

	for id := range byID {
		if found := visit(id); found != "" {
			return found
		}
	}
	return ""
}

// Clone deep-copies a definition with its steps, remapping explicit
// dependencies onto the new step IDs.
func Clone(db *gorm.DB, source *models.WorkflowDefinition, name string, createdBy uint) (*models.WorkflowDefinition, error) {
	clone := &models.WorkflowDefinition{
		Name:        name,
		Description: source.Description,
		IsActive:    true,
		CreatedBy:   createdBy,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(clone).Error; err != nil {
			return err
		}

		idMap := make(map[uint]uint, len(source.Steps))
		newSteps := make([]*models.WorkflowStep, 0, len(source.Steps))

		for i := range source.Steps {
			src := source.Steps[i]
			step := models.WorkflowStep{
				WorkflowID:       clone.ID,
				Name:             src.Name,
				StepOrder:        src.StepOrder,
				ActionID:         src.ActionID,
				TargetType:       src.TargetType,
				TargetID:         src.TargetID,
				AssigneeType:     src.AssigneeType,
				AssigneeRoleID:   src.AssigneeRoleID,
				AssigneeUserID:   src.AssigneeUserID,
				AssigneeFieldID:  src.AssigneeFieldID,
				AssigneeDeptID:   src.AssigneeDeptID,
				IsParallel:       src.IsParallel,
				IsMandatory:      src.IsMandatory,
				DueDays:          src.DueDays,
				EscalationRoleID: src.EscalationRoleID,
				AutoApproveRule:  src.AutoApproveRule,
			}
			if err := tx.Create(&step).Error; err != nil {
				return err
			}
			idMap[src.ID] = step.ID
			newSteps = append(newSteps, &step)
		}

		// Remap dependency lists now that every new ID is known.
		for i := range source.Steps {
			deps, err := source.Steps[i].DependsOn()
			if err != nil || len(deps) == 0 {
				continue
			}
			remapped := make([]uint, 0, len(deps))
			for _, depID := range deps {
				if newID, ok := idMap[depID]; ok {
					remapped = append(remapped, newID)
				}
			}
			encoded, err := json.Marshal(remapped)
			if err != nil {
				return err
			}
			newSteps[i].DependsOnStepIDs = datatypes.JSON(encoded)
			if err := tx.Save(newSteps[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	db.Preload("Steps").First(clone, clone.ID)
	return clone, nil
}

// StepHasProgress reports whether any submission has a progress record
// for the step. Steps with history cannot be removed.
func StepHasProgress(db *gorm.DB, stepID uint) (bool, error) {
	var count int64
	err := db.Model(&models.SubmissionWorkflowProgress{}).
		Where("step_id = ?", stepID).Count(&count).Error
	return count > 0, err
}

// HasRunHistory reports whether any submission has run against the
// workflow. Workflows with history cannot be deleted.
func HasRunHistory(db *gorm.DB, workflowID uint) (bool, error) {
	var count int64
	err := db.Model(&models.SubmissionWorkflowProgress{}).
		Joins("JOIN workflow_steps ON workflow_steps.id = submission_workflow_progresses.step_id").
		Where("workflow_steps.workflow_id = ?", workflowID).
		Count(&count).Error
	return count > 0, err
}
