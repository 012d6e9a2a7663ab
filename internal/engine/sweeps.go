package engine

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/formflow/platform/internal/models"
	"github.com/formflow/platform/internal/notify"
)

// ProcessEscalations delegates overdue steps to a holder of the step's
// escalation role. A step is overdue once its due date has passed while
// it is still awaiting action. Already-delegated steps are left alone.
func (e *Engine) ProcessEscalations() error {
	var rows []models.SubmissionWorkflowProgress
	err := e.db.Preload("Step").Preload("Submission").
		Where("status = ?", models.StepInProgress).
		Where("due_date IS NOT NULL AND due_date < ?", time.Now()).
		Where("delegated_to IS NULL").
		Find(&rows).Error
	if err != nil {
		return err
	}

	for i := range rows {
		p := &rows[i]
		step := p.Step
		if step == nil || p.Submission == nil {
			continue
		}
		if step.EscalationRoleID == nil {
			continue
		}
		if p.Submission.Status == models.SubmissionRejected {
			continue
		}

		candidates, err := e.scope.UsersInRole(*step.EscalationRoleID, p.Submission.TenantID)
		if err != nil {
			log.Printf("Escalation lookup failed for step %d: %v", step.ID, err)
			continue
		}

		var target uint
		for _, candidate := range candidates {
			if p.AssignedTo == nil || candidate != *p.AssignedTo {
				target = candidate
				break
			}
		}
		if target == 0 {
			log.Printf("No escalation target for step %d on submission %d", step.ID, p.SubmissionID)
			continue
		}

		from := uint(0)
		if p.AssignedTo != nil {
			from = *p.AssignedTo
		}
		ok, err := delegateProgress(e.db, p, from, target, "Auto-escalated due to overdue")
		if err != nil {
			log.Printf("Escalation failed for step %d: %v", step.ID, err)
			continue
		}
		if ok {
			e.notifyUsers([]uint{target}, notify.KindStepDelegated,
				fmt.Sprintf("Overdue step %q has been escalated to you", step.Name), p.SubmissionID, &step.ID)
			log.Printf("Escalated step %d on submission %d to user %d", step.ID, p.SubmissionID, target)
		}
	}

	return nil
}

// ProcessAutoApprovals completes actionable steps whose auto-approve
// condition holds against the submission's responses. Steps of a
// rejected submission are never touched.
func (e *Engine) ProcessAutoApprovals() error {
	var rows []models.SubmissionWorkflowProgress
	err := e.db.Preload("Step").Preload("Submission").
		Where("status = ?", models.StepInProgress).
		Find(&rows).Error
	if err != nil {
		return err
	}

	for i := range rows {
		p := &rows[i]
		step := p.Step
		if step == nil {
			continue
		}
		if p.Submission != nil && p.Submission.Status == models.SubmissionRejected {
			continue
		}

		cond, err := step.AutoApprove()
		if err != nil || cond == nil {
			continue
		}

		matched, err := e.conditionHolds(p.SubmissionID, cond)
		if err != nil {
			log.Printf("Auto-approve check failed for step %d: %v", step.ID, err)
			continue
		}
		if !matched {
			continue
		}

		ok, err := completeProgress(e.db, p, models.StepApproved, nil, "Auto-approved by rule", nil)
		if err != nil {
			log.Printf("Auto-approve failed for step %d: %v", step.ID, err)
			continue
		}
		if !ok {
			continue
		}

		submission, err := e.loadSubmission(p.SubmissionID)
		if err != nil {
			log.Printf("Auto-approve advance failed for submission %d: %v", p.SubmissionID, err)
			continue
		}
		if err := e.advance(submission); err != nil {
			log.Printf("Auto-approve advance failed for submission %d: %v", p.SubmissionID, err)
		}
	}

	return nil
}

func (e *Engine) conditionHolds(submissionID uint, cond *models.AutoApproveCondition) (bool, error) {
	var resp models.FormResponse
	err := e.db.Where("submission_id = ? AND field_id = ?", submissionID, cond.FieldID).First(&resp).Error
	if err != nil {
		return false, nil
	}

	if resp.NumericValue != nil {
		threshold, err := strconv.ParseFloat(cond.Value, 64)
		if err != nil {
			return false, nil
		}
		return compareNumeric(*resp.NumericValue, cond.Operator, threshold), nil
	}

	switch cond.Operator {
	case "eq":
		return resp.TextValue == cond.Value, nil
	case "neq":
		return resp.TextValue != cond.Value, nil
	default:
		return false, nil
	}
}

func compareNumeric(value float64, operator string, threshold float64) bool {
	switch operator {
	case "eq":
		return value == threshold
	case "neq":
		return value != threshold
	case "gt":
		return value > threshold
	case "gte":
		return value >= threshold
	case "lt":
		return value < threshold
	case "lte":
		return value <= threshold
	default:
		return false
	}
}
