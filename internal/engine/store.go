package engine

import (
	"time"

	"github.com/formflow/platform/internal/models"
	"gorm.io/gorm"
)

// Signature is the signing payload captured with a completion. Data is
// the stored object key (or inline payload) and Type says which it is.
type Signature struct {
	Type string
	Data string
	IP   string
}

func loadProgress(db *gorm.DB, submissionID uint) (map[uint]*models.SubmissionWorkflowProgress, error) {
	var rows []models.SubmissionWorkflowProgress
	if err := db.Where("submission_id = ?", submissionID).Find(&rows).Error; err != nil {
		return nil, err
	}

	byStep := make(map[uint]*models.SubmissionWorkflowProgress, len(rows))
	for i := range rows {
		byStep[rows[i].StepID] = &rows[i]
	}
	return byStep, nil
}

func loadSteps(db *gorm.DB, workflowID uint) (map[uint]*models.WorkflowStep, error) {
	var steps []models.WorkflowStep
	if err := db.Where("workflow_id = ?", workflowID).Order("step_order ASC").Find(&steps).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]*models.WorkflowStep, len(steps))
	for i := range steps {
		byID[steps[i].ID] = &steps[i]
	}
	return byID, nil
}

// activateProgress stamps assignment data onto a Pending row. The status
// guard keeps a concurrent activation from double-assigning. Transitions
// out of InProgress are likewise compare-and-swap so concurrent actors
// cannot both win the same step.
func activateProgress(db *gorm.DB, p *models.SubmissionWorkflowProgress, res *Resolution, principal models.PrincipalType, principalID uint, dueDate *time.Time) (bool, error) {
	now := time.Now()
	updates := map[string]interface{}{
		"status":         models.StepInProgress,
		"principal_type": principal,
		"principal_id":   principalID,
		"assigned_to":    res.UserID,
		"assigned_date":  now,
	}
	if dueDate != nil {
		updates["due_date"] = *dueDate
	}

	result := db.Model(&models.SubmissionWorkflowProgress{}).
		Where("id = ? AND status = ?", p.ID, models.StepPending).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	p.Status = models.StepInProgress
	p.PrincipalType = principal
	p.PrincipalID = principalID
	p.AssignedTo = res.UserID
	p.AssignedDate = &now
	p.DueDate = dueDate
	return true, nil
}

// completeProgress moves an actionable row to a terminal status. A nil
// actor records a system action such as an auto-approval. Returns false
// when another actor got there first.
func completeProgress(db *gorm.DB, p *models.SubmissionWorkflowProgress, status models.StepStatus, actorID *uint, comments string, sig *Signature) (bool, error) {
	now := time.Now()
	updates := map[string]interface{}{
		"status":      status,
		"action_date": now,
		"comments":    comments,
	}
	if actorID != nil {
		updates["action_by"] = *actorID
	}
	if sig != nil && sig.Data != "" {
		updates["signature_type"] = sig.Type
		updates["signature_data"] = sig.Data
		updates["signature_ip"] = sig.IP
		updates["signature_timestamp"] = now
	}

	result := db.Model(&models.SubmissionWorkflowProgress{}).
		Where("id = ? AND status = ?", p.ID, models.StepInProgress).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	p.Status = status
	p.ActionBy = actorID
	p.ActionDate = &now
	p.Comments = comments
	if sig != nil && sig.Data != "" {
		p.SignatureType = sig.Type
		p.SignatureData = sig.Data
		p.SignatureIP = sig.IP
		p.SignatureTimestamp = &now
	}
	return true, nil
}

// delegateProgress hands an actionable row to another user without
// touching its status. AssignedTo is left as-is so the original routing
// stays visible; a later delegation overwrites the previous one rather
// than chaining.
func delegateProgress(db *gorm.DB, p *models.SubmissionWorkflowProgress, fromUserID, toUserID uint, note string) (bool, error) {
	now := time.Now()
	updates := map[string]interface{}{
		"delegated_to":    toUserID,
		"delegated_by":    fromUserID,
		"delegated_date":  now,
		"delegation_note": note,
	}

	result := db.Model(&models.SubmissionWorkflowProgress{}).
		Where("id = ? AND status = ?", p.ID, models.StepInProgress).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	p.DelegatedTo = &toUserID
	p.DelegatedBy = &fromUserID
	p.DelegatedDate = &now
	p.DelegationNote = note
	return true, nil
}

// skipProgress marks a Pending row Skipped. Only the engine's own sweep
// calls this; skipping is never a user action.
func skipProgress(db *gorm.DB, p *models.SubmissionWorkflowProgress, comments string) (bool, error) {
	now := time.Now()
	result := db.Model(&models.SubmissionWorkflowProgress{}).
		Where("id = ? AND status = ?", p.ID, models.StepPending).
		Updates(map[string]interface{}{
			"status":      models.StepSkipped,
			"action_date": now,
			"comments":    comments,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	p.Status = models.StepSkipped
	p.ActionDate = &now
	p.Comments = comments
	return true, nil
}
