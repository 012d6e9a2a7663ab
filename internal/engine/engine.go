package engine

import (
	"fmt"
	"log"
	"time"

	"github.com/formflow/platform/internal/metrics"
	"github.com/formflow/platform/internal/models"
	"github.com/formflow/platform/internal/notify"
	"gorm.io/gorm"
)

// RunStatus is the aggregate state of one submission's workflow run,
// derived from its progress rows and never stored.
type RunStatus string

const (
	RunNotStarted RunStatus = "NotStarted"
	RunPending    RunStatus = "Pending"
	RunInProgress RunStatus = "InProgress"
	RunCompleted  RunStatus = "Completed"
	RunRejected   RunStatus = "Rejected"
)

// Engine drives a submission through its workflow: it creates progress
// rows, activates steps whose dependencies are met, applies actions, and
// keeps the submission's aggregate status in sync.
type Engine struct {
	db    *gorm.DB
	scope ScopeProvider
}

func New(db *gorm.DB, scope ScopeProvider) *Engine {
	return &Engine{db: db, scope: scope}
}

// Initialize creates a Pending progress row for every step of the
// submission's workflow and activates the steps that are ready. Each row
// copies the step's action and target scope so the run is immune to
// later workflow edits. A second call for the same submission fails.
func (e *Engine) Initialize(submissionID uint) error {
	submission, err := e.loadSubmission(submissionID)
	if err != nil {
		return err
	}

	if submission.Template == nil || submission.Template.WorkflowID == nil {
		return &NotFoundError{Resource: "workflow for submission", ID: submissionID}
	}
	workflowID := *submission.Template.WorkflowID

	var existing int64
	if err := e.db.Model(&models.SubmissionWorkflowProgress{}).
		Where("submission_id = ?", submissionID).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return &AlreadyInitializedError{SubmissionID: submissionID}
	}

	steps, err := loadSteps(e.db, workflowID)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		return &InvalidOperationError{Reason: "workflow has no steps"}
	}

	err = e.db.Transaction(func(tx *gorm.DB) error {
		for stepID, step := range steps {
			targetType := step.TargetType
			if targetType == "" {
				targetType = models.TargetSubmission
			}
			row := models.SubmissionWorkflowProgress{
				SubmissionID: submissionID,
				StepID:       stepID,
				Status:       models.StepPending,
				ActionID:     step.ActionID,
				TargetType:   targetType,
				TargetID:     step.TargetID,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// The unique (submission_id, step_id) index turns a racing double
		// initialization into a constraint failure here.
		return &AlreadyInitializedError{SubmissionID: submissionID}
	}

	return e.advance(submission)
}

// Complete finishes an actionable step on behalf of userID. The step's
// action decides the terminal status (Approved for approval actions,
// Completed otherwise) and whether a comment or signature is required.
func (e *Engine) Complete(submissionID, stepID, userID uint, comments string, sig *Signature) error {
	submission, step, p, err := e.loadActionContext(submissionID, stepID)
	if err != nil {
		return err
	}

	if err := e.guardActionable(submission, p); err != nil {
		return err
	}
	if err := e.authorize(p, step, submission, userID); err != nil {
		return err
	}

	action, err := e.loadAction(p)
	if err != nil {
		return err
	}
	if action.RequiresComment && comments == "" {
		return &InvalidOperationError{Reason: fmt.Sprintf("%s steps require a comment", action.Name)}
	}
	if action.RequiresSignature && (sig == nil || sig.Data == "") {
		return &InvalidOperationError{Reason: fmt.Sprintf("%s steps require a signature", action.Name)}
	}

	ok, err := completeProgress(e.db, p, action.CompletionStatus(), &userID, comments, sig)
	if err != nil {
		return err
	}
	if !ok {
		return &InvalidOperationError{Reason: "step was already actioned"}
	}

	return e.advance(submission)
}

// Reject marks an actionable step Rejected. Rejecting a mandatory step
// ends the run. A rejection always carries a comment.
func (e *Engine) Reject(submissionID, stepID, userID uint, comments string) error {
	submission, step, p, err := e.loadActionContext(submissionID, stepID)
	if err != nil {
		return err
	}

	if err := e.guardActionable(submission, p); err != nil {
		return err
	}
	if err := e.authorize(p, step, submission, userID); err != nil {
		return err
	}
	if comments == "" {
		return &InvalidOperationError{Reason: "rejection requires a comment"}
	}

	ok, err := completeProgress(e.db, p, models.StepRejected, &userID, comments, nil)
	if err != nil {
		return err
	}
	if !ok {
		return &InvalidOperationError{Reason: "step was already actioned"}
	}

	return e.advance(submission)
}

// Delegate hands an actionable step to another active user, when the
// step's action permits it. Delegation never changes the step's status;
// a second delegation replaces the first and the original assignment
// stays recorded.
func (e *Engine) Delegate(submissionID, stepID, fromUserID, toUserID uint, note string) error {
	submission, step, p, err := e.loadActionContext(submissionID, stepID)
	if err != nil {
		return err
	}

	if err := e.guardActionable(submission, p); err != nil {
		return err
	}
	if err := e.authorize(p, step, submission, fromUserID); err != nil {
		return err
	}

	action, err := e.loadAction(p)
	if err != nil {
		return err
	}
	if !action.AllowDelegate {
		return &InvalidOperationError{Reason: fmt.Sprintf("%s steps cannot be delegated", action.Name)}
	}

	if fromUserID == toUserID {
		return &InvalidOperationError{Reason: "cannot delegate a step to yourself"}
	}

	active, err := e.scope.IsActive(toUserID)
	if err != nil {
		return err
	}
	if !active {
		return &NoEligibleAssigneeError{StepID: stepID, Reason: "delegate target is not an active user"}
	}

	ok, err := delegateProgress(e.db, p, fromUserID, toUserID, note)
	if err != nil {
		return err
	}
	if !ok {
		return &InvalidOperationError{Reason: "step was already actioned"}
	}

	e.notifyUsers([]uint{toUserID}, notify.KindStepDelegated,
		fmt.Sprintf("Step %q has been delegated to you", step.Name), submission.ID, &step.ID)
	return nil
}

// guardActionable rejects actions against a dead run or a step that is
// not awaiting action. Once a submission is Rejected, no step of it can
// be acted on again.
func (e *Engine) guardActionable(submission *models.FormTemplateSubmission, p *models.SubmissionWorkflowProgress) error {
	if submission.Status == models.SubmissionRejected {
		return &InvalidOperationError{Reason: "submission has been rejected; its steps can no longer be actioned"}
	}
	if !p.Status.Actionable() {
		return &InvalidOperationError{Reason: "step is not awaiting action"}
	}
	return nil
}

func (e *Engine) loadAction(p *models.SubmissionWorkflowProgress) (*models.WorkflowAction, error) {
	if p.ActionID == 0 {
		return nil, &ConfigurationError{StepID: p.StepID, Reason: "step has no action type"}
	}
	var action models.WorkflowAction
	if err := e.db.First(&action, p.ActionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &ConfigurationError{StepID: p.StepID, Reason: "step references an unknown action type"}
		}
		return nil, err
	}
	return &action, nil
}

// Status derives the aggregate run status and returns it with the
// submission's progress rows.
func (e *Engine) Status(submissionID uint) (RunStatus, []models.SubmissionWorkflowProgress, error) {
	var rows []models.SubmissionWorkflowProgress
	err := e.db.Preload("Step").Preload("Action").Preload("Assignee").Preload("Delegate").Preload("Actor").
		Where("submission_id = ?", submissionID).
		Find(&rows).Error
	if err != nil {
		return "", nil, err
	}

	steps := make(map[uint]*models.WorkflowStep, len(rows))
	progress := make(map[uint]*models.SubmissionWorkflowProgress, len(rows))
	for i := range rows {
		progress[rows[i].StepID] = &rows[i]
		if rows[i].Step != nil {
			steps[rows[i].StepID] = rows[i].Step
		}
	}

	return deriveStatus(steps, progress), rows, nil
}

// CurrentSteps lists the steps of one submission that are awaiting
// action right now.
func (e *Engine) CurrentSteps(submissionID uint) ([]models.SubmissionWorkflowProgress, error) {
	var rows []models.SubmissionWorkflowProgress
	err := e.db.Preload("Step").Preload("Action").Preload("Assignee").Preload("Delegate").
		Where("submission_id = ? AND status = ?", submissionID, models.StepInProgress).
		Find(&rows).Error
	return rows, err
}

// IsWorkflowComplete reports whether the submission's run has finished
// successfully.
func (e *Engine) IsWorkflowComplete(submissionID uint) (bool, error) {
	status, _, err := e.Status(submissionID)
	if err != nil {
		return false, err
	}
	return status == RunCompleted, nil
}

// CheckStepDependencies reports whether the step's dependencies are
// currently satisfied.
func (e *Engine) CheckStepDependencies(submissionID, stepID uint) (bool, error) {
	submission, err := e.loadSubmission(submissionID)
	if err != nil {
		return false, err
	}
	if submission.Template == nil || submission.Template.WorkflowID == nil {
		return false, &NotFoundError{Resource: "workflow for submission", ID: submissionID}
	}

	steps, err := loadSteps(e.db, *submission.Template.WorkflowID)
	if err != nil {
		return false, err
	}
	step, ok := steps[stepID]
	if !ok {
		return false, &NotFoundError{Resource: "step", ID: stepID}
	}
	progress, err := loadProgress(e.db, submissionID)
	if err != nil {
		return false, err
	}

	return dependenciesSatisfied(step, steps, progress)
}

// CanUserActOnStep reports whether the user could act on the step right
// now: the step is awaiting action and the user is assigned, delegated,
// or a current member of the step's principal.
func (e *Engine) CanUserActOnStep(userID, submissionID, stepID uint) (bool, error) {
	submission, step, p, err := e.loadActionContext(submissionID, stepID)
	if err != nil {
		return false, err
	}
	if submission.Status == models.SubmissionRejected || !p.Status.Actionable() {
		return false, nil
	}
	return e.userAuthorized(p, step, submission, userID)
}

// CanUserActOnTarget reports whether the user can act on any awaiting
// step scoped to the given section or field of the submission. A
// Submission-scoped query matches whole-submission steps regardless of
// targetID.
func (e *Engine) CanUserActOnTarget(userID, submissionID uint, target models.StepTargetType, targetID uint) (bool, error) {
	submission, err := e.loadSubmission(submissionID)
	if err != nil {
		return false, err
	}
	if submission.Status == models.SubmissionRejected {
		return false, nil
	}

	query := e.db.Preload("Step").
		Where("submission_id = ? AND status = ? AND target_type = ?", submissionID, models.StepInProgress, target)
	if target != models.TargetSubmission {
		query = query.Where("target_id = ?", targetID)
	}

	var rows []models.SubmissionWorkflowProgress
	if err := query.Find(&rows).Error; err != nil {
		return false, err
	}

	for i := range rows {
		p := &rows[i]
		if p.Step == nil {
			continue
		}
		ok, err := e.userAuthorized(p, p.Step, submission, userID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// PendingForUser lists the actionable steps the user can act on right
// now, including group-routed steps where the user is a current member.
func (e *Engine) PendingForUser(userID uint) ([]models.SubmissionWorkflowProgress, error) {
	var rows []models.SubmissionWorkflowProgress
	err := e.db.Preload("Step").Preload("Action").Preload("Submission").
		Where("status = ?", models.StepInProgress).
		Where("assigned_to = ? OR delegated_to = ? OR principal_type IN ?",
			userID, userID, []models.PrincipalType{models.PrincipalRole, models.PrincipalDepartment}).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	var out []models.SubmissionWorkflowProgress
	for i := range rows {
		p := &rows[i]
		if p.Submission == nil || p.Step == nil {
			continue
		}
		if p.Submission.Status == models.SubmissionRejected {
			continue
		}
		if err := e.authorize(p, p.Step, p.Submission, userID); err == nil {
			out = append(out, rows[i])
		}
	}
	return out, nil
}

// PendingCountForUser counts the steps awaiting the user's action.
func (e *Engine) PendingCountForUser(userID uint) (int, error) {
	rows, err := e.PendingForUser(userID)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// authorize decides whether userID may act on the step. Delegation and
// direct assignment qualify; group principals are checked against live
// membership so revocations apply immediately.
func (e *Engine) authorize(p *models.SubmissionWorkflowProgress, step *models.WorkflowStep, submission *models.FormTemplateSubmission, userID uint) error {
	if p.DelegatedTo != nil && *p.DelegatedTo == userID {
		return nil
	}
	if p.AssignedTo != nil && *p.AssignedTo == userID {
		active, err := e.scope.IsActive(userID)
		if err != nil {
			return err
		}
		if active {
			return nil
		}
		return &UnauthorizedError{UserID: userID, StepID: step.ID}
	}

	switch p.PrincipalType {
	case models.PrincipalRole:
		ok, err := e.scope.UserHasRole(userID, p.PrincipalID, submission.TenantID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	case models.PrincipalDepartment:
		ok, err := e.scope.UserInDepartment(userID, p.PrincipalID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}

	return &UnauthorizedError{UserID: userID, StepID: step.ID}
}

func (e *Engine) userAuthorized(p *models.SubmissionWorkflowProgress, step *models.WorkflowStep, submission *models.FormTemplateSubmission, userID uint) (bool, error) {
	err := e.authorize(p, step, submission, userID)
	if err == nil {
		return true, nil
	}
	if _, ok := err.(*UnauthorizedError); ok {
		return false, nil
	}
	return false, err
}

// advance runs one propagation pass: activate ready steps, skip steps
// that can never run, and sync the submission's aggregate status.
func (e *Engine) advance(submission *models.FormTemplateSubmission) error {
	if submission.Template == nil || submission.Template.WorkflowID == nil {
		return &NotFoundError{Resource: "workflow for submission", ID: submission.ID}
	}
	steps, err := loadSteps(e.db, *submission.Template.WorkflowID)
	if err != nil {
		return err
	}
	progress, err := loadProgress(e.db, submission.ID)
	if err != nil {
		return err
	}

	rejected := hasMandatoryRejection(steps, progress)

	if !rejected {
		for stepID, p := range progress {
			if p.Status != models.StepPending || p.Activated() {
				continue
			}
			step := steps[stepID]
			if step == nil {
				continue
			}

			ready, err := dependenciesSatisfied(step, steps, progress)
			if err != nil {
				return err
			}
			if !ready {
				if !step.IsMandatory && blockedForever(step, steps, progress) {
					if _, err := skipProgress(e.db, p, "Dependencies can no longer be satisfied"); err != nil {
						return err
					}
				}
				continue
			}

			if err := e.activateStep(submission, step, p); err != nil {
				return err
			}
		}
	}

	status := deriveStatus(steps, progress)
	if status == RunCompleted {
		// Pending optional steps that never became ready are closed out so
		// the run can finish. Optional steps already in flight stay open.
		for stepID, p := range progress {
			if p.Status == models.StepPending && steps[stepID] != nil && !steps[stepID].IsMandatory {
				if _, err := skipProgress(e.db, p, "Workflow completed without this optional step"); err != nil {
					return err
				}
			}
		}
	}

	return e.syncSubmissionStatus(submission, status)
}

func (e *Engine) activateStep(submission *models.FormTemplateSubmission, step *models.WorkflowStep, p *models.SubmissionWorkflowProgress) error {
	rule, err := ruleForStep(step)
	if err != nil {
		return err
	}

	res, err := rule.resolve(e.db, e.scope, submission)
	if err != nil {
		return err
	}
	if !res.Dynamic && res.UserID == nil {
		return &NoEligibleAssigneeError{StepID: step.ID, Reason: "resolution produced no user"}
	}
	if res.Dynamic && len(res.Candidates) == 0 {
		return &NoEligibleAssigneeError{StepID: step.ID, Reason: "no current members in the target scope"}
	}

	principalID := rule.principalID()
	if principalID == 0 && res.UserID != nil {
		principalID = *res.UserID
	}

	ok, err := activateProgress(e.db, p, res, rule.principal(), principalID, dueDateFor(submission, step))
	if err != nil {
		return err
	}
	if ok {
		e.notifyUsers(res.Candidates, notify.KindStepAssigned,
			fmt.Sprintf("Step %q is awaiting your action", step.Name), submission.ID, &step.ID)
	}
	return nil
}

// dueDateFor derives a step's deadline from the submission date plus the
// step's DueDays allowance.
func dueDateFor(submission *models.FormTemplateSubmission, step *models.WorkflowStep) *time.Time {
	if step.DueDays == nil || *step.DueDays <= 0 {
		return nil
	}
	base := time.Now()
	if submission.SubmittedDate != nil {
		base = *submission.SubmittedDate
	}
	due := base.AddDate(0, 0, *step.DueDays)
	return &due
}

func (e *Engine) notifyUsers(userIDs []uint, kind, message string, submissionID uint, stepID *uint) {
	if err := notify.PushAll(e.db, userIDs, kind, message, submissionID, stepID); err != nil {
		log.Printf("Failed to record %s notifications for submission %d: %v", kind, submissionID, err)
	}
}

func (e *Engine) syncSubmissionStatus(submission *models.FormTemplateSubmission, status RunStatus) error {
	var next models.SubmissionStatus
	switch status {
	case RunRejected:
		next = models.SubmissionRejected
	case RunCompleted:
		next = models.SubmissionApproved
	case RunInProgress, RunPending:
		next = models.SubmissionInApproval
	default:
		return nil
	}

	if submission.Status == next {
		return nil
	}

	if err := e.db.Model(&models.FormTemplateSubmission{}).
		Where("id = ?", submission.ID).
		Update("status", next).Error; err != nil {
		return err
	}
	submission.Status = next

	switch next {
	case models.SubmissionApproved:
		e.notifyUsers([]uint{submission.SubmittedBy}, notify.KindSubmissionApproved,
			"Your submission has been approved", submission.ID, nil)
		if err := metrics.CaptureFromSubmission(e.db, submission.ID); err != nil {
			log.Printf("Failed to capture metrics for submission %d: %v", submission.ID, err)
		}
	case models.SubmissionRejected:
		e.notifyUsers([]uint{submission.SubmittedBy}, notify.KindSubmissionRejected,
			"Your submission has been rejected", submission.ID, nil)
	}
	return nil
}

func (e *Engine) loadSubmission(submissionID uint) (*models.FormTemplateSubmission, error) {
	var submission models.FormTemplateSubmission
	err := e.db.Preload("Template").First(&submission, submissionID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Resource: "submission", ID: submissionID}
		}
		return nil, err
	}
	return &submission, nil
}

func (e *Engine) loadActionContext(submissionID, stepID uint) (*models.FormTemplateSubmission, *models.WorkflowStep, *models.SubmissionWorkflowProgress, error) {
	submission, err := e.loadSubmission(submissionID)
	if err != nil {
		return nil, nil, nil, err
	}

	var p models.SubmissionWorkflowProgress
	err = e.db.Where("submission_id = ? AND step_id = ?", submissionID, stepID).First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, nil, &NotFoundError{Resource: "progress for step", ID: stepID}
		}
		return nil, nil, nil, err
	}

	var step models.WorkflowStep
	if err := e.db.First(&step, stepID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, nil, &NotFoundError{Resource: "step", ID: stepID}
		}
		return nil, nil, nil, err
	}

	return submission, &step, &p, nil
}

func hasMandatoryRejection(steps map[uint]*models.WorkflowStep, progress map[uint]*models.SubmissionWorkflowProgress) bool {
	for stepID, p := range progress {
		if p.Status == models.StepRejected {
			step := steps[stepID]
			if step == nil || step.IsMandatory {
				return true
			}
		}
	}
	return false
}

// deriveStatus folds the progress rows into one aggregate value. The run
// succeeds once every mandatory step has finished successfully; optional
// steps never hold the run open.
func deriveStatus(steps map[uint]*models.WorkflowStep, progress map[uint]*models.SubmissionWorkflowProgress) RunStatus {
	if len(progress) == 0 {
		return RunNotStarted
	}

	if hasMandatoryRejection(steps, progress) {
		return RunRejected
	}

	mandatoryDone := true
	anyActive := false
	for stepID, p := range progress {
		if p.Status.Actionable() {
			anyActive = true
		}
		step := steps[stepID]
		if (step == nil || step.IsMandatory) && !p.Status.TerminalSuccess() {
			mandatoryDone = false
		}
	}

	if mandatoryDone {
		return RunCompleted
	}
	if anyActive {
		return RunInProgress
	}
	return RunPending
}
