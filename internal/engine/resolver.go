package engine

import (
	"strconv"

	"github.com/formflow/platform/internal/models"
	"gorm.io/gorm"
)

// ScopeProvider answers live membership questions. Role and Department
// steps authorize against current membership at action time, so a revoked
// role or a department transfer takes effect without touching progress
// rows.
type ScopeProvider interface {
	UsersInRole(roleID uint, tenantID uint) ([]uint, error)
	UsersInDepartment(departmentID uint) ([]uint, error)
	UserHasRole(userID uint, roleID uint, tenantID uint) (bool, error)
	UserInDepartment(userID uint, departmentID uint) (bool, error)
	IsActive(userID uint) (bool, error)
}

// Resolution is the outcome of resolving a step's assignee.
//
// UserID is set when resolution pins a single concrete user. Candidates
// holds the current eligible set for group principals. Dynamic marks
// principals whose membership must be re-checked at action time.
type Resolution struct {
	UserID     *uint
	Candidates []uint
	Dynamic    bool
}

// assigneeRule is the sealed set of assignee strategies. Each rule
// resolves against a submission and, for group principals, the scope
// provider.
type assigneeRule interface {
	principal() models.PrincipalType
	principalID() uint
	resolve(db *gorm.DB, scope ScopeProvider, submission *models.FormTemplateSubmission) (*Resolution, error)
}

// ruleForStep maps a step's assignee configuration to its rule, failing
// with a ConfigurationError when the required reference is missing.
func ruleForStep(step *models.WorkflowStep) (assigneeRule, error) {
	switch step.AssigneeType {
	case models.AssigneeRole:
		if step.AssigneeRoleID == nil {
			return nil, &ConfigurationError{StepID: step.ID, Reason: "Role assignee requires assignee_role_id"}
		}
		return roleRule{roleID: *step.AssigneeRoleID}, nil
	case models.AssigneeUser:
		if step.AssigneeUserID == nil {
			return nil, &ConfigurationError{StepID: step.ID, Reason: "User assignee requires assignee_user_id"}
		}
		return userRule{stepID: step.ID, userID: *step.AssigneeUserID}, nil
	case models.AssigneeSubmitter:
		return submitterRule{}, nil
	case models.AssigneePreviousActor:
		return previousActorRule{stepID: step.ID, workflowID: step.WorkflowID, stepOrder: step.StepOrder}, nil
	case models.AssigneeFieldValue:
		if step.AssigneeFieldID == nil {
			return nil, &ConfigurationError{StepID: step.ID, Reason: "FieldValue assignee requires assignee_field_id"}
		}
		return fieldValueRule{stepID: step.ID, fieldID: *step.AssigneeFieldID}, nil
	case models.AssigneeDepartment:
		if step.AssigneeDeptID == nil {
			return nil, &ConfigurationError{StepID: step.ID, Reason: "Department assignee requires assignee_department_id"}
		}
		return departmentRule{departmentID: *step.AssigneeDeptID}, nil
	default:
		return nil, &ConfigurationError{StepID: step.ID, Reason: "unknown assignee type " + string(step.AssigneeType)}
	}
}

type roleRule struct {
	roleID uint
}

func (r roleRule) principal() models.PrincipalType { return models.PrincipalRole }
func (r roleRule) principalID() uint               { return r.roleID }

func (r roleRule) resolve(db *gorm.DB, scope ScopeProvider, submission *models.FormTemplateSubmission) (*Resolution, error) {
	candidates, err := scope.UsersInRole(r.roleID, submission.TenantID)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Candidates: candidates, Dynamic: true}
	// A single current holder is pinned for display; authorization still
	// re-checks membership when the action lands.
	if len(candidates) == 1 {
		res.UserID = &candidates[0]
	}
	return res, nil
}

type userRule struct {
	stepID uint
	userID uint
}

func (r userRule) principal() models.PrincipalType { return models.PrincipalUser }
func (r userRule) principalID() uint               { return r.userID }

func (r userRule) resolve(db *gorm.DB, scope ScopeProvider, submission *models.FormTemplateSubmission) (*Resolution, error) {
	active, err := scope.IsActive(r.userID)
	if err != nil {
		return nil, err
	}
	if !active {
		// The workflow names a specific user who cannot act; that is a
		// definition problem, not a membership one.
		return nil, &ConfigurationError{StepID: r.stepID, Reason: "assigned user is not active"}
	}
	id := r.userID
	return &Resolution{UserID: &id, Candidates: []uint{id}}, nil
}

type submitterRule struct{}

func (r submitterRule) principal() models.PrincipalType { return models.PrincipalUser }
func (r submitterRule) principalID() uint               { return 0 }

func (r submitterRule) resolve(db *gorm.DB, scope ScopeProvider, submission *models.FormTemplateSubmission) (*Resolution, error) {
	id := submission.SubmittedBy
	return &Resolution{UserID: &id, Candidates: []uint{id}}, nil
}

// previousActorRule routes the step back to whoever acted on the nearest
// earlier completed step.
type previousActorRule struct {
	stepID     uint
	workflowID uint
	stepOrder  int
}

func (r previousActorRule) principal() models.PrincipalType { return models.PrincipalUser }
func (r previousActorRule) principalID() uint               { return 0 }

func (r previousActorRule) resolve(db *gorm.DB, scope ScopeProvider, submission *models.FormTemplateSubmission) (*Resolution, error) {
	var prev models.SubmissionWorkflowProgress
	err := db.Joins("JOIN workflow_steps ON workflow_steps.id = submission_workflow_progresses.step_id").
		Where("submission_workflow_progresses.submission_id = ?", submission.ID).
		Where("workflow_steps.step_order < ?", r.stepOrder).
		Where("submission_workflow_progresses.action_by IS NOT NULL").
		Order("workflow_steps.step_order DESC, submission_workflow_progresses.action_date DESC").
		First(&prev).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// PreviousActor on a step with no earlier actor is a workflow
			// definition mistake.
			return nil, &ConfigurationError{StepID: r.stepID, Reason: "no earlier actor exists for a PreviousActor step"}
		}
		return nil, err
	}

	id := *prev.ActionBy
	return &Resolution{UserID: &id, Candidates: []uint{id}}, nil
}

// fieldValueRule reads a user ID out of one of the submission's own
// responses.
type fieldValueRule struct {
	stepID  uint
	fieldID uint
}

func (r fieldValueRule) principal() models.PrincipalType { return models.PrincipalUser }
func (r fieldValueRule) principalID() uint               { return 0 }

func (r fieldValueRule) resolve(db *gorm.DB, scope ScopeProvider, submission *models.FormTemplateSubmission) (*Resolution, error) {
	var resp models.FormResponse
	err := db.Where("submission_id = ? AND field_id = ?", submission.ID, r.fieldID).First(&resp).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &ConfigurationError{StepID: r.stepID, Reason: "submission has no response for the assignee field"}
		}
		return nil, err
	}

	var userID uint
	if resp.NumericValue != nil {
		userID = uint(*resp.NumericValue)
	} else if resp.TextValue != "" {
		parsed, err := strconv.ParseUint(resp.TextValue, 10, 64)
		if err != nil {
			return nil, &ConfigurationError{StepID: r.stepID, Reason: "assignee field value is not a user ID"}
		}
		userID = uint(parsed)
	}
	if userID == 0 {
		return nil, &ConfigurationError{StepID: r.stepID, Reason: "assignee field is empty"}
	}

	active, err := scope.IsActive(userID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, &NoEligibleAssigneeError{StepID: r.stepID, Reason: "user from assignee field is not active"}
	}

	return &Resolution{UserID: &userID, Candidates: []uint{userID}}, nil
}

type departmentRule struct {
	departmentID uint
}

func (r departmentRule) principal() models.PrincipalType { return models.PrincipalDepartment }
func (r departmentRule) principalID() uint               { return r.departmentID }

func (r departmentRule) resolve(db *gorm.DB, scope ScopeProvider, submission *models.FormTemplateSubmission) (*Resolution, error) {
	candidates, err := scope.UsersInDepartment(r.departmentID)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Candidates: candidates, Dynamic: true}
	if len(candidates) == 1 {
		res.UserID = &candidates[0]
	}
	return res, nil
}
