package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AssigneeType selects how a step's actor is determined.
type AssigneeType string

const (
	AssigneeRole          AssigneeType = "Role"
	AssigneeUser          AssigneeType = "User"
	AssigneeSubmitter     AssigneeType = "Submitter"
	AssigneePreviousActor AssigneeType = "PreviousActor"
	AssigneeFieldValue    AssigneeType = "FieldValue"
	AssigneeDepartment    AssigneeType = "Department"
)

// StepTargetType scopes what part of the submission a step acts on.
type StepTargetType string

const (
	TargetSubmission StepTargetType = "Submission"
	TargetSection    StepTargetType = "Section"
	TargetField      StepTargetType = "Field"
)

// PrincipalType records what kind of principal a progress row was routed
// to: a pinned user, or a role/department whose membership is live.
type PrincipalType string

const (
	PrincipalUser       PrincipalType = "User"
	PrincipalRole       PrincipalType = "Role"
	PrincipalDepartment PrincipalType = "Department"
)

type StepStatus string

const (
	StepPending    StepStatus = "Pending"
	StepInProgress StepStatus = "InProgress"
	StepCompleted  StepStatus = "Completed"
	StepApproved   StepStatus = "Approved"
	StepRejected   StepStatus = "Rejected"
	StepSkipped    StepStatus = "Skipped"
)

// Terminal reports whether the status can no longer change.
func (s StepStatus) Terminal() bool {
	return s == StepCompleted || s == StepApproved || s == StepRejected || s == StepSkipped
}

// TerminalSuccess reports whether the step finished the way its workflow
// wanted it to.
func (s StepStatus) TerminalSuccess() bool {
	return s == StepCompleted || s == StepApproved
}

// Actionable reports whether a complete/reject/delegate may still land on
// the step.
func (s StepStatus) Actionable() bool {
	return s == StepInProgress
}

type WorkflowDefinition struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"size:150" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedBy   uint           `json:"created_by"`
	Creator     *User          `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Steps       []WorkflowStep `gorm:"foreignKey:WorkflowID" json:"steps,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

type WorkflowStep struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	WorkflowID       uint            `gorm:"index" json:"workflow_id"`
	Name             string          `gorm:"size:150" json:"name"`
	StepOrder        int             `json:"step_order"`
	ActionID         uint            `gorm:"index" json:"action_id"`
	Action           *WorkflowAction `gorm:"foreignKey:ActionID" json:"action,omitempty"`
	TargetType       StepTargetType  `gorm:"size:20;default:'Submission'" json:"target_type"`
	TargetID         *uint           `json:"target_id,omitempty"`
	AssigneeType     AssigneeType    `gorm:"size:20" json:"assignee_type"`
	AssigneeRoleID   *uint           `json:"assignee_role_id,omitempty"`
	AssigneeUserID   *uint           `json:"assignee_user_id,omitempty"`
	AssigneeFieldID  *uint           `json:"assignee_field_id,omitempty"`
	AssigneeDeptID   *uint           `json:"assignee_department_id,omitempty"`
	IsParallel       bool            `gorm:"default:false" json:"is_parallel"`
	IsMandatory      bool            `gorm:"default:true" json:"is_mandatory"`
	DependsOnStepIDs datatypes.JSON  `json:"depends_on_step_ids,omitempty"`
	DueDays          *int            `json:"due_days,omitempty"`
	EscalationRoleID *uint           `json:"escalation_role_id,omitempty"`
	AutoApproveRule  datatypes.JSON  `json:"auto_approve_rule,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`
}

// DependsOn decodes the DependsOnStepIDs column. A null or empty column
// means the step has no explicit dependencies.
func (s *WorkflowStep) DependsOn() ([]uint, error) {
	if len(s.DependsOnStepIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	if err := json.Unmarshal(s.DependsOnStepIDs, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// AutoApproveCondition is the decoded form of a step's AutoApproveRule.
type AutoApproveCondition struct {
	FieldID  uint   `json:"field_id"`
	Operator string `json:"operator"` // eq, neq, gt, gte, lt, lte
	Value    string `json:"value"`
}

// AutoApprove decodes the AutoApproveRule column, returning nil when the
// step has no rule.
func (s *WorkflowStep) AutoApprove() (*AutoApproveCondition, error) {
	if len(s.AutoApproveRule) == 0 {
		return nil, nil
	}
	var cond AutoApproveCondition
	if err := json.Unmarshal(s.AutoApproveRule, &cond); err != nil {
		return nil, err
	}
	if cond.FieldID == 0 {
		return nil, nil
	}
	return &cond, nil
}

// WorkflowAction is the catalog of verbs a step actor can take. The
// flags describe semantics shared by every step of that action type.
type WorkflowAction struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Name              string         `gorm:"size:50;uniqueIndex" json:"name"`
	Code              string         `gorm:"size:20;uniqueIndex" json:"code"`
	RequiresSignature bool           `gorm:"default:false" json:"requires_signature"`
	RequiresComment   bool           `gorm:"default:false" json:"requires_comment"`
	AllowDelegate     bool           `gorm:"default:false" json:"allow_delegate"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

const (
	ActionFill    = "FILL"
	ActionSign    = "SIGN"
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
	ActionReview  = "REVIEW"
	ActionVerify  = "VERIFY"
)

// CompletionStatus is the terminal status a successful action lands on.
// Only an approval-type action yields Approved; the rest complete.
func (a *WorkflowAction) CompletionStatus() StepStatus {
	if a.Code == ActionApprove {
		return StepApproved
	}
	return StepCompleted
}

// SubmissionWorkflowProgress is one step's state for one submission. The
// action and target scope are copied in at creation so later edits to the
// workflow definition cannot change a run in flight; the copied values
// stay authoritative for history.
type SubmissionWorkflowProgress struct {
	ID           uint                    `gorm:"primaryKey" json:"id"`
	SubmissionID uint                    `gorm:"uniqueIndex:idx_submission_step" json:"submission_id"`
	Submission   *FormTemplateSubmission `gorm:"foreignKey:SubmissionID" json:"submission,omitempty"`
	StepID       uint                    `gorm:"uniqueIndex:idx_submission_step" json:"step_id"`
	Step         *WorkflowStep           `gorm:"foreignKey:StepID" json:"step,omitempty"`
	Status       StepStatus              `gorm:"size:20;default:'Pending';index" json:"status"`

	ActionID   uint            `json:"action_id"`
	Action     *WorkflowAction `gorm:"foreignKey:ActionID" json:"action,omitempty"`
	TargetType StepTargetType  `gorm:"size:20" json:"target_type"`
	TargetID   *uint           `json:"target_id,omitempty"`

	PrincipalType PrincipalType `gorm:"size:20" json:"principal_type,omitempty"`
	PrincipalID   uint          `json:"principal_id,omitempty"`
	AssignedTo    *uint         `gorm:"index" json:"assigned_to,omitempty"`
	Assignee      *User         `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`

	DelegatedTo    *uint      `gorm:"index" json:"delegated_to,omitempty"`
	Delegate       *User      `gorm:"foreignKey:DelegatedTo" json:"delegate,omitempty"`
	DelegatedBy    *uint      `json:"delegated_by,omitempty"`
	DelegatedDate  *time.Time `json:"delegated_date,omitempty"`
	DelegationNote string     `gorm:"type:text" json:"delegation_note,omitempty"`

	AssignedDate *time.Time `json:"assigned_date,omitempty"`
	DueDate      *time.Time `gorm:"index" json:"due_date,omitempty"`
	ActionDate   *time.Time `json:"action_date,omitempty"`
	ActionBy     *uint      `json:"action_by,omitempty"`
	Actor        *User      `gorm:"foreignKey:ActionBy" json:"actor,omitempty"`
	Comments     string     `gorm:"type:text" json:"comments,omitempty"`

	SignatureType      string     `gorm:"size:30" json:"signature_type,omitempty"`
	SignatureData      string     `gorm:"size:500" json:"signature_data,omitempty"`
	SignatureIP        string     `gorm:"size:45" json:"signature_ip,omitempty"`
	SignatureTimestamp *time.Time `json:"signature_timestamp,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Activated reports whether the step has been handed to its assignees.
func (p *SubmissionWorkflowProgress) Activated() bool {
	return p.AssignedDate != nil
}
