package engine

import "fmt"

// NotFoundError reports a missing submission, step, or progress record.
type NotFoundError struct {
	Resource string
	ID       uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// UnauthorizedError reports an action attempt by a user who is neither
// assigned, delegated, nor a current member of the step's target scope.
type UnauthorizedError struct {
	UserID uint
	StepID uint
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("user %d is not authorized to act on step %d", e.UserID, e.StepID)
}

// ConfigurationError reports a step whose assignee settings are
// incomplete, such as a Role step with no role ID.
type ConfigurationError struct {
	StepID uint
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("step %d is misconfigured: %s", e.StepID, e.Reason)
}

// NoEligibleAssigneeError reports a resolution that produced zero
// candidates, for example a role nobody in the tenant holds.
type NoEligibleAssigneeError struct {
	StepID uint
	Reason string
}

func (e *NoEligibleAssigneeError) Error() string {
	return fmt.Sprintf("no eligible assignee for step %d: %s", e.StepID, e.Reason)
}

// InvalidOperationError reports an action that the current state does not
// permit, such as approving a step that is already terminal.
type InvalidOperationError struct {
	Reason string
}

func (e *InvalidOperationError) Error() string {
	return e.Reason
}

// AlreadyInitializedError reports a second initialization attempt for a
// submission that already has progress records.
type AlreadyInitializedError struct {
	SubmissionID uint
}

func (e *AlreadyInitializedError) Error() string {
	return fmt.Sprintf("workflow already initialized for submission %d", e.SubmissionID)
}
