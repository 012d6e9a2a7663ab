package engine

import (
	"github.com/formflow/platform/internal/models"
)

// dependenciesSatisfied decides whether a step may activate.
//
// A step with explicit dependencies waits for exactly those steps and
// ignores ordering. Without explicit dependencies, it waits for every
// mandatory step with a strictly lower order; non-mandatory steps never
// gate by order, and steps sharing an order are parallel branches that
// never gate each other.
//
// A terminal-success dependency always satisfies. A Skipped dependency
// satisfies only when the skipped step was not mandatory. A Rejected
// mandatory dependency permanently blocks the step.
func dependenciesSatisfied(
	step *models.WorkflowStep,
	steps map[uint]*models.WorkflowStep,
	progress map[uint]*models.SubmissionWorkflowProgress,
) (bool, error) {
	deps, err := step.DependsOn()
	if err != nil {
		return false, &ConfigurationError{StepID: step.ID, Reason: "depends_on_step_ids is not a valid ID list"}
	}

	if len(deps) > 0 {
		for _, depID := range deps {
			depStep, ok := steps[depID]
			if !ok {
				return false, &ConfigurationError{StepID: step.ID, Reason: "dependency references a step outside this workflow"}
			}
			if !depSatisfied(depStep, progress[depID]) {
				return false, nil
			}
		}
		return true, nil
	}

	for id, other := range steps {
		if id == step.ID || other.StepOrder >= step.StepOrder || !other.IsMandatory {
			continue
		}
		if !depSatisfied(other, progress[id]) {
			return false, nil
		}
	}
	return true, nil
}

func depSatisfied(depStep *models.WorkflowStep, p *models.SubmissionWorkflowProgress) bool {
	if p == nil {
		return false
	}
	if p.Status.TerminalSuccess() {
		return true
	}
	if p.Status == models.StepSkipped {
		return !depStep.IsMandatory
	}
	return false
}

// blockedForever reports whether a step can never activate because a
// mandatory step it depends on was rejected.
func blockedForever(
	step *models.WorkflowStep,
	steps map[uint]*models.WorkflowStep,
	progress map[uint]*models.SubmissionWorkflowProgress,
) bool {
	deps, err := step.DependsOn()
	if err != nil {
		return false
	}

	if len(deps) > 0 {
		// An explicit dependency demands terminal success, so a rejected
		// dependency is dead no matter its mandatory flag; a skipped one is
		// dead only when the skip can never satisfy (mandatory dep).
		for _, depID := range deps {
			depStep, ok := steps[depID]
			if !ok {
				continue
			}
			p := progress[depID]
			if p == nil {
				continue
			}
			if p.Status == models.StepRejected {
				return true
			}
			if p.Status == models.StepSkipped && depStep.IsMandatory {
				return true
			}
		}
		return false
	}

	for id, other := range steps {
		if id == step.ID || other.StepOrder >= step.StepOrder || !other.IsMandatory {
			continue
		}
		p := progress[id]
		if p == nil {
			continue
		}
		if p.Status == models.StepRejected || p.Status == models.StepSkipped {
			return true
		}
	}
	return false
}
