package role

import (
	"github.com/formflow/platform/internal/database"
	"github.com/formflow/platform/internal/models"
	"gorm.io/gorm"
)

func SeedDefaultRoles() error {
	// Employee - fills in and submits assigned forms
	employeePerms := []models.Permission{
		{Module: "FormTemplate", Action: "read"},
		{Module: "Submission", Action: "create"},
		{Module: "Submission", Action: "read"},
		{Module: "Submission", Action: "update"},
	}
	_, _ = CreateRole(database.DB, "employee", "Fills in and submits assigned forms", models.ScopeTenant, employeePerms)

	// Approver - acts on workflow steps routed to them
	approverPerms := []models.Permission{
		{Module: "FormTemplate", Action: "read"},
		{Module: "Submission", Action: "read"},
		{Module: "Submission", Action: "approve"},
		{Module: "Submission", Action: "delegate"},
	}
	_, _ = CreateRole(database.DB, "approver", "Acts on workflow steps routed to them", models.ScopeTenant, approverPerms)

	// Manager - designs forms and workflows for their tenant
	managerPerms := []models.Permission{
		{Module: "FormTemplate", Action: "create"},
		{Module: "FormTemplate", Action: "read"},
		{Module: "FormTemplate", Action: "update"},
		{Module: "FormTemplate", Action: "assign"},
		{Module: "Submission", Action: "read"},
		{Module: "Submission", Action: "approve"},
		{Module: "Submission", Action: "delegate"},
		{Module: "Workflow", Action: "create"},
		{Module: "Workflow", Action: "read"},
		{Module: "Workflow", Action: "update"},
		{Module: "Metric", Action: "read"},
	}
	_, _ = CreateRole(database.DB, "manager", "Designs forms and workflows for their tenant", models.ScopeTenant, managerPerms)

	// Admin - full access across every tenant
	adminPerms := []models.Permission{
		{Module: "FormTemplate", Action: "create"},
		{Module: "FormTemplate", Action: "read"},
		{Module: "FormTemplate", Action: "update"},
		{Module: "FormTemplate", Action: "delete"},
		{Module: "FormTemplate", Action: "assign"},
		{Module: "Submission", Action: "create"},
		{Module: "Submission", Action: "read"},
		{Module: "Submission", Action: "update"},
		{Module: "Submission", Action: "delete"},
		{Module: "Submission", Action: "approve"},
		{Module: "Submission", Action: "delegate"},
		{Module: "Workflow", Action: "create"},
		{Module: "Workflow", Action: "read"},
		{Module: "Workflow", Action: "update"},
		{Module: "Workflow", Action: "delete"},
		{Module: "Metric", Action: "create"},
		{Module: "Metric", Action: "read"},
		{Module: "Metric", Action: "update"},
		{Module: "Metric", Action: "delete"},
		{Module: "User", Action: "create"},
		{Module: "User", Action: "read"},
		{Module: "User", Action: "update"},
		{Module: "User", Action: "delete"},
		{Module: "Organization", Action: "create"},
		{Module: "Organization", Action: "read"},
		{Module: "Organization", Action: "update"},
		{Module: "Organization", Action: "delete"},
	}
	_, _ = CreateRole(database.DB, "admin", "Full access to all resources", models.ScopeGlobal, adminPerms)

	return nil
}

func SeedWorkflowActions(db *gorm.DB) error {
	actions := []models.WorkflowAction{
		{Name: "Fill", Code: models.ActionFill},
		{Name: "Sign", Code: models.ActionSign, RequiresSignature: true},
		{Name: "Approve", Code: models.ActionApprove, AllowDelegate: true},
		{Name: "Reject", Code: models.ActionReject, RequiresComment: true},
		{Name: "Review", Code: models.ActionReview, RequiresComment: true, AllowDelegate: true},
		{Name: "Verify", Code: models.ActionVerify, AllowDelegate: true},
	}

	for _, action := range actions {
		var existing models.WorkflowAction
		result := db.Where("code = ?", action.Code).First(&existing)

		if result.Error == gorm.ErrRecordNotFound {
			if err := db.Create(&action).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
