package engine

import (
	"errors"

	"github.com/formflow/platform/internal/database"
	"github.com/formflow/platform/internal/models"
	"github.com/formflow/platform/internal/org"
	"github.com/formflow/platform/internal/response"
	"github.com/formflow/platform/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// Default returns an engine bound to the global database handle.
func Default() *Engine {
	return New(database.DB, org.NewScopeService(database.DB))
}

// writeError maps engine errors onto the response envelope. Everything
// that is not a missing resource or an authorization failure is a bad
// request.
func writeError(c *fiber.Ctx, err error) error {
	var notFound *NotFoundError
	var unauthorized *UnauthorizedError
	var config *ConfigurationError
	var noAssignee *NoEligibleAssigneeError
	var invalidOp *InvalidOperationError
	var alreadyInit *AlreadyInitializedError

	switch {
	case errors.As(err, &notFound):
		return response.Error(c, fiber.StatusNotFound, "NOT_FOUND", notFound.Error(), nil)
	case errors.As(err, &unauthorized):
		return response.Error(c, fiber.StatusForbidden, "NOT_STEP_ACTOR", unauthorized.Error(), nil)
	case errors.As(err, &config):
		return response.Error(c, fiber.StatusBadRequest, "STEP_MISCONFIGURED", config.Error(), nil)
	case errors.As(err, &noAssignee):
		return response.Error(c, fiber.StatusBadRequest, "NO_ELIGIBLE_ASSIGNEE", noAssignee.Error(), nil)
	case errors.As(err, &alreadyInit):
		return response.Error(c, fiber.StatusBadRequest, "ALREADY_INITIALIZED", alreadyInit.Error(), nil)
	case errors.As(err, &invalidOp):
		return response.Error(c, fiber.StatusBadRequest, "INVALID_OPERATION", invalidOp.Error(), nil)
	default:
		return response.InternalError(c, "Workflow operation failed")
	}
}

func InitializeHandler(c *fiber.Ctx) error {
	submissionID, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid submission ID", nil)
	}

	eng := Default()
	if err := eng.Initialize(uint(submissionID)); err != nil {
		return writeError(c, err)
	}

	status, rows, err := eng.Status(uint(submissionID))
	if err != nil {
		return writeError(c, err)
	}

	return response.Created(c, fiber.Map{
		"status":   status,
		"progress": rows,
	}, "Workflow initialized")
}

func StatusHandler(c *fiber.Ctx) error {
	submissionID, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid submission ID", nil)
	}

	status, rows, err := Default().Status(uint(submissionID))
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, fiber.Map{
		"status":   status,
		"progress": rows,
	}, "Workflow status retrieved")
}

func CompleteHandler(c *fiber.Ctx) error {
	submissionID, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid submission ID", nil)
	}
	stepID, err := c.ParamsInt("stepId")
	if err != nil {
		return response.BadRequest(c, "Invalid step ID", nil)
	}
	userID := c.Locals("user_id").(uint)

	var body struct {
		Comments      string `json:"comments"`
		SignatureType string `json:"signature_type"`
		SignatureData string `json:"signature_data"`
	}
	_ = c.BodyParser(&body)

	comments := c.FormValue("comments")
	if comments == "" {
		comments = body.Comments
	}

	// Signature steps either upload the drawn signature as a file or send
	// the captured payload inline.
	var sig *Signature
	if file, err := c.FormFile("signature"); err == nil && file != nil {
		key, err := utils.UploadFile(file, utils.KindSignature)
		if err != nil {
			return response.InternalError(c, "Failed to store signature")
		}
		sig = &Signature{Type: "image", Data: key, IP: c.IP()}
	} else if body.SignatureData != "" {
		sigType := body.SignatureType
		if sigType == "" {
			sigType = "drawn"
		}
		sig = &Signature{Type: sigType, Data: body.SignatureData, IP: c.IP()}
	}

	if err := Default().Complete(uint(submissionID), uint(stepID), userID, comments, sig); err != nil {
		return writeError(c, err)
	}

	return response.Success(c, nil, "Step completed")
}

func RejectHandler(c *fiber.Ctx) error {
	submissionID, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid submission ID", nil)
	}
	stepID, err := c.ParamsInt("stepId")
	if err != nil {
		return response.BadRequest(c, "Invalid step ID", nil)
	}
	userID := c.Locals("user_id").(uint)

	var body struct {
		Comments string `json:"comments"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if err := Default().Reject(uint(submissionID), uint(stepID), userID, body.Comments); err != nil {
		return writeError(c, err)
	}

	return response.Success(c, nil, "Step rejected")
}

func DelegateHandler(c *fiber.Ctx) error {
	submissionID, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid submission ID", nil)
	}
	stepID, err := c.ParamsInt("stepId")
	if err != nil {
		return response.BadRequest(c, "Invalid step ID", nil)
	}
	userID := c.Locals("user_id").(uint)

	var body struct {
		ToUserID uint   `json:"to_user_id"`
		Note     string `json:"note"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if body.ToUserID == 0 {
		return response.ValidationError(c, map[string]string{
			"to_user_id": "to_user_id is required",
		})
	}

	if err := Default().Delegate(uint(submissionID), uint(stepID), userID, body.ToUserID, body.Note); err != nil {
		return writeError(c, err)
	}

	return response.Success(c, nil, "Step delegated")
}

// CurrentStepsHandler lists the submission's steps awaiting action.
func CurrentStepsHandler(c *fiber.Ctx) error {
	submissionID, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid submission ID", nil)
	}

	rows, err := Default().CurrentSteps(uint(submissionID))
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, rows, "Current steps retrieved")
}

// CanActHandler answers whether the caller can act on one step, or on
// any awaiting step scoped to a section or field of the submission when
// target_type/target_id query parameters are given.
func CanActHandler(c *fiber.Ctx) error {
	submissionID, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid submission ID", nil)
	}
	stepID, err := c.ParamsInt("stepId")
	if err != nil {
		return response.BadRequest(c, "Invalid step ID", nil)
	}
	userID := c.Locals("user_id").(uint)

	canAct, err := Default().CanUserActOnStep(userID, uint(submissionID), uint(stepID))
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, fiber.Map{"can_act": canAct}, "Permission checked")
}

// CanActOnTargetHandler answers whether the caller can act on any
// awaiting step scoped to the given section or field.
func CanActOnTargetHandler(c *fiber.Ctx) error {
	submissionID, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid submission ID", nil)
	}
	userID := c.Locals("user_id").(uint)

	target := models.StepTargetType(c.Query("target_type", string(models.TargetSubmission)))
	switch target {
	case models.TargetSubmission, models.TargetSection, models.TargetField:
	default:
		return response.BadRequest(c, "Invalid target type", nil)
	}
	targetID := uint(c.QueryInt("target_id"))
	if target != models.TargetSubmission && targetID == 0 {
		return response.ValidationError(c, map[string]string{
			"target_id": "target_id is required for section and field targets",
		})
	}

	canAct, err := Default().CanUserActOnTarget(userID, uint(submissionID), target, targetID)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, fiber.Map{"can_act": canAct}, "Permission checked")
}

// CheckDependenciesHandler answers whether a step's dependencies are
// currently satisfied.
func CheckDependenciesHandler(c *fiber.Ctx) error {
	submissionID, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid submission ID", nil)
	}
	stepID, err := c.ParamsInt("stepId")
	if err != nil {
		return response.BadRequest(c, "Invalid step ID", nil)
	}

	satisfied, err := Default().CheckStepDependencies(uint(submissionID), uint(stepID))
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, fiber.Map{"satisfied": satisfied}, "Dependencies checked")
}

// RunSweepsHandler triggers the escalation and auto-approval sweeps on
// demand instead of waiting for the maintenance ticker.
func RunSweepsHandler(c *fiber.Ctx) error {
	eng := Default()

	if err := eng.ProcessEscalations(); err != nil {
		return writeError(c, err)
	}
	if err := eng.ProcessAutoApprovals(); err != nil {
		return writeError(c, err)
	}

	return response.Success(c, nil, "Workflow sweeps completed")
}

func PendingHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	rows, err := Default().PendingForUser(userID)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, rows, "Pending steps retrieved")
}

// PendingCountHandler returns how many steps await the caller's action.
func PendingCountHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	count, err := Default().PendingCountForUser(userID)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, fiber.Map{"count": count}, "Pending count retrieved")
}
