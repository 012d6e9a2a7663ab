package engine_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/formflow/platform/internal/database"
	"github.com/formflow/platform/internal/models"
	"github.com/formflow/platform/internal/notify"
	"github.com/formflow/platform/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func actionByCode(t *testing.T, db *gorm.DB, code string) *models.WorkflowAction {
	var action models.WorkflowAction
	require.NoError(t, db.Where("code = ?", code).First(&action).Error)
	return &action
}

// submittedWithUserStep wires a submitted submission to a one-step
// workflow assigned directly to the given user.
func submittedWithUserStep(t *testing.T, db *gorm.DB, submitterID, assigneeID uint, actionCode string) (*models.FormTemplateSubmission, *models.WorkflowStep) {
	wf := models.WorkflowDefinition{Name: "Review Flow", IsActive: true, CreatedBy: submitterID}
	require.NoError(t, db.Create(&wf).Error)

	step := models.WorkflowStep{
		WorkflowID:     wf.ID,
		Name:           "Review",
		StepOrder:      1,
		ActionID:       actionByCode(t, db, actionCode).ID,
		AssigneeType:   models.AssigneeUser,
		AssigneeUserID: &assigneeID,
		IsMandatory:    true,
	}
	require.NoError(t, db.Create(&step).Error)

	template := models.FormTemplate{
		Name:          "Reviewed Form",
		Code:          fmt.Sprintf("RF-%s", t.Name()),
		PublishStatus: models.PublishPublished,
		WorkflowID:    &wf.ID,
		CreatedBy:     submitterID,
	}
	require.NoError(t, db.Create(&template).Error)

	now := time.Now()
	sub := models.FormTemplateSubmission{
		TemplateID:    template.ID,
		SubmittedBy:   submitterID,
		TenantID:      1,
		Status:        models.SubmissionSubmitted,
		SubmittedDate: &now,
	}
	require.NoError(t, db.Create(&sub).Error)

	return &sub, &step
}

func TestInitializeEndpoint(t *testing.T) {
	app := testutils.SetupTestApp(t)
	db := database.DB

	employee := testutils.CreateTestUser(t, db, "emp@example.com", "secret123", "employee")
	approver := testutils.CreateTestUser(t, db, "approver@example.com", "secret123", "approver")
	token := testutils.GetAuthToken(t, employee.ID, "employee")

	sub, _ := submittedWithUserStep(t, db, employee.ID, approver.ID, models.ActionApprove)

	resp, err := testutils.MakeRequest(app, "POST", fmt.Sprintf("/workflow-engine/submissions/%d/initialize", sub.ID), nil, token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Code)

	var result testutils.StandardResponse
	testutils.ParseResponse(t, resp, &result)
	require.True(t, result.Success)
	data := result.Data.(map[string]interface{})
	assert.Equal(t, "InProgress", data["status"])

	// A second initialization is rejected.
	resp, err = testutils.MakeRequest(app, "POST", fmt.Sprintf("/workflow-engine/submissions/%d/initialize", sub.ID), nil, token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	testutils.AssertError(t, resp, "ALREADY_INITIALIZED")

	resp, err = testutils.MakeRequest(app, "POST", "/workflow-engine/submissions/9999/initialize", nil, token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	testutils.AssertError(t, resp, "NOT_FOUND")
}

func TestCompleteEndpointAuthorization(t *testing.T) {
	app := testutils.SetupTestApp(t)
	db := database.DB

	employee := testutils.CreateTestUser(t, db, "emp@example.com", "secret123", "employee")
	assigned := testutils.CreateTestUser(t, db, "assigned@example.com", "secret123", "approver")
	bystander := testutils.CreateTestUser(t, db, "bystander@example.com", "secret123", "approver")

	empToken := testutils.GetAuthToken(t, employee.ID, "employee")
	assignedToken := testutils.GetAuthToken(t, assigned.ID, "approver")
	bystanderToken := testutils.GetAuthToken(t, bystander.ID, "approver")

	sub, step := submittedWithUserStep(t, db, employee.ID, assigned.ID, models.ActionApprove)

	resp, err := testutils.MakeRequest(app, "POST", fmt.Sprintf("/workflow-engine/submissions/%d/initialize", sub.ID), nil, empToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)

	url := fmt.Sprintf("/workflow-engine/submissions/%d/steps/%d/complete", sub.ID, step.ID)

	// Another approver holds the permission but is not this step's actor.
	resp, err = testutils.MakeRequest(app, "POST", url, map[string]interface{}{"comments": "mine now"}, bystanderToken)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	testutils.AssertError(t, resp, "NOT_STEP_ACTOR")

	resp, err = testutils.MakeRequest(app, "POST", url, map[string]interface{}{"comments": "done"}, assignedToken)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	var p models.SubmissionWorkflowProgress
	require.NoError(t, db.Where("submission_id = ? AND step_id = ?", sub.ID, step.ID).First(&p).Error)
	assert.Equal(t, models.StepApproved, p.Status)

	// Acting twice on the same step is refused.
	resp, err = testutils.MakeRequest(app, "POST", url, map[string]interface{}{"comments": "again"}, assignedToken)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	testutils.AssertError(t, resp, "INVALID_OPERATION")
}

func TestRejectEndpointRequiresComments(t *testing.T) {
	app := testutils.SetupTestApp(t)
	db := database.DB

	employee := testutils.CreateTestUser(t, db, "emp@example.com", "secret123", "employee")
	assigned := testutils.CreateTestUser(t, db, "assigned@example.com", "secret123", "approver")
	empToken := testutils.GetAuthToken(t, employee.ID, "employee")
	assignedToken := testutils.GetAuthToken(t, assigned.ID, "approver")

	sub, step := submittedWithUserStep(t, db, employee.ID, assigned.ID, models.ActionApprove)
	resp, err := testutils.MakeRequest(app, "POST", fmt.Sprintf("/workflow-engine/submissions/%d/initialize", sub.ID), nil, empToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)

	url := fmt.Sprintf("/workflow-engine/submissions/%d/steps/%d/reject", sub.ID, step.ID)

	resp, err = testutils.MakeRequest(app, "POST", url, map[string]interface{}{}, assignedToken)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	testutils.AssertError(t, resp, "INVALID_OPERATION")

	resp, err = testutils.MakeRequest(app, "POST", url, map[string]interface{}{"comments": "incomplete"}, assignedToken)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	var sub2 models.FormTemplateSubmission
	require.NoError(t, db.First(&sub2, sub.ID).Error)
	assert.Equal(t, models.SubmissionRejected, sub2.Status)
}

func TestCompleteEndpointWithSignatureUpload(t *testing.T) {
	app := testutils.SetupTestApp(t)
	db := database.DB

	employee := testutils.CreateTestUser(t, db, "emp@example.com", "secret123", "employee")
	assigned := testutils.CreateTestUser(t, db, "assigned@example.com", "secret123", "approver")
	empToken := testutils.GetAuthToken(t, employee.ID, "employee")
	assignedToken := testutils.GetAuthToken(t, assigned.ID, "approver")

	sub, step := submittedWithUserStep(t, db, employee.ID, assigned.ID, models.ActionSign)
	resp, err := testutils.MakeRequest(app, "POST", fmt.Sprintf("/workflow-engine/submissions/%d/initialize", sub.ID), nil, empToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)

	url := fmt.Sprintf("/workflow-engine/submissions/%d/steps/%d/complete", sub.ID, step.ID)

	// The action demands a signature; a bare completion is refused.
	resp, err = testutils.MakeRequest(app, "POST", url, map[string]interface{}{"comments": "unsigned"}, assignedToken)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	testutils.AssertError(t, resp, "INVALID_OPERATION")

	signature := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	resp, err = testutils.MakeMultipartRequestWithFile(app, "POST", url,
		map[string]string{"comments": "signed off"},
		map[string][]byte{"signature": signature},
		assignedToken)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	var p models.SubmissionWorkflowProgress
	require.NoError(t, db.Where("submission_id = ? AND step_id = ?", sub.ID, step.ID).First(&p).Error)
	assert.Equal(t, models.StepCompleted, p.Status)
	assert.Equal(t, "image", p.SignatureType)
	assert.NotEmpty(t, p.SignatureData)
	assert.NotNil(t, p.SignatureTimestamp)
}

func TestCompleteEndpointWithInlineSignature(t *testing.T) {
	app := testutils.SetupTestApp(t)
	db := database.DB

	employee := testutils.CreateTestUser(t, db, "emp@example.com", "secret123", "employee")
	assigned := testutils.CreateTestUser(t, db, "assigned@example.com", "secret123", "approver")
	empToken := testutils.GetAuthToken(t, employee.ID, "employee")
	assignedToken := testutils.GetAuthToken(t, assigned.ID, "approver")

	sub, step := submittedWithUserStep(t, db, employee.ID, assigned.ID, models.ActionSign)
	resp, err := testutils.MakeRequest(app, "POST", fmt.Sprintf("/workflow-engine/submissions/%d/initialize", sub.ID), nil, empToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)

	url := fmt.Sprintf("/workflow-engine/submissions/%d/steps/%d/complete", sub.ID, step.ID)
	resp, err = testutils.MakeRequest(app, "POST", url, map[string]interface{}{
		"comments":       "signed inline",
		"signature_data": "data:image/png;base64,iVBORw0KGgo=",
	}, assignedToken)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	var p models.SubmissionWorkflowProgress
	require.NoError(t, db.Where("submission_id = ? AND step_id = ?", sub.ID, step.ID).First(&p).Error)
	assert.Equal(t, "drawn", p.SignatureType)
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", p.SignatureData)
}

func TestStatusEndpoint(t *testing.T) {
	app := testutils.SetupTestApp(t)
	db := database.DB

	employee := testutils.CreateTestUser(t, db, "emp@example.com", "secret123", "employee")
	assigned := testutils.CreateTestUser(t, db, "assigned@example.com", "secret123", "approver")
	token := testutils.GetAuthToken(t, employee.ID, "employee")

	sub, _ := submittedWithUserStep(t, db, employee.ID, assigned.ID, models.ActionApprove)

	resp, err := testutils.MakeRequest(app, "GET", fmt.Sprintf("/workflow-engine/submissions/%d/status", sub.ID), nil, token)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Code)

	var result testutils.StandardResponse
	testutils.ParseResponse(t, resp, &result)
	data := result.Data.(map[string]interface{})
	assert.Equal(t, "NotStarted", data["status"])

	resp, err = testutils.MakeRequest(app, "POST", fmt.Sprintf("/workflow-engine/submissions/%d/initialize", sub.ID), nil, token)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)

	resp, err = testutils.MakeRequest(app, "GET", fmt.Sprintf("/workflow-engine/submissions/%d/status", sub.ID), nil, token)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Code)
	testutils.ParseResponse(t, resp, &result)
	data = result.Data.(map[string]interface{})
	assert.Equal(t, "InProgress", data["status"])
	assert.Len(t, data["progress"].([]interface{}), 1)
}

func TestCurrentStepsAndCanActEndpoints(t *testing.T) {
	app := testutils.SetupTestApp(t)
	db := database.DB

	employee := testutils.CreateTestUser(t, db, "emp@example.com", "secret123", "employee")
	assigned := testutils.CreateTestUser(t, db, "assigned@example.com", "secret123", "approver")
	empToken := testutils.GetAuthToken(t, employee.ID, "employee")
	assignedToken := testutils.GetAuthToken(t, assigned.ID, "approver")

	sub, step := submittedWithUserStep(t, db, employee.ID, assigned.ID, models.ActionApprove)
	resp, err := testutils.MakeRequest(app, "POST", fmt.Sprintf("/workflow-engine/submissions/%d/initialize", sub.ID), nil, empToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)

	resp, err = testutils.MakeRequest(app, "GET", fmt.Sprintf("/workflow-engine/submissions/%d/current-steps", sub.ID), nil, empToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Code)

	var result testutils.StandardResponse
	testutils.ParseResponse(t, resp, &result)
	assert.Len(t, result.Data.([]interface{}), 1)

	canActURL := fmt.Sprintf("/workflow-engine/submissions/%d/steps/%d/can-act", sub.ID, step.ID)

	resp, err = testutils.MakeRequest(app, "GET", canActURL, nil, assignedToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Code)
	testutils.ParseResponse(t, resp, &result)
	assert.Equal(t, true, result.Data.(map[string]interface{})["can_act"])

	resp, err = testutils.MakeRequest(app, "GET", canActURL, nil, empToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Code)
	testutils.ParseResponse(t, resp, &result)
	assert.Equal(t, false, result.Data.(map[string]interface{})["can_act"])

	// Whole-submission target query.
	resp, err = testutils.MakeRequest(app, "GET", fmt.Sprintf("/workflow-engine/submissions/%d/can-act", sub.ID), nil, assignedToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Code)
	testutils.ParseResponse(t, resp, &result)
	assert.Equal(t, true, result.Data.(map[string]interface{})["can_act"])

	// Section and field targets need a target_id.
	resp, err = testutils.MakeRequest(app, "GET", fmt.Sprintf("/workflow-engine/submissions/%d/can-act?target_type=Section", sub.ID), nil, assignedToken)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp, err = testutils.MakeRequest(app, "GET", fmt.Sprintf("/workflow-engine/submissions/%d/can-act?target_type=Bogus", sub.ID), nil, assignedToken)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCheckDependenciesEndpoint(t *testing.T) {
	app := testutils.SetupTestApp(t)
	db := database.DB

	employee := testutils.CreateTestUser(t, db, "emp@example.com", "secret123", "employee")
	assigned := testutils.CreateTestUser(t, db, "assigned@example.com", "secret123", "approver")
	empToken := testutils.GetAuthToken(t, employee.ID, "employee")
	assignedToken := testutils.GetAuthToken(t, assigned.ID, "approver")

	sub, step := submittedWithUserStep(t, db, employee.ID, assigned.ID, models.ActionApprove)

	// A second step gated on the first.
	second := models.WorkflowStep{
		WorkflowID:     step.WorkflowID,
		Name:           "Final Review",
		StepOrder:      2,
		ActionID:       actionByCode(t, db, models.ActionApprove).ID,
		AssigneeType:   models.AssigneeUser,
		AssigneeUserID: &assigned.ID,
		IsMandatory:    true,
	}
	require.NoError(t, db.Create(&second).Error)

	resp, err := testutils.MakeRequest(app, "POST", fmt.Sprintf("/workflow-engine/submissions/%d/initialize", sub.ID), nil, empToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)

	depsURL := fmt.Sprintf("/workflow-engine/submissions/%d/steps/%d/check-dependencies", sub.ID, second.ID)

	resp, err = testutils.MakeRequest(app, "GET", depsURL, nil, empToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Code)

	var result testutils.StandardResponse
	testutils.ParseResponse(t, resp, &result)
	assert.Equal(t, false, result.Data.(map[string]interface{})["satisfied"])

	resp, err = testutils.MakeRequest(app, "POST",
		fmt.Sprintf("/workflow-engine/submissions/%d/steps/%d/complete", sub.ID, step.ID),
		map[string]interface{}{"comments": "done"}, assignedToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Code)

	resp, err = testutils.MakeRequest(app, "GET", depsURL, nil, empToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Code)
	testutils.ParseResponse(t, resp, &result)
	assert.Equal(t, true, result.Data.(map[string]interface{})["satisfied"])
}

func TestPendingCountEndpoint(t *testing.T) {
	app := testutils.SetupTestApp(t)
	db := database.DB

	employee := testutils.CreateTestUser(t, db, "emp@example.com", "secret123", "employee")
	assigned := testutils.CreateTestUser(t, db, "assigned@example.com", "secret123", "approver")
	empToken := testutils.GetAuthToken(t, employee.ID, "employee")
	assignedToken := testutils.GetAuthToken(t, assigned.ID, "approver")

	sub, _ := submittedWithUserStep(t, db, employee.ID, assigned.ID, models.ActionApprove)
	resp, err := testutils.MakeRequest(app, "POST", fmt.Sprintf("/workflow-engine/submissions/%d/initialize", sub.ID), nil, empToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)

	resp, err = testutils.MakeRequest(app, "GET", "/workflow-engine/pending/count", nil, assignedToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Code)

	var result testutils.StandardResponse
	testutils.ParseResponse(t, resp, &result)
	assert.Equal(t, float64(1), result.Data.(map[string]interface{})["count"])

	resp, err = testutils.MakeRequest(app, "GET", "/workflow-engine/pending/count", nil, empToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Code)
	testutils.ParseResponse(t, resp, &result)
	assert.Equal(t, float64(0), result.Data.(map[string]interface{})["count"])
}

func TestNotificationEndpoints(t *testing.T) {
	app := testutils.SetupTestApp(t)
	db := database.DB

	employee := testutils.CreateTestUser(t, db, "emp@example.com", "secret123", "employee")
	assigned := testutils.CreateTestUser(t, db, "assigned@example.com", "secret123", "approver")
	empToken := testutils.GetAuthToken(t, employee.ID, "employee")
	assignedToken := testutils.GetAuthToken(t, assigned.ID, "approver")

	sub, _ := submittedWithUserStep(t, db, employee.ID, assigned.ID, models.ActionApprove)
	resp, err := testutils.MakeRequest(app, "POST", fmt.Sprintf("/workflow-engine/submissions/%d/initialize", sub.ID), nil, empToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)

	// Initialization handed the step to the assignee.
	resp, err = testutils.MakeRequest(app, "GET", "/notifications?unread=true", nil, assignedToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Code)

	var result testutils.StandardResponse
	testutils.ParseResponse(t, resp, &result)
	rows := result.Data.([]interface{})
	require.Len(t, rows, 1)
	first := rows[0].(map[string]interface{})
	assert.Equal(t, notify.KindStepAssigned, first["kind"])
	notificationID := uint(first["id"].(float64))

	resp, err = testutils.MakeRequest(app, "POST", fmt.Sprintf("/notifications/%d/read", notificationID), nil, assignedToken)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp, err = testutils.MakeRequest(app, "GET", "/notifications?unread=true", nil, assignedToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Code)
	testutils.ParseResponse(t, resp, &result)
	assert.Empty(t, result.Data)

	// Another user's notification cannot be marked.
	resp, err = testutils.MakeRequest(app, "POST", fmt.Sprintf("/notifications/%d/read", notificationID), nil, empToken)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
