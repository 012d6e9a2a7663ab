package form_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/formflow/platform/internal/database"
	"github.com/formflow/platform/internal/models"
	"github.com/formflow/platform/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func managerToken(t *testing.T) string {
	manager := testutils.CreateTestUser(t, database.DB, fmt.Sprintf("manager-%s@example.com", t.Name()), "secret123", "manager")
	return testutils.GetAuthToken(t, manager.ID, "manager")
}

func TestCreateTemplateWithSections(t *testing.T) {
	app := testutils.SetupTestApp(t)
	token := managerToken(t)

	resp, err := testutils.MakeRequest(app, "POST", "/forms/templates", map[string]interface{}{
		"name":        "Onboarding Checklist",
		"code":        "ONBOARD",
		"description": "New hire onboarding",
		"sections": []map[string]interface{}{
			{
				"title":      "Basics",
				"sort_order": 1,
				"fields": []map[string]interface{}{
					{"name": "Full Name", "code": "full_name", "field_type": "text", "is_required": true, "sort_order": 1},
					{"name": "Start Date", "code": "start_date", "field_type": "date", "sort_order": 2},
				},
			},
		},
	}, token)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)

	var template models.FormTemplate
	require.NoError(t, database.DB.Preload("Sections.Fields").Where("code = ?", "ONBOARD").First(&template).Error)
	assert.Equal(t, models.PublishDraft, template.PublishStatus)
	require.Len(t, template.Sections, 1)
	assert.Len(t, template.Sections[0].Fields, 2)
}

func TestCreateTemplateRejectsUnknownFieldType(t *testing.T) {
	app := testutils.SetupTestApp(t)
	token := managerToken(t)

	resp, err := testutils.MakeRequest(app, "POST", "/forms/templates", map[string]interface{}{
		"name": "Broken",
		"code": "BROKEN",
		"sections": []map[string]interface{}{
			{
				"title": "Oops",
				"fields": []map[string]interface{}{
					{"name": "Weird", "code": "weird", "field_type": "hologram"},
				},
			},
		},
	}, token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateTemplateDuplicateCode(t *testing.T) {
	app := testutils.SetupTestApp(t)
	token := managerToken(t)

	body := map[string]interface{}{"name": "First", "code": "DUP"}
	resp, err := testutils.MakeRequest(app, "POST", "/forms/templates", body, token)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)

	resp, err = testutils.MakeRequest(app, "POST", "/forms/templates", body, token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.Code)
	testutils.AssertError(t, resp, "CONFLICT")
}

func TestPublishRequiresFields(t *testing.T) {
	app := testutils.SetupTestApp(t)
	token := managerToken(t)

	resp, err := testutils.MakeRequest(app, "POST", "/forms/templates", map[string]interface{}{
		"name": "Empty Form",
		"code": "EMPTY",
	}, token)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)

	var template models.FormTemplate
	require.NoError(t, database.DB.Where("code = ?", "EMPTY").First(&template).Error)

	resp, err = testutils.MakeRequest(app, "POST", fmt.Sprintf("/forms/templates/%d/publish", template.ID), nil, token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	testutils.AssertError(t, resp, "INVALID_TEMPLATE")
}

func TestPublishAndAssign(t *testing.T) {
	app := testutils.SetupTestApp(t)
	token := managerToken(t)
	tenant := testutils.TestTenant(t, database.DB)

	resp, err := testutils.MakeRequest(app, "POST", "/forms/templates", map[string]interface{}{
		"name": "Survey",
		"code": "SURVEY",
		"sections": []map[string]interface{}{
			{
				"title": "Questions",
				"fields": []map[string]interface{}{
					{"name": "Feedback", "code": "feedback", "field_type": "textarea"},
				},
			},
		},
	}, token)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)

	var template models.FormTemplate
	require.NoError(t, database.DB.Where("code = ?", "SURVEY").First(&template).Error)

	assignURL := fmt.Sprintf("/forms/templates/%d/assignments", template.ID)

	// Draft templates cannot be assigned yet.
	resp, err = testutils.MakeRequest(app, "POST", assignURL, map[string]interface{}{
		"target_type": "tenant",
		"target_id":   tenant.ID,
	}, token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	testutils.AssertError(t, resp, "TEMPLATE_NOT_PUBLISHED")

	resp, err = testutils.MakeRequest(app, "POST", fmt.Sprintf("/forms/templates/%d/publish", template.ID), nil, token)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Code)

	resp, err = testutils.MakeRequest(app, "POST", assignURL, map[string]interface{}{
		"target_type": "tenant",
		"target_id":   tenant.ID,
	}, token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Code)

	// Unknown target kinds are refused.
	resp, err = testutils.MakeRequest(app, "POST", assignURL, map[string]interface{}{
		"target_type": "galaxy",
		"target_id":   1,
	}, token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp, err = testutils.MakeRequest(app, "GET", assignURL, nil, token)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Code)
	var result testutils.StandardResponse
	testutils.ParseResponse(t, resp, &result)
	assert.Len(t, result.Data.([]interface{}), 1)
}

func TestDeleteArchivesTemplateWithSubmissions(t *testing.T) {
	app := testutils.SetupTestApp(t)
	admin := testutils.CreateTestUser(t, database.DB, "admin@example.com", "secret123", "admin")
	token := testutils.GetAuthToken(t, admin.ID, "admin")

	template := models.FormTemplate{Name: "Used Form", Code: "USED", PublishStatus: models.PublishPublished, CreatedBy: admin.ID}
	require.NoError(t, database.DB.Create(&template).Error)
	require.NoError(t, database.DB.Create(&models.FormTemplateSubmission{
		TemplateID:  template.ID,
		SubmittedBy: admin.ID,
		TenantID:    1,
		Status:      models.SubmissionApproved,
	}).Error)

	resp, err := testutils.MakeRequest(app, "DELETE", fmt.Sprintf("/forms/templates/%d", template.ID), nil, token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	require.NoError(t, database.DB.First(&template, template.ID).Error)
	assert.Equal(t, models.PublishArchived, template.PublishStatus)
}
