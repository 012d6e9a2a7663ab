package auth_test

import (
	"net/http"
	"testing"

	"github.com/formflow/platform/internal/database"
	"github.com/formflow/platform/internal/models"
	"github.com/formflow/platform/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	app := testutils.SetupTestApp(t)
	tenant := testutils.TestTenant(t, database.DB)

	resp, err := testutils.MakeRequest(app, "POST", "/auth/register", map[string]interface{}{
		"name":      "New User",
		"email":     "new@example.com",
		"password":  "secret123",
		"tenant_id": tenant.ID,
	}, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Code)

	var result testutils.StandardResponse
	testutils.ParseResponse(t, resp, &result)
	require.True(t, result.Success)
	data := result.Data.(map[string]interface{})
	assert.NotEmpty(t, data["access_token"])
	assert.NotEmpty(t, data["refresh_token"])

	// Signups land in the employee role.
	var user models.User
	require.NoError(t, database.DB.Preload("Role").Where("email = ?", "new@example.com").First(&user).Error)
	require.NotNil(t, user.Role)
	assert.Equal(t, "employee", user.Role.Name)
	assert.Equal(t, tenant.ID, user.TenantID)

	resp, err = testutils.MakeRequest(app, "POST", "/auth/login", map[string]interface{}{
		"email":    "new@example.com",
		"password": "secret123",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	testutils.AssertSuccess(t, resp)

	resp, err = testutils.MakeRequest(app, "POST", "/auth/login", map[string]interface{}{
		"email":    "new@example.com",
		"password": "wrong",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	testutils.AssertError(t, resp, "UNAUTHORIZED")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	app := testutils.SetupTestApp(t)
	testutils.CreateTestUser(t, database.DB, "taken@example.com", "secret123", "employee")

	resp, err := testutils.MakeRequest(app, "POST", "/auth/register", map[string]interface{}{
		"name":     "Impostor",
		"email":    "taken@example.com",
		"password": "secret123",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.Code)
	testutils.AssertError(t, resp, "CONFLICT")
}

func TestRegisterValidation(t *testing.T) {
	app := testutils.SetupTestApp(t)

	resp, err := testutils.MakeRequest(app, "POST", "/auth/register", map[string]interface{}{
		"email": "incomplete@example.com",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	testutils.AssertError(t, resp, "VALIDATION_ERROR")

	resp, err = testutils.MakeRequest(app, "POST", "/auth/register", map[string]interface{}{
		"name":      "Lost",
		"email":     "lost@example.com",
		"password":  "secret123",
		"tenant_id": 999,
	}, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestRefreshTokenRotation(t *testing.T) {
	app := testutils.SetupTestApp(t)

	resp, err := testutils.MakeRequest(app, "POST", "/auth/register", map[string]interface{}{
		"name":     "Refresher",
		"email":    "refresher@example.com",
		"password": "secret123",
	}, "")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)

	var result testutils.StandardResponse
	testutils.ParseResponse(t, resp, &result)
	data := result.Data.(map[string]interface{})
	refreshToken := data["refresh_token"].(string)
	userID := uint(data["user"].(map[string]interface{})["id"].(float64))

	resp, err = testutils.MakeRequest(app, "POST", "/auth/refresh", map[string]interface{}{
		"user_id":       userID,
		"refresh_token": refreshToken,
	}, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	var refreshed testutils.StandardResponse
	testutils.ParseResponse(t, resp, &refreshed)
	require.True(t, refreshed.Success)
	newData := refreshed.Data.(map[string]interface{})
	assert.NotEmpty(t, newData["access_token"])
	// Rotation hands out a different refresh token.
	assert.NotEqual(t, refreshToken, newData["refresh_token"])
}

func TestLoginInactiveAccount(t *testing.T) {
	app := testutils.SetupTestApp(t)
	user := testutils.CreateTestUser(t, database.DB, "gone@example.com", "secret123", "employee")
	require.NoError(t, database.DB.Model(&models.User{}).Where("id = ?", user.ID).Update("status", "inactive").Error)

	resp, err := testutils.MakeRequest(app, "POST", "/auth/login", map[string]interface{}{
		"email":    "gone@example.com",
		"password": "secret123",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
