package testutils

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/formflow/platform/internal/database"
	"github.com/formflow/platform/internal/models"
	"github.com/formflow/platform/internal/role"
	"github.com/formflow/platform/internal/server"
	"github.com/formflow/platform/internal/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err, "Failed to create test database")

	err = db.AutoMigrate(
		&models.Tenant{},
		&models.Department{},
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.ResetToken{},
		&models.RefreshToken{},
		&models.MetricDefinition{},
		&models.MetricValue{},
		&models.FormTemplate{},
		&models.FormSection{},
		&models.FormField{},
		&models.FormTemplateAssignment{},
		&models.FormTemplateSubmission{},
		&models.FormResponse{},
		&models.WorkflowDefinition{},
		&models.WorkflowStep{},
		&models.WorkflowAction{},
		&models.SubmissionWorkflowProgress{},
		&models.Notification{},
	)
	assert.NoError(t, err, "Failed to migrate test database")

	return db
}

func SetupTestApp(t *testing.T) *fiber.App {
	db := TestDB(t)
	database.DB = db

	SeedTestData(t, db)

	err := utils.InitLocalStorage()
	assert.NoError(t, err, "Failed to initialize storage")
	utils.SetStorageMode(true)

	app := server.New(db)
	return app
}

// SeedTestData creates the default roles, the workflow action catalog,
// and one tenant with a department.
func SeedTestData(t *testing.T, db *gorm.DB) {
	database.DB = db

	err := role.SeedDefaultRoles()
	assert.NoError(t, err, "Failed to seed roles")

	err = role.SeedWorkflowActions(db)
	assert.NoError(t, err, "Failed to seed workflow actions")

	tenant := models.Tenant{Name: "Acme Corp", Code: "ACME", IsActive: true}
	err = db.Create(&tenant).Error
	assert.NoError(t, err, "Failed to create test tenant")

	dept := models.Department{TenantID: tenant.ID, Name: "Operations"}
	err = db.Create(&dept).Error
	assert.NoError(t, err, "Failed to create test department")
}

func TestTenant(t *testing.T, db *gorm.DB) *models.Tenant {
	var tenant models.Tenant
	err := db.Where("code = ?", "ACME").First(&tenant).Error
	assert.NoError(t, err, "Test tenant not seeded")
	return &tenant
}

func TestDepartment(t *testing.T, db *gorm.DB) *models.Department {
	var dept models.Department
	err := db.Where("name = ?", "Operations").First(&dept).Error
	assert.NoError(t, err, "Test department not seeded")
	return &dept
}

func CreateTestUser(t *testing.T, db *gorm.DB, email, password, roleName string) *models.User {
	hashedPassword, _ := utils.HashPassword(password)

	var r models.Role
	if err := db.Where("name = ?", roleName).First(&r).Error; err != nil {
		t.Fatalf("Failed to find role '%s': %v. Make sure SeedTestData was called.", roleName, err)
	}

	tenant := TestTenant(t, db)

	user := &models.User{
		Name:     "Test User",
		Email:    email,
		Password: hashedPassword,
		Status:   "active",
		RoleID:   r.ID,
		TenantID: tenant.ID,
	}

	err := db.Create(user).Error
	assert.NoError(t, err, "Failed to create test user")

	db.Preload("Role.Permissions").First(user, user.ID)

	if user.Role == nil {
		t.Fatal("Role not loaded for user")
	}

	return user
}

func GetAuthToken(t *testing.T, userID uint, roleName string) string {
	token, err := utils.GenerateJWT(userID, roleName)
	assert.NoError(t, err, "Failed to generate test token")
	return token
}

func MakeRequest(app *fiber.App, method, url string, body interface{}, token string) (*httptest.ResponseRecorder, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req := httptest.NewRequest(method, url, bodyReader)
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()

	resp, err := app.Test(req, -1)
	if err != nil {
		return rec, err
	}

	rec.Code = resp.StatusCode

	io.Copy(rec.Body, resp.Body)
	resp.Body.Close()

	return rec, nil
}

func ParseResponse(t *testing.T, resp *httptest.ResponseRecorder, v interface{}) {
	if resp.Body.Len() == 0 {
		t.Log("Warning: Response body is empty")
		return
	}

	err := json.NewDecoder(resp.Body).Decode(v)
	if err != nil && err != io.EOF {
		t.Logf("Response body: %s", resp.Body.String())
		assert.NoError(t, err, "Failed to parse response")
	}
}

type StandardResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    interface{}  `json:"data"`
	Error   *ErrorDetail `json:"error"`
	Meta    *Meta        `json:"meta"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

func AssertSuccess(t *testing.T, resp *httptest.ResponseRecorder) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.True(t, result.Success, "Expected success response")
	assert.Empty(t, result.Error, "Expected no error")
}

func AssertError(t *testing.T, resp *httptest.ResponseRecorder, expectedCode string) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.False(t, result.Success, "Expected error response")
	assert.NotNil(t, result.Error, "Expected error object")
	if result.Error != nil {
		assert.Equal(t, expectedCode, result.Error.Code, "Error code mismatch")
	}
}

func MakeMultipartRequestWithFile(app *fiber.App, method, url string, fields map[string]string, files map[string][]byte, token string) (*httptest.ResponseRecorder, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, val := range fields {
		writer.WriteField(key, val)
	}

	for fieldName, fileContent := range files {
		part, err := writer.CreateFormFile(fieldName, fieldName+".png")
		if err != nil {
			return nil, err
		}
		part.Write(fileContent)
	}

	contentType := writer.FormDataContentType()
	writer.Close()

	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", contentType)

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	resp, err := app.Test(req, -1)
	if err != nil {
		return rec, err
	}

	rec.Code = resp.StatusCode
	io.Copy(rec.Body, resp.Body)
	resp.Body.Close()

	return rec, nil
}
