package org

import (
	"github.com/formflow/platform/internal/database"
	"github.com/formflow/platform/internal/models"
	"github.com/formflow/platform/internal/response"
	"github.com/gofiber/fiber/v2"
)

func CreateTenantHandler(c *fiber.Ctx) error {
	var body struct {
		Name string `json:"name"`
		Code string `json:"code"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if body.Name == "" || body.Code == "" {
		return response.ValidationError(c, map[string]string{
			"name": "name is required",
			"code": "code is required",
		})
	}

	var existing models.Tenant
	if err := database.DB.Where("code = ?", body.Code).First(&existing).Error; err == nil {
		return response.Conflict(c, "Tenant with this code already exists")
	}

	tenant := models.Tenant{
		Name:     body.Name,
		Code:     body.Code,
		IsActive: true,
	}

	if err := database.DB.Create(&tenant).Error; err != nil {
		return response.InternalError(c, "Failed to create tenant")
	}

	return response.Created(c, tenant, "Tenant created successfully")
}

func ListTenantsHandler(c *fiber.Ctx) error {
	var tenants []models.Tenant
	if err := database.DB.Find(&tenants).Error; err != nil {
		return response.InternalError(c, "Failed to fetch tenants")
	}

	return response.Success(c, tenants, "Tenants retrieved successfully")
}

func GetTenantHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid tenant ID", nil)
	}

	var tenant models.Tenant
	if err := database.DB.First(&tenant, id).Error; err != nil {
		return response.NotFound(c, "Tenant")
	}

	return response.Success(c, tenant, "Tenant retrieved successfully")
}

func UpdateTenantHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid tenant ID", nil)
	}

	var body struct {
		Name     string `json:"name"`
		IsActive *bool  `json:"is_active"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	var tenant models.Tenant
	if err := database.DB.First(&tenant, id).Error; err != nil {
		return response.NotFound(c, "Tenant")
	}

	if body.Name != "" {
		tenant.Name = body.Name
	}
	if body.IsActive != nil {
		tenant.IsActive = *body.IsActive
	}

	if err := database.DB.Save(&tenant).Error; err != nil {
		return response.InternalError(c, "Failed to update tenant")
	}

	return response.Success(c, tenant, "Tenant updated successfully")
}

func DeleteTenantHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid tenant ID", nil)
	}

	var tenant models.Tenant
	if err := database.DB.First(&tenant, id).Error; err != nil {
		return response.NotFound(c, "Tenant")
	}

	var userCount int64
	if err := database.DB.Model(&models.User{}).Where("tenant_id = ?", id).Count(&userCount).Error; err != nil {
		return response.InternalError(c, "Failed to check tenant usage")
	}

	if userCount > 0 {
		return response.Conflict(c, "Cannot delete tenant that has users")
	}

	if err := database.DB.Delete(&tenant).Error; err != nil {
		return response.InternalError(c, "Failed to delete tenant")
	}

	return response.NoContent(c)
}

func CreateDepartmentHandler(c *fiber.Ctx) error {
	var body struct {
		TenantID uint   `json:"tenant_id"`
		Name     string `json:"name"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if body.TenantID == 0 || body.Name == "" {
		return response.ValidationError(c, map[string]string{
			"tenant_id": "tenant_id is required",
			"name":      "name is required",
		})
	}

	var tenant models.Tenant
	if err := database.DB.First(&tenant, body.TenantID).Error; err != nil {
		return response.NotFound(c, "Tenant")
	}

	dept := models.Department{
		TenantID: body.TenantID,
		Name:     body.Name,
	}

	if err := database.DB.Create(&dept).Error; err != nil {
		return response.InternalError(c, "Failed to create department")
	}

	return response.Created(c, dept, "Department created successfully")
}

func ListDepartmentsHandler(c *fiber.Ctx) error {
	query := database.DB.Model(&models.Department{})

	if tenantID := c.QueryInt("tenant_id"); tenantID > 0 {
		query = query.Where("tenant_id = ?", tenantID)
	}

	var departments []models.Department
	if err := query.Find(&departments).Error; err != nil {
		return response.InternalError(c, "Failed to fetch departments")
	}

	return response.Success(c, departments, "Departments retrieved successfully")
}

func UpdateDepartmentHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid department ID", nil)
	}

	var body struct {
		Name string `json:"name"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	var dept models.Department
	if err := database.DB.First(&dept, id).Error; err != nil {
		return response.NotFound(c, "Department")
	}

	if body.Name != "" {
		dept.Name = body.Name
	}

	if err := database.DB.Save(&dept).Error; err != nil {
		return response.InternalError(c, "Failed to update department")
	}

	return response.Success(c, dept, "Department updated successfully")
}

func DeleteDepartmentHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid department ID", nil)
	}

	var dept models.Department
	if err := database.DB.First(&dept, id).Error; err != nil {
		return response.NotFound(c, "Department")
	}

	var userCount int64
	if err := database.DB.Model(&models.User{}).Where("department_id = ?", id).Count(&userCount).Error; err != nil {
		return response.InternalError(c, "Failed to check department usage")
	}

	if userCount > 0 {
		return response.Conflict(c, "Cannot delete department that has members")
	}

	if err := database.DB.Delete(&dept).Error; err != nil {
		return response.InternalError(c, "Failed to delete department")
	}

	return response.NoContent(c)
}
