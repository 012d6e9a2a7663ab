package role

import (
	"github.com/formflow/platform/internal/database"
	"github.com/formflow/platform/internal/models"
	"github.com/formflow/platform/internal/response"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type permissionInput struct {
	Module string `json:"module"`
	Action string `json:"action"`
}

func CreateRoleHandler(c *fiber.Ctx) error {
	var body struct {
		Name        string            `json:"name"`
		Description string            `json:"description"`
		ScopeLevel  string            `json:"scope_level"`
		Permissions []permissionInput `json:"permissions"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if body.Name == "" {
		return response.ValidationError(c, map[string]string{
			"name": "role name is required",
		})
	}

	if body.ScopeLevel != "" && body.ScopeLevel != models.ScopeGlobal && body.ScopeLevel != models.ScopeTenant {
		return response.ValidationError(c, map[string]string{
			"scope_level": "scope_level must be 'global' or 'tenant'",
		})
	}

	var existing models.Role
	if err := database.DB.Where("name = ?", body.Name).First(&existing).Error; err == nil {
		return response.Conflict(c, "Role with this name already exists")
	}

	var role models.Role
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		role = models.Role{
			Name:        body.Name,
			Description: body.Description,
			ScopeLevel:  body.ScopeLevel,
		}
		if role.ScopeLevel == "" {
			role.ScopeLevel = models.ScopeTenant
		}
		if err := tx.Create(&role).Error; err != nil {
			return err
		}

		for _, p := range body.Permissions {
			perm := models.Permission{
				RoleID: role.ID,
				Module: p.Module,
				Action: p.Action,
			}
			if err := tx.Create(&perm).Error; err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return response.InternalError(c, "Failed to create role")
	}

	database.DB.Preload("Permissions").First(&role, role.ID)

	return response.Created(c, role, "Role created successfully")
}

func ListRolesHandler(c *fiber.Ctx) error {
	var roles []models.Role
	if err := database.DB.Preload("Permissions").Find(&roles).Error; err != nil {
		return response.InternalError(c, "Failed to fetch roles")
	}

	return response.Success(c, roles, "Roles retrieved successfully")
}

func GetRoleHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid role ID", nil)
	}

	var role models.Role
	if err := database.DB.Preload("Permissions").First(&role, id).Error; err != nil {
		return response.NotFound(c, "Role")
	}

	return response.Success(c, role, "Role retrieved successfully")
}

func UpdateRoleHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid role ID", nil)
	}

	var body struct {
		Name        string            `json:"name"`
		Description string            `json:"description"`
		ScopeLevel  string            `json:"scope_level"`
		Permissions []permissionInput `json:"permissions"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	var role models.Role
	if err := database.DB.First(&role, id).Error; err != nil {
		return response.NotFound(c, "Role")
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		role.Name = body.Name
		role.Description = body.Description
		if body.ScopeLevel != "" {
			role.ScopeLevel = body.ScopeLevel
		}
		if err := tx.Save(&role).Error; err != nil {
			return err
		}

		if err := tx.Where("role_id = ?", role.ID).Delete(&models.Permission{}).Error; err != nil {
			return err
		}

		for _, p := range body.Permissions {
			newPerm := models.Permission{
				RoleID: role.ID,
				Module: p.Module,
				Action: p.Action,
			}
			if err := tx.Create(&newPerm).Error; err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return response.InternalError(c, "Failed to update role")
	}

	database.DB.Preload("Permissions").First(&role, role.ID)

	return response.Success(c, role, "Role updated successfully")
}

func DeleteRoleHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid role ID", nil)
	}

	var role models.Role
	if err := database.DB.First(&role, id).Error; err != nil {
		return response.NotFound(c, "Role")
	}

	var userCount int64
	if err := database.DB.Model(&models.User{}).Where("role_id = ?", id).Count(&userCount).Error; err != nil {
		return response.InternalError(c, "Failed to check role usage")
	}

	if userCount > 0 {
		return response.Conflict(c, "Cannot delete role that is assigned to users")
	}

	var stepCount int64
	if err := database.DB.Model(&models.WorkflowStep{}).Where("assignee_role_id = ? OR escalation_role_id = ?", id, id).Count(&stepCount).Error; err != nil {
		return response.InternalError(c, "Failed to check role usage")
	}

	if stepCount > 0 {
		return response.Conflict(c, "Cannot delete role that is referenced by workflow steps")
	}

	if err := database.DB.Where("role_id = ?", id).Delete(&models.Permission{}).Error; err != nil {
		return response.InternalError(c, "Failed to delete role permissions")
	}

	if err := database.DB.Delete(&role).Error; err != nil {
		return response.InternalError(c, "Failed to delete role")
	}

	return response.NoContent(c)
}

func AssignRoleToUserHandler(c *fiber.Ctx) error {
	var body struct {
		UserID uint `json:"user_id"`
		RoleID uint `json:"role_id"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if body.UserID == 0 || body.RoleID == 0 {
		return response.ValidationError(c, map[string]string{
			"user_id": "user_id is required",
			"role_id": "role_id is required",
		})
	}

	var role models.Role
	if err := database.DB.First(&role, body.RoleID).Error; err != nil {
		return response.NotFound(c, "Role")
	}

	var user models.User
	if err := database.DB.First(&user, body.UserID).Error; err != nil {
		return response.NotFound(c, "User")
	}

	user.RoleID = body.RoleID
	if err := database.DB.Save(&user).Error; err != nil {
		return response.InternalError(c, "Failed to assign role")
	}

	database.DB.Preload("Role.Permissions").First(&user, user.ID)

	return response.Success(c, user, "Role assigned successfully")
}

func DuplicateRoleHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid role ID", nil)
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if body.Name == "" {
		return response.ValidationError(c, map[string]string{
			"name": "new role name is required",
		})
	}

	var originalRole models.Role
	if err := database.DB.Preload("Permissions").First(&originalRole, id).Error; err != nil {
		return response.NotFound(c, "Role")
	}

	var newRole models.Role
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		newRole = models.Role{
			Name:        body.Name,
			Description: originalRole.Description + " (Copy)",
			ScopeLevel:  originalRole.ScopeLevel,
		}
		if err := tx.Create(&newRole).Error; err != nil {
			return err
		}

		for _, perm := range originalRole.Permissions {
			newPerm := models.Permission{
				RoleID: newRole.ID,
				Module: perm.Module,
				Action: perm.Action,
			}
			if err := tx.Create(&newPerm).Error; err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return response.InternalError(c, "Failed to duplicate role")
	}

	database.DB.Preload("Permissions").First(&newRole, newRole.ID)

	return response.Created(c, newRole, "Role duplicated successfully")
}
