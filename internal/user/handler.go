package user

import (
	"github.com/formflow/platform/internal/database"
	"github.com/formflow/platform/internal/models"
	"github.com/formflow/platform/internal/response"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

func CreateUserHandler(c *fiber.Ctx) error {
	var body struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		Name         string `json:"name"`
		RoleID       uint   `json:"role_id"`
		TenantID     uint   `json:"tenant_id"`
		DepartmentID *uint  `json:"department_id"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if body.RoleID != 0 {
		var role models.Role
		if err := database.DB.First(&role, body.RoleID).Error; err != nil {
			return response.NotFound(c, "Role")
		}
	}
	if body.Email == "" || body.Password == "" || body.Name == "" {
		return response.ValidationError(c, map[string]string{
			"email":    "email is required",
			"password": "password is required",
			"name":     "name is required",
		})
	}

	var existing models.User
	if err := database.DB.Where("email = ?", body.Email).First(&existing).Error; err == nil {
		return response.Conflict(c, "User with this email already exists")
	}

	if body.DepartmentID != nil {
		var dept models.Department
		if err := database.DB.First(&dept, *body.DepartmentID).Error; err != nil {
			return response.NotFound(c, "Department")
		}
		if dept.TenantID != body.TenantID {
			return response.BadRequest(c, "Department does not belong to the given tenant", nil)
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		return response.InternalError(c, "Failed to hash password")
	}

	user := models.User{
		Email:        body.Email,
		Password:     string(hashedPassword),
		Name:         body.Name,
		RoleID:       body.RoleID,
		TenantID:     body.TenantID,
		DepartmentID: body.DepartmentID,
	}

	if err := database.DB.Create(&user).Error; err != nil {
		return response.InternalError(c, "Failed to create user")
	}

	database.DB.Preload("Role.Permissions").First(&user, user.ID)
	user.Password = ""

	return response.Created(c, user, "User created successfully")
}

func ListUsersHandler(c *fiber.Ctx) error {
	query := database.DB.Preload("Role").Preload("Department")

	if tenantID := c.QueryInt("tenant_id"); tenantID > 0 {
		query = query.Where("tenant_id = ?", tenantID)
	}
	if deptID := c.QueryInt("department_id"); deptID > 0 {
		query = query.Where("department_id = ?", deptID)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return response.InternalError(c, "Failed to fetch users")
	}

	for i := range users {
		users[i].Password = ""
	}

	return response.Success(c, users, "Users retrieved successfully")
}

func GetUserHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID", nil)
	}

	var user models.User
	if err := database.DB.Preload("Role.Permissions").Preload("Department").First(&user, id).Error; err != nil {
		return response.NotFound(c, "User")
	}

	user.Password = ""

	return response.Success(c, user, "User retrieved successfully")
}

func UpdateUserHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID", nil)
	}

	var body struct {
		Name         string `json:"name"`
		Email        string `json:"email"`
		RoleID       uint   `json:"role_id"`
		Status       string `json:"status"`
		DepartmentID *uint  `json:"department_id"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	var user models.User
	if err := database.DB.First(&user, id).Error; err != nil {
		return response.NotFound(c, "User")
	}

	if body.Email != "" && body.Email != user.Email {
		var existing models.User
		if err := database.DB.Where("email = ? AND id != ?", body.Email, id).First(&existing).Error; err == nil {
			return response.Conflict(c, "Email already taken")
		}
		user.Email = body.Email
	}

	if body.Name != "" {
		user.Name = body.Name
	}

	if body.Status != "" {
		user.Status = body.Status
	}

	if body.RoleID != 0 {
		var role models.Role
		if err := database.DB.First(&role, body.RoleID).Error; err != nil {
			return response.NotFound(c, "Role")
		}
		user.RoleID = body.RoleID
	}

	if body.DepartmentID != nil {
		var dept models.Department
		if err := database.DB.First(&dept, *body.DepartmentID).Error; err != nil {
			return response.NotFound(c, "Department")
		}
		if dept.TenantID != user.TenantID {
			return response.BadRequest(c, "Department does not belong to the user's tenant", nil)
		}
		user.DepartmentID = body.DepartmentID
	}

	if err := database.DB.Save(&user).Error; err != nil {
		return response.InternalError(c, "Failed to update user")
	}

	database.DB.Preload("Role.Permissions").First(&user, user.ID)
	user.Password = ""

	return response.Success(c, user, "User updated successfully")
}

func DeleteUserHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID", nil)
	}

	var user models.User
	if err := database.DB.First(&user, id).Error; err != nil {
		return response.NotFound(c, "User")
	}

	currentUserID := c.Locals("user_id").(uint)
	if uint(id) == currentUserID {
		return response.BadRequest(c, "Cannot delete your own account", nil)
	}

	if err := database.DB.Delete(&user).Error; err != nil {
		return response.InternalError(c, "Failed to delete user")
	}

	return response.NoContent(c)
}
