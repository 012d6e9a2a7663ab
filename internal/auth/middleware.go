package auth

import (
	"strings"

	"github.com/formflow/platform/internal/database"
	"github.com/formflow/platform/internal/models"
	"github.com/formflow/platform/internal/response"
	"github.com/formflow/platform/internal/utils"

	"github.com/gofiber/fiber/v2"
)

func JWTProtected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return response.Error(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization token", nil)
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return response.Error(c, fiber.StatusUnauthorized, "INVALID_TOKEN_FORMAT", "Invalid token format", nil)
		}

		userID, err := utils.ParseJWT(tokenParts[1])
		if err != nil {
			return response.Error(c, fiber.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token", nil)
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}

func RoleProtected(allowedRoles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(uint)

		var u models.User
		if err := database.DB.Preload("Role").First(&u, userID).Error; err != nil {
			return response.Unauthorized(c, "User not found")
		}

		for _, role := range allowedRoles {
			if u.Role.Name == role {
				return c.Next()
			}
		}

		return response.Forbidden(c, "You don't have permission to access this resource")
	}
}
