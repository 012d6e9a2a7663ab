package notify

import (
	"github.com/formflow/platform/internal/database"
	"github.com/formflow/platform/internal/models"
	"github.com/formflow/platform/internal/response"
	"github.com/gofiber/fiber/v2"
)

func ListNotificationsHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	query := database.DB.Where("user_id = ?", userID)
	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").Limit(50).Find(&notifications).Error; err != nil {
		return response.InternalError(c, "Failed to fetch notifications")
	}

	return response.Success(c, notifications, "Notifications retrieved successfully")
}

func MarkReadHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid notification ID", nil)
	}

	userID := c.Locals("user_id").(uint)

	ok, err := MarkRead(database.DB, uint(id), userID)
	if err != nil {
		return response.InternalError(c, "Failed to update notification")
	}
	if !ok {
		return response.NotFound(c, "Notification")
	}

	return response.Success(c, nil, "Notification marked as read")
}
