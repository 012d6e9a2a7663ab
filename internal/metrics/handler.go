package metrics

import (
	"github.com/formflow/platform/internal/database"
	"github.com/formflow/platform/internal/models"
	"github.com/formflow/platform/internal/response"
	"github.com/gofiber/fiber/v2"
)

func CreateMetricHandler(c *fiber.Ctx) error {
	var body struct {
		Name        string `json:"name"`
		Code        string `json:"code"`
		Unit        string `json:"unit"`
		Description string `json:"description"`
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

	var existing models.MetricDefinition
	if err := database.DB.Where("code = ?", body.Code).First(&existing).Error; err == nil {
		return response.Conflict(c, "Metric with this code already exists")
	}

	metric := models.MetricDefinition{
		Name:        body.Name,
		Code:        body.Code,
		Unit:        body.Unit,
		Description: body.Description,
	}

	if err := database.DB.Create(&metric).Error; err != nil {
		return response.InternalError(c, "Failed to create metric")
	}

	return response.Created(c, metric, "Metric created successfully")
}

func ListMetricsHandler(c *fiber.Ctx) error {
	var metrics []models.MetricDefinition
	if err := database.DB.Find(&metrics).Error; err != nil {
		return response.InternalError(c, "Failed to fetch metrics")
	}

	return response.Success(c, metrics, "Metrics retrieved successfully")
}

func GetMetricHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid metric ID", nil)
	}

	var metric models.MetricDefinition
	if err := database.DB.First(&metric, id).Error; err != nil {
		return response.NotFound(c, "Metric")
	}

	return response.Success(c, metric, "Metric retrieved successfully")
}

func MetricSummaryHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid metric ID", nil)
	}

	var metric models.MetricDefinition
	if err := database.DB.First(&metric, id).Error; err != nil {
		return response.NotFound(c, "Metric")
	}

	tenantID := uint(c.QueryInt("tenant_id"))

	summary, err := Summarize(database.DB, metric.ID, tenantID)
	if err != nil {
		return response.InternalError(c, "Failed to summarize metric")
	}

	return response.Success(c, summary, "Metric summary retrieved successfully")
}

func ListMetricValuesHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid metric ID", nil)
	}

	query := database.DB.Where("metric_id = ?", id)
	if tenantID := c.QueryInt("tenant_id"); tenantID > 0 {
		query = query.Where("tenant_id = ?", tenantID)
	}

	var values []models.MetricValue
	if err := query.Order("recorded_at DESC").Find(&values).Error; err != nil {
		return response.InternalError(c, "Failed to fetch metric values")
	}

	return response.Success(c, values, "Metric values retrieved successfully")
}

func DeleteMetricHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid metric ID", nil)
	}

	var metric models.MetricDefinition
	if err := database.DB.First(&metric, id).Error; err != nil {
		return response.NotFound(c, "Metric")
	}

	var fieldCount int64
	if err := database.DB.Model(&models.FormField{}).Where("metric_id = ?", id).Count(&fieldCount).Error; err != nil {
		return response.InternalError(c, "Failed to check metric usage")
	}

	if fieldCount > 0 {
		return response.Conflict(c, "Cannot delete metric that is linked to form fields")
	}

	if err := database.DB.Delete(&metric).Error; err != nil {
		return response.InternalError(c, "Failed to delete metric")
	}

	return response.NoContent(c)
}
