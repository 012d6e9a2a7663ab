package server

import (
	"time"

	"github.com/formflow/platform/internal/auth"
	"github.com/formflow/platform/internal/engine"
	"github.com/formflow/platform/internal/form"
	"github.com/formflow/platform/internal/metrics"
	"github.com/formflow/platform/internal/middleware"
	"github.com/formflow/platform/internal/notify"
	"github.com/formflow/platform/internal/org"
	"github.com/formflow/platform/internal/role"
	"github.com/formflow/platform/internal/submission"
	"github.com/formflow/platform/internal/user"
	"github.com/formflow/platform/internal/workflow"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func SetupRoutes(app *fiber.App) {
	// Middleware
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS, PATCH",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "FormFlow API is running",
		})
	})

	// ==========================================
	// AUTH ROUTES (No authentication required)
	// ==========================================
	authGroup := app.Group("/auth")
	app.Use("/auth", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 1 * time.Minute,
	}))
	authGroup.Post("/register", auth.RegisterHandler)
	authGroup.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 15 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}), auth.LoginHandler)
	authGroup.Get("/google/login", auth.GoogleLogin)
	authGroup.Get("/google/callback", auth.GoogleCallback)
	authGroup.Post("/forgot-password", auth.ForgotPasswordHandler)
	authGroup.Post("/reset-password", auth.ResetPasswordHandler)
	authGroup.Post("/refresh", limiter.New(limiter.Config{
		Max:        3,
		Expiration: 5 * time.Minute,
	}), auth.RefreshHandler)
	authGroup.Post("/logout", auth.JWTProtected(), auth.LogoutHandler)

	// ==========================================
	// USER MANAGEMENT (Admin only)
	// ==========================================
	userGroup := app.Group("/users")
	userGroup.Use(auth.JWTProtected())
	userGroup.Use(auth.RoleProtected("admin"))
	userGroup.Post("/", user.CreateUserHandler)
	userGroup.Get("/", user.ListUsersHandler)
	userGroup.Get("/:id", user.GetUserHandler)
	userGroup.Put("/:id", user.UpdateUserHandler)
	userGroup.Delete("/:id", user.DeleteUserHandler)

	// ==========================================
	// ROLE MANAGEMENT (Admin only)
	// ==========================================
	roleGroup := app.Group("/roles")
	roleGroup.Use(auth.JWTProtected())
	roleGroup.Use(auth.RoleProtected("admin"))
	roleGroup.Post("/", role.CreateRoleHandler)
	roleGroup.Get("/", role.ListRolesHandler)
	roleGroup.Get("/:id", role.GetRoleHandler)
	roleGroup.Put("/:id", role.UpdateRoleHandler)
	roleGroup.Delete("/:id", role.DeleteRoleHandler)
	roleGroup.Post("/:id/duplicate", role.DuplicateRoleHandler)
	roleGroup.Post("/assign", role.AssignRoleToUserHandler)

	// ==========================================
	// ORGANIZATION (Tenants & Departments)
	// ==========================================
	orgGroup := app.Group("/org")
	orgGroup.Use(auth.JWTProtected())

	orgGroup.Post("/tenants",
		middleware.PermissionProtected("Organization", "create"),
		org.CreateTenantHandler)
	orgGroup.Get("/tenants",
		middleware.PermissionProtected("Organization", "read"),
		org.ListTenantsHandler)
	orgGroup.Get("/tenants/:id",
		middleware.PermissionProtected("Organization", "read"),
		org.GetTenantHandler)
	orgGroup.Put("/tenants/:id",
		middleware.PermissionProtected("Organization", "update"),
		org.UpdateTenantHandler)
	orgGroup.Delete("/tenants/:id",
		middleware.PermissionProtected("Organization", "delete"),
		org.DeleteTenantHandler)

	orgGroup.Post("/departments",
		middleware.PermissionProtected("Organization", "create"),
		org.CreateDepartmentHandler)
	orgGroup.Get("/departments",
		middleware.PermissionProtected("Organization", "read"),
		org.ListDepartmentsHandler)
	orgGroup.Put("/departments/:id",
		middleware.PermissionProtected("Organization", "update"),
		org.UpdateDepartmentHandler)
	orgGroup.Delete("/departments/:id",
		middleware.PermissionProtected("Organization", "delete"),
		org.DeleteDepartmentHandler)

	// ==========================================
	// FORM TEMPLATES
	// ==========================================
	formGroup := app.Group("/forms")
	formGroup.Use(auth.JWTProtected())

	formGroup.Post("/templates",
		middleware.PermissionProtected("FormTemplate", "create"),
		form.CreateTemplateHandler)
	formGroup.Get("/templates",
		middleware.PermissionProtected("FormTemplate", "read"),
		form.ListTemplatesHandler)
	formGroup.Get("/templates/:id",
		middleware.PermissionProtected("FormTemplate", "read"),
		form.GetTemplateHandler)
	formGroup.Put("/templates/:id",
		middleware.PermissionProtected("FormTemplate", "update"),
		form.UpdateTemplateHandler)
	formGroup.Delete("/templates/:id",
		middleware.PermissionProtected("FormTemplate", "delete"),
		form.DeleteTemplateHandler)
	formGroup.Post("/templates/:id/publish",
		middleware.PermissionProtected("FormTemplate", "update"),
		form.PublishTemplateHandler)
	formGroup.Post("/templates/:id/archive",
		middleware.PermissionProtected("FormTemplate", "update"),
		form.ArchiveTemplateHandler)
	formGroup.Post("/templates/:id/assignments",
		middleware.PermissionProtected("FormTemplate", "assign"),
		form.AssignTemplateHandler)
	formGroup.Get("/templates/:id/assignments",
		middleware.PermissionProtected("FormTemplate", "read"),
		form.ListAssignmentsHandler)

	// ==========================================
	// SUBMISSIONS
	// ==========================================
	submissionGroup := app.Group("/submissions")
	submissionGroup.Use(auth.JWTProtected())

	submissionGroup.Post("/",
		middleware.PermissionProtected("Submission", "create"),
		submission.CreateSubmissionHandler)
	submissionGroup.Get("/",
		middleware.PermissionProtected("Submission", "read"),
		submission.ListSubmissionsHandler)
	submissionGroup.Get("/:id",
		middleware.PermissionProtected("Submission", "read"),
		submission.GetSubmissionHandler)
	submissionGroup.Put("/:id",
		middleware.PermissionProtected("Submission", "update"),
		submission.UpdateSubmissionHandler)
	submissionGroup.Delete("/:id",
		middleware.PermissionProtected("Submission", "update"),
		submission.DeleteSubmissionHandler)
	submissionGroup.Post("/:id/submit",
		middleware.PermissionProtected("Submission", "create"),
		submission.SubmitHandler)

	// ==========================================
	// WORKFLOW DEFINITIONS
	// ==========================================
	workflowGroup := app.Group("/workflows")
	workflowGroup.Use(auth.JWTProtected())

	workflowGroup.Post("/",
		middleware.PermissionProtected("Workflow", "create"),
		workflow.CreateWorkflowHandler)
	workflowGroup.Get("/",
		middleware.PermissionProtected("Workflow", "read"),
		workflow.ListWorkflowsHandler)
	workflowGroup.Get("/actions",
		middleware.PermissionProtected("Workflow", "read"),
		workflow.ListActionsHandler)
	workflowGroup.Get("/:id",
		middleware.PermissionProtected("Workflow", "read"),
		workflow.GetWorkflowHandler)
	workflowGroup.Put("/:id",
		middleware.PermissionProtected("Workflow", "update"),
		workflow.UpdateWorkflowHandler)
	workflowGroup.Delete("/:id",
		middleware.PermissionProtected("Workflow", "delete"),
		workflow.DeleteWorkflowHandler)
	workflowGroup.Get("/:id/validate",
		middleware.PermissionProtected("Workflow", "read"),
		workflow.ValidateWorkflowHandler)
	workflowGroup.Post("/:id/clone",
		middleware.PermissionProtected("Workflow", "create"),
		workflow.CloneWorkflowHandler)

	// ==========================================
	// WORKFLOW ENGINE
	// ==========================================
	engineGroup := app.Group("/workflow-engine")
	engineGroup.Use(auth.JWTProtected())

	engineGroup.Get("/pending", engine.PendingHandler)
	engineGroup.Get("/pending/count", engine.PendingCountHandler)
	engineGroup.Post("/sweeps",
		auth.RoleProtected("admin"),
		engine.RunSweepsHandler)
	engineGroup.Post("/submissions/:id/initialize",
		middleware.PermissionProtected("Submission", "create"),
		engine.InitializeHandler)
	engineGroup.Get("/submissions/:id/status",
		middleware.PermissionProtected("Submission", "read"),
		engine.StatusHandler)
	engineGroup.Get("/submissions/:id/current-steps",
		middleware.PermissionProtected("Submission", "read"),
		engine.CurrentStepsHandler)
	engineGroup.Get("/submissions/:id/can-act",
		middleware.PermissionProtected("Submission", "read"),
		engine.CanActOnTargetHandler)
	engineGroup.Get("/submissions/:id/steps/:stepId/can-act",
		middleware.PermissionProtected("Submission", "read"),
		engine.CanActHandler)
	engineGroup.Get("/submissions/:id/steps/:stepId/check-dependencies",
		middleware.PermissionProtected("Submission", "read"),
		engine.CheckDependenciesHandler)
	engineGroup.Post("/submissions/:id/steps/:stepId/complete",
		middleware.PermissionProtected("Submission", "approve"),
		engine.CompleteHandler)
	engineGroup.Post("/submissions/:id/steps/:stepId/reject",
		middleware.PermissionProtected("Submission", "approve"),
		engine.RejectHandler)
	engineGroup.Post("/submissions/:id/steps/:stepId/delegate",
		middleware.PermissionProtected("Submission", "delegate"),
		engine.DelegateHandler)

	// ==========================================
	// NOTIFICATIONS
	// ==========================================
	notifyGroup := app.Group("/notifications")
	notifyGroup.Use(auth.JWTProtected())

	notifyGroup.Get("/", notify.ListNotificationsHandler)
	notifyGroup.Post("/:id/read", notify.MarkReadHandler)

	// ==========================================
	// METRICS
	// ==========================================
	metricGroup := app.Group("/metrics")
	metricGroup.Use(auth.JWTProtected())

	metricGroup.Post("/",
		middleware.PermissionProtected("Metric", "create"),
		metrics.CreateMetricHandler)
	metricGroup.Get("/",
		middleware.PermissionProtected("Metric", "read"),
		metrics.ListMetricsHandler)
	metricGroup.Get("/:id",
		middleware.PermissionProtected("Metric", "read"),
		metrics.GetMetricHandler)
	metricGroup.Get("/:id/summary",
		middleware.PermissionProtected("Metric", "read"),
		metrics.MetricSummaryHandler)
	metricGroup.Get("/:id/values",
		middleware.PermissionProtected("Metric", "read"),
		metrics.ListMetricValuesHandler)
	metricGroup.Delete("/:id",
		middleware.PermissionProtected("Metric", "delete"),
		metrics.DeleteMetricHandler)
}
