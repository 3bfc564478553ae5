package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/salescrm/crm-portal/internal/api/http/handlers"
	"github.com/salescrm/crm-portal/internal/auth"
	"github.com/salescrm/crm-portal/internal/domain"
)

// RouteConfig bundles dependencies for portal route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Session   *handlers.SessionHandler
	Workspace *handlers.WorkspaceHandler
	Audit     *handlers.AuditHandler
	Guard     *auth.Guard
}

// RegisterRoutes wires the portal routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	guard := cfg.Guard
	signedIn := guard.RequireSession()
	staff := guard.RequireRole(domain.RoleAdmin, domain.RoleManager)

	app.Get(auth.LoginPath, cfg.Session.LoginPage)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Session.Login)
	authGroup.Post("/register", cfg.Session.Register)
	authGroup.Post("/logout", cfg.Session.Logout)
	authGroup.Post("/refresh", cfg.Session.Refresh)
	authGroup.Post("/forgot-password", cfg.Session.ForgotPassword)
	authGroup.Post("/change-password", signedIn, cfg.Session.ChangePassword)

	sessionGroup := app.Group("/session")
	sessionGroup.Get("", cfg.Session.Session)
	sessionGroup.Get("/permissions", cfg.Session.Permissions)
	sessionGroup.Delete("/error", cfg.Session.ClearError)
	sessionGroup.Post("/profile", signedIn, cfg.Session.ReloadProfile)

	app.Get("/audit", guard.RequirePermission(auth.PermAuditView), cfg.Audit.Recent)

	app.Get(auth.HomePath, signedIn, cfg.Workspace.Dashboard)
	app.Get("/leads", signedIn, cfg.Workspace.Leads)
	app.Post("/leads/bulk-assign", guard.RequirePermission(auth.PermLeadAssign), cfg.Workspace.BulkAssignLeads)
	app.Get("/leads/:id", signedIn, cfg.Workspace.Lead)
	app.Delete("/leads/:id", guard.RequirePermission(auth.PermLeadDelete), cfg.Workspace.DeleteLead)
	app.Get("/tasks", signedIn, cfg.Workspace.Tasks)
	app.Get("/tasks/:id", signedIn, cfg.Workspace.Task)
	app.Get("/activities", signedIn, cfg.Workspace.Activities)
	app.Get("/users", staff, cfg.Workspace.Users)
	app.Get("/users/:id", staff, cfg.Workspace.User)
	app.Get("/settings", guard.RequireRole(domain.RoleAdmin), cfg.Workspace.Settings)
}
