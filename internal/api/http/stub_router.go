package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/salescrm/crm-portal/internal/api/http/handlers"
	"github.com/salescrm/crm-portal/internal/auth"
)

// StubAPIPrefix is where the development CRM API is mounted.
const StubAPIPrefix = "/api/v1"

// StubRouteConfig bundles dependencies for the development CRM API.
type StubRouteConfig struct {
	Health *handlers.HealthHandler
	Auth   *handlers.CRMAuthHandler
	Bearer *auth.BearerMiddleware
}

// RegisterStubRoutes wires the development CRM API routes.
func RegisterStubRoutes(app *fiber.App, cfg StubRouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group(StubAPIPrefix)

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/forgot-password", cfg.Auth.ForgotPassword)

	protected := authGroup.Group("", cfg.Bearer.Handle)
	protected.Post("/logout", cfg.Auth.Logout)
	protected.Get("/me", cfg.Auth.Me)
	protected.Post("/change-password", cfg.Auth.ChangePassword)

	for _, path := range []string{"/leads", "/tasks", "/activities", "/users"} {
		api.Get(path, cfg.Bearer.Handle, cfg.Auth.EmptyList)
	}
	api.Get("/dashboard/stats", cfg.Bearer.Handle, cfg.Auth.EmptyList)
}
