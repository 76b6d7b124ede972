package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/client-service/internal/api/http/handlers"
	"github.com/spec-kit/client-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Auth    *handlers.AuthHandler
	Clients *handlers.ClientsHandler
	Tokens  *handlers.TokensHandler
	Guard   *auth.SessionGuard
}

// RegisterRoutes wires HTTP routes. Every route is served both bare and
// under /api; deployed consumers use either spelling.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	for _, prefix := range []string{"", "/api"} {
		group := app.Group(prefix)

		group.Get("/health", cfg.Health.Live)
		group.Get("/health/ready", cfg.Health.Ready)

		group.Post("/login", cfg.Auth.Login)

		protected := group.Group("", cfg.Guard.Handle)
		protected.Post("/users", cfg.Auth.CreateUser)

		protected.Get("/clients", cfg.Clients.List)
		protected.Post("/clients", cfg.Clients.Create)
		protected.Get("/clients/:id", cfg.Clients.GetByID)
		protected.Put("/clients/:id", cfg.Clients.Update)

		protected.Get("/tokens/status", cfg.Tokens.Status)
		protected.Post("/tokens/invalidate", cfg.Tokens.Invalidate)
	}
}
