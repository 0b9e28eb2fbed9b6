package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/http/handlers"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health           *handlers.HealthHandler
	Users            *handlers.UsersHandler
	Authorities      *handlers.AuthoritiesHandler
	Tickets          *handlers.TicketsHandler
	AuthorityTickets *handlers.AuthorityTicketsHandler
	Admin            *handlers.AdminHandler
	AuthMiddleware   *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)
	authGroup.Post("/authorities/login", cfg.Authorities.Login)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Get("/public", cfg.Tickets.ListPublic)
	tickets.Get("/rate-limit", auth.RequireUser(), cfg.Tickets.RateLimit)
	tickets.Post("", auth.RequireUser(), cfg.Tickets.Submit)
	tickets.Get("", auth.RequireUser(), cfg.Tickets.List)
	tickets.Get("/:id", auth.RequireUser(), cfg.Tickets.Get)
	tickets.Get("/:id/history", auth.RequireUser(), cfg.Tickets.History)
	tickets.Post("/:id/vote", auth.RequireUser(), cfg.Tickets.Vote)
	tickets.Delete("/:id/vote", auth.RequireUser(), cfg.Tickets.Unvote)
	tickets.Post("/:id/close", auth.RequireUser(), cfg.Tickets.Close)
	tickets.Post("/:id/escalate", auth.RequireUser(), cfg.Tickets.Escalate)

	authority := app.Group("/authority/tickets", cfg.AuthMiddleware.Handle, auth.RequireAuthority())
	authority.Get("", cfg.AuthorityTickets.Queue)
	authority.Get("/:id", cfg.AuthorityTickets.Get)
	authority.Get("/:id/history", cfg.AuthorityTickets.History)
	authority.Post("/:id/status", cfg.AuthorityTickets.ChangeStatus)
	authority.Post("/:id/escalate", cfg.AuthorityTickets.Escalate)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAuthority(domain.AuthorityAdmin))
	admin.Post("/escalations/sweep", cfg.Admin.RunSweep)
	admin.Get("/escalations/totals", cfg.Admin.SweepTotals)
}
