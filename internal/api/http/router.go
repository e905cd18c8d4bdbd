package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/PagerNation/escalator/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Groups  *handlers.GroupsHandler
	Users   *handlers.UsersHandler
	Tickets *handlers.TicketsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Post("/users", cfg.Users.CreateUser)
	app.Get("/users/:id", cfg.Users.GetUser)

	groups := app.Group("/groups")
	groups.Post("", cfg.Groups.CreateGroup)
	groups.Get("/:name", cfg.Groups.GetGroup)
	groups.Put("/:name/policy", cfg.Groups.UpdatePolicy)
	groups.Delete("/:name", cfg.Groups.DeleteGroup)
	groups.Post("/:name/subscribers/:userID/deactivation", cfg.Groups.RequestDeactivation)

	tickets := app.Group("/tickets")
	tickets.Post("", cfg.Tickets.OpenTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/ack", cfg.Tickets.AcknowledgeTicket)
	tickets.Post("/:id/reject", cfg.Tickets.RejectTicket)
	tickets.Post("/:id/close", cfg.Tickets.CloseTicket)
	tickets.Post("/:id/pages", cfg.Tickets.SendPage)
}
