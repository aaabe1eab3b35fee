package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jusdesk/portal-sync/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Session  *handlers.SessionHandler
	Mail     *handlers.MailHandler
	Analysis *handlers.AnalysisHandler
	Status   *handlers.StatusHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	api.Post("/session/login", cfg.Session.Login)
	api.Post("/session/logout", cfg.Session.Logout)
	api.Get("/session", cfg.Session.Current)
	api.Post("/notifications/email", cfg.Mail.Send)
	api.Post("/analysis/petitions", cfg.Analysis.Draft)
	api.Get("/analysis/history", cfg.Analysis.History)
	api.Get("/sync/status", cfg.Status.Status)
}
