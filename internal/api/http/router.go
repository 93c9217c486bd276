package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/helpdesk-router/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-router/internal/auth"
	"github.com/spec-kit/helpdesk-router/internal/realtime"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Agents         *handlers.AgentsHandler
	Channels       *handlers.ChannelsHandler
	Tickets        *handlers.TicketsHandler
	Webhook        *handlers.WebhookHandler
	Reports        *handlers.ReportsHandler
	Notifications  *handlers.NotificationsHandler
	Hub            *realtime.Hub
	AuthMiddleware *auth.AuthMiddleware
	Gatherer       prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Agents.Register)
	authGroup.Post("/login", cfg.Agents.Login)

	app.Post("/webhooks/whatsapp", cfg.Webhook.WhatsApp)

	authed := cfg.AuthMiddleware.Handle

	if cfg.Hub != nil {
		app.Get("/ws/changes", realtime.Upgrade, cfg.AuthMiddleware.HandleUpgrade, cfg.Hub.Handler())
	}

	agents := app.Group("/agents", authed)
	agents.Get("/", cfg.Agents.List)
	agents.Post("/", auth.RequireSupervisor(), cfg.Agents.Create)
	agents.Get("/me", cfg.Agents.Me)
	agents.Get("/:id", cfg.Agents.Get)
	agents.Patch("/:id", auth.RequireSupervisor(), cfg.Agents.Update)

	channels := app.Group("/channels", authed)
	channels.Get("/", cfg.Channels.List)
	channels.Post("/", auth.RequireSupervisor(), cfg.Channels.Create)
	channels.Patch("/:id", auth.RequireSupervisor(), cfg.Channels.Update)

	tickets := app.Group("/tickets", authed)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/export", cfg.Tickets.Export)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/reassign", cfg.Tickets.Reassign)

	app.Get("/stats", authed, cfg.Reports.Stats)
	app.Post("/notifications/sms", authed, auth.RequireSupervisor(), cfg.Notifications.SendSMS)
}
