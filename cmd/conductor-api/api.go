// Package main provides the Conductor API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/conductor-labs/conductor/pkg/engine"
	"github.com/conductor-labs/conductor/pkg/executor"
	"github.com/conductor-labs/conductor/pkg/store"
	"github.com/conductor-labs/conductor/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger   *slog.Logger
	engine   *engine.Engine
	store    store.Store
	registry *executor.Registry
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	eng *engine.Engine,
	st store.Store,
	registry *executor.Registry,
) *API {
	return &API{
		logger:   logger,
		engine:   eng,
		store:    st,
		registry: registry,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.engine, a.store, a.registry, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Conductor API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Post("/:id/approvals/:approvalId", handlers.ResolveApproval)
	w.Post("/:id/cancel", handlers.CancelWorkflow)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	a.logger.Info("Starting Conductor API", "port", port)

	return app.Listen(":" + strconv.Itoa(port))
}
