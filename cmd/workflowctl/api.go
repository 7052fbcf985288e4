package main

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/registry"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/services"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type API struct {
	logger    *slog.Logger
	workspace *services.Workspace
	registry  *registry.Registry
	gatherer  prometheus.Gatherer
	validate  *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	workspace *services.Workspace,
	registry *registry.Registry,
	gatherer prometheus.Gatherer,
) *API {
	return &API{
		logger:    logger,
		workspace: workspace,
		registry:  registry,
		gatherer:  gatherer,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.workspace, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Workflow API")
	})

	if a.gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{})))
	}

	handlers.Register(app)

	return app
}

// Serve listens on port until ctx is cancelled, then shuts the server down.
func (a *API) Serve(ctx context.Context, port int) error {
	app := a.App()
	errs := make(chan error, 1)

	go func() {
		errs <- app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
	}()

	a.logger.InfoContext(ctx, "Workflow API listening", "port", port)

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
