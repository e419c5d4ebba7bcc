// Package main provides the vixxxen API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/gpu"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/persistence"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/protocol"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/registry"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/scheduler"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/web"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/workflow"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	executor    *workflow.Executor
	estimator   *workflow.Estimator
	ledger      protocol.CreditLedger
	gpuRouter   *gpu.Router
	pool        *scheduler.WorkerPool
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persist persistence.Persistence,
	reg *registry.Registry,
	executor *workflow.Executor,
	estimator *workflow.Estimator,
	ledger protocol.CreditLedger,
	gpuRouter *gpu.Router,
	pool *scheduler.WorkerPool,
) *API {
	return &API{
		logger:      logger,
		persistence: persist,
		registry:    reg,
		executor:    executor,
		estimator:   estimator,
		ledger:      ledger,
		gpuRouter:   gpuRouter,
		pool:        pool,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(
		a.logger,
		a.persistence,
		a.validate,
		a.registry,
		a.executor,
		a.estimator,
		a.ledger,
		a.gpuRouter,
		a.pool,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("vixxxen engine API")
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handlers.RegisterRoutes(app)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
