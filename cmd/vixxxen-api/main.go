package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/cmd"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/log"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/otelhelper"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/scheduler"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/workflow"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("vixxxen-api")

	command := &cli.Command{
		Name:                  "vixxxen-api",
		Usage:                 "Manage and execute generation workflows",
		EnableShellCompletion: true,
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.IntFlag{
				Name:    "workers",
				Usage:   "Concurrent execution ceiling for manual runs",
				Value:   4,
				Sources: cli.EnvVars("EXECUTION_WORKERS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		}, cmd.CollaboratorFlags()...),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing vixxxen API")

			shutdownTracing, err := otelhelper.SetupTracing(ctx, "vixxxen-api")
			if err != nil {
				return err
			}

			defer func() {
				if err := shutdownTracing(context.Background()); err != nil {
					logger.ErrorContext(ctx, "Failed to shut down tracing", "error", err)
				}
			}()

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "vixxxen-api", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			gpuRouter, err := cmd.NewGPURouter(logger, command)
			if err != nil {
				return err
			}

			collaborators, err := cmd.NewCollaborators(ctx, logger, command, gpuRouter)
			if err != nil {
				return err
			}

			reg := cmd.NewRegistry(logger, collaborators)
			executor := workflow.NewExecutor(logger, persistence, reg, eventBus)
			estimator := workflow.NewEstimator(reg)

			workers := command.Int("workers")
			pool := scheduler.NewWorkerPool(logger, workers)
			pool.Start(ctx, workers)

			api := NewAPI(logger, persistence, reg, executor, estimator, collaborators.Ledger, gpuRouter, pool)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "API server stopped", "error", err)

				return err
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
