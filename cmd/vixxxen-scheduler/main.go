// Package main provides the vixxxen scheduler: the trigger loop that fires
// due workflow schedules through the execution worker pool.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/cmd"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/log"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/otelhelper"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/scheduler"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/workflow"
)

func main() {
	logger := log.WithModule("vixxxen-scheduler")

	command := &cli.Command{
		Name:                  "vixxxen-scheduler",
		Usage:                 "Fire scheduled workflows",
		EnableShellCompletion: true,
		Flags: append([]cli.Flag{
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
				Usage:   "Concurrent execution ceiling",
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

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.InfoContext(ctx, "Initializing vixxxen scheduler")

			shutdownTracing, err := otelhelper.SetupTracing(ctx, "vixxxen-scheduler")
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

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "vixxxen-scheduler", logger)
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

			if err := subscribeExecutionEvents(ctx, logger, eventBus); err != nil {
				return err
			}

			workers := command.Int("workers")
			pool := scheduler.NewWorkerPool(logger, workers)
			pool.Start(ctx, workers)

			loop := scheduler.NewTriggerLoop(logger, persistence, executor, estimator, collaborators.Ledger, eventBus, pool)
			if err := loop.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()

			logger.Info("Shutting down")

			if err := loop.Stop(context.Background()); err != nil {
				logger.Error("Failed to stop trigger loop", "error", err)
			}

			pool.Wait()

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
