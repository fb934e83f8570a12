// Package main provides the Orchid workflow execution worker.
package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/orchid-run/orchid/pkg/cmd"
	"github.com/orchid-run/orchid/pkg/log"
	"github.com/orchid-run/orchid/pkg/otelhelper"
)

func main() {
	command := &cli.Command{
		Name:                  "orchid-worker",
		Usage:                 "Run workflow executions requested on the event bus",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the routing counter store",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces via OTLP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: runWorker,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func runWorker(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	workerID := command.String("worker-id")
	if workerID == "" {
		workerID = "worker-" + uuid.New().String()[:8]
	}

	logger := log.WithModule("worker").With("worker_id", workerID)
	logger.InfoContext(ctx, "Initializing Orchid Worker")

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	counters, err := cmd.NewCounterStore(command.String("redis-url"))
	if err != nil {
		return err
	}

	reg, err := cmd.NewRegistry(logger, counters, nil)
	if err != nil {
		return err
	}

	executor, err := cmd.NewExecutor(persistence, reg, logger)
	if err != nil {
		return err
	}

	if command.Bool("tracing") {
		tracer, err := otelhelper.NewTracer(ctx, "orchid-worker")
		if err != nil {
			return err
		}

		executor = executor.WithTracer(tracer)
	}

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), "orchid-worker", logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	worker := NewWorker(workerID, persistence, executor, eventBus, logger)

	return worker.Start(ctx)
}
