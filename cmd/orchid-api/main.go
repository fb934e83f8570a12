// Package main provides the Orchid API server.
package main

import (
	"context"
	"os"
	"strconv"

	cli "github.com/urfave/cli/v3"

	"github.com/orchid-run/orchid/pkg/cmd"
	"github.com/orchid-run/orchid/pkg/log"
	"github.com/orchid-run/orchid/pkg/web"
	"github.com/orchid-run/orchid/pkg/workflow"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "orchid-api",
		Usage:                 "Create, publish and trigger workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
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
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the routing counter store",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: runAPI,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func runAPI(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("api")
	logger.InfoContext(ctx, "Initializing Orchid API")

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

	// The API never runs workflows itself, but publishing validates graphs
	// against the registry, so the sub_workflow kind still has to exist.
	if _, err := cmd.NewExecutor(persistence, reg, logger); err != nil {
		return err
	}

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), "orchid-api", logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	publishing := workflow.NewPublishingService(persistence, reg)
	handlers := web.NewAPIHandlers(logger, persistence, publishing, reg, eventBus)
	app := web.NewApp(handlers)

	return app.Listen(":" + strconv.Itoa(command.Int("port")))
}
