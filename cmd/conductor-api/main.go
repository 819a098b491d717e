package main

import (
	"context"
	"os"
	"time"

	"github.com/conductor-labs/conductor/pkg/approval"
	"github.com/conductor-labs/conductor/pkg/cmd"
	"github.com/conductor-labs/conductor/pkg/engine"
	"github.com/conductor-labs/conductor/pkg/log"
	"github.com/conductor-labs/conductor/pkg/otelhelper"
	"github.com/conductor-labs/conductor/pkg/planner"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9090

func main() {
	command := &cli.Command{
		Name:                  "conductor-api",
		Usage:                 "Execute goal-driven workflows with human approval gates",
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
				Name:    "database-url",
				Usage:   "Workflow store URL (redis://... or memory://)",
				Value:   "memory://",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.IntFlag{
				Name:    "max-concurrent-workflows",
				Usage:   "Upper bound on workflows executing at once",
				Value:   engine.DefaultMaxConcurrentWorkflows,
				Sources: cli.EnvVars("MAX_CONCURRENT_WORKFLOWS"),
			},
			&cli.DurationFlag{
				Name:    "retention",
				Usage:   "How long finished workflow state stays queryable",
				Value:   24 * time.Hour,
				Sources: cli.EnvVars("RETENTION"),
			},
			&cli.StringFlag{
				Name:    "sweep-schedule",
				Usage:   "Cron expression for the orphan recovery sweep",
				Value:   engine.DefaultSweepSchedule,
				Sources: cli.EnvVars("SWEEP_SCHEDULE"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OTLP traces for step execution",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing Conductor API")

			st, err := cmd.NewStore(ctx, command.String("database-url"), command.Duration("retention"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := st.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close store", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "conductor-api", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			registry := cmd.NewRegistry(logger)

			cfg := engine.Config{
				Store:                  st,
				Registry:               registry,
				Planner:                planner.NewStaticPlanner(),
				Gateway:                approval.NewBusGateway(eventBus),
				EventBus:               eventBus,
				Logger:                 logger,
				MaxConcurrentWorkflows: command.Int("max-concurrent-workflows"),
				SweepSchedule:          command.String("sweep-schedule"),
			}

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "conductor-api")
				if err != nil {
					return err
				}

				cfg.Tracer = tracer
			}

			eng, err := engine.New(cfg)
			if err != nil {
				return err
			}

			if err := eng.Start(ctx); err != nil {
				return err
			}

			defer eng.Stop(ctx)

			api := NewAPI(logger, eng, st, registry)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "API server stopped", "error", err)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
