package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/cmd"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/engine"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/log"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/otelhelper"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/triggers/schedule"
)

func main() {
	command := &cli.Command{
		Name:                  "warroom-worker",
		Usage:                 "Start the execution worker: scheduler, watchdog, reconciler, and schedule trigger",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
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
				Name:    "inference-url",
				Usage:   "Base URL of the inference provider",
				Sources: cli.EnvVars("INFERENCE_URL"),
			},
			&cli.StringFlag{
				Name:    "inference-api-key",
				Usage:   "API key for the inference provider",
				Sources: cli.EnvVars("INFERENCE_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the link-check cache (optional)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.DurationFlag{
				Name:    "reconcile-interval",
				Usage:   "Interval between consistency reconciliation passes",
				Value:   10 * time.Minute,
				Sources: cli.EnvVars("RECONCILE_INTERVAL"),
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

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracerProvider, err := otelhelper.InitTracer(ctx, "warroom-worker")
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}

	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			slog.Error("Failed to shutdown tracer provider", "error", err)
		}
	}()

	workerID := command.String("worker-id")
	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	logger := log.WithModule("warroom-worker").With("worker_id", workerID)
	logger.Info("Initializing worker")

	persist, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to setup persistence: %w", err)
	}

	defer func() {
		if err := persist.Close(context.Background()); err != nil {
			logger.Error("Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), "warroom-worker", logger)
	if err != nil {
		return fmt.Errorf("failed to setup event bus: %w", err)
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.Error("Failed to close event bus", "error", err)
		}
	}()

	reg, err := cmd.NewRegistry(logger, cmd.RegistryConfig{
		InferenceURL:    command.String("inference-url"),
		InferenceAPIKey: command.String("inference-api-key"),
		RedisURL:        command.String("redis-url"),
	})
	if err != nil {
		return fmt.Errorf("failed to setup node registry: %w", err)
	}

	runner := engine.NewRunner(persist, reg, eventBus, logger, workerID)
	scheduler := engine.NewScheduler(persist, runner, logger, workerID)
	watchdog := engine.NewWatchdog(persist, eventBus, logger)
	reconciler := engine.NewReconciler(persist, logger)
	trigger := schedule.NewTrigger(persist, eventBus, logger, scheduler.Wake)

	var wg sync.WaitGroup

	start := func(name string, run func(context.Context) error) {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if err := run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("Component stopped unexpectedly", "component", name, "error", err)
				stop()
			}
		}()
	}

	start("scheduler", scheduler.Start)
	start("watchdog", watchdog.Start)
	start("schedule_trigger", trigger.Start)
	start("reconciler", func(ctx context.Context) error {
		return runReconcilerLoop(ctx, reconciler, command.Duration("reconcile-interval"))
	})

	logger.Info("Worker started")

	<-ctx.Done()
	wg.Wait()

	logger.Info("Worker stopped")

	return nil
}

func runReconcilerLoop(ctx context.Context, reconciler *engine.Reconciler, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := reconciler.Run(ctx); err != nil {
				slog.Error("Reconciliation pass failed", "error", err)
			}
		}
	}
}
