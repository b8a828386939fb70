package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/cmd"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/engine"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/log"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/otelhelper"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/web"
)

func main() {
	command := &cli.Command{
		Name:                  "warroom-api",
		Usage:                 "Start the REST API for flow management and execution control",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on",
				Value:   "8080",
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

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracerProvider, err := otelhelper.InitTracer(ctx, "warroom-api")
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}

	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			slog.Error("Failed to shutdown tracer provider", "error", err)
		}
	}()

	serviceID := fmt.Sprintf("api-%s", uuid.New().String()[:8])
	logger := log.WithModule("warroom-api").With("service_id", serviceID)
	logger.Info("Initializing API")

	persist, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to setup persistence: %w", err)
	}

	defer func() {
		if err := persist.Close(context.Background()); err != nil {
			logger.Error("Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), "warroom-api", logger)
	if err != nil {
		return fmt.Errorf("failed to setup event bus: %w", err)
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.Error("Failed to close event bus", "error", err)
		}
	}()

	reg, err := cmd.NewRegistry(logger, cmd.RegistryConfig{})
	if err != nil {
		return fmt.Errorf("failed to setup node registry: %w", err)
	}

	runner := engine.NewRunner(persist, reg, eventBus, logger, serviceID)
	handlers := web.NewAPIHandlers(persist, runner, eventBus, validator.New(), logger, nil)

	app := fiber.New(fiber.Config{AppName: "warroom-api"})
	handlers.RegisterRoutes(app)

	go func() {
		<-ctx.Done()

		if err := app.Shutdown(); err != nil {
			logger.Error("Failed to shutdown server", "error", err)
		}
	}()

	address := ":" + command.String("port")
	logger.Info("API listening", "address", address)

	if err := app.Listen(address); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}

	return nil
}
