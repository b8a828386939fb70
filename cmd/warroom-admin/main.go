package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/cmd"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/engine"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/log"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/persistence"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/registry"
)

func main() {
	command := &cli.Command{
		Name:                  "warroom-admin",
		Usage:                 "Operator tooling for executions and consistency checks",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			newResetCommand(),
			newCancelCommand(),
			newReconcileCommand(),
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "Database connection URL for persistence",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "warn",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
	}
}

func openPersistence(ctx context.Context, command *cli.Command) (persistence.Persistence, error) {
	log.Setup(command.String("log-level"))

	return cmd.NewPersistence(ctx, log.WithModule("warroom-admin"), command.String("database-url"))
}

func newResetCommand() *cli.Command {
	return &cli.Command{
		Name:      "reset",
		Usage:     "Reset an execution to pending; it restarts from the graph entry",
		ArgsUsage: "<execution-id>",
		Flags:     storeFlags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			executionID := command.Args().First()
			if executionID == "" {
				return errors.New("execution id is required")
			}

			persist, err := openPersistence(ctx, command)
			if err != nil {
				return err
			}
			defer persist.Close(ctx) //nolint:errcheck

			if err := persist.Executions().Reset(ctx, executionID); err != nil {
				return err
			}

			fmt.Println("reset:", executionID)

			return nil
		},
	}
}

func newCancelCommand() *cli.Command {
	return &cli.Command{
		Name:      "cancel",
		Usage:     "Cancel a non-terminal execution",
		ArgsUsage: "<execution-id>",
		Flags: append(storeFlags(),
			&cli.StringFlag{
				Name:  "reason",
				Usage: "Cancellation reason recorded on the execution",
				Value: "cancelled by operator",
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			executionID := command.Args().First()
			if executionID == "" {
				return errors.New("execution id is required")
			}

			persist, err := openPersistence(ctx, command)
			if err != nil {
				return err
			}
			defer persist.Close(ctx) //nolint:errcheck

			logger := log.WithModule("warroom-admin")
			runner := engine.NewRunner(persist, registry.NewRegistry(logger), nil, logger, "admin")

			if err := runner.Cancel(ctx, executionID, command.String("reason"), "operator"); err != nil {
				return err
			}

			fmt.Println("cancelled:", executionID)

			return nil
		},
	}
}

func newReconcileCommand() *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "Run one consistency reconciliation pass and print the stats",
		Flags: storeFlags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			persist, err := openPersistence(ctx, command)
			if err != nil {
				return err
			}
			defer persist.Close(ctx) //nolint:errcheck

			stats, err := engine.NewReconciler(persist, log.WithModule("warroom-admin")).Run(ctx)
			if err != nil {
				return err
			}

			fmt.Println("duplicate feed items removed:", stats.DuplicateFeedItemsRemoved)
			fmt.Println("executions reset:", stats.ExecutionsReset)
			fmt.Println("stalled artifacts:", len(stats.StalledArtifactIDs))

			for _, id := range stats.StalledArtifactIDs {
				fmt.Println("  -", id)
			}

			return nil
		},
	}
}
