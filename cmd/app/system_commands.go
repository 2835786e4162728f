package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/redo/cmd/app/commands"
	"github.com/allisson/redo/internal/app"
	"github.com/allisson/redo/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the admin API server and the redo worker",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "worker",
					Value: true,
					Usage: "Run the redo worker in the same process",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version, cmd.Bool("worker"))
			},
		},
		{
			Name:  "worker",
			Usage: "Start only the redo worker",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunWorker(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
	}
}
