package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/redo/cmd/app/commands"
	"github.com/allisson/redo/internal/app"
	"github.com/allisson/redo/internal/config"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

func getRedoCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "replay",
			Usage: "Replay a redo record now",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Redo record ID",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				redoUseCase, err := container.RedoUseCase()
				if err != nil {
					return err
				}

				return commands.RunReplay(
					ctx,
					redoUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "count-due",
			Usage: "Count pending redo records whose next replay is due",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				redoUseCase, err := container.RedoUseCase()
				if err != nil {
					return err
				}

				return commands.RunCountDue(
					ctx,
					redoUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "process-due",
			Usage: "Process one batch of due redo records and exit",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				redoUseCase, err := container.RedoUseCase()
				if err != nil {
					return err
				}

				return commands.RunProcessDue(
					ctx,
					redoUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "capture",
			Usage: "Record a call for later replay",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "target",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Target type name (e.g., redo.Diagnostics)",
				},
				&cli.StringFlag{
					Name:     "method",
					Aliases:  []string{"m"},
					Required: true,
					Usage:    "Method name",
				},
				&cli.StringSliceFlag{
					Name:    "arg",
					Aliases: []string{"a"},
					Usage:   "Argument as TYPE=JSON (e.g., string=\"hello\"), or null; repeat in call order",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				redoUseCase, err := container.RedoUseCase()
				if err != nil {
					return err
				}

				return commands.RunCapture(
					ctx,
					redoUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("target"),
					cmd.String("method"),
					cmd.StringSlice("arg"),
					cmd.String("format"),
				)
			},
		},
	}
}
