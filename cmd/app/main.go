// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:     "redo",
		Usage:    "Deferred invocation replay engine",
		Version:  version,
		Commands: getCommands(version),
		// capture arguments carry JSON values that may contain commas.
		DisableSliceFlagSeparator: true,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
