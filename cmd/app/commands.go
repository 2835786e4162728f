package main

import (
	"slices"

	"github.com/urfave/cli/v3"
)

// getCommands lists the process commands (server, worker, migrate) ahead of the
// record operations.
func getCommands(version string) []*cli.Command {
	return slices.Concat(getSystemCommands(version), getRedoCommands())
}
