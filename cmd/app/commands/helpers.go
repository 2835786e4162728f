// Package commands contains CLI command implementations for the application.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"

	"github.com/allisson/redo/internal/app"
	"github.com/allisson/redo/internal/redo/service"
)

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// closeContainer closes all resources in the container and logs any errors.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// closeMigrate closes the migration instance and logs any errors.
func closeMigrate(migrate *migrate.Migrate, logger *slog.Logger) {
	sourceError, databaseError := migrate.Close()
	if sourceError != nil || databaseError != nil {
		logger.Error(
			"failed to close the migrate",
			slog.Any("source_error", sourceError),
			slog.Any("database_error", databaseError),
		)
	}
}

// validateFormat rejects output formats other than text and json.
func validateFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid options: text, json)", format)
	}
}

// writeJSON writes v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonBytes))
	return err
}

// parseTypedArgs converts TYPE=JSON flag values into call arguments. A bare "null"
// records a null argument.
func parseTypedArgs(values []string) ([]service.TypedValue, error) {
	args := make([]service.TypedValue, 0, len(values))
	for i, value := range values {
		if strings.TrimSpace(value) == "null" {
			args = append(args, service.TypedValue{})
			continue
		}

		typeName, raw, found := strings.Cut(value, "=")
		typeName = strings.TrimSpace(typeName)
		if !found || typeName == "" {
			return nil, fmt.Errorf("argument %d: expected TYPE=JSON, got %q", i, value)
		}
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("argument %d: value is not valid JSON: %s", i, raw)
		}
		args = append(args, service.TypedValue{Type: typeName, Value: json.RawMessage(raw)})
	}
	return args, nil
}
