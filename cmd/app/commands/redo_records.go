package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/redo/internal/redo/domain"
	"github.com/allisson/redo/internal/redo/usecase"
)

// recordOutput is the JSON shape of a record printed by the CLI.
type recordOutput struct {
	ID            string     `json:"id"`
	TargetType    string     `json:"target_type"`
	Method        string     `json:"method"`
	ArgTypes      string     `json:"arg_types"`
	Args          string     `json:"args"`
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	LastError     *string    `json:"last_error,omitempty"`
	NextAttemptAt time.Time  `json:"next_attempt_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

func toRecordOutput(record *domain.Record) recordOutput {
	return recordOutput{
		ID:            record.ID.String(),
		TargetType:    record.TargetType,
		Method:        record.Method,
		ArgTypes:      record.ArgTypes,
		Args:          record.Args,
		Status:        string(record.Status),
		Attempts:      record.Attempts,
		LastError:     record.LastError,
		NextAttemptAt: record.NextAttemptAt,
		ResolvedAt:    record.ResolvedAt,
	}
}

func writeRecord(w io.Writer, record *domain.Record, format string) error {
	if format == "json" {
		return writeJSON(w, toRecordOutput(record))
	}

	_, _ = fmt.Fprintf(w, "ID:          %s\n", record.ID)
	_, _ = fmt.Fprintf(w, "Target:      %s.%s\n", record.TargetType, record.Method)
	_, _ = fmt.Fprintf(w, "Status:      %s\n", record.Status)
	_, _ = fmt.Fprintf(w, "Attempts:    %d\n", record.Attempts)
	if record.LastError != nil {
		_, _ = fmt.Fprintf(w, "Last error:  %s\n", *record.LastError)
	}
	if record.Status == domain.StatusPending {
		_, _ = fmt.Fprintf(w, "Next replay: %s\n", record.NextAttemptAt.Format(time.RFC3339))
	}
	return nil
}

// RunReplay replays one record immediately, regardless of its next attempt time.
// A failed replay is reported on the printed record and is not a command error.
func RunReplay(
	ctx context.Context,
	redoUseCase usecase.RedoUseCase,
	logger *slog.Logger,
	writer io.Writer,
	id string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	recordID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid record ID %q: %w", id, err)
	}

	logger.Info("replaying redo record", slog.String("record_id", recordID.String()))

	record, err := redoUseCase.Replay(ctx, recordID)
	if err != nil {
		return fmt.Errorf("failed to replay record: %w", err)
	}

	return writeRecord(writer, record, format)
}

// RunCountDue prints the number of pending records whose next attempt is due.
func RunCountDue(
	ctx context.Context,
	redoUseCase usecase.RedoUseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	count, err := redoUseCase.CountDue(ctx)
	if err != nil {
		return fmt.Errorf("failed to count due records: %w", err)
	}
	logger.Debug("counted due redo records", slog.Int64("count", count))

	if format == "json" {
		return writeJSON(writer, map[string]any{"count": count})
	}
	_, err = fmt.Fprintf(writer, "%d redo record(s) due\n", count)
	return err
}

// RunProcessDue processes a single batch of due records and exits, for cron-style deployments.
func RunProcessDue(
	ctx context.Context,
	redoUseCase usecase.RedoUseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	result, err := redoUseCase.ProcessDue(ctx)
	if err != nil {
		return fmt.Errorf("failed to process due records: %w", err)
	}

	logger.Info("processed due redo records",
		slog.Int("claimed", result.Claimed),
		slog.Int("succeeded", result.Succeeded),
		slog.Int("retried", result.Retried),
		slog.Int("failed", result.Failed),
	)

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"claimed":   result.Claimed,
			"succeeded": result.Succeeded,
			"retried":   result.Retried,
			"failed":    result.Failed,
		})
	}
	_, err = fmt.Fprintf(
		writer,
		"Claimed %d record(s): %d succeeded, %d retried, %d failed\n",
		result.Claimed,
		result.Succeeded,
		result.Retried,
		result.Failed,
	)
	return err
}

// RunCapture records a call for later replay. Each argument is given as TYPE=JSON.
func RunCapture(
	ctx context.Context,
	redoUseCase usecase.RedoUseCase,
	logger *slog.Logger,
	writer io.Writer,
	targetType string,
	method string,
	rawArgs []string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	args, err := parseTypedArgs(rawArgs)
	if err != nil {
		return err
	}

	record, err := redoUseCase.CaptureCall(ctx, targetType, method, args...)
	if err != nil {
		return fmt.Errorf("failed to capture call: %w", err)
	}

	logger.Info("redo record captured from cli", slog.String("record_id", record.ID.String()))
	return writeRecord(writer, record, format)
}
