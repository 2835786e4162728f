package usecase

import (
	"context"
	"log/slog"
	"time"
)

// Worker polls a RedoUseCase for due records on a fixed interval.
type Worker struct {
	useCase  RedoUseCase
	interval time.Duration
	logger   *slog.Logger
}

// NewWorker creates a Worker. Pass the metrics-decorated use case to get replay metrics.
func NewWorker(useCase RedoUseCase, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		useCase:  useCase,
		interval: interval,
		logger:   logger,
	}
}

// Start runs the polling loop until ctx is done, then returns ctx.Err().
func (w *Worker) Start(ctx context.Context) error {
	if w.logger != nil {
		w.logger.Info("starting redo worker", slog.Duration("interval", w.interval))
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if w.logger != nil {
				w.logger.Info("stopping redo worker")
			}
			return ctx.Err()
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick processes one batch of due records and refreshes the backlog count.
func (w *Worker) Tick(ctx context.Context) {
	result, err := w.useCase.ProcessDue(ctx)
	if err != nil {
		if w.logger != nil {
			w.logger.Error("failed to process due redo records", slog.Any("error", err))
		}
		return
	}

	if result.Claimed > 0 && w.logger != nil {
		w.logger.Info("processed due redo records",
			slog.Int("claimed", result.Claimed),
			slog.Int("succeeded", result.Succeeded),
			slog.Int("retried", result.Retried),
			slog.Int("failed", result.Failed),
		)
	}

	if _, err := w.useCase.CountDue(ctx); err != nil && w.logger != nil {
		w.logger.Error("failed to count due redo records", slog.Any("error", err))
	}
}
