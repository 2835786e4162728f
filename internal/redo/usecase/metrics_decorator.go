package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/redo/internal/metrics"
	"github.com/allisson/redo/internal/redo/domain"
	"github.com/allisson/redo/internal/redo/service"
)

const metricsDomain = "redo"

// redoUseCaseWithMetrics decorates RedoUseCase with metrics instrumentation.
type redoUseCaseWithMetrics struct {
	next    RedoUseCase
	metrics metrics.BusinessMetrics
}

// NewRedoUseCaseWithMetrics wraps a RedoUseCase with metrics recording.
func NewRedoUseCaseWithMetrics(useCase RedoUseCase, m metrics.BusinessMetrics) RedoUseCase {
	return &redoUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (r *redoUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	r.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	r.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// Capture records metrics for record capture operations.
func (r *redoUseCaseWithMetrics) Capture(ctx context.Context, input CaptureInput) (*domain.Record, error) {
	start := time.Now()
	record, err := r.next.Capture(ctx, input)
	r.record(ctx, "redo_capture", start, err)
	return record, err
}

// CaptureCall records metrics under the same operation as Capture.
func (r *redoUseCaseWithMetrics) CaptureCall(
	ctx context.Context,
	targetType, method string,
	args ...service.TypedValue,
) (*domain.Record, error) {
	start := time.Now()
	record, err := r.next.CaptureCall(ctx, targetType, method, args...)
	r.record(ctx, "redo_capture", start, err)
	return record, err
}

// ProcessDue records the batch duration and one replay outcome per claimed record.
func (r *redoUseCaseWithMetrics) ProcessDue(ctx context.Context) (BatchResult, error) {
	start := time.Now()
	result, err := r.next.ProcessDue(ctx)
	r.record(ctx, "redo_process_due", start, err)

	outcomes := []struct {
		status string
		count  int
	}{
		{"success", result.Succeeded},
		{"retry", result.Retried},
		{"failed", result.Failed},
	}
	for _, o := range outcomes {
		for i := 0; i < o.count; i++ {
			r.metrics.RecordOperation(ctx, metricsDomain, "redo_replay", o.status)
		}
	}
	return result, err
}

// Replay records metrics for manual replays. The status is the record outcome.
func (r *redoUseCaseWithMetrics) Replay(ctx context.Context, id uuid.UUID) (*domain.Record, error) {
	start := time.Now()
	record, err := r.next.Replay(ctx, id)

	status := "error"
	if err == nil {
		switch record.Status {
		case domain.StatusSucceeded:
			status = "success"
		case domain.StatusFailed:
			status = "failed"
		default:
			status = "retry"
		}
	}

	r.metrics.RecordOperation(ctx, metricsDomain, "redo_replay", status)
	r.metrics.RecordDuration(ctx, metricsDomain, "redo_replay", time.Since(start), status)
	return record, err
}

// Get records metrics for record retrieval operations.
func (r *redoUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*domain.Record, error) {
	start := time.Now()
	record, err := r.next.Get(ctx, id)
	r.record(ctx, "redo_get", start, err)
	return record, err
}

// Delete records metrics for record deletion operations.
func (r *redoUseCaseWithMetrics) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := r.next.Delete(ctx, id)
	r.record(ctx, "redo_delete", start, err)
	return err
}

// List records metrics for record listing operations.
func (r *redoUseCaseWithMetrics) List(
	ctx context.Context,
	status domain.Status,
	offset, limit int,
) ([]*domain.Record, error) {
	start := time.Now()
	records, err := r.next.List(ctx, status, offset, limit)
	r.record(ctx, "redo_list", start, err)
	return records, err
}

// CountDue records the due backlog gauge along with the operation metrics.
func (r *redoUseCaseWithMetrics) CountDue(ctx context.Context) (int64, error) {
	start := time.Now()
	count, err := r.next.CountDue(ctx)
	r.record(ctx, "redo_count_due", start, err)
	if err == nil {
		r.metrics.RecordBacklog(ctx, metricsDomain, "due", count)
	}
	return count, err
}
