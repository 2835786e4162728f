// Package usecase schedules redo records for replay and exposes the record lifecycle
// operations used by the admin API and the CLI.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/redo/internal/redo/domain"
	"github.com/allisson/redo/internal/redo/service"
)

// RecordRepository defines the interface for redo record persistence operations.
type RecordRepository interface {
	Create(ctx context.Context, record *domain.Record) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Record, error)
	Update(ctx context.Context, record *domain.Record) error
	Delete(ctx context.Context, id uuid.UUID) error
	FetchDue(ctx context.Context, now time.Time, limit int) ([]*domain.Record, error)
	CountDue(ctx context.Context, now time.Time) (int64, error)
	List(ctx context.Context, status domain.Status, offset, limit int) ([]*domain.Record, error)
}

// Dispatcher replays a single record against the live component registry.
type Dispatcher interface {
	Replay(ctx context.Context, record *domain.Record) error
}

// RedoUseCase defines the interface for redo record business logic.
type RedoUseCase interface {
	// Capture validates and persists a new pending record in the serialized payload format.
	Capture(ctx context.Context, input CaptureInput) (*domain.Record, error)
	// CaptureCall encodes the arguments of a failed call and persists it as a pending record.
	CaptureCall(ctx context.Context, targetType, method string, args ...service.TypedValue) (*domain.Record, error)
	// ProcessDue claims a batch of due records, replays them and reports each outcome.
	ProcessDue(ctx context.Context) (BatchResult, error)
	// Replay replays one record immediately, regardless of its next attempt time.
	Replay(ctx context.Context, id uuid.UUID) (*domain.Record, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Record, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, status domain.Status, offset, limit int) ([]*domain.Record, error)
	CountDue(ctx context.Context) (int64, error)
}

// BatchResult summarizes one ProcessDue run.
type BatchResult struct {
	Claimed   int
	Succeeded int
	Retried   int
	Failed    int
}
