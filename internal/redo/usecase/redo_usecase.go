package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/allisson/redo/internal/database"
	apperrors "github.com/allisson/redo/internal/errors"
	"github.com/allisson/redo/internal/redo/domain"
	"github.com/allisson/redo/internal/redo/service"
	customValidation "github.com/allisson/redo/internal/validation"
)

// Config holds redo scheduler configuration.
type Config struct {
	BatchSize      int
	Concurrency    int
	MaxAttempts    int
	RetryInterval  time.Duration
	MaxBackoff     time.Duration
	ClaimLease     time.Duration
	RateLimit      float64
	RateLimitBurst int
}

// CaptureInput describes a failed call in the serialized payload format.
// ArgTypes and Args are JSON arrays; a blank ArgTypes matches the method by name only.
type CaptureInput struct {
	TargetType string
	Method     string
	ArgTypes   string
	Args       string
}

// Validate checks the capture input fields.
func (i *CaptureInput) Validate() error {
	return validation.ValidateStruct(i,
		validation.Field(&i.TargetType, validation.Required, customValidation.Identifier),
		validation.Field(&i.Method, validation.Required, customValidation.Identifier),
		validation.Field(&i.ArgTypes, customValidation.JSONArray),
		validation.Field(&i.Args, customValidation.JSONArray),
	)
}

type redoUseCase struct {
	config     Config
	txManager  database.TxManager
	repo       RecordRepository
	dispatcher Dispatcher
	encoder    *service.Encoder
	decoder    *service.Decoder
	limiter    *rate.Limiter
	logger     *slog.Logger
	now        func() time.Time
}

// NewRedoUseCase creates a RedoUseCase. Payloads are checked against the given type registry
// when they are captured.
func NewRedoUseCase(
	config Config,
	txManager database.TxManager,
	repo RecordRepository,
	dispatcher Dispatcher,
	types *service.TypeRegistry,
	logger *slog.Logger,
) RedoUseCase {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}
	burst := config.RateLimitBurst
	if burst < 1 {
		burst = 1
	}

	return &redoUseCase{
		config:     config,
		txManager:  txManager,
		repo:       repo,
		dispatcher: dispatcher,
		encoder:    service.NewEncoder(types),
		decoder:    service.NewDecoder(types),
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Capture validates the payload against the type registry and stores a pending record due now.
func (r *redoUseCase) Capture(ctx context.Context, input CaptureInput) (*domain.Record, error) {
	if err := input.Validate(); err != nil {
		return nil, customValidation.WrapValidationError(err)
	}
	if strings.TrimSpace(input.Args) == "" {
		input.Args = "[]"
	}
	if _, err := r.decoder.ResolveTypes(input.ArgTypes); err != nil {
		if apperrors.Is(err, domain.ErrDecode) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}
	if _, err := r.decoder.DecodeArgs(input.Args); err != nil {
		return nil, err
	}

	now := r.now()
	record := &domain.Record{
		ID:            uuid.Must(uuid.NewV7()),
		TargetType:    input.TargetType,
		Method:        input.Method,
		ArgTypes:      input.ArgTypes,
		Args:          input.Args,
		Status:        domain.StatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	if r.logger != nil {
		r.logger.Info("redo record captured",
			slog.String("record_id", record.ID.String()),
			slog.String("target_type", record.TargetType),
			slog.String("method", record.Method),
		)
	}
	return record, nil
}

// CaptureCall declares the parameter types from the argument types unless an argument has
// no type, in which case the record matches the method by name only. A typed argument with
// a nil value keeps its declared type and is stored as null.
func (r *redoUseCase) CaptureCall(
	ctx context.Context,
	targetType, method string,
	args ...service.TypedValue,
) (*domain.Record, error) {
	names := make([]string, 0, len(args))
	for _, arg := range args {
		if strings.TrimSpace(arg.Type) == "" {
			names = nil
			break
		}
		names = append(names, arg.Type)
	}

	var argTypes string
	if names != nil {
		encoded, err := r.encoder.EncodeArgTypes(names...)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to encode argument types")
		}
		argTypes = encoded
	}

	payload, err := r.encoder.EncodeArgs(args...)
	if err != nil {
		return nil, domain.Wrap(domain.ErrDecode, err.Error())
	}

	return r.Capture(ctx, CaptureInput{
		TargetType: targetType,
		Method:     method,
		ArgTypes:   argTypes,
		Args:       payload,
	})
}

// ProcessDue claims up to BatchSize due records in one transaction by moving their next
// attempt past the claim lease, then replays them concurrently outside the transaction.
func (r *redoUseCase) ProcessDue(ctx context.Context) (BatchResult, error) {
	claimed, err := r.claimDue(ctx)
	if err != nil {
		return BatchResult{}, err
	}
	result := BatchResult{Claimed: len(claimed)}
	if len(claimed) == 0 {
		return result, nil
	}

	if r.logger != nil {
		r.logger.Info("replaying due redo records", slog.Int("count", len(claimed)))
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Concurrency)

	for _, record := range claimed {
		g.Go(func() error {
			if err := r.limiter.Wait(gctx); err != nil {
				return err
			}

			replayErr := r.dispatcher.Replay(ctx, record)
			if err := r.report(ctx, record, replayErr); err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			switch record.Status {
			case domain.StatusSucceeded:
				result.Succeeded++
			case domain.StatusFailed:
				result.Failed++
			default:
				result.Retried++
			}
			return nil
		})
	}

	err = g.Wait()
	return result, err
}

func (r *redoUseCase) claimDue(ctx context.Context) ([]*domain.Record, error) {
	var claimed []*domain.Record
	err := r.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := r.now()
		records, err := r.repo.FetchDue(ctx, now, r.config.BatchSize)
		if err != nil {
			return err
		}

		for _, record := range records {
			record.NextAttemptAt = now.Add(r.config.ClaimLease)
			record.UpdatedAt = now
			if err := r.repo.Update(ctx, record); err != nil {
				return err
			}
		}
		claimed = records
		return nil
	})
	return claimed, err
}

// Replay runs a single record now. A replay failure is reported on the returned record,
// not as an error.
func (r *redoUseCase) Replay(ctx context.Context, id uuid.UUID) (*domain.Record, error) {
	record, err := r.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status == domain.StatusSucceeded {
		return nil, domain.ErrRecordResolved
	}

	replayErr := r.dispatcher.Replay(ctx, record)
	if err := r.report(ctx, record, replayErr); err != nil {
		return nil, err
	}
	return record, nil
}

// report applies the replay outcome to the record and persists it.
func (r *redoUseCase) report(ctx context.Context, record *domain.Record, replayErr error) error {
	now := r.now()
	record.UpdatedAt = now

	if replayErr == nil {
		record.MarkSucceeded(now)
		if r.logger != nil {
			r.logger.Info("redo record replayed",
				slog.String("record_id", record.ID.String()),
				slog.String("target_type", record.TargetType),
				slog.String("method", record.Method),
				slog.Int("attempts", record.Attempts),
			)
		}
		return r.repo.Update(ctx, record)
	}

	attempt := record.Attempts + 1
	retry := domain.IsRetryable(replayErr) && attempt < r.config.MaxAttempts
	record.MarkFailed(replayErr, retry, now.Add(Backoff(attempt, r.config.RetryInterval, r.config.MaxBackoff)))

	if r.logger != nil {
		r.logger.Warn("redo record replay failed",
			slog.String("record_id", record.ID.String()),
			slog.String("target_type", record.TargetType),
			slog.String("method", record.Method),
			slog.Int("attempts", record.Attempts),
			slog.Bool("retry", retry),
			slog.Any("error", replayErr),
		)
	}
	return r.repo.Update(ctx, record)
}

func (r *redoUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.Record, error) {
	return r.repo.Get(ctx, id)
}

func (r *redoUseCase) Delete(ctx context.Context, id uuid.UUID) error {
	return r.repo.Delete(ctx, id)
}

func (r *redoUseCase) List(
	ctx context.Context,
	status domain.Status,
	offset, limit int,
) ([]*domain.Record, error) {
	return r.repo.List(ctx, status, offset, limit)
}

// CountDue returns how many pending records are due now.
func (r *redoUseCase) CountDue(ctx context.Context) (int64, error) {
	return r.repo.CountDue(ctx, r.now())
}
