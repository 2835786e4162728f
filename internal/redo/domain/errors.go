package domain

import (
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/allisson/redo/internal/errors"
)

// Replay error taxonomy. Every failure returned by the dispatcher matches exactly one
// of these with errors.Is, and also the generic sentinel it wraps.
var (
	// ErrInvalidRecord indicates a record is missing its target type or method name.
	ErrInvalidRecord = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid redo record")

	// ErrTypeNotFound indicates the target type name is not registered.
	ErrTypeNotFound = apperrors.Wrap(apperrors.ErrNotFound, "target type not found")

	// ErrMethodNotFound indicates the target type has no method matching the recorded signature.
	ErrMethodNotFound = apperrors.Wrap(apperrors.ErrNotFound, "target method not found")

	// ErrDecode indicates the serialized arguments are malformed or do not match their types.
	ErrDecode = apperrors.Wrap(apperrors.ErrInvalidInput, "decode failed")

	// ErrResolution indicates zero or several live instances are registered for the target type.
	ErrResolution = apperrors.Wrap(apperrors.ErrUnavailable, "target resolution failed")

	// ErrInvocation indicates the replayed business operation itself failed.
	ErrInvocation = apperrors.Wrap(apperrors.ErrFailedDependency, "invocation failed")

	// ErrRecordNotFound indicates the record store has no record with the given id.
	ErrRecordNotFound = apperrors.Wrap(apperrors.ErrNotFound, "redo record not found")

	// ErrRecordResolved indicates a manual replay was requested for a record that already succeeded.
	ErrRecordResolved = apperrors.Wrap(apperrors.ErrConflict, "redo record already resolved")
)

// Stage names the dispatcher step a failure originated from.
type Stage string

const (
	StageValidate      Stage = "validate"
	StageResolveMethod Stage = "resolve_method"
	StageDecodeArgs    Stage = "decode_args"
	StageResolveTarget Stage = "resolve_target"
	StageInvoke        Stage = "invoke"
)

// ReplayFailure annotates a replay error with the identity of the record being replayed.
type ReplayFailure struct {
	RecordID   uuid.UUID
	TargetType string
	Method     string
	Stage      Stage
	Err        error
}

// NewReplayFailure builds a ReplayFailure for the record; record may be nil.
func NewReplayFailure(record *Record, stage Stage, err error) *ReplayFailure {
	f := &ReplayFailure{Stage: stage, Err: err}
	if record != nil {
		f.RecordID = record.ID
		f.TargetType = record.TargetType
		f.Method = record.Method
	}
	return f
}

// Error implements error.
func (f *ReplayFailure) Error() string {
	return fmt.Sprintf("replay %s#%s [%s] at %s: %v", f.TargetType, f.Method, f.RecordID, f.Stage, f.Err)
}

// Unwrap returns the underlying cause.
func (f *ReplayFailure) Unwrap() error {
	return f.Err
}

// Wrap attaches a message to one of the taxonomy errors.
func Wrap(kind error, message string) error {
	return fmt.Errorf("%w: %s", kind, message)
}

// Wrapf is like Wrap with a formatted message.
func Wrapf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// IsRetryable reports whether replaying the record again later could succeed without a
// code or data fix: target resolution and business failures are retryable, everything else is not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return apperrors.Is(err, ErrResolution) || apperrors.Is(err, ErrInvocation)
}
