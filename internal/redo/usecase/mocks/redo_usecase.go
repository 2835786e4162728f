// Package mocks provides mock implementations of the redo use cases for testing.
package mocks

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/redo/internal/redo/domain"
	"github.com/allisson/redo/internal/redo/service"
	"github.com/allisson/redo/internal/redo/usecase"
)

// MockRedoUseCase is a mock implementation of usecase.RedoUseCase for testing.
type MockRedoUseCase struct {
	mock.Mock
}

func (m *MockRedoUseCase) Capture(ctx context.Context, input usecase.CaptureInput) (*domain.Record, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Record), args.Error(1)
}

func (m *MockRedoUseCase) CaptureCall(
	ctx context.Context,
	targetType, method string,
	values ...service.TypedValue,
) (*domain.Record, error) {
	args := m.Called(ctx, targetType, method, values)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Record), args.Error(1)
}

func (m *MockRedoUseCase) ProcessDue(ctx context.Context) (usecase.BatchResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(usecase.BatchResult), args.Error(1)
}

func (m *MockRedoUseCase) Replay(ctx context.Context, id uuid.UUID) (*domain.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Record), args.Error(1)
}

func (m *MockRedoUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Record), args.Error(1)
}

func (m *MockRedoUseCase) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRedoUseCase) List(
	ctx context.Context,
	status domain.Status,
	offset, limit int,
) ([]*domain.Record, error) {
	args := m.Called(ctx, status, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Record), args.Error(1)
}

func (m *MockRedoUseCase) CountDue(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// NewMockRedoUseCase creates a MockRedoUseCase that asserts its expectations on test cleanup.
func NewMockRedoUseCase(t *testing.T) *MockRedoUseCase {
	m := &MockRedoUseCase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ usecase.RedoUseCase = (*MockRedoUseCase)(nil)
