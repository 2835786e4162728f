package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/redo/internal/redo/domain"
	"github.com/allisson/redo/internal/redo/http/dto"
	"github.com/allisson/redo/internal/redo/usecase"
	"github.com/allisson/redo/internal/redo/usecase/mocks"
)

// setupTestHandler creates a test handler with mocked dependencies.
func setupTestHandler(t *testing.T) (*RecordHandler, *mocks.MockRedoUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	mockUseCase := mocks.NewMockRedoUseCase(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewRecordHandler(mockUseCase, logger), mockUseCase
}

// createTestContext creates a gin test context with the given request.
func createTestContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	return c, w
}

func newRecord(status domain.Status) *domain.Record {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Record{
		ID:            uuid.Must(uuid.NewV7()),
		TargetType:    "com.acme.PaymentService",
		Method:        "charge",
		ArgTypes:      `["java.lang.Long"]`,
		Args:          `["java.lang.Long","100"]`,
		Status:        status,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRecordHandler_CaptureHandler(t *testing.T) {
	t.Run("Success_ValidRequest", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)
		record := newRecord(domain.StatusPending)
		request := dto.CaptureRecordRequest{
			TargetType: record.TargetType,
			Method:     record.Method,
			ArgTypes:   record.ArgTypes,
			Args:       record.Args,
		}

		mockUseCase.On("Capture", mock.Anything, usecase.CaptureInput{
			TargetType: record.TargetType,
			Method:     record.Method,
			ArgTypes:   record.ArgTypes,
			Args:       record.Args,
		}).Return(record, nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/redo-records", request)
		handler.CaptureHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		var response dto.RecordResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, record.ID.String(), response.ID)
		assert.Equal(t, "pending", response.Status)
	})

	t.Run("Error_InvalidJSON", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/redo-records", nil)
		c.Request.Body = io.NopCloser(bytes.NewBufferString("{invalid"))
		handler.CaptureHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_ValidationFailure", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/redo-records", dto.CaptureRecordRequest{Method: "charge"})
		handler.CaptureHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "validation_error", decodeError(t, w)["error"])
	})

	t.Run("Error_PayloadDoesNotDecode", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)
		mockUseCase.On("Capture", mock.Anything, mock.Anything).
			Return(nil, domain.Wrap(domain.ErrDecode, "unknown type")).Once()

		c, w := createTestContext(http.MethodPost, "/v1/redo-records", dto.CaptureRecordRequest{
			TargetType: "com.acme.PaymentService",
			Method:     "charge",
			Args:       `["com.acme.Unknown","1"]`,
		})
		handler.CaptureHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestRecordHandler_GetHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)
		record := newRecord(domain.StatusFailed)
		mockUseCase.On("Get", mock.Anything, record.ID).Return(record, nil).Once()

		c, w := createTestContext(http.MethodGet, "/v1/redo-records/"+record.ID.String(), nil)
		c.Params = gin.Params{{Key: "id", Value: record.ID.String()}}
		handler.GetHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var response dto.RecordResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "failed", response.Status)
	})

	t.Run("Error_InvalidID", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/redo-records/not-a-uuid", nil)
		c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
		handler.GetHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)
		id := uuid.Must(uuid.NewV7())
		mockUseCase.On("Get", mock.Anything, id).Return(nil, domain.ErrRecordNotFound).Once()

		c, w := createTestContext(http.MethodGet, "/v1/redo-records/"+id.String(), nil)
		c.Params = gin.Params{{Key: "id", Value: id.String()}}
		handler.GetHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "not_found", decodeError(t, w)["error"])
	})
}

func TestRecordHandler_ListHandler(t *testing.T) {
	t.Run("Success_DefaultsAndStatusFilter", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)
		records := []*domain.Record{newRecord(domain.StatusFailed)}
		mockUseCase.On("List", mock.Anything, domain.StatusFailed, 0, 50).Return(records, nil).Once()

		c, w := createTestContext(http.MethodGet, "/v1/redo-records?status=failed", nil)
		handler.ListHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var response dto.ListRecordsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Len(t, response.Data, 1)
	})

	t.Run("Success_Pagination", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)
		mockUseCase.On("List", mock.Anything, domain.Status(""), 20, 10).Return([]*domain.Record{}, nil).Once()

		c, w := createTestContext(http.MethodGet, "/v1/redo-records?offset=20&limit=10", nil)
		handler.ListHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":[]}`, w.Body.String())
	})

	t.Run("Error_InvalidStatus", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/redo-records?status=done", nil)
		handler.ListHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_InvalidLimit", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/redo-records?limit=1000", nil)
		handler.ListHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestRecordHandler_ReplayHandler(t *testing.T) {
	t.Run("Success_ReturnsRecordAfterAttempt", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)
		record := newRecord(domain.StatusFailed)
		lastError := "invocation failed: gateway timeout"
		record.LastError = &lastError
		mockUseCase.On("Replay", mock.Anything, record.ID).Return(record, nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/redo-records/"+record.ID.String()+"/replay", nil)
		c.Params = gin.Params{{Key: "id", Value: record.ID.String()}}
		handler.ReplayHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var response dto.RecordResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.NotNil(t, response.LastError)
		assert.Equal(t, lastError, *response.LastError)
	})

	t.Run("Error_AlreadyResolved", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)
		id := uuid.Must(uuid.NewV7())
		mockUseCase.On("Replay", mock.Anything, id).Return(nil, domain.ErrRecordResolved).Once()

		c, w := createTestContext(http.MethodPost, "/v1/redo-records/"+id.String()+"/replay", nil)
		c.Params = gin.Params{{Key: "id", Value: id.String()}}
		handler.ReplayHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestRecordHandler_DeleteHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)
		id := uuid.Must(uuid.NewV7())
		mockUseCase.On("Delete", mock.Anything, id).Return(nil).Once()

		c, w := createTestContext(http.MethodDelete, "/v1/redo-records/"+id.String(), nil)
		c.Params = gin.Params{{Key: "id", Value: id.String()}}
		handler.DeleteHandler(c)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)
		id := uuid.Must(uuid.NewV7())
		mockUseCase.On("Delete", mock.Anything, id).Return(domain.ErrRecordNotFound).Once()

		c, w := createTestContext(http.MethodDelete, "/v1/redo-records/"+id.String(), nil)
		c.Params = gin.Params{{Key: "id", Value: id.String()}}
		handler.DeleteHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRecordHandler_CountDueHandler(t *testing.T) {
	handler, mockUseCase := setupTestHandler(t)
	mockUseCase.On("CountDue", mock.Anything).Return(int64(4), nil).Once()

	c, w := createTestContext(http.MethodGet, "/v1/redo-records/due/count", nil)
	handler.CountDueHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":4}`, w.Body.String())
}
