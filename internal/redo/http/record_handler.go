// Package http provides HTTP handlers for the redo record admin API.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/redo/internal/httputil"
	"github.com/allisson/redo/internal/redo/domain"
	"github.com/allisson/redo/internal/redo/http/dto"
	"github.com/allisson/redo/internal/redo/usecase"
	customValidation "github.com/allisson/redo/internal/validation"
)

// RecordHandler handles HTTP requests for redo records.
type RecordHandler struct {
	redoUseCase usecase.RedoUseCase
	logger      *slog.Logger
}

// NewRecordHandler creates a new record handler.
func NewRecordHandler(redoUseCase usecase.RedoUseCase, logger *slog.Logger) *RecordHandler {
	return &RecordHandler{
		redoUseCase: redoUseCase,
		logger:      logger,
	}
}

// CaptureHandler stores a failed call for later replay.
// POST /v1/redo-records - Returns 201 Created with the pending record.
func (h *RecordHandler) CaptureHandler(c *gin.Context) {
	var req dto.CaptureRecordRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	record, err := h.redoUseCase.Capture(c.Request.Context(), req.ToCaptureInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapRecordToResponse(record))
}

// GetHandler retrieves a record by ID.
// GET /v1/redo-records/:id
func (h *RecordHandler) GetHandler(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	record, err := h.redoUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRecordToResponse(record))
}

// ListHandler lists records newest first.
// GET /v1/redo-records?status=failed&offset=0&limit=50
func (h *RecordHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var query dto.ListRecordsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := query.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	records, err := h.redoUseCase.List(c.Request.Context(), domain.Status(query.Status), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRecordsToListResponse(records))
}

// ReplayHandler replays a record immediately.
// POST /v1/redo-records/:id/replay - Returns 200 OK with the record after the attempt;
// a failed attempt shows up in status and last_error.
func (h *RecordHandler) ReplayHandler(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	record, err := h.redoUseCase.Replay(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRecordToResponse(record))
}

// DeleteHandler removes a record.
// DELETE /v1/redo-records/:id - Returns 204 No Content.
func (h *RecordHandler) DeleteHandler(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.redoUseCase.Delete(c.Request.Context(), id); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// CountDueHandler reports the number of records due for replay.
// GET /v1/redo-records/due/count
func (h *RecordHandler) CountDueHandler(c *gin.Context) {
	count, err := h.redoUseCase.CountDue(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.CountDueResponse{Count: count})
}

func (h *RecordHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid record ID format: must be a valid UUID"),
			h.logger)
		return uuid.Nil, false
	}
	return id, true
}
