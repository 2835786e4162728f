package dto

import (
	"time"

	"github.com/allisson/redo/internal/redo/domain"
)

// RecordResponse represents a redo record in API responses.
type RecordResponse struct {
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
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// MapRecordToResponse converts a domain record to an API response.
func MapRecordToResponse(record *domain.Record) RecordResponse {
	return RecordResponse{
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
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}

// ListRecordsResponse represents a paginated list of redo records.
type ListRecordsResponse struct {
	Data []RecordResponse `json:"data"`
}

// MapRecordsToListResponse converts domain records to a list response.
func MapRecordsToListResponse(records []*domain.Record) ListRecordsResponse {
	data := make([]RecordResponse, 0, len(records))
	for _, record := range records {
		data = append(data, MapRecordToResponse(record))
	}
	return ListRecordsResponse{Data: data}
}

// CountDueResponse reports how many records are waiting for replay.
type CountDueResponse struct {
	Count int64 `json:"count"`
}
