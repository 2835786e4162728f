// Package dto provides data transfer objects for redo record HTTP requests and responses.
package dto

import (
	validation "github.com/jellydator/validation"

	"github.com/allisson/redo/internal/redo/domain"
	"github.com/allisson/redo/internal/redo/usecase"
	customValidation "github.com/allisson/redo/internal/validation"
)

// CaptureRecordRequest contains a failed call to store for replay.
// ArgTypes and Args are JSON arrays encoded as strings, exactly as they are persisted.
type CaptureRecordRequest struct {
	TargetType string `json:"target_type"`
	Method     string `json:"method"`
	ArgTypes   string `json:"arg_types"`
	Args       string `json:"args"`
}

// Validate checks if the capture request is valid.
func (r *CaptureRecordRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.TargetType,
			validation.Required,
			customValidation.NotBlank,
			customValidation.Identifier,
			validation.Length(1, 255),
		),
		validation.Field(&r.Method,
			validation.Required,
			customValidation.NotBlank,
			customValidation.Identifier,
			validation.Length(1, 255),
		),
		validation.Field(&r.ArgTypes, customValidation.JSONArray),
		validation.Field(&r.Args, customValidation.JSONArray),
	)
}

// ToCaptureInput converts the request into use case input.
func (r *CaptureRecordRequest) ToCaptureInput() usecase.CaptureInput {
	return usecase.CaptureInput{
		TargetType: r.TargetType,
		Method:     r.Method,
		ArgTypes:   r.ArgTypes,
		Args:       r.Args,
	}
}

// ListRecordsQuery holds the optional status filter of the list endpoint.
type ListRecordsQuery struct {
	Status string `form:"status"`
}

// Validate checks the status filter.
func (q *ListRecordsQuery) Validate() error {
	return validation.ValidateStruct(q,
		validation.Field(&q.Status, validation.In(
			string(domain.StatusPending),
			string(domain.StatusSucceeded),
			string(domain.StatusFailed),
		)),
	)
}
