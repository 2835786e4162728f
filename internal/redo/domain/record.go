// Package domain defines the redo record entity, its lifecycle and the replay error taxonomy.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a redo record.
type Status string

const (
	// StatusPending marks a record waiting for (another) replay.
	StatusPending Status = "pending"
	// StatusSucceeded marks a record whose replay completed without error.
	StatusSucceeded Status = "succeeded"
	// StatusFailed marks a record that will not be replayed automatically again.
	StatusFailed Status = "failed"
)

// Record is the persisted description of one failed, replayable business call.
//
// ArgTypes holds a JSON array of declared parameter type names, e.g.
// ["java.lang.String","java.lang.Long"]. Args holds a JSON array interleaving
// type names and serialized values, e.g. ["java.lang.String","\"order-1\"","java.lang.Long","100"].
type Record struct {
	ID            uuid.UUID
	TargetType    string
	Method        string
	ArgTypes      string
	Args          string
	Status        Status
	Attempts      int
	LastError     *string
	NextAttemptAt time.Time
	ResolvedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate checks the fields the dispatcher needs before any type lookup.
func (r *Record) Validate() error {
	if r == nil {
		return ErrInvalidRecord
	}
	if strings.TrimSpace(r.TargetType) == "" {
		return Wrap(ErrInvalidRecord, "target type is required")
	}
	if strings.TrimSpace(r.Method) == "" {
		return Wrap(ErrInvalidRecord, "method is required")
	}
	return nil
}

// MarkSucceeded resolves the record at the given time.
func (r *Record) MarkSucceeded(now time.Time) {
	r.Status = StatusSucceeded
	r.LastError = nil
	r.ResolvedAt = &now
}

// MarkFailed records a failed attempt. When retry is false the record is parked as failed,
// otherwise it stays pending until nextAttempt.
func (r *Record) MarkFailed(err error, retry bool, nextAttempt time.Time) {
	r.Attempts++
	msg := err.Error()
	r.LastError = &msg
	if !retry {
		r.Status = StatusFailed
		return
	}
	r.Status = StatusPending
	r.NextAttemptAt = nextAttempt
}

// Identity returns a short human readable description used in logs and errors.
func (r *Record) Identity() string {
	if r == nil {
		return "<nil>"
	}
	return r.TargetType + "#" + r.Method + "[" + r.ID.String() + "]"
}
