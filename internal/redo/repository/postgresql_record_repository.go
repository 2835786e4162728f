// Package repository provides data persistence implementations for redo records.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/redo/internal/database"
	apperrors "github.com/allisson/redo/internal/errors"
	"github.com/allisson/redo/internal/redo/domain"
)

const postgresRecordColumns = `id, target_type, method, arg_types, args, status, attempts, last_error,
			  next_attempt_at, resolved_at, created_at, updated_at`

// PostgreSQLRecordRepository implements redo record persistence for PostgreSQL.
//
// All methods resolve their querier with database.GetTx, so they join the transaction
// carried by ctx when there is one.
type PostgreSQLRecordRepository struct {
	db *sql.DB
}

// NewPostgreSQLRecordRepository creates a new PostgreSQLRecordRepository.
func NewPostgreSQLRecordRepository(db *sql.DB) *PostgreSQLRecordRepository {
	return &PostgreSQLRecordRepository{db: db}
}

// Create inserts a new redo record.
func (r *PostgreSQLRecordRepository) Create(ctx context.Context, record *domain.Record) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO redo_records (` + postgresRecordColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := querier.ExecContext(
		ctx,
		query,
		record.ID,
		record.TargetType,
		record.Method,
		record.ArgTypes,
		record.Args,
		record.Status,
		record.Attempts,
		record.LastError,
		record.NextAttemptAt,
		record.ResolvedAt,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create redo record")
	}
	return nil
}

// Get retrieves a redo record by id. It returns domain.ErrRecordNotFound when no row matches.
func (r *PostgreSQLRecordRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Record, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + postgresRecordColumns + ` FROM redo_records WHERE id = $1`

	record, err := scanPostgresRecord(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get redo record")
	}
	return record, nil
}

// Update persists the mutable fields of a redo record.
func (r *PostgreSQLRecordRepository) Update(ctx context.Context, record *domain.Record) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE redo_records
			  SET status = $1, attempts = $2, last_error = $3, next_attempt_at = $4,
			      resolved_at = $5, updated_at = $6
			  WHERE id = $7`

	result, err := querier.ExecContext(
		ctx,
		query,
		record.Status,
		record.Attempts,
		record.LastError,
		record.NextAttemptAt,
		record.ResolvedAt,
		record.UpdatedAt,
		record.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update redo record")
	}
	return requireAffected(result, "failed to update redo record")
}

// Delete removes a redo record.
func (r *PostgreSQLRecordRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM redo_records WHERE id = $1`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete redo record")
	}
	return requireAffected(result, "failed to delete redo record")
}

// FetchDue locks and returns up to limit pending records whose next attempt is due,
// oldest first. Rows locked by another worker are skipped, so it is meant to run
// inside a transaction.
func (r *PostgreSQLRecordRepository) FetchDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*domain.Record, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + postgresRecordColumns + `
			  FROM redo_records
			  WHERE status = $1 AND next_attempt_at <= $2
			  ORDER BY next_attempt_at ASC, created_at ASC
			  LIMIT $3
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, domain.StatusPending, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to fetch due redo records")
	}
	defer rows.Close() //nolint:errcheck

	var records []*domain.Record
	for rows.Next() {
		record, err := scanPostgresRecord(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan redo record")
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate redo records")
	}

	return records, nil
}

// CountDue returns the number of pending records whose next attempt is due.
func (r *PostgreSQLRecordRepository) CountDue(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT COUNT(*) FROM redo_records WHERE status = $1 AND next_attempt_at <= $2`

	var count int64
	if err := querier.QueryRowContext(ctx, query, domain.StatusPending, now).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count due redo records")
	}
	return count, nil
}

// List returns records newest first. An empty status lists every record.
func (r *PostgreSQLRecordRepository) List(
	ctx context.Context,
	status domain.Status,
	offset, limit int,
) ([]*domain.Record, error) {
	querier := database.GetTx(ctx, r.db)

	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		query := `SELECT ` + postgresRecordColumns + `
				  FROM redo_records
				  ORDER BY created_at DESC, id DESC
				  LIMIT $1 OFFSET $2`
		rows, err = querier.QueryContext(ctx, query, limit, offset)
	} else {
		query := `SELECT ` + postgresRecordColumns + `
				  FROM redo_records
				  WHERE status = $1
				  ORDER BY created_at DESC, id DESC
				  LIMIT $2 OFFSET $3`
		rows, err = querier.QueryContext(ctx, query, status, limit, offset)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list redo records")
	}
	defer func() {
		_ = rows.Close()
	}()

	records := make([]*domain.Record, 0)
	for rows.Next() {
		record, err := scanPostgresRecord(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan redo record")
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate redo records")
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostgresRecord(row rowScanner) (*domain.Record, error) {
	var record domain.Record
	err := row.Scan(
		&record.ID,
		&record.TargetType,
		&record.Method,
		&record.ArgTypes,
		&record.Args,
		&record.Status,
		&record.Attempts,
		&record.LastError,
		&record.NextAttemptAt,
		&record.ResolvedAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// requireAffected maps a statement that touched no rows to domain.ErrRecordNotFound.
func requireAffected(result sql.Result, message string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, message)
	}
	if affected == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}
