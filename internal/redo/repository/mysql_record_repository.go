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

const mysqlRecordColumns = `id, target_type, method, arg_types, args, status, attempts, last_error,
			  next_attempt_at, resolved_at, created_at, updated_at`

// MySQLRecordRepository implements redo record persistence for MySQL.
//
// MySQL has no UUID type, so ids are stored as BINARY(16) and converted with
// uuid.MarshalBinary and uuid.UnmarshalBinary. Updates are not checked for affected
// rows because MySQL reports zero for an update that leaves a row unchanged.
type MySQLRecordRepository struct {
	db *sql.DB
}

// NewMySQLRecordRepository creates a new MySQLRecordRepository.
func NewMySQLRecordRepository(db *sql.DB) *MySQLRecordRepository {
	return &MySQLRecordRepository{db: db}
}

// Create inserts a new redo record.
func (m *MySQLRecordRepository) Create(ctx context.Context, record *domain.Record) error {
	querier := database.GetTx(ctx, m.db)

	id, err := record.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal redo record id")
	}

	query := `INSERT INTO redo_records (` + mysqlRecordColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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
func (m *MySQLRecordRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Record, error) {
	querier := database.GetTx(ctx, m.db)

	binaryID, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal redo record id")
	}

	query := `SELECT ` + mysqlRecordColumns + ` FROM redo_records WHERE id = ?`

	record, err := scanMySQLRecord(querier.QueryRowContext(ctx, query, binaryID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get redo record")
	}
	return record, nil
}

// Update persists the mutable fields of a redo record.
func (m *MySQLRecordRepository) Update(ctx context.Context, record *domain.Record) error {
	querier := database.GetTx(ctx, m.db)

	id, err := record.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal redo record id")
	}

	query := `UPDATE redo_records
			  SET status = ?, attempts = ?, last_error = ?, next_attempt_at = ?,
			      resolved_at = ?, updated_at = ?
			  WHERE id = ?`

	_, err = querier.ExecContext(
		ctx,
		query,
		record.Status,
		record.Attempts,
		record.LastError,
		record.NextAttemptAt,
		record.ResolvedAt,
		record.UpdatedAt,
		id,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update redo record")
	}
	return nil
}

// Delete removes a redo record.
func (m *MySQLRecordRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	binaryID, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal redo record id")
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM redo_records WHERE id = ?`, binaryID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete redo record")
	}
	return requireAffected(result, "failed to delete redo record")
}

// FetchDue locks and returns up to limit pending records whose next attempt is due,
// oldest first, skipping rows locked by another worker.
func (m *MySQLRecordRepository) FetchDue(ctx context.Context, now time.Time, limit int) ([]*domain.Record, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlRecordColumns + `
			  FROM redo_records
			  WHERE status = ? AND next_attempt_at <= ?
			  ORDER BY next_attempt_at ASC, created_at ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, domain.StatusPending, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to fetch due redo records")
	}
	defer rows.Close() //nolint:errcheck

	var records []*domain.Record
	for rows.Next() {
		record, err := scanMySQLRecord(rows)
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
func (m *MySQLRecordRepository) CountDue(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT COUNT(*) FROM redo_records WHERE status = ? AND next_attempt_at <= ?`

	var count int64
	if err := querier.QueryRowContext(ctx, query, domain.StatusPending, now).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count due redo records")
	}
	return count, nil
}

// List returns records newest first. An empty status lists every record.
func (m *MySQLRecordRepository) List(
	ctx context.Context,
	status domain.Status,
	offset, limit int,
) ([]*domain.Record, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlRecordColumns + ` FROM redo_records`
	args := make([]any, 0, 3)
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list redo records")
	}
	defer func() {
		_ = rows.Close()
	}()

	records := make([]*domain.Record, 0)
	for rows.Next() {
		record, err := scanMySQLRecord(rows)
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

func scanMySQLRecord(row rowScanner) (*domain.Record, error) {
	var record domain.Record
	var id []byte

	err := row.Scan(
		&id,
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

	if err := record.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal redo record id")
	}
	return &record, nil
}
