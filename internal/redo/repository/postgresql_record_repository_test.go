package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/redo/internal/database"
	"github.com/allisson/redo/internal/redo/domain"
)

var recordColumns = []string{
	"id", "target_type", "method", "arg_types", "args", "status", "attempts", "last_error",
	"next_attempt_at", "resolved_at", "created_at", "updated_at",
}

func newTestRecord() *domain.Record {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Record{
		ID:            uuid.Must(uuid.NewV7()),
		TargetType:    "com.acme.PaymentService",
		Method:        "charge",
		ArgTypes:      `["java.lang.String","java.lang.Long"]`,
		Args:          `["java.lang.String","\"order-1\"","java.lang.Long","100"]`,
		Status:        domain.StatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func recordRow(id driver.Value, record *domain.Record) []driver.Value {
	return []driver.Value{
		id,
		record.TargetType,
		record.Method,
		record.ArgTypes,
		record.Args,
		string(record.Status),
		record.Attempts,
		nil,
		record.NextAttemptAt,
		nil,
		record.CreatedAt,
		record.UpdatedAt,
	}
}

func TestPostgreSQLRecordRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLRecordRepository(db)
	record := newTestRecord()

	t.Run("inserts every column", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO redo_records")).
			WithArgs(
				record.ID,
				record.TargetType,
				record.Method,
				record.ArgTypes,
				record.Args,
				record.Status,
				record.Attempts,
				nil,
				record.NextAttemptAt,
				nil,
				record.CreatedAt,
				record.UpdatedAt,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(context.Background(), record))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps driver errors", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO redo_records")).WillReturnError(errors.New("boom"))

		err := repo.Create(context.Background(), record)
		assert.ErrorContains(t, err, "failed to create redo record")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLRecordRepository_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLRecordRepository(db)
	record := newTestRecord()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM redo_records WHERE id = $1")).
			WithArgs(record.ID).
			WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(recordRow(record.ID.String(), record)...))

		got, err := repo.Get(context.Background(), record.ID)
		require.NoError(t, err)
		assert.Equal(t, record, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM redo_records WHERE id = $1")).
			WithArgs(record.ID).
			WillReturnRows(sqlmock.NewRows(recordColumns))

		_, err := repo.Get(context.Background(), record.ID)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLRecordRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLRecordRepository(db)
	record := newTestRecord()
	record.MarkSucceeded(record.CreatedAt.Add(time.Minute))

	t.Run("updates mutable fields", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE redo_records")).
			WithArgs(
				record.Status,
				record.Attempts,
				nil,
				record.NextAttemptAt,
				*record.ResolvedAt,
				record.UpdatedAt,
				record.ID,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Update(context.Background(), record))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE redo_records")).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(context.Background(), record)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLRecordRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLRecordRepository(db)
	id := uuid.Must(uuid.NewV7())

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM redo_records WHERE id = $1")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), id))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM redo_records WHERE id = $1")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), id), domain.ErrRecordNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLRecordRepository_FetchDue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLRecordRepository(db)
	txManager := database.NewTxManager(db)
	first, second := newTestRecord(), newTestRecord()
	now := first.CreatedAt.Add(time.Hour)

	t.Run("locks due records inside the caller transaction", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
			WithArgs(domain.StatusPending, now, 10).
			WillReturnRows(sqlmock.NewRows(recordColumns).
				AddRow(recordRow(first.ID.String(), first)...).
				AddRow(recordRow(second.ID.String(), second)...))
		mock.ExpectCommit()

		var got []*domain.Record
		err := txManager.WithTx(context.Background(), func(ctx context.Context) error {
			var err error
			got, err = repo.FetchDue(ctx, now, 10)
			return err
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, first.ID, got[0].ID)
		assert.Equal(t, second.ID, got[1].ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).WillReturnError(errors.New("boom"))

		_, err := repo.FetchDue(context.Background(), now, 10)
		assert.ErrorContains(t, err, "failed to fetch due redo records")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLRecordRepository_CountDue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLRecordRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM redo_records")).
		WithArgs(domain.StatusPending, now).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	count, err := repo.CountDue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLRecordRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLRecordRepository(db)
	record := newTestRecord()

	t.Run("all statuses", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("LIMIT $1 OFFSET $2")).
			WithArgs(20, 40).
			WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(recordRow(record.ID.String(), record)...))

		got, err := repo.List(context.Background(), "", 40, 20)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, record, got[0])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("filtered by status", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("WHERE status = $1")).
			WithArgs(domain.StatusFailed, 10, 0).
			WillReturnRows(sqlmock.NewRows(recordColumns))

		got, err := repo.List(context.Background(), domain.StatusFailed, 0, 10)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM redo_records")).WillReturnError(errors.New("boom"))

		_, err := repo.List(context.Background(), "", 0, 10)
		assert.ErrorContains(t, err, "failed to list redo records")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
