package followup

import (
	"context"
	"errors"
	"testing"
	"time"

	"ingressos-web/internal/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRepository_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		rec := &Record{
			Kind:         KindTransferFailed,
			SessionID:    "sess-1",
			PaymentID:    "pay_1",
			ShareTokenFP: "a1b2c3",
			Detail:       "status 500",
		}

		mock.ExpectQuery(`INSERT INTO checkout_followups`).
			WithArgs(sqlmock.AnyArg(), KindTransferFailed, "sess-1", "pay_1", "", "a1b2c3", "status 500").
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

		err := repo.Save(context.Background(), rec)
		assert.NoError(t, err)
		assert.NotEmpty(t, rec.ID)
		assert.Equal(t, created, rec.CreatedAt)
	})

	t.Run("KeepsGivenID", func(t *testing.T) {
		rec := &Record{ID: "fixed", Kind: KindCancelFailed, OrderID: "abc"}

		mock.ExpectQuery(`INSERT INTO checkout_followups`).
			WithArgs("fixed", KindCancelFailed, "", "", "abc", "", "").
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

		require.NoError(t, repo.Save(context.Background(), rec))
		assert.Equal(t, "fixed", rec.ID)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO checkout_followups`).
			WillReturnError(errors.New("database error"))

		err := repo.Save(context.Background(), &Record{Kind: KindCancelFailed})
		assert.ErrorContains(t, err, "save follow-up")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListOpen(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	now := time.Now().UTC()
	cols := []string{"id", "kind", "session_id", "payment_id", "order_id", "share_token_fp", "detail", "created_at"}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM checkout_followups WHERE resolved_at IS NULL`).
			WithArgs(10).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("f1", "transfer_failed", "s1", "pay_1", "", "fp", "boom", now).
				AddRow("f2", "cancel_failed", "s2", "", "abc", "", "timeout", now))

		recs, err := repo.ListOpen(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, KindTransferFailed, recs[0].Kind)
		assert.Equal(t, "abc", recs[1].OrderID)
	})

	t.Run("DefaultLimit", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM checkout_followups`).
			WithArgs(50).
			WillReturnRows(sqlmock.NewRows(cols))

		recs, err := repo.ListOpen(context.Background(), 0)
		assert.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM checkout_followups`).
			WillReturnError(errors.New("db down"))

		_, err := repo.ListOpen(context.Background(), 5)
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Resolve(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE checkout_followups SET resolved_at = NOW\(\)`).
			WithArgs("f1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Resolve(context.Background(), "f1"))
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectExec(`UPDATE checkout_followups`).
			WithArgs("missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Resolve(context.Background(), "missing"), ErrNotFound)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectExec(`UPDATE checkout_followups`).
			WillReturnError(errors.New("db error"))

		assert.Error(t, repo.Resolve(context.Background(), "f1"))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogRecorder_Save(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	restore := logger.Set(zap.New(core))
	defer restore()

	rec := &Record{Kind: KindCancelFailed, OrderID: "abc"}
	require.NoError(t, LogRecorder{}.Save(context.Background(), rec))

	assert.NotEmpty(t, rec.ID)
	entries := logs.FilterMessage("checkout follow-up required").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "abc", entries[0].ContextMap()["order_id"])
	assert.Equal(t, "cancel_failed", entries[0].ContextMap()["kind"])
}
