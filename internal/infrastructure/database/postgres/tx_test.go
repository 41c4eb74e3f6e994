package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/efilo-ai/compliance-engine/pkg/errors"
)

func newTestTxRunner(t *testing.T) (*TxRunner, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	conn := NewConnectionWithDB(db, logging.NewNopLogger())
	return NewTxRunner(conn, logging.NewNopLogger()), mock
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	runner, mock := newTestTxRunner(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE widgets").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := runner.WithinTx(context.Background(), func(ctx context.Context) error {
		tx, ok := TxFromContext(ctx)
		require.True(t, ok, "callback context should carry the transaction")
		_, execErr := tx.ExecContext(ctx, "UPDATE widgets SET n = 1")
		return execErr
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	runner, mock := newTestTxRunner(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := runner.WithinTx(context.Background(), func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_NestedCallJoinsOuter(t *testing.T) {
	runner, mock := newTestTxRunner(t)

	// Only one begin/commit pair for the nested pair of calls.
	mock.ExpectBegin()
	mock.ExpectCommit()

	var outerTx, innerTx interface{}
	err := runner.WithinTx(context.Background(), func(ctx context.Context) error {
		outerTx, _ = TxFromContext(ctx)
		return runner.WithinTx(ctx, func(ctx context.Context) error {
			innerTx, _ = TxFromContext(ctx)
			return nil
		})
	})

	assert.NoError(t, err)
	assert.Same(t, outerTx, innerTx)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_CommitFailure(t *testing.T) {
	runner, mock := newTestTxRunner(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("commit refused"))

	err := runner.WithinTx(context.Background(), func(ctx context.Context) error {
		return nil
	})

	assert.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeDatabaseError))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxFromContext_Empty(t *testing.T) {
	tx, ok := TxFromContext(context.Background())
	assert.False(t, ok)
	assert.Nil(t, tx)
}
