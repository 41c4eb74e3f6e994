package postgres

import (
	"context"
	"database/sql"

	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
)

type txKey struct{}

// TxFromContext returns the transaction carried by ctx, if any.  Repositories
// use it to join a transaction started by the application layer.
func TxFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

// TxRunner runs application work inside a single database transaction.  The
// transaction travels in the context so that every repository call made with
// the derived context participates in it.
type TxRunner struct {
	conn   *Connection
	logger logging.Logger
}

// NewTxRunner constructs a TxRunner.
func NewTxRunner(conn *Connection, log logging.Logger) *TxRunner {
	return &TxRunner{conn: conn, logger: log}
}

// WithinTx begins a transaction, runs fn with a tx-carrying context, and
// commits.  Any error from fn rolls the transaction back and is returned
// unchanged.  Nested calls join the outer transaction.
func (r *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := TxFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := r.conn.DB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("transaction rollback failed", logging.Err(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit transaction")
	}
	return nil
}
