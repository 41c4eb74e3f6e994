// Package repositories implements the domain persistence contracts against
// PostgreSQL with hand-written SQL.
package repositories

import (
	"context"
	"database/sql"

	"github.com/efilo-ai/compliance-engine/internal/infrastructure/database/postgres"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
)

// queryExecutor abstracts sql.DB and sql.Tx.
type queryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

type baseRepo struct {
	conn *postgres.Connection
	log  logging.Logger
}

// executor returns the context's transaction when one is running, otherwise
// the pooled connection.
func (r *baseRepo) executor(ctx context.Context) queryExecutor {
	if tx, ok := postgres.TxFromContext(ctx); ok {
		return tx
	}
	return r.conn.DB()
}
