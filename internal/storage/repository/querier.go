package repository

import (
	"context"
	"database/sql"
)

// Querier is satisfied by both *sql.DB and *sql.Tx so repositories can run
// inside a caller's transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
