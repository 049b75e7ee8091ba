package engine

import (
	"context"
	"database/sql"

	pkgtx "gridgate/pkg/platform/tx"
)

// Tx is the commit transaction boundary. The SQL implementation makes the
// outbox append and the projection update atomic; the in-memory stores need
// no coordination beyond their own locks.
type Tx interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopTx runs fn directly. Used with the in-memory stores.
type NopTx struct{}

func (NopTx) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// SQLTx wraps each commit in a database transaction placed in context, which
// the postgres stores join.
type SQLTx struct {
	db *sql.DB
}

func NewSQLTx(db *sql.DB) SQLTx {
	return SQLTx{db: db}
}

func (t SQLTx) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return pkgtx.Run(ctx, t.db, fn)
}
