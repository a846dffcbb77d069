package adapters

import (
	"context"
	"database/sql"
)

// DBHandle defines the interface for database handle operations needed by the
// access context: liveness probing and starting transactions at a resolved
// isolation level. Query building and execution stay with external collaborators.
type DBHandle interface {
	Ping(ctx context.Context) error
	BeginTx(ctx context.Context, level sql.IsolationLevel) (DBTx, error)
}

// DBTx defines the interface for an open transaction.
type DBTx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
