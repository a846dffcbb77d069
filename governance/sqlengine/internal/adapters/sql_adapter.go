package adapters

import (
	"context"
	"database/sql"
)

// SQLAdapter implements DBHandle for database/sql DB handles.
type SQLAdapter struct {
	db *sql.DB
}

// NewSQLAdapter creates a new database/sql adapter.
func NewSQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db}
}

// Ping probes the underlying handle.
func (s *SQLAdapter) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// BeginTx starts a transaction at the given isolation level. The driver
// rejects levels it does not support, so no extra mapping is needed here.
func (s *SQLAdapter) BeginTx(ctx context.Context, level sql.IsolationLevel) (DBTx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: level})
	if err != nil {
		return nil, err
	}

	return &sqlTx{tx: tx}, nil
}

// sqlTx wraps *sql.Tx to implement the DBTx interface.
type sqlTx struct {
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *sqlTx) Commit(_ context.Context) error {
	return t.tx.Commit()
}

// Rollback aborts the transaction.
func (t *sqlTx) Rollback(_ context.Context) error {
	return t.tx.Rollback()
}
