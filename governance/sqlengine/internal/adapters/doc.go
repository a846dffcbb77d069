// Package adapters provides database handle adapters for the access context.
//
// This package implements the adapter pattern to support multiple database
// libraries: pgxpool.Pool, sql.DB, and sqlx.DB. All adapters present the
// narrow DBHandle interface the access context needs: liveness probing and
// starting transactions at a resolved isolation level.
//
// The adapters deliberately expose nothing for query building or row handling;
// those concerns belong to external collaborators per the governance scope.
package adapters
