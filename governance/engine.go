package governance

import (
	"database/sql"
)

// Engine identifies a supported database engine. It is a closed set: resolvers
// switch on the tag and every member carries a static capability record, so no
// runtime type inspection is involved in dispatch.
type Engine int

const (
	// EngineUnknown is the zero value, used for engines outside the matrix.
	// Unknown engines resolve only StrictConsistency.
	EngineUnknown Engine = iota

	// EnginePostgres is PostgreSQL (client/server, MVCC).
	EnginePostgres

	// EngineMySQL is MySQL / InnoDB (client/server, MVCC).
	EngineMySQL

	// EngineSQLite is SQLite (embedded, single writer).
	EngineSQLite

	// EngineSQLServer is Microsoft SQL Server; snapshot isolation requires a
	// database-side opt-in, tracked by EngineCapabilities.SnapshotIsolationEnabled.
	EngineSQLServer
)

// String provides a string representation of Engine for logging and debugging.
func (e Engine) String() string {
	switch e {
	case EnginePostgres:
		return "postgres"
	case EngineMySQL:
		return "mysql"
	case EngineSQLite:
		return "sqlite"
	case EngineSQLServer:
		return "sqlserver"
	default:
		return "unknown"
	}
}

// EngineCapabilities describes what a database engine supports, as consumed by
// ResolveMode and ResolveIsolation. A record is usually obtained from
// CapabilitiesFor and, where a runtime flag applies (snapshot isolation
// opt-in), adjusted by the caller before constructing an access context.
type EngineCapabilities struct {
	Engine                    Engine
	SupportsConcurrentWriters bool
	IsEmbedded                bool
	SupportedIsolationLevels  []sql.IsolationLevel

	// SnapshotIsolationEnabled reports whether the engine-side prerequisite
	// for snapshot-style reads is currently enabled (e.g. the SQL Server
	// ALLOW_SNAPSHOT_ISOLATION database option). Only consulted for engines
	// whose snapshot level requires an opt-in.
	SnapshotIsolationEnabled bool
}

// Supports reports whether the capability record lists the given isolation level.
func (c EngineCapabilities) Supports(level sql.IsolationLevel) bool {
	for _, supported := range c.SupportedIsolationLevels {
		if supported == level {
			return true
		}
	}

	return false
}

// CapabilitiesFor returns the static capability record for an engine.
// Unknown engines get a record that only supports Serializable, so consistency
// is never silently weakened for engines outside the matrix.
func CapabilitiesFor(engine Engine) EngineCapabilities {
	switch engine {
	case EnginePostgres:
		return EngineCapabilities{
			Engine:                    EnginePostgres,
			SupportsConcurrentWriters: true,
			SupportedIsolationLevels: []sql.IsolationLevel{
				sql.LevelReadUncommitted,
				sql.LevelReadCommitted,
				sql.LevelRepeatableRead,
				sql.LevelSerializable,
			},
		}

	case EngineMySQL:
		return EngineCapabilities{
			Engine:                    EngineMySQL,
			SupportsConcurrentWriters: true,
			SupportedIsolationLevels: []sql.IsolationLevel{
				sql.LevelReadUncommitted,
				sql.LevelReadCommitted,
				sql.LevelRepeatableRead,
				sql.LevelSerializable,
			},
		}

	case EngineSQLite:
		return EngineCapabilities{
			Engine:                    EngineSQLite,
			SupportsConcurrentWriters: false,
			IsEmbedded:                true,
			SupportedIsolationLevels: []sql.IsolationLevel{
				sql.LevelSerializable,
			},
		}

	case EngineSQLServer:
		return EngineCapabilities{
			Engine:                    EngineSQLServer,
			SupportsConcurrentWriters: true,
			SupportedIsolationLevels: []sql.IsolationLevel{
				sql.LevelReadUncommitted,
				sql.LevelReadCommitted,
				sql.LevelRepeatableRead,
				sql.LevelSnapshot,
				sql.LevelSerializable,
			},
		}

	default:
		return EngineCapabilities{
			Engine: EngineUnknown,
			SupportedIsolationLevels: []sql.IsolationLevel{
				sql.LevelSerializable,
			},
		}
	}
}
