package governance_test

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dbgovernor/db-access-governor-go/governance"
)

func Test_CapabilitiesFor_TableDriven(t *testing.T) {
	tests := []struct {
		name              string
		engine            governance.Engine
		concurrentWriters bool
		embedded          bool
		supported         []sql.IsolationLevel
		unsupported       []sql.IsolationLevel
	}{
		{
			name:              "postgres",
			engine:            governance.EnginePostgres,
			concurrentWriters: true,
			supported: []sql.IsolationLevel{
				sql.LevelReadUncommitted,
				sql.LevelReadCommitted,
				sql.LevelRepeatableRead,
				sql.LevelSerializable,
			},
			unsupported: []sql.IsolationLevel{sql.LevelSnapshot},
		},
		{
			name:              "mysql",
			engine:            governance.EngineMySQL,
			concurrentWriters: true,
			supported: []sql.IsolationLevel{
				sql.LevelReadUncommitted,
				sql.LevelReadCommitted,
				sql.LevelRepeatableRead,
				sql.LevelSerializable,
			},
			unsupported: []sql.IsolationLevel{sql.LevelSnapshot},
		},
		{
			name:      "sqlite",
			engine:    governance.EngineSQLite,
			embedded:  true,
			supported: []sql.IsolationLevel{sql.LevelSerializable},
			unsupported: []sql.IsolationLevel{
				sql.LevelReadUncommitted,
				sql.LevelReadCommitted,
				sql.LevelRepeatableRead,
				sql.LevelSnapshot,
			},
		},
		{
			name:              "sqlserver",
			engine:            governance.EngineSQLServer,
			concurrentWriters: true,
			supported: []sql.IsolationLevel{
				sql.LevelReadUncommitted,
				sql.LevelReadCommitted,
				sql.LevelRepeatableRead,
				sql.LevelSnapshot,
				sql.LevelSerializable,
			},
		},
		{
			name:        "unknown",
			engine:      governance.EngineUnknown,
			supported:   []sql.IsolationLevel{sql.LevelSerializable},
			unsupported: []sql.IsolationLevel{sql.LevelReadCommitted, sql.LevelSnapshot},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// act
			caps := governance.CapabilitiesFor(tc.engine)

			// assert
			assert.Equal(t, tc.engine, caps.Engine)
			assert.Equal(t, tc.concurrentWriters, caps.SupportsConcurrentWriters)
			assert.Equal(t, tc.embedded, caps.IsEmbedded)

			for _, level := range tc.supported {
				assert.True(t, caps.Supports(level), "expected %v to be supported", level)
			}

			for _, level := range tc.unsupported {
				assert.False(t, caps.Supports(level), "expected %v to be unsupported", level)
			}
		})
	}
}

func Test_CapabilitiesFor_SnapshotOptIn_DefaultsToDisabled(t *testing.T) {
	// act
	caps := governance.CapabilitiesFor(governance.EngineSQLServer)

	// assert
	assert.False(t, caps.SnapshotIsolationEnabled)
}

func Test_Engine_String_CoversAllEngines(t *testing.T) {
	tests := []struct {
		engine   governance.Engine
		expected string
	}{
		{governance.EngineUnknown, "unknown"},
		{governance.EnginePostgres, "postgres"},
		{governance.EngineMySQL, "mysql"},
		{governance.EngineSQLite, "sqlite"},
		{governance.EngineSQLServer, "sqlserver"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, tc.engine.String())
	}
}
