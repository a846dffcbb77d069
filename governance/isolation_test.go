package governance_test

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbgovernor/db-access-governor-go/governance"
)

func Test_ResolveIsolation_TableDriven(t *testing.T) {
	tests := []struct {
		name        string
		engine      governance.Engine
		profile     governance.IsolationProfile
		expected    sql.IsolationLevel
		expectedErr error
	}{
		{
			name:     "postgres strict consistency",
			engine:   governance.EnginePostgres,
			profile:  governance.StrictConsistency,
			expected: sql.LevelSerializable,
		},
		{
			name:     "postgres safe non-blocking reads",
			engine:   governance.EnginePostgres,
			profile:  governance.SafeNonBlockingReads,
			expected: sql.LevelRepeatableRead,
		},
		{
			name:     "postgres fast with risks",
			engine:   governance.EnginePostgres,
			profile:  governance.FastWithRisks,
			expected: sql.LevelReadUncommitted,
		},
		{
			name:     "mysql safe non-blocking reads",
			engine:   governance.EngineMySQL,
			profile:  governance.SafeNonBlockingReads,
			expected: sql.LevelRepeatableRead,
		},
		{
			name:     "sqlite strict consistency",
			engine:   governance.EngineSQLite,
			profile:  governance.StrictConsistency,
			expected: sql.LevelSerializable,
		},
		{
			name:        "sqlite safe non-blocking reads is rejected",
			engine:      governance.EngineSQLite,
			profile:     governance.SafeNonBlockingReads,
			expectedErr: governance.ErrProfileNotSupported,
		},
		{
			name:        "sqlite fast with risks is rejected",
			engine:      governance.EngineSQLite,
			profile:     governance.FastWithRisks,
			expectedErr: governance.ErrProfileNotSupported,
		},
		{
			name:     "sqlserver fast with risks",
			engine:   governance.EngineSQLServer,
			profile:  governance.FastWithRisks,
			expected: sql.LevelReadUncommitted,
		},
		{
			name:        "sqlserver snapshot reads without opt-in are rejected",
			engine:      governance.EngineSQLServer,
			profile:     governance.SafeNonBlockingReads,
			expectedErr: governance.ErrIsolationPrerequisite,
		},
		{
			name:     "unknown engine strict consistency",
			engine:   governance.EngineUnknown,
			profile:  governance.StrictConsistency,
			expected: sql.LevelSerializable,
		},
		{
			name:        "unknown engine safe non-blocking reads is rejected",
			engine:      governance.EngineUnknown,
			profile:     governance.SafeNonBlockingReads,
			expectedErr: governance.ErrProfileNotSupported,
		},
		{
			name:        "unknown engine fast with risks is rejected",
			engine:      governance.EngineUnknown,
			profile:     governance.FastWithRisks,
			expectedErr: governance.ErrProfileNotSupported,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			caps := governance.CapabilitiesFor(tc.engine)

			// act
			level, err := governance.ResolveIsolation(caps, tc.profile)

			// assert
			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.expectedErr))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, level)
		})
	}
}

func Test_ResolveIsolation_SQLServerSnapshot_ShouldResolve_WithOptInEnabled(t *testing.T) {
	// arrange
	caps := governance.CapabilitiesFor(governance.EngineSQLServer)
	caps.SnapshotIsolationEnabled = true

	// act
	level, err := governance.ResolveIsolation(caps, governance.SafeNonBlockingReads)

	// assert
	require.NoError(t, err)
	assert.Equal(t, sql.LevelSnapshot, level)
}

func Test_ResolveIsolation_SQLServerSnapshot_ErrorCarriesEngineAndLevel(t *testing.T) {
	// arrange
	caps := governance.CapabilitiesFor(governance.EngineSQLServer)

	// act
	_, err := governance.ResolveIsolation(caps, governance.SafeNonBlockingReads)

	// assert
	var prerequisite *governance.IsolationPrerequisiteError
	require.True(t, errors.As(err, &prerequisite))
	assert.Equal(t, governance.EngineSQLServer, prerequisite.Engine)
	assert.Equal(t, governance.SafeNonBlockingReads, prerequisite.Profile)
	assert.Equal(t, sql.LevelSnapshot, prerequisite.Level)
}

func Test_ResolveIsolation_UnknownProfile_ShouldBeRejected(t *testing.T) {
	// arrange
	caps := governance.CapabilitiesFor(governance.EnginePostgres)

	// act
	_, err := governance.ResolveIsolation(caps, governance.IsolationProfile(99))

	// assert
	assert.True(t, errors.Is(err, governance.ErrProfileNotSupported))
}
