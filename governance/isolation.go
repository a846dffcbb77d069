package governance

import (
	"database/sql"
	"fmt"
)

// IsolationProfile is an engine-independent description of the desired
// consistency/performance trade-off for a transaction. Profiles are mapped
// onto concrete sql.IsolationLevel values by ResolveIsolation, validated
// against the per-engine support matrix.
type IsolationProfile int

const (
	// StrictConsistency requires full serializability. It resolves on every
	// engine, including unknown ones, as the safe default.
	StrictConsistency IsolationProfile = iota

	// SafeNonBlockingReads requests a snapshot-style level where readers do
	// not block writers. Rejected on engines without such a level.
	SafeNonBlockingReads

	// FastWithRisks requests a relaxed level (uncommitted reads) trading
	// correctness for throughput. Rejected where unsupported.
	FastWithRisks
)

// String provides a string representation of IsolationProfile for logging and debugging.
func (p IsolationProfile) String() string {
	switch p {
	case StrictConsistency:
		return "strict-consistency"
	case SafeNonBlockingReads:
		return "safe-non-blocking-reads"
	case FastWithRisks:
		return "fast-with-risks"
	default:
		return "unknown"
	}
}

// ProfileNotSupportedError reports that an engine does not recognize the
// requested isolation profile at all. This is a static configuration error
// and is never retried.
type ProfileNotSupportedError struct {
	Engine  Engine
	Profile IsolationProfile
}

func (e *ProfileNotSupportedError) Error() string {
	return fmt.Sprintf("engine %q does not support isolation profile %q", e.Engine, e.Profile)
}

// Unwrap makes errors.Is(err, ErrProfileNotSupported) work.
func (e *ProfileNotSupportedError) Unwrap() error {
	return ErrProfileNotSupported
}

// IsolationPrerequisiteError reports that the resolved isolation level exists
// on the engine but requires an engine-side prerequisite that is not enabled,
// e.g. SQL Server snapshot isolation without ALLOW_SNAPSHOT_ISOLATION.
type IsolationPrerequisiteError struct {
	Engine  Engine
	Profile IsolationProfile
	Level   sql.IsolationLevel
}

func (e *IsolationPrerequisiteError) Error() string {
	return fmt.Sprintf(
		"engine %q requires an engine-side prerequisite for isolation level %q (profile %q)",
		e.Engine, e.Level, e.Profile,
	)
}

// Unwrap makes errors.Is(err, ErrIsolationPrerequisite) work.
func (e *IsolationPrerequisiteError) Unwrap() error {
	return ErrIsolationPrerequisite
}

// ResolveIsolation maps an isolation profile to a concrete isolation level for
// the given engine capabilities. The mapping is table-driven per engine tag:
//
//   - StrictConsistency resolves to Serializable on every engine, including
//     unknown ones.
//   - SafeNonBlockingReads resolves to a snapshot-style level where the engine
//     has one (RepeatableRead on MVCC engines, Snapshot on SQL Server) and is
//     rejected with ErrProfileNotSupported otherwise. On SQL Server the
//     snapshot level additionally requires SnapshotIsolationEnabled, otherwise
//     ErrIsolationPrerequisite is returned.
//   - FastWithRisks resolves to ReadUncommitted where listed and is rejected
//     with ErrProfileNotSupported otherwise.
//
// Consistency is never silently weakened: any profile other than
// StrictConsistency against an unknown engine fails explicitly.
func ResolveIsolation(caps EngineCapabilities, profile IsolationProfile) (sql.IsolationLevel, error) {
	switch profile {
	case StrictConsistency:
		return sql.LevelSerializable, nil

	case SafeNonBlockingReads:
		return resolveSnapshotReads(caps)

	case FastWithRisks:
		return resolveRelaxedReads(caps)

	default:
		return sql.LevelDefault, &ProfileNotSupportedError{Engine: caps.Engine, Profile: profile}
	}
}

func resolveSnapshotReads(caps EngineCapabilities) (sql.IsolationLevel, error) {
	switch caps.Engine {
	case EnginePostgres, EngineMySQL:
		if !caps.Supports(sql.LevelRepeatableRead) {
			return sql.LevelDefault, &ProfileNotSupportedError{Engine: caps.Engine, Profile: SafeNonBlockingReads}
		}

		return sql.LevelRepeatableRead, nil

	case EngineSQLServer:
		if !caps.Supports(sql.LevelSnapshot) {
			return sql.LevelDefault, &ProfileNotSupportedError{Engine: caps.Engine, Profile: SafeNonBlockingReads}
		}

		if !caps.SnapshotIsolationEnabled {
			return sql.LevelDefault, &IsolationPrerequisiteError{
				Engine:  caps.Engine,
				Profile: SafeNonBlockingReads,
				Level:   sql.LevelSnapshot,
			}
		}

		return sql.LevelSnapshot, nil

	default:
		return sql.LevelDefault, &ProfileNotSupportedError{Engine: caps.Engine, Profile: SafeNonBlockingReads}
	}
}

func resolveRelaxedReads(caps EngineCapabilities) (sql.IsolationLevel, error) {
	switch caps.Engine {
	case EnginePostgres, EngineMySQL, EngineSQLServer:
		if !caps.Supports(sql.LevelReadUncommitted) {
			return sql.LevelDefault, &ProfileNotSupportedError{Engine: caps.Engine, Profile: FastWithRisks}
		}

		return sql.LevelReadUncommitted, nil

	default:
		return sql.LevelDefault, &ProfileNotSupportedError{Engine: caps.Engine, Profile: FastWithRisks}
	}
}
