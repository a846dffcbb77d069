package governance

import (
	"errors"
)

var (
	// ErrPoolSaturated is returned when an acquire against a pool governor
	// times out while the pool is at capacity.
	ErrPoolSaturated = errors.New("pool saturated, acquire timed out")

	// ErrGovernorClosed is returned for acquires against a closed pool governor,
	// including waiters that were queued when Close was called.
	ErrGovernorClosed = errors.New("pool governor is closed")

	// ErrLockContention is returned when a contention lock acquire times out
	// while another holder keeps the lock.
	ErrLockContention = errors.New("contention lock acquire timed out")

	// ErrLockClosed is returned for lock acquires against a closed contention lock.
	ErrLockClosed = errors.New("contention lock is closed")

	// ErrProfileNotSupported is returned when an engine does not recognize
	// the requested isolation profile at all.
	ErrProfileNotSupported = errors.New("isolation profile not supported by engine")

	// ErrIsolationPrerequisite is returned when the resolved isolation level
	// requires an engine-side prerequisite that is not currently enabled.
	ErrIsolationPrerequisite = errors.New("isolation level prerequisite not enabled")

	// ErrEmptyConnectionString is returned when an empty connection string is parsed.
	ErrEmptyConnectionString = errors.New("empty connection string supplied")

	// ErrUnparsableConnectionString is returned when a connection string cannot
	// be normalized into a key/value view.
	ErrUnparsableConnectionString = errors.New("connection string could not be parsed")

	// ErrNilDatabaseHandle is returned when an access context is constructed
	// over a nil database handle.
	ErrNilDatabaseHandle = errors.New("nil database handle supplied")

	// ErrContextClosed is returned for operations against a closed access context.
	ErrContextClosed = errors.New("access context is closed")
)

// Permit is a token representing one admitted unit of concurrency, either
// from a PoolGovernor or from the ContentionLock depending on the effective
// mode. It must be released exactly once; releasing again is a no-op.
type Permit interface {
	Release()
}

var (
	_ Permit = (*PoolPermit)(nil)
	_ Permit = (*LockHandle)(nil)
)
