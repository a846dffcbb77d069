// Package governance provides the core primitives for governing concurrent
// access to a per-target database connection resource.
//
// The package resolves a declared concurrency intent against engine
// capabilities and a connection-target descriptor into an effective
// ConcurrencyMode, and enforces that mode through two distinct primitives:
//
//   - PoolGovernor: bounded admission control with a strict FIFO wait queue,
//     one governor per resource class (reader/writer).
//   - ContentionLock: an instrumented one-holder mutex used when the mode
//     requires a single logical connection or writer.
//
// Abstract consistency requirements (IsolationProfile) are mapped onto
// concrete sql.IsolationLevel values through a per-engine support matrix,
// and a MetricsAggregator collects operational telemetry from all of the
// above, exposed as immutable snapshots.
//
// Key types:
//   - ConcurrencyMode / ResolveMode: the mode state machine
//   - PoolGovernor / PoolPermit / PoolSnapshot: admission control
//   - ContentionLock / LockHandle / ContentionSnapshot: mutual exclusion
//   - IsolationProfile / ResolveIsolation: consistency mapping
//   - MetricsAggregator / MetricsSnapshot: telemetry
//   - NormalizationCache / ParsedConnectionString: connection string memoization
//
// Common usage pattern (usually via the sqlengine package, which wires these
// primitives to a concrete database handle):
//
//	caps := governance.CapabilitiesFor(governance.EngineSQLite)
//	target := governance.TargetDescriptor{IsMemoryBacked: true, RawConnectionString: ":memory:"}
//	mode := governance.ResolveMode(governance.ModeStandard, caps, target)
//	// mode == governance.ModeSingleConnection
package governance
