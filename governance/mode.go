package governance

// ConcurrencyMode defines the concurrency discipline enforced for an access
// context. The requested mode is resolved once against engine capabilities and
// the connection target via ResolveMode; the effective mode never changes for
// the lifetime of a context.
type ConcurrencyMode int

const (
	// ModeStandard allows concurrent readers and concurrent writers, each
	// bounded by its own pool governor.
	ModeStandard ConcurrencyMode = iota

	// ModeSingleWriter serializes writers through the contention lock while
	// readers stay pooled. Applied automatically for engines that cannot
	// support concurrent writers.
	ModeSingleWriter

	// ModeSingleConnection funnels every acquisition through the contention
	// lock; both pool governors are disabled. Forced for memory-backed
	// embedded targets, where data is visible only to the creating connection.
	ModeSingleConnection

	// ModeKeepAlive admits like ModeStandard but signals the owner of the
	// physical connection lifecycle to pin one connection open. Admission
	// control itself is identical to ModeStandard.
	ModeKeepAlive
)

// String provides a string representation of ConcurrencyMode for logging and debugging.
func (m ConcurrencyMode) String() string {
	switch m {
	case ModeStandard:
		return "standard"
	case ModeSingleWriter:
		return "single-writer"
	case ModeSingleConnection:
		return "single-connection"
	case ModeKeepAlive:
		return "keep-alive"
	default:
		return "unknown"
	}
}

// TargetDescriptor describes the connection target as consumed by ResolveMode.
type TargetDescriptor struct {
	IsMemoryBacked      bool
	RawConnectionString string
}

// ResolveMode maps the requested concurrency mode onto the effective one,
// given the engine's capabilities and the connection target. It is pure and
// deterministic; the most restrictive applicable rule wins:
//
//  1. A memory-backed embedded target always resolves to ModeSingleConnection,
//     regardless of the requested mode. An in-memory embedded instance is
//     visible only to the connection that created it, so any other mode
//     silently loses data across connection churn.
//  2. An engine without concurrent writer support downgrades ModeStandard
//     to ModeSingleWriter (serialize writers, keep readers concurrent).
//  3. An explicit ModeSingleConnection request is always honored.
//  4. Otherwise the requested mode is returned unchanged.
func ResolveMode(requested ConcurrencyMode, caps EngineCapabilities, target TargetDescriptor) ConcurrencyMode {
	if target.IsMemoryBacked && caps.IsEmbedded {
		return ModeSingleConnection
	}

	if !caps.SupportsConcurrentWriters && requested == ModeStandard {
		return ModeSingleWriter
	}

	if requested == ModeSingleConnection {
		return ModeSingleConnection
	}

	return requested
}
