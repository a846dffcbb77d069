// Package sqlengine binds the governance primitives to concrete database
// handles: pgxpool.Pool, sql.DB, and sqlx.DB.
//
// An AccessContext is constructed once per connection target. Construction
// parses and memoizes the connection string, resolves the effective
// concurrency mode against the engine capabilities, and sizes or disables the
// pool governors and the contention lock accordingly. After that the context
// exposes:
//
//   - AcquireRead / AcquireWrite: permit acquisition routed per mode
//   - ResolveIsolation / BeginTx: profile-to-isolation mapping and
//     instrumented transaction starts
//   - PoolSnapshot / ContentionSnapshot / MetricsSnapshot: the read-only
//     diagnostic surface
//
// The context never opens or closes physical connections; the injected handle
// stays owned by the caller. Closing the context only disposes the admission
// primitives, failing queued and future acquires deterministically.
//
// Common usage pattern:
//
//	caps := governance.CapabilitiesFor(governance.EnginePostgres)
//	ac, err := sqlengine.NewAccessContextFromPGXPool(pool, caps, connString,
//		governance.ModeStandard,
//		sqlengine.WithReaderPoolSize(16),
//		sqlengine.WithLogger(logger),
//	)
//	if err != nil {
//		// handle error
//	}
//	defer ac.Close()
//
//	permit, err := ac.AcquireWrite(ctx, 5*time.Second)
//	if err != nil {
//		// retry / backoff on saturation or contention timeouts
//	}
//	defer permit.Release()
package sqlengine
