package sqlengine

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/dbgovernor/db-access-governor-go/governance"
	"github.com/dbgovernor/db-access-governor-go/governance/sqlengine/internal/adapters"
)

const (
	defaultReaderPoolSize = 8
	defaultWriterPoolSize = 4
	defaultAcquireTimeout = 30 * time.Second

	logMsgContextOpened   = "access context opened"
	logMsgContextClosed   = "access context closed"
	logMsgPermitAcquired  = "permit acquired"
	logMsgAcquireFailed   = "permit acquisition failed"
	logMsgAcquireTimedOut = "permit acquisition timed out"
	logMsgBeginTxFailed   = "failed to begin transaction"
	logAttrError          = "error"
	logAttrMode           = "mode"
	logAttrEngine         = "engine"
	logAttrKeyHash        = "key_hash"
	logAttrWaitMS         = "wait_ms"
	logAttrIsolation      = "isolation_level"

	metricAcquireWait     = "governance_acquire_wait_duration"
	metricAcquireTimeouts = "governance_acquire_timeouts"
	metricAcquires        = "governance_acquires"
	metricTransactions    = "governance_transactions"

	spanNameAcquire   = "governance.acquire"
	spanNameBeginTx   = "governance.begin_tx"
	spanAttrOperation = "operation"
	spanAttrPool      = "pool"
	spanAttrMode      = "mode"
	statusSuccess     = "success"
	statusError       = "error"

	operationAcquireRead  = "acquire_read"
	operationAcquireWrite = "acquire_write"
	operationBeginTx      = "begin_tx"
)

// Tx is an open transaction started through BeginTx.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// AccessContext governs concurrent access to one database connection target.
// Construction resolves the effective concurrency mode exactly once and sizes
// (or disables) the pool governors and the contention lock accordingly; the
// mode never changes afterwards. The physical connection lifecycle stays with
// the owner of the injected handle.
type AccessContext struct {
	handle adapters.DBHandle
	caps   governance.EngineCapabilities
	mode   governance.ConcurrencyMode
	target governance.TargetDescriptor

	readers    *governance.PoolGovernor
	writers    *governance.PoolGovernor
	lock       *governance.ContentionLock
	aggregator *governance.MetricsAggregator
	cache      *governance.NormalizationCache
	keyHash    uint64

	logger           governance.Logger
	contextualLogger governance.ContextualLogger
	metricsCollector governance.MetricsCollector
	tracingCollector governance.TracingCollector

	readerPoolSize int
	writerPoolSize int
	acquireTimeout time.Duration
	metricsWindow  int

	closed atomic.Bool
}

// NewAccessContextFromPGXPool creates an access context over a pgx pool with
// optional configuration.
func NewAccessContextFromPGXPool(
	pool *pgxpool.Pool,
	caps governance.EngineCapabilities,
	connString string,
	requested governance.ConcurrencyMode,
	options ...Option,
) (*AccessContext, error) {

	if pool == nil {
		return nil, governance.ErrNilDatabaseHandle
	}

	return newAccessContext(adapters.NewPGXAdapter(pool), caps, connString, requested, options)
}

// NewAccessContextFromSQLDB creates an access context over a sql.DB with
// optional configuration.
func NewAccessContextFromSQLDB(
	db *sql.DB,
	caps governance.EngineCapabilities,
	connString string,
	requested governance.ConcurrencyMode,
	options ...Option,
) (*AccessContext, error) {

	if db == nil {
		return nil, governance.ErrNilDatabaseHandle
	}

	return newAccessContext(adapters.NewSQLAdapter(db), caps, connString, requested, options)
}

// NewAccessContextFromSQLX creates an access context over a sqlx.DB with
// optional configuration.
func NewAccessContextFromSQLX(
	db *sqlx.DB,
	caps governance.EngineCapabilities,
	connString string,
	requested governance.ConcurrencyMode,
	options ...Option,
) (*AccessContext, error) {

	if db == nil {
		return nil, governance.ErrNilDatabaseHandle
	}

	return newAccessContext(adapters.NewSQLXAdapter(db), caps, connString, requested, options)
}

func newAccessContext(
	handle adapters.DBHandle,
	caps governance.EngineCapabilities,
	connString string,
	requested governance.ConcurrencyMode,
	options []Option,
) (*AccessContext, error) {

	ac := &AccessContext{
		handle:         handle,
		caps:           caps,
		readerPoolSize: defaultReaderPoolSize,
		writerPoolSize: defaultWriterPoolSize,
		acquireTimeout: defaultAcquireTimeout,
	}

	for _, option := range options {
		if err := option(ac); err != nil {
			return nil, err
		}
	}

	ac.aggregator = governance.NewMetricsAggregator(ac.metricsWindow)

	if ac.cache == nil {
		ac.cache = governance.NewObservedNormalizationCache(0, 0, func(string) {
			ac.aggregator.RecordStatementsEvicted(1)
		})
	}

	parsed, parseErr := ac.cache.Parse(connString)
	if parseErr != nil {
		return nil, parseErr
	}

	ac.target = parsed.TargetDescriptor()
	ac.keyHash = parsed.KeyHash()
	ac.mode = governance.ResolveMode(requested, caps, ac.target)
	ac.buildPrimitives()

	ac.logOperation(logMsgContextOpened,
		logAttrEngine, caps.Engine.String(),
		logAttrMode, ac.mode.String(),
		logAttrKeyHash, ac.keyHash,
	)

	return ac, nil
}

// buildPrimitives sizes or disables the admission primitives for the resolved
// mode. The contention lock always exists so the diagnostic surface stays
// uniform; it only sees traffic in the single-writer and single-connection modes.
func (ac *AccessContext) buildPrimitives() {
	readerSize := ac.readerPoolSize
	writerSize := ac.writerPoolSize

	switch ac.mode {
	case governance.ModeSingleConnection:
		readerSize = 0
		writerSize = 0

	case governance.ModeSingleWriter:
		writerSize = 0

	case governance.ModeStandard, governance.ModeKeepAlive:
		// pools as configured
	}

	ac.readers = governance.NewPoolGovernor(governance.ReaderPool, readerSize, ac.keyHash)
	ac.writers = governance.NewPoolGovernor(governance.WriterPool, writerSize, ac.keyHash)
	ac.lock = governance.NewContentionLock(ac.mode)
}

// Mode returns the effective concurrency mode resolved at construction.
func (ac *AccessContext) Mode() governance.ConcurrencyMode {
	return ac.mode
}

// Engine returns the engine this context was built for.
func (ac *AccessContext) Engine() governance.Engine {
	return ac.caps.Engine
}

// KeyHash returns the hash identifying the connection target in errors and
// logs without exposing the raw connection string.
func (ac *AccessContext) KeyHash() uint64 {
	return ac.keyHash
}

// Metrics returns the aggregator so SQL-executing collaborators can feed
// command, row and transaction telemetry into this context's snapshot.
func (ac *AccessContext) Metrics() *governance.MetricsAggregator {
	return ac.aggregator
}

// AcquireRead obtains a read permit, routed per the effective mode: through
// the contention lock under ModeSingleConnection, through the reader pool
// governor otherwise. A timeout <= 0 uses the context's configured default.
func (ac *AccessContext) AcquireRead(ctx context.Context, timeout time.Duration) (governance.Permit, error) {
	return ac.acquire(ctx, timeout, operationAcquireRead, governance.ReaderPool)
}

// AcquireWrite obtains a write permit, routed per the effective mode: through
// the contention lock under ModeSingleConnection and ModeSingleWriter, through
// the writer pool governor otherwise. A timeout <= 0 uses the configured default.
func (ac *AccessContext) AcquireWrite(ctx context.Context, timeout time.Duration) (governance.Permit, error) {
	return ac.acquire(ctx, timeout, operationAcquireWrite, governance.WriterPool)
}

func (ac *AccessContext) acquire(
	ctx context.Context,
	timeout time.Duration,
	operation string,
	label governance.PoolLabel,
) (governance.Permit, error) {

	if ac.closed.Load() {
		return nil, governance.ErrContextClosed
	}

	if timeout <= 0 {
		timeout = ac.acquireTimeout
	}

	tracing, ctx := ac.startAcquireTracing(ctx, operation, label)

	start := time.Now()
	permit, acquireErr := ac.routedAcquire(ctx, timeout, label)
	waited := time.Since(start)

	if acquireErr != nil {
		ac.recordAcquireError(ctx, operation, acquireErr, waited)
		tracing.finishError(acquireErr)

		return nil, acquireErr
	}

	ac.recordAcquireSuccess(ctx, operation, waited)
	tracing.finishSuccess(waited)

	return permit, nil
}

// routedAcquire dispatches to the primitive the effective mode prescribes.
func (ac *AccessContext) routedAcquire(
	ctx context.Context,
	timeout time.Duration,
	label governance.PoolLabel,
) (governance.Permit, error) {

	exclusive := ac.mode == governance.ModeSingleConnection ||
		(ac.mode == governance.ModeSingleWriter && label == governance.WriterPool)

	if exclusive {
		return ac.lock.Lock(ctx, timeout)
	}

	if label == governance.ReaderPool {
		return ac.readers.Acquire(ctx, timeout)
	}

	return ac.writers.Acquire(ctx, timeout)
}

// ResolveIsolation maps an isolation profile onto a concrete level for this
// context's engine. Deterministic given static configuration; failures are
// configuration errors and are not retried.
func (ac *AccessContext) ResolveIsolation(profile governance.IsolationProfile) (sql.IsolationLevel, error) {
	return governance.ResolveIsolation(ac.caps, profile)
}

// BeginTx starts a transaction at the level resolved from the profile. The
// returned Tx records transaction completion telemetry on commit and rollback.
func (ac *AccessContext) BeginTx(ctx context.Context, profile governance.IsolationProfile) (Tx, error) {
	if ac.closed.Load() {
		return nil, governance.ErrContextClosed
	}

	level, resolveErr := ac.ResolveIsolation(profile)
	if resolveErr != nil {
		return nil, resolveErr
	}

	tracing, ctx := ac.startBeginTxTracing(ctx, level)

	tx, beginErr := ac.handle.BeginTx(ctx, level)
	if beginErr != nil {
		ac.logError(logMsgBeginTxFailed, beginErr, logAttrIsolation, level.String())
		ac.aggregator.RecordCommandFailure()
		tracing.finishError(beginErr)

		return nil, beginErr
	}

	ac.aggregator.RecordTransactionStarted()
	ac.incrementCounter(ctx, metricTransactions, operationBeginTx, statusSuccess)
	tracing.finishSuccess(0)

	return &trackedTx{tx: tx, aggregator: ac.aggregator}, nil
}

// Ping probes the governed handle.
func (ac *AccessContext) Ping(ctx context.Context) error {
	if ac.closed.Load() {
		return governance.ErrContextClosed
	}

	return ac.handle.Ping(ctx)
}

// PoolSnapshot returns an immutable snapshot of one pool governor.
func (ac *AccessContext) PoolSnapshot(label governance.PoolLabel) governance.PoolSnapshot {
	if label == governance.ReaderPool {
		return ac.readers.Snapshot()
	}

	return ac.writers.Snapshot()
}

// ContentionSnapshot returns an immutable snapshot of the contention lock.
func (ac *AccessContext) ContentionSnapshot() governance.ContentionSnapshot {
	return ac.lock.Snapshot()
}

// MetricsSnapshot returns an immutable snapshot of the aggregated telemetry.
func (ac *AccessContext) MetricsSnapshot() governance.MetricsSnapshot {
	return ac.aggregator.Snapshot()
}

// Close disposes the admission primitives: queued and future acquires fail
// deterministically. The database handle itself is not touched; its lifecycle
// belongs to the caller. Close is idempotent.
func (ac *AccessContext) Close() {
	if !ac.closed.CompareAndSwap(false, true) {
		return
	}

	ac.readers.Close()
	ac.writers.Close()
	ac.lock.Close()

	ac.logOperation(logMsgContextClosed, logAttrMode, ac.mode.String(), logAttrKeyHash, ac.keyHash)
}

// trackedTx wraps an adapter transaction so completion is counted exactly once
// even when a commit failure is followed by a rollback.
type trackedTx struct {
	tx         adapters.DBTx
	aggregator *governance.MetricsAggregator
	completed  atomic.Bool
}

func (t *trackedTx) Commit(ctx context.Context) error {
	err := t.tx.Commit(ctx)
	if err == nil && t.completed.CompareAndSwap(false, true) {
		t.aggregator.RecordTransactionCompleted()
	}

	return err
}

func (t *trackedTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err == nil && t.completed.CompareAndSwap(false, true) {
		t.aggregator.RecordTransactionCompleted()
	}

	return err
}
